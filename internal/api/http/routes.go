// Package httpapi is the thin HTTP facade over the core packages. It
// stands in for the browser shell: navigation events and form submissions
// arrive as requests, and every decision is delegated to the core.
package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/akarpov87/weatherdesk/internal/geocode"
	"github.com/akarpov87/weatherdesk/internal/locations"
	"github.com/akarpov87/weatherdesk/internal/session"
	"github.com/akarpov87/weatherdesk/internal/viewstate"
	"github.com/akarpov87/weatherdesk/internal/weather"
)

var validate = validator.New()

// Deps bundles everything the handlers need.
type Deps struct {
	Repo     *locations.Repository
	Sessions *session.Manager
	View     *viewstate.Machine
	Weather  *weather.Service
	Geocoder *geocode.Resolver
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	v1 := app.Group("/api/v1")

	v1.Post("/session/login", func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := d.Sessions.HandleLogin(c.Context(), &session.Identity{Email: req.Email}, nil)
		if err != nil {
			return mapCoreError(err)
		}
		return c.JSON(result)
	})

	v1.Post("/session/logout", func(c *fiber.Ctx) error {
		d.Sessions.HandleLogout(nil)
		return c.JSON(fiber.Map{"success": true})
	})

	v1.Get("/view", func(c *fiber.Ctx) error {
		state := d.View.State()

		count := 0
		if !state.User.Anonymous && state.User.Email != "" {
			count = len(d.Repo.List(c.Context(), state.User.Email))
		}

		identity := &session.Identity{Email: state.User.Email, Anonymous: state.User.Anonymous}
		return c.JSON(fiber.Map{
			"currentView":        state.CurrentView,
			"selectedLocationId": state.SelectedLocationID,
			"fragment":           d.View.Fragment(),
			"showBackButton":     viewstate.ShouldShowBackButton(state.CurrentView, count),
			"canManageLocations": d.Sessions.ShouldShowLocationManagementUI(identity),
		})
	})

	v1.Get("/locations", func(c *fiber.Ctx) error {
		email, err := requireEmail(c, d, "list locations")
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"locations": d.Repo.List(c.Context(), email)})
	})

	v1.Post("/locations", func(c *fiber.Ctx) error {
		var req saveLocationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if !d.Sessions.VerifyAuthentication(&session.Identity{Email: req.Email}, "save location") {
			return fiber.NewError(fiber.StatusUnauthorized, "sign in to save locations")
		}

		candidate, err := req.toCandidate(d.Geocoder)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc, err := d.Repo.Save(c.Context(), req.Email, candidate)
		if err != nil {
			return mapCoreError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(loc)
	})

	v1.Patch("/locations/:id", func(c *fiber.Ctx) error {
		var req updateLocationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if !d.Sessions.VerifyAuthentication(&session.Identity{Email: req.Email}, "update location") {
			return fiber.NewError(fiber.StatusUnauthorized, "sign in to edit locations")
		}

		loc, err := d.Repo.Update(c.Context(), req.Email, c.Params("id"), locations.Patch{
			Name:  req.Name,
			Query: req.Query,
		})
		if err != nil {
			return mapCoreError(err)
		}
		return c.JSON(loc)
	})

	v1.Delete("/locations/:id", func(c *fiber.Ctx) error {
		email, err := requireEmail(c, d, "delete location")
		if err != nil {
			return err
		}

		if err := d.Repo.Delete(c.Context(), email, c.Params("id")); err != nil {
			return mapCoreError(err)
		}
		return c.JSON(fiber.Map{"success": true})
	})

	v1.Get("/locations/:id/weather", func(c *fiber.Ctx) error {
		email, err := requireEmail(c, d, "fetch weather")
		if err != nil {
			return err
		}

		id := c.Params("id")
		var target *locations.SavedLocation
		for _, loc := range d.Repo.List(c.Context(), email) {
			if loc.ID == id {
				loc := loc
				target = &loc
				break
			}
		}
		if target == nil {
			return fiber.NewError(fiber.StatusNotFound, "location not found")
		}

		snap, stale, err := d.Weather.CurrentFor(c.Context(), target.ID,
			target.Coordinates.Latitude, target.Coordinates.Longitude)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to fetch weather data")
		}
		return c.JSON(fiber.Map{"weather": snap, "stale": stale})
	})

	// Navigation events from the shell: card clicks, the in-app back
	// button, and browser history changes.
	v1.Post("/navigation/card/:id", func(c *fiber.Ctx) error {
		d.View.HandleCardClick(c.Params("id"))
		return c.JSON(stateResponse(d.View))
	})

	v1.Post("/navigation/back", func(c *fiber.Ctx) error {
		d.View.HandleBackNavigation()
		return c.JSON(stateResponse(d.View))
	})

	v1.Post("/navigation/history", func(c *fiber.Ctx) error {
		var req historyRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		d.View.HandleHistoryChange(req.Fragment)
		return c.JSON(stateResponse(d.View))
	})
}

type loginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type saveLocationRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	Name      string   `json:"name" validate:"required"`
	Query     string   `json:"query" validate:"required"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// toCandidate builds the repository candidate, resolving the search query
// to coordinates when the caller did not supply them.
func (r saveLocationRequest) toCandidate(geo *geocode.Resolver) (locations.Candidate, error) {
	c := locations.Candidate{Name: r.Name, Query: r.Query}

	if r.Latitude != nil && r.Longitude != nil {
		c.Coordinates = locations.Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}
		return c, nil
	}

	lat, lon, err := geo.Resolve(r.Query)
	if err != nil {
		return locations.Candidate{}, err
	}
	c.Coordinates = locations.Coordinates{Latitude: lat, Longitude: lon}
	return c, nil
}

type updateLocationRequest struct {
	Email string  `json:"email" validate:"required,email"`
	Name  *string `json:"name,omitempty"`
	Query *string `json:"query,omitempty"`
}

type historyRequest struct {
	Fragment string `json:"fragment"`
}

func requireEmail(c *fiber.Ctx, d Deps, operation string) (string, error) {
	email := c.Query("email")
	if !d.Sessions.VerifyAuthentication(&session.Identity{Email: email}, operation) {
		return "", fiber.NewError(fiber.StatusUnauthorized, "sign in first")
	}
	return email, nil
}

func stateResponse(m *viewstate.Machine) fiber.Map {
	state := m.State()
	return fiber.Map{
		"currentView":        state.CurrentView,
		"selectedLocationId": state.SelectedLocationID,
		"fragment":           m.Fragment(),
	}
}

func mapCoreError(err error) error {
	var verr *locations.ValidationError
	var derr *locations.DuplicateError

	switch {
	case errors.As(err, &verr):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &derr):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, locations.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrAnonymousLogin):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

package locations

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/akarpov87/weatherdesk/internal/kvstore"
	"github.com/akarpov87/weatherdesk/internal/metrics"
)

// Repository owns all read and write access to per-user location storage.
// Mutations are serialized with a mutex so a read-modify-write cycle always
// completes before the next one starts; concurrent writers from another
// process remain last-writer-wins by design.
type Repository struct {
	store    *kvstore.Fallback
	validate *validator.Validate
	log      *slog.Logger

	mu sync.Mutex

	now   func() time.Time
	newID func() string
}

// NewRepository creates a Repository over the given store.
func NewRepository(store *kvstore.Fallback, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:    store,
		validate: validator.New(),
		log:      logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Validate checks a candidate against the structural rules and reports all
// violations. The name is trimmed before the empty check so a
// whitespace-only name is rejected. A nil return means the candidate is
// valid.
func (r *Repository) Validate(c Candidate) error {
	c.Name = trim(c.Name)
	err := r.validate.Struct(c)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{Violations: []string{err.Error()}}
	}

	var violations []string
	for _, fe := range verrs {
		switch fe.Field() {
		case "Name":
			violations = append(violations, "name must not be empty")
		case "Query":
			violations = append(violations, "query must not be empty")
		case "Latitude":
			violations = append(violations, "latitude must be a number between -90 and 90")
		case "Longitude":
			violations = append(violations, "longitude must be a number between -180 and 180")
		default:
			violations = append(violations, fe.Error())
		}
	}
	return &ValidationError{Violations: violations}
}

// Exists reports whether the user already has a location whose normalized
// name equals the normalized input.
func (r *Repository) Exists(ctx context.Context, email, name string) bool {
	want := normalizeName(name)
	for _, loc := range r.List(ctx, email) {
		if normalizeName(loc.Name) == want {
			return true
		}
	}
	return false
}

// List returns the user's collection in storage order. A missing or
// structurally invalid payload degrades to an empty list rather than an
// error: a corrupt record must not take down the read path.
func (r *Repository) List(ctx context.Context, email string) []SavedLocation {
	raw, ok := r.store.Get(ctx, storageKey(email))
	if !ok {
		return nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		r.log.Warn("malformed location payload, treating as empty",
			"user", email, "error", err)
		return nil
	}
	return env.Locations
}

// Save validates the candidate, rejects duplicate names, assigns a fresh id
// and timestamps, appends it to the collection, and persists the envelope.
func (r *Repository) Save(ctx context.Context, email string, c Candidate) (*SavedLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.Name = trim(c.Name)
	r.log.Info("saving location", "user", email, "name", c.Name)

	if err := r.Validate(c); err != nil {
		metrics.LocationOps.WithLabelValues("save", "invalid").Inc()
		r.log.Warn("location rejected by validation", "user", email, "error", err)
		return nil, err
	}
	if r.Exists(ctx, email, c.Name) {
		metrics.LocationOps.WithLabelValues("save", "duplicate").Inc()
		r.log.Warn("location rejected as duplicate", "user", email, "name", c.Name)
		return nil, &DuplicateError{Name: c.Name}
	}

	now := r.now()
	loc := SavedLocation{
		ID:          r.newID(),
		Name:        c.Name,
		Coordinates: c.Coordinates,
		Query:       c.Query,
		AddedAt:     now,
		UpdatedAt:   now,
	}

	locs := append(r.List(ctx, email), loc)
	if err := r.persist(ctx, email, locs); err != nil {
		metrics.LocationOps.WithLabelValues("save", "error").Inc()
		return nil, err
	}

	metrics.LocationOps.WithLabelValues("save", "ok").Inc()
	r.log.Info("location saved", "user", email, "id", loc.ID, "name", loc.Name)
	return &loc, nil
}

// Update merges the patch over the stored record. The id, coordinates, and
// creation timestamp always keep their stored values: an edit must not
// silently relocate a pin or forge history. The merged record is
// re-validated and re-checked for name collisions against all other
// records.
func (r *Repository) Update(ctx context.Context, email, id string, p Patch) (*SavedLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Info("updating location", "user", email, "id", id)

	locs := r.List(ctx, email)
	idx := indexOf(locs, id)
	if idx < 0 {
		metrics.LocationOps.WithLabelValues("update", "not_found").Inc()
		r.log.Warn("location to update not found", "user", email, "id", id)
		return nil, fmt.Errorf("update location %s: %w", id, ErrNotFound)
	}

	merged := locs[idx]
	if p.Name != nil {
		merged.Name = trim(*p.Name)
	}
	if p.Query != nil {
		merged.Query = *p.Query
	}
	merged.UpdatedAt = r.now()

	if err := r.Validate(Candidate{
		Name:        merged.Name,
		Coordinates: merged.Coordinates,
		Query:       merged.Query,
	}); err != nil {
		metrics.LocationOps.WithLabelValues("update", "invalid").Inc()
		r.log.Warn("updated location rejected by validation", "user", email, "id", id, "error", err)
		return nil, err
	}

	want := normalizeName(merged.Name)
	for i, other := range locs {
		if i != idx && normalizeName(other.Name) == want {
			metrics.LocationOps.WithLabelValues("update", "duplicate").Inc()
			r.log.Warn("updated location rejected as duplicate", "user", email, "id", id, "name", merged.Name)
			return nil, &DuplicateError{Name: merged.Name}
		}
	}

	locs[idx] = merged
	if err := r.persist(ctx, email, locs); err != nil {
		metrics.LocationOps.WithLabelValues("update", "error").Inc()
		return nil, err
	}

	metrics.LocationOps.WithLabelValues("update", "ok").Inc()
	r.log.Info("location updated", "user", email, "id", id, "name", merged.Name)
	return &merged, nil
}

// Delete removes the record with the given id, keeping the order of the
// remaining records.
func (r *Repository) Delete(ctx context.Context, email, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Info("deleting location", "user", email, "id", id)

	locs := r.List(ctx, email)
	idx := indexOf(locs, id)
	if idx < 0 {
		metrics.LocationOps.WithLabelValues("delete", "not_found").Inc()
		r.log.Warn("location to delete not found", "user", email, "id", id)
		return fmt.Errorf("delete location %s: %w", id, ErrNotFound)
	}

	locs = append(locs[:idx], locs[idx+1:]...)
	if err := r.persist(ctx, email, locs); err != nil {
		metrics.LocationOps.WithLabelValues("delete", "error").Inc()
		return err
	}

	metrics.LocationOps.WithLabelValues("delete", "ok").Inc()
	r.log.Info("location deleted", "user", email, "id", id)
	return nil
}

func (r *Repository) persist(ctx context.Context, email string, locs []SavedLocation) error {
	env := envelope{Version: envelopeVersion, Locations: locs}
	raw, err := json.Marshal(env)
	if err != nil {
		// The store itself cannot fail; encoding is the only thing that can.
		r.log.Error("failed to encode location envelope", "user", email, "error", err)
		return fmt.Errorf("encode locations for %s: %w", email, err)
	}

	r.store.Put(ctx, storageKey(email), string(raw))
	return nil
}

func indexOf(locs []SavedLocation, id string) int {
	for i, loc := range locs {
		if loc.ID == id {
			return i
		}
	}
	return -1
}

func trim(s string) string {
	return strings.TrimSpace(s)
}

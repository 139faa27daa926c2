// Package refresher keeps the weather cache warm for the active user's
// saved locations.
package refresher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/akarpov87/weatherdesk/internal/locations"
	"github.com/akarpov87/weatherdesk/internal/viewstate"
	"github.com/akarpov87/weatherdesk/internal/weather"
)

// Refresher periodically re-fetches weather for every location saved by the
// currently signed-in user.
type Refresher struct {
	scheduler *gocron.Scheduler
	repo      *locations.Repository
	weather   *weather.Service
	view      *viewstate.Machine
	interval  time.Duration
	log       *slog.Logger
}

// New creates a Refresher.
func New(repo *locations.Repository, svc *weather.Service, view *viewstate.Machine, interval time.Duration, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		scheduler: gocron.NewScheduler(time.UTC),
		repo:      repo,
		weather:   svc,
		view:      view,
		interval:  interval,
		log:       logger,
	}
}

// Start schedules the periodic refresh job and starts the scheduler.
func (r *Refresher) Start() error {
	seconds := int(r.interval.Seconds())
	if seconds <= 0 {
		seconds = 60
	}

	_, err := r.scheduler.Every(seconds).Seconds().Do(r.runOnce)
	if err != nil {
		return err
	}

	r.scheduler.StartAsync()
	return nil
}

func (r *Refresher) runOnce() {
	user := r.view.State().User
	if user.Anonymous || user.Email == "" {
		return
	}

	locs := r.repo.List(context.Background(), user.Email)
	if len(locs) == 0 {
		return
	}

	r.log.Debug("refreshing weather for saved locations", "user", user.Email, "count", len(locs))

	var wg sync.WaitGroup
	for _, loc := range locs {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if _, _, err := r.weather.CurrentFor(ctx, loc.ID, loc.Coordinates.Latitude, loc.Coordinates.Longitude); err != nil {
				r.log.Warn("weather refresh failed", "location", loc.ID, "error", err)
			}
		}()
	}
	wg.Wait()
}

// Stop stops the scheduler and cancels any future jobs.
func (r *Refresher) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}

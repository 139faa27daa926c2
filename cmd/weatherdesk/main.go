package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/akarpov87/weatherdesk/internal/api/http"
	"github.com/akarpov87/weatherdesk/internal/config"
	"github.com/akarpov87/weatherdesk/internal/flags"
	"github.com/akarpov87/weatherdesk/internal/geocode"
	"github.com/akarpov87/weatherdesk/internal/kvstore"
	"github.com/akarpov87/weatherdesk/internal/locations"
	"github.com/akarpov87/weatherdesk/internal/logging"
	"github.com/akarpov87/weatherdesk/internal/metrics"
	"github.com/akarpov87/weatherdesk/internal/refresher"
	"github.com/akarpov87/weatherdesk/internal/session"
	"github.com/akarpov87/weatherdesk/internal/viewstate"
	"github.com/akarpov87/weatherdesk/internal/weather"
)

// announcer surfaces assistive-technology announcements through the log;
// a real shell would feed them to a live region.
type announcer struct{}

func (announcer) Announce(message string) {
	slog.Info("announcement", "message", message)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	// Durable backend; running without one means everything lives in the
	// in-process fallback and is lost on restart.
	var durable kvstore.Backend
	if cfg.ValkeyAddr != "" {
		vk, err := kvstore.NewValkey(cfg.ValkeyAddr)
		if err != nil {
			slog.Warn("durable store unavailable, using in-process fallback only", "error", err)
		} else {
			durable = vk
			defer vk.Close()
		}
	}
	store := kvstore.NewFallback(durable, slog.Default())

	// Feature flags; without a flags file every flag stays at its default.
	var flagSource flags.Source
	if cfg.FlagsFile != "" {
		fs, err := flags.NewFileSource(cfg.FlagsFile, slog.Default())
		if err != nil {
			slog.Warn("flags file unavailable, using defaults", "error", err)
			flagSource = flags.NewStaticSource(nil)
		} else {
			flagSource = fs
		}
	} else {
		flagSource = flags.NewStaticSource(nil)
	}

	repo := locations.NewRepository(store, slog.Default())
	machine := viewstate.NewMachine(announcer{}, slog.Default())
	sessions := session.NewManager(repo, machine, flagSource, slog.Default())

	stopWatch := sessions.WatchSaveFlag(func(enabled bool) {
		// The shell re-renders on this signal; here it only gets logged.
		slog.Info("save-locations flag changed", "enabled", enabled)
	})
	defer stopWatch()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	provider := weather.NewOpenMeteoProvider(httpClient)
	cache := weather.NewCache(weather.FreshnessWindow)
	weatherSvc := weather.NewService(provider, cache, slog.Default())
	geo := geocode.New(cfg.GeocoderAPIKey, slog.Default())

	refr := refresher.New(repo, weatherSvc, machine, cfg.RefreshInterval, slog.Default())
	if err := refr.Start(); err != nil {
		slog.Error("failed to start refresher", "error", err)
		os.Exit(1)
	}
	defer refr.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weatherdesk",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weatherdesk",
		})
	})
	app.Get("/metrics", metrics.Handler())

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Repo:     repo,
		Sessions: sessions,
		View:     machine,
		Weather:  weatherSvc,
		Geocoder: geo,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("fiber server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
}

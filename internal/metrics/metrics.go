package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// Key-value store metrics
	StoreFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weatherdesk",
		Subsystem: "kvstore",
		Name:      "fallbacks_total",
		Help:      "Operations diverted from the durable backend to the in-process map",
	}, []string{"operation"})

	StoreQuotaEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "weatherdesk",
		Subsystem: "kvstore",
		Name:      "quota_events_total",
		Help:      "Durable backend writes rejected for quota or memory limits",
	})

	// Location repository metrics
	LocationOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weatherdesk",
		Subsystem: "locations",
		Name:      "operations_total",
		Help:      "Location repository operations by outcome",
	}, []string{"operation", "outcome"})

	// Weather cache metrics
	WeatherCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "weatherdesk",
		Subsystem: "weather",
		Name:      "cache_hits_total",
		Help:      "Weather reads served from a fresh cache entry",
	})

	WeatherCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "weatherdesk",
		Subsystem: "weather",
		Name:      "cache_misses_total",
		Help:      "Weather reads that required a provider fetch",
	})

	WeatherStaleServed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "weatherdesk",
		Subsystem: "weather",
		Name:      "stale_served_total",
		Help:      "Weather reads served from a stale cache entry after a fetch failure",
	})

	// View state metrics
	ViewTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weatherdesk",
		Subsystem: "viewstate",
		Name:      "transitions_total",
		Help:      "View state transitions by target view",
	}, []string{"view"})
)

// Handler returns a fiber handler serving the Prometheus scrape endpoint.
func Handler() fiber.Handler {
	h := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		h(c.Context())
		return nil
	}
}

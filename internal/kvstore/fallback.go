package kvstore

import (
	"context"
	"errors"
	"log/slog"

	"github.com/akarpov87/weatherdesk/internal/common"
	"github.com/akarpov87/weatherdesk/internal/metrics"
)

// Fallback composes a durable backend with an in-process map. Neither Put
// nor Get ever fails from the caller's point of view: backend errors divert
// the operation to the map, and a value written there stays readable for
// the lifetime of the process. Callers cannot tell the two apart through
// return values; the distinction shows up only in logs and in whether the
// value survives a restart.
type Fallback struct {
	durable Backend
	mem     *Memory
	log     *slog.Logger
}

// NewFallback wraps durable with an in-process fallback. A nil durable
// backend means every operation goes straight to the map.
func NewFallback(durable Backend, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		durable: durable,
		mem:     NewMemory(),
		log:     logger,
	}
}

// Put stores value under key, durably when possible.
func (f *Fallback) Put(ctx context.Context, key, value string) {
	if f.durable != nil {
		err := f.durable.Put(ctx, key, value)
		if err == nil {
			return
		}

		// Quota exhaustion is actionable by the user; generic
		// unavailability usually is not.
		if isQuotaErr(err) {
			metrics.StoreQuotaEvents.Inc()
			f.log.Warn("durable store quota exceeded, writing to in-process fallback",
				"key", key, "error", err)
		} else {
			f.log.Error("durable store write failed, writing to in-process fallback",
				"key", key, "error", err)
		}
	}

	metrics.StoreFallbacks.WithLabelValues("put").Inc()
	_ = f.mem.Put(ctx, key, value)
}

// Get returns the value for key and whether it was present, consulting the
// durable backend first and the in-process map second.
func (f *Fallback) Get(ctx context.Context, key string) (string, bool) {
	if f.durable != nil {
		v, err := f.durable.Get(ctx, key)
		switch {
		case err == nil:
			return v, true
		case errors.Is(err, ErrNotFound):
			// Fall through to the map: the key may have been written
			// there during an earlier outage.
		default:
			metrics.StoreFallbacks.WithLabelValues("get").Inc()
			f.log.Error("durable store read failed, consulting in-process fallback",
				"key", key, "error", err)
		}
	}

	v, err := f.mem.Get(ctx, key)
	if err != nil {
		return "", false
	}
	return v, true
}

// ResetFallback clears the in-process map. Test and debug use.
func (f *Fallback) ResetFallback() {
	f.mem.Reset()
}

func isQuotaErr(err error) bool {
	return common.HasAny(err.Error(), "oom", "maxmemory", "quota", "no space")
}

package kvstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenBackend fails every operation, standing in for an unavailable
// durable store.
type brokenBackend struct {
	err error
}

func (b *brokenBackend) Put(context.Context, string, string) error {
	return b.err
}

func (b *brokenBackend) Get(context.Context, string) (string, error) {
	return "", b.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFallback_DurableHealthy(t *testing.T) {
	ctx := context.Background()
	durable := NewMemory()
	f := NewFallback(durable, testLogger())

	f.Put(ctx, "k", "v")

	v, ok := f.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	// The value went to the durable backend, not the fallback map.
	got, err := durable.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestFallback_DurableDown_NeverFails(t *testing.T) {
	ctx := context.Background()
	f := NewFallback(&brokenBackend{err: errors.New("connection refused")}, testLogger())

	f.Put(ctx, "k", "v")

	v, ok := f.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestFallback_QuotaExceeded_NeverFails(t *testing.T) {
	ctx := context.Background()
	f := NewFallback(&brokenBackend{err: errors.New("OOM command not allowed when used memory > 'maxmemory'")}, testLogger())

	f.Put(ctx, "k", "v")

	v, ok := f.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestFallback_NoDurableBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFallback(nil, testLogger())

	_, ok := f.Get(ctx, "missing")
	assert.False(t, ok)

	f.Put(ctx, "k", "v")
	v, ok := f.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestFallback_DurableMissConsultsMap(t *testing.T) {
	ctx := context.Background()

	// Write while the backend is down, then "recover" it: the durable
	// store reports not-found but the fallback map still has the value.
	broken := &brokenBackend{err: errors.New("down")}
	f := NewFallback(broken, testLogger())
	f.Put(ctx, "k", "v")

	f.durable = NewMemory()
	v, ok := f.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestFallback_Reset(t *testing.T) {
	ctx := context.Background()
	f := NewFallback(nil, testLogger())

	f.Put(ctx, "k", "v")
	f.ResetFallback()

	_, ok := f.Get(ctx, "k")
	assert.False(t, ok)
}

func TestIsQuotaErr(t *testing.T) {
	assert.True(t, isQuotaErr(errors.New("OOM command not allowed")))
	assert.True(t, isQuotaErr(errors.New("disk quota exceeded")))
	assert.False(t, isQuotaErr(errors.New("connection refused")))
}

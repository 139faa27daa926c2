package locations

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpov87/weatherdesk/internal/kvstore"
)

const testEmail = "user@example.com"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	store := kvstore.NewFallback(nil, testLogger())
	return NewRepository(store, testLogger())
}

func validCandidate() Candidate {
	return Candidate{
		Name:        "Paris",
		Coordinates: Coordinates{Latitude: 48.8566, Longitude: 2.3522},
		Query:       "paris france",
	}
}

func TestSaveThenList_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	saved, err := r.Save(ctx, testEmail, validCandidate())
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	locs := r.List(ctx, testEmail)
	require.Len(t, locs, 1)
	assert.Equal(t, "Paris", locs[0].Name)
	assert.Equal(t, "paris france", locs[0].Query)
	assert.InDelta(t, 48.8566, locs[0].Coordinates.Latitude, 1e-9)
	assert.InDelta(t, 2.3522, locs[0].Coordinates.Longitude, 1e-9)
	assert.Equal(t, locs[0].AddedAt, locs[0].UpdatedAt)
}

func TestSave_DuplicateRejected(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	_, err := r.Save(ctx, testEmail, validCandidate())
	require.NoError(t, err)

	for _, name := range []string{"Paris", "PARIS", "  paris  "} {
		c := validCandidate()
		c.Name = name
		_, err := r.Save(ctx, testEmail, c)

		var dup *DuplicateError
		require.ErrorAs(t, err, &dup, "name %q should collide", name)
		assert.Contains(t, err.Error(), "already")
	}

	assert.Len(t, r.List(ctx, testEmail), 1)
}

func TestSave_CollectsAllValidationErrors(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	_, err := r.Save(ctx, testEmail, Candidate{
		Name:        "   ",
		Coordinates: Coordinates{Latitude: 200, Longitude: -999},
		Query:       "",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations, 4)
	assert.Contains(t, err.Error(), "name must not be empty")
	assert.Contains(t, err.Error(), "latitude")
	assert.Contains(t, err.Error(), "longitude")
	assert.Contains(t, err.Error(), "query must not be empty")
	assert.Empty(t, r.List(ctx, testEmail))
}

func TestValidate_WhitespaceOnlyNameRejected(t *testing.T) {
	r := newTestRepo(t)

	c := validCandidate()
	c.Name = "   "
	err := r.Validate(c)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "name must not be empty")
}

func TestSave_BoundaryCoordinates(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	c := validCandidate()
	c.Name = "Poles"
	c.Coordinates = Coordinates{Latitude: -90, Longitude: 180}

	_, err := r.Save(ctx, testEmail, c)
	require.NoError(t, err)
}

func TestUpdate_PreservesImmutableFields(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	saved, err := r.Save(ctx, testEmail, validCandidate())
	require.NoError(t, err)

	r.now = func() time.Time { return base.Add(time.Minute) }

	newName := "  Paris, FR  "
	updated, err := r.Update(ctx, testEmail, saved.ID, Patch{Name: &newName})
	require.NoError(t, err)

	assert.Equal(t, saved.ID, updated.ID)
	assert.Equal(t, saved.Coordinates, updated.Coordinates)
	assert.True(t, updated.AddedAt.Equal(saved.AddedAt))
	assert.Equal(t, "Paris, FR", updated.Name)
	assert.True(t, updated.UpdatedAt.After(updated.AddedAt))

	// The stored record matches what was returned.
	locs := r.List(ctx, testEmail)
	require.Len(t, locs, 1)
	assert.Equal(t, updated.ID, locs[0].ID)
	assert.Equal(t, updated.Name, locs[0].Name)
	assert.True(t, locs[0].AddedAt.Equal(saved.AddedAt))
	assert.True(t, locs[0].UpdatedAt.Equal(updated.UpdatedAt))
}

func TestUpdate_RejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	_, err := r.Save(ctx, testEmail, validCandidate())
	require.NoError(t, err)

	second := validCandidate()
	second.Name = "Lyon"
	saved, err := r.Save(ctx, testEmail, second)
	require.NoError(t, err)

	clash := " PARIS "
	_, err = r.Update(ctx, testEmail, saved.ID, Patch{Name: &clash})

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Contains(t, err.Error(), "already")
}

func TestUpdate_RenameToSelfAllowed(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	saved, err := r.Save(ctx, testEmail, validCandidate())
	require.NoError(t, err)

	// Recasing a location's own name must not count as a collision.
	recased := "PARIS"
	updated, err := r.Update(ctx, testEmail, saved.ID, Patch{Name: &recased})
	require.NoError(t, err)
	assert.Equal(t, "PARIS", updated.Name)
}

func TestUpdate_NotFound(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	name := "x"
	_, err := r.Update(ctx, testEmail, "no-such-id", Patch{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_RemovesExactlyOne(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	names := []string{"Paris", "Lyon", "Nice"}
	var ids []string
	for _, name := range names {
		c := validCandidate()
		c.Name = name
		saved, err := r.Save(ctx, testEmail, c)
		require.NoError(t, err)
		ids = append(ids, saved.ID)
	}

	require.NoError(t, r.Delete(ctx, testEmail, ids[1]))

	locs := r.List(ctx, testEmail)
	require.Len(t, locs, 2)
	assert.Equal(t, "Paris", locs[0].Name)
	assert.Equal(t, "Nice", locs[1].Name)
	for _, loc := range locs {
		assert.NotEqual(t, ids[1], loc.ID)
	}
}

func TestDelete_NotFound(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	err := r.Delete(ctx, testEmail, "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_MalformedPayloadDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewFallback(nil, testLogger())
	r := NewRepository(store, testLogger())

	for _, raw := range []string{
		"not json at all",
		`{"version":1,"locations":"nope"}`,
	} {
		store.Put(ctx, storageKey(testEmail), raw)
		assert.Empty(t, r.List(ctx, testEmail), "payload %q", raw)
	}

	// A corrupt record must not block subsequent writes.
	store.Put(ctx, storageKey(testEmail), "not json at all")
	_, err := r.Save(ctx, testEmail, validCandidate())
	require.NoError(t, err)
	assert.Len(t, r.List(ctx, testEmail), 1)
}

func TestExists_NormalizesName(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	_, err := r.Save(ctx, testEmail, validCandidate())
	require.NoError(t, err)

	assert.True(t, r.Exists(ctx, testEmail, "  PaRiS "))
	assert.False(t, r.Exists(ctx, testEmail, "Lyon"))
}

func TestStoragePartitionedPerUser(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	_, err := r.Save(ctx, testEmail, validCandidate())
	require.NoError(t, err)

	assert.Empty(t, r.List(ctx, "other@example.com"))
}

// failingBackend forces the durable path to fail so repository operations
// run entirely on the in-process fallback.
type failingBackend struct{}

func (failingBackend) Put(context.Context, string, string) error {
	return errors.New("backend unavailable")
}

func (failingBackend) Get(context.Context, string) (string, error) {
	return "", errors.New("backend unavailable")
}

func TestSaveAndList_SurviveBackendFailure(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewFallback(failingBackend{}, testLogger())
	r := NewRepository(store, testLogger())

	saved, err := r.Save(ctx, testEmail, validCandidate())
	require.NoError(t, err)

	locs := r.List(ctx, testEmail)
	require.Len(t, locs, 1)
	assert.Equal(t, saved.ID, locs[0].ID)
}

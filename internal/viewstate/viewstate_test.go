package viewstate

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpov87/weatherdesk/internal/flags"
)

type recordingAnnouncer struct {
	messages []string
}

func (r *recordingAnnouncer) Announce(message string) {
	r.messages = append(r.messages, message)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func flagSource(enabled bool) flags.Source {
	return flags.NewStaticSource(map[string]bool{
		flags.SaveLocationsEnabled.Key: enabled,
	})
}

func TestDetermineView_Matrix(t *testing.T) {
	named := User{Email: "user@example.com"}
	anon := User{Anonymous: true}

	tests := []struct {
		name    string
		user    User
		count   int
		enabled bool
		want    View
	}{
		{"named user with several locations", named, 3, true, ViewList},
		{"named user with one location", named, 1, true, ViewDetail},
		{"named user with no locations", named, 0, true, ViewDetail},
		{"anonymous user regardless of count", anon, 5, true, ViewDetail},
		{"flag off overrides everything", named, 5, false, ViewDetail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetermineView(tt.user, tt.count, flagSource(tt.enabled))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetermineView_FlagDefaultsToDisabled(t *testing.T) {
	src := flags.NewStaticSource(nil)
	got := DetermineView(User{Email: "user@example.com"}, 5, src)
	assert.Equal(t, ViewDetail, got)
}

func TestShouldShowBackButton(t *testing.T) {
	assert.True(t, ShouldShowBackButton(ViewDetail, 2))
	assert.False(t, ShouldShowBackButton(ViewDetail, 1))
	assert.False(t, ShouldShowBackButton(ViewList, 5))
}

func TestInitialState(t *testing.T) {
	m := NewMachine(nil, testLogger())

	state := m.State()
	assert.Equal(t, ViewDetail, state.CurrentView)
	assert.Empty(t, state.SelectedLocationID)
	assert.True(t, state.User.Anonymous)
	assert.Empty(t, state.User.Email)
	assert.Empty(t, m.Fragment())
}

func TestCardClickAndBack_RoundTrip(t *testing.T) {
	ann := &recordingAnnouncer{}
	m := NewMachine(ann, testLogger())

	m.TransitionToList()
	require.Equal(t, ViewList, m.State().CurrentView)

	m.HandleCardClick("loc-1")
	state := m.State()
	assert.Equal(t, ViewDetail, state.CurrentView)
	assert.Equal(t, "loc-1", state.SelectedLocationID)
	assert.Equal(t, "#location/loc-1", m.Fragment())

	m.HandleBackNavigation()
	state = m.State()
	assert.Equal(t, ViewList, state.CurrentView)
	assert.Empty(t, state.SelectedLocationID)
	assert.Equal(t, "#locations", m.Fragment())

	assert.Len(t, ann.messages, 3)
}

func TestCardClick_IgnoredOutsideListView(t *testing.T) {
	m := NewMachine(nil, testLogger())

	// Initial view is detail; a card click must have no effect.
	m.HandleCardClick("loc-1")
	state := m.State()
	assert.Equal(t, ViewDetail, state.CurrentView)
	assert.Empty(t, state.SelectedLocationID)
}

func TestBackNavigation_IgnoredOutsideDetailView(t *testing.T) {
	m := NewMachine(nil, testLogger())

	m.TransitionToList()
	m.HandleBackNavigation()
	assert.Equal(t, ViewList, m.State().CurrentView)
}

func TestHandleHistoryChange(t *testing.T) {
	m := NewMachine(nil, testLogger())

	m.HandleHistoryChange("#location/loc-9")
	state := m.State()
	assert.Equal(t, ViewDetail, state.CurrentView)
	assert.Equal(t, "loc-9", state.SelectedLocationID)

	m.HandleHistoryChange("#locations")
	state = m.State()
	assert.Equal(t, ViewList, state.CurrentView)
	assert.Empty(t, state.SelectedLocationID)

	// Unknown and empty fragments are ignored.
	m.HandleHistoryChange("#garbage")
	assert.Equal(t, ViewList, m.State().CurrentView)
	m.HandleHistoryChange("")
	assert.Equal(t, ViewList, m.State().CurrentView)
}

func TestSetUserContext_DoesNotChangeView(t *testing.T) {
	m := NewMachine(nil, testLogger())
	m.TransitionToList()

	m.SetUserContext(User{Email: "user@example.com"})

	state := m.State()
	assert.Equal(t, ViewList, state.CurrentView)
	assert.Equal(t, "user@example.com", state.User.Email)
	assert.False(t, state.User.Anonymous)
}

func TestReset(t *testing.T) {
	m := NewMachine(nil, testLogger())
	m.SetUserContext(User{Email: "user@example.com"})
	m.TransitionToDetail("loc-1")

	m.Reset()

	state := m.State()
	assert.Equal(t, ViewDetail, state.CurrentView)
	assert.Empty(t, state.SelectedLocationID)
	assert.True(t, state.User.Anonymous)
	assert.Empty(t, state.User.Email)
	assert.Empty(t, m.Fragment())
}

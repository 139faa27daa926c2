// Package viewstate decides which screen the weather app shows and owns
// the single process-wide view state: the active view, the selected
// location, and the user identity. State changes only through the
// transition methods; the current view and selection always change
// together.
package viewstate

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/akarpov87/weatherdesk/internal/flags"
	"github.com/akarpov87/weatherdesk/internal/metrics"
)

// View names a screen.
type View string

const (
	ViewList   View = "list"
	ViewDetail View = "detail"
)

// Navigable history fragments. An empty fragment means no explicit
// navigation state yet.
const (
	FragmentList         = "#locations"
	fragmentDetailPrefix = "#location/"
)

// User is the identity sub-record of the view state.
type User struct {
	Email     string
	Anonymous bool
}

// State is a snapshot of the machine's state.
type State struct {
	CurrentView        View
	SelectedLocationID string
	User               User
}

// Announcer receives human-readable transition announcements for assistive
// technology. The UI shell decides how to surface them.
type Announcer interface {
	Announce(message string)
}

type noopAnnouncer struct{}

func (noopAnnouncer) Announce(string) {}

// Machine holds the single view-state instance. All mutation goes through
// its methods.
type Machine struct {
	mu        sync.Mutex
	state     State
	fragment  string
	announcer Announcer
	log       *slog.Logger
}

// NewMachine creates a Machine in the initial state: detail view, nothing
// selected, anonymous user. A nil announcer is replaced with a no-op.
func NewMachine(announcer Announcer, logger *slog.Logger) *Machine {
	if announcer == nil {
		announcer = noopAnnouncer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		state:     initialState(),
		announcer: announcer,
		log:       logger,
	}
}

func initialState() State {
	return State{
		CurrentView: ViewDetail,
		User:        User{Anonymous: true},
	}
}

// DetermineView is the pure decision function for which screen applies.
// The save flag is an absolute override, then anonymity, then the count.
func DetermineView(user User, locationCount int, src flags.Source) View {
	if !src.Bool(flags.SaveLocationsEnabled) {
		return ViewDetail
	}
	if user.Anonymous {
		return ViewDetail
	}
	if locationCount >= 2 {
		return ViewList
	}
	return ViewDetail
}

// ShouldShowBackButton reports whether the back affordance applies: only in
// detail view, and only when there is a list worth going back to.
func ShouldShowBackButton(current View, locationCount int) bool {
	return current == ViewDetail && locationCount >= 2
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fragment returns the current history fragment.
func (m *Machine) Fragment() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fragment
}

// TransitionToList switches to the list view and clears the selection.
func (m *Machine) TransitionToList() {
	m.mu.Lock()
	m.state.CurrentView = ViewList
	m.state.SelectedLocationID = ""
	m.fragment = FragmentList
	m.mu.Unlock()

	metrics.ViewTransitions.WithLabelValues(string(ViewList)).Inc()
	m.log.Debug("view transition", "view", ViewList)
	m.announcer.Announce("Showing your saved locations")
}

// TransitionToDetail switches to the detail view for the given location.
func (m *Machine) TransitionToDetail(locationID string) {
	m.mu.Lock()
	m.state.CurrentView = ViewDetail
	m.state.SelectedLocationID = locationID
	m.fragment = fragmentDetailPrefix + locationID
	m.mu.Unlock()

	metrics.ViewTransitions.WithLabelValues(string(ViewDetail)).Inc()
	m.log.Debug("view transition", "view", ViewDetail, "location", locationID)
	m.announcer.Announce("Showing weather details for the selected location")
}

// HandleCardClick reacts to a card click. It has effect only in list view.
func (m *Machine) HandleCardClick(locationID string) {
	m.mu.Lock()
	inList := m.state.CurrentView == ViewList
	m.mu.Unlock()

	if !inList {
		return
	}
	m.TransitionToDetail(locationID)
}

// HandleBackNavigation reacts to the in-app back button. It has effect only
// in detail view.
func (m *Machine) HandleBackNavigation() {
	m.mu.Lock()
	inDetail := m.state.CurrentView == ViewDetail
	m.mu.Unlock()

	if !inDetail {
		return
	}
	m.TransitionToList()
}

// HandleHistoryChange applies a browser back/forward event. The user action
// already happened in the browser, so the fragment is applied directly,
// bypassing the click and back handlers. Unknown or empty fragments are
// ignored.
func (m *Machine) HandleHistoryChange(fragment string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case fragment == FragmentList:
		m.state.CurrentView = ViewList
		m.state.SelectedLocationID = ""
		m.fragment = fragment
	case strings.HasPrefix(fragment, fragmentDetailPrefix):
		m.state.CurrentView = ViewDetail
		m.state.SelectedLocationID = strings.TrimPrefix(fragment, fragmentDetailPrefix)
		m.fragment = fragment
	default:
		m.log.Debug("ignoring unknown history fragment", "fragment", fragment)
	}
}

// SetUserContext replaces the user sub-record without touching the view.
func (m *Machine) SetUserContext(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.User = u
}

// Reset restores the initial state and clears the history fragment. Used on
// logout and in test setup.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = initialState()
	m.fragment = ""
}

// Package session bridges user-session transitions into location loads and
// view-state changes, and gates whether location management is exposed at
// all.
package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/akarpov87/weatherdesk/internal/flags"
	"github.com/akarpov87/weatherdesk/internal/locations"
	"github.com/akarpov87/weatherdesk/internal/viewstate"
)

// ErrAnonymousLogin is returned when an anonymous identity attempts to log
// in.
var ErrAnonymousLogin = errors.New("anonymous identity cannot log in")

// Identity is the shape consumed from the auth layer. An identity is
// treated as anonymous whenever the flag is set or the email is absent.
type Identity struct {
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anonymous,omitempty"`
}

// IsNamedUser reports whether id is a usable, named identity.
func IsNamedUser(id *Identity) bool {
	return id != nil && !id.Anonymous && id.Email != ""
}

// IsAnonymousUser reports whether id must be treated as anonymous.
func IsAnonymousUser(id *Identity) bool {
	return !IsNamedUser(id)
}

// LoginResult is the bundle handed to the caller after a successful login.
type LoginResult struct {
	Locations []locations.SavedLocation `json:"locations"`
	View      viewstate.View            `json:"view"`
	CanSave   bool                      `json:"canSave"`
}

// Manager wires identity transitions into the repository and the view
// state machine.
type Manager struct {
	repo  *locations.Repository
	view  *viewstate.Machine
	flags flags.Source
	log   *slog.Logger
}

// NewManager creates a Manager.
func NewManager(repo *locations.Repository, view *viewstate.Machine, src flags.Source, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{repo: repo, view: view, flags: src, log: logger}
}

// VerifyAuthentication reports whether the identity may perform the given
// operation. Callers abort the operation when this returns false.
func (m *Manager) VerifyAuthentication(id *Identity, operation string) bool {
	if IsNamedUser(id) {
		return true
	}
	m.log.Warn("operation requires a signed-in user", "operation", operation)
	return false
}

// HandleLogin marks the identity as the active user, loads their saved
// locations, and computes the applicable view. onComplete, if non-nil,
// receives the same bundle that is returned.
func (m *Manager) HandleLogin(ctx context.Context, id *Identity, onComplete func(LoginResult)) (*LoginResult, error) {
	if IsAnonymousUser(id) {
		m.log.Warn("login rejected for anonymous identity")
		return nil, ErrAnonymousLogin
	}

	canSave := m.flags.Bool(flags.SaveLocationsEnabled)

	user := viewstate.User{Email: id.Email, Anonymous: false}
	m.view.SetUserContext(user)

	locs := m.repo.List(ctx, id.Email)
	view := viewstate.DetermineView(user, len(locs), m.flags)

	result := LoginResult{
		Locations: locs,
		View:      view,
		CanSave:   canSave,
	}

	m.log.Info("user logged in",
		"user", id.Email, "locations", len(locs), "view", view, "canSave", canSave)

	if onComplete != nil {
		onComplete(result)
	}
	return &result, nil
}

// HandleLogout marks the identity anonymous and resets the view state.
// Stored locations are deliberately left untouched so the same email finds
// them again on the next login.
func (m *Manager) HandleLogout(onComplete func()) {
	m.view.SetUserContext(viewstate.User{Anonymous: true})
	m.view.Reset()

	m.log.Info("user logged out")

	if onComplete != nil {
		onComplete()
	}
}

// ShouldShowLocationManagementUI reports whether location-management
// affordances are exposed: the identity must be named and the save flag
// must be on. Neither alone suffices.
func (m *Manager) ShouldShowLocationManagementUI(id *Identity) bool {
	return IsNamedUser(id) && m.flags.Bool(flags.SaveLocationsEnabled)
}

// WatchSaveFlag invokes fn with the new value whenever the save flag
// changes. It does not re-derive view or location state; the caller is
// expected to re-trigger DetermineView and re-render.
func (m *Manager) WatchSaveFlag(fn func(enabled bool)) (stop func()) {
	return m.flags.Watch(flags.SaveLocationsEnabled, func() {
		fn(m.flags.Bool(flags.SaveLocationsEnabled))
	})
}

// Package flags exposes remotely controlled feature flags through a typed,
// injectable Source. Each flag carries its key and default in one place so
// call sites cannot disagree about either.
package flags

// BoolFlag identifies a boolean flag and its value when the source has no
// opinion.
type BoolFlag struct {
	Key     string
	Default bool
}

// SaveLocationsEnabled gates the whole location-management feature. Off by
// default: an unreachable or empty flag source must disable saving.
var SaveLocationsEnabled = BoolFlag{Key: "save_locations_enabled", Default: false}

// Source evaluates flags and notifies subscribers when a flag changes.
type Source interface {
	Bool(f BoolFlag) bool

	// Watch registers fn to run whenever the value of f changes. The
	// flag's default is the change baseline when the source has no value
	// for it. The returned function cancels the subscription.
	Watch(f BoolFlag, fn func()) (stop func())
}

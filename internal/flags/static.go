package flags

import "sync"

// StaticSource is a map-backed Source for tests and for running without a
// flags file.
type StaticSource struct {
	mu       sync.Mutex
	values   map[string]bool
	last     map[string]bool
	watchers map[string]map[int]func()
	nextID   int
}

// NewStaticSource creates a StaticSource seeded with values (may be nil).
func NewStaticSource(values map[string]bool) *StaticSource {
	vals := make(map[string]bool, len(values))
	for k, v := range values {
		vals[k] = v
	}
	return &StaticSource{
		values:   vals,
		last:     make(map[string]bool),
		watchers: make(map[string]map[int]func()),
	}
}

func (s *StaticSource) Bool(f BoolFlag) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boolLocked(f)
}

func (s *StaticSource) boolLocked(f BoolFlag) bool {
	v, ok := s.values[f.Key]
	if !ok {
		return f.Default
	}
	return v
}

// Set updates a flag value and notifies watchers if the effective value
// changed from their baseline.
func (s *StaticSource) Set(key string, value bool) {
	s.mu.Lock()
	s.values[key] = value

	var fns []func()
	if subs := s.watchers[key]; len(subs) > 0 && value != s.last[key] {
		s.last[key] = value
		for _, fn := range subs {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *StaticSource) Watch(f BoolFlag, fn func()) (stop func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watchers[f.Key] == nil {
		s.watchers[f.Key] = make(map[int]func())
	}
	// The effective value at subscription time is the change baseline, so
	// a default-true flag does not fire a spurious first event.
	s.last[f.Key] = s.boolLocked(f)

	id := s.nextID
	s.nextID++
	s.watchers[f.Key][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers[f.Key], id)
	}
}

package flags

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FileSource reads flags from a YAML file and watches it for edits,
// notifying per-key subscribers when a value actually changes.
type FileSource struct {
	v   *viper.Viper
	log *slog.Logger

	mu       sync.Mutex
	watched  map[string]BoolFlag
	last     map[string]bool
	watchers map[string]map[int]func()
	nextID   int
}

// NewFileSource loads the flags file at path and starts watching it.
func NewFileSource(path string, logger *slog.Logger) (*FileSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read flags file: %w", err)
	}

	s := &FileSource{
		v:        v,
		log:      logger,
		watched:  make(map[string]BoolFlag),
		last:     make(map[string]bool),
		watchers: make(map[string]map[int]func()),
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		s.dispatch()
	})
	v.WatchConfig()

	return s, nil
}

func (s *FileSource) Bool(f BoolFlag) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boolLocked(f)
}

func (s *FileSource) boolLocked(f BoolFlag) bool {
	if !s.v.IsSet(f.Key) {
		return f.Default
	}
	return s.v.GetBool(f.Key)
}

func (s *FileSource) Watch(f BoolFlag, fn func()) (stop func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watchers[f.Key] == nil {
		s.watchers[f.Key] = make(map[int]func())
	}
	// Remember the flag and its effective value at subscription time so
	// edits that leave the value unchanged do not fire, and so change
	// detection evaluates against the flag's own default.
	s.watched[f.Key] = f
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

func (s *FileSource) dispatch() {
	s.mu.Lock()
	var fns []func()
	for key, subs := range s.watchers {
		if len(subs) == 0 {
			continue
		}
		now := s.boolLocked(s.watched[key])
		if now == s.last[key] {
			continue
		}
		s.last[key] = now
		s.log.Info("feature flag changed", "key", key, "value", now)
		for _, fn := range subs {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

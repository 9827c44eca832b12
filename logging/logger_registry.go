package logging

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Registry tracks named loggers so that level patterns from the configuration can be applied to
// them, including loggers registered after the patterns were set.
type Registry struct {
	mu       sync.RWMutex
	loggers  map[string]Logger
	patterns []LevelPattern
	// level used when no pattern matches.
	defaultLevel Level
}

// NewRegistry returns an empty registry whose unmatched loggers sit at INFO.
func NewRegistry() *Registry {
	return &Registry{
		loggers:      make(map[string]Logger),
		defaultLevel: INFO,
	}
}

// GetOrRegister returns the logger already registered under name, or registers logger and applies
// the current patterns to it. Concurrent callers all get the winner's logger.
func (lr *Registry) GetOrRegister(name string, logger Logger) Logger {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if existing, ok := lr.loggers[name]; ok {
		return existing
	}
	lr.loggers[name] = logger
	logger.SetLevel(lr.levelFor(name))
	return logger
}

// Deregister removes the named logger. It reports whether it was present.
func (lr *Registry) Deregister(name string) bool {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	_, ok := lr.loggers[name]
	delete(lr.loggers, name)
	return ok
}

// LoggerNamed returns the named logger.
func (lr *Registry) LoggerNamed(name string) (Logger, bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok := lr.loggers[name]
	return logger, ok
}

// Apply validates and installs the patterns, then relevels every registered logger. Later patterns
// win over earlier ones. Invalid patterns are skipped and reported in the returned error.
func (lr *Registry) Apply(defaultLevel Level, patterns []LevelPattern) error {
	var errs error
	valid := make([]LevelPattern, 0, len(patterns))
	for _, lp := range patterns {
		if err := lp.Validate(); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		valid = append(valid, lp)
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.patterns = valid
	lr.defaultLevel = defaultLevel
	for name, logger := range lr.loggers {
		logger.SetLevel(lr.levelFor(name))
	}
	return errs
}

// levelFor must be called with mu held.
func (lr *Registry) levelFor(name string) Level {
	level := lr.defaultLevel
	for _, lp := range lr.patterns {
		r, err := lp.compile()
		if err != nil {
			continue
		}
		if !r.MatchString(name) {
			continue
		}
		if parsed, err := LevelFromString(lp.Level); err == nil {
			level = parsed
		}
	}
	return level
}

// Sync flushes every registered logger.
func (lr *Registry) Sync() error {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	var errs error
	for name, logger := range lr.loggers {
		if err := logger.Sync(); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "syncing logger %s", name))
		}
	}
	return errs
}

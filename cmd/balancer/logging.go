package main

import (
	"go.uber.org/multierr"

	"go.viam.com/beambalancer/config"
	"go.viam.com/beambalancer/logging"
)

// loggers hands out named subloggers that follow the level patterns of the config.
type loggers struct {
	root     logging.Logger
	registry *logging.Registry
	file     *logging.FileAppender
}

func newLoggers(cfg config.LogConfig, debug bool) (*loggers, error) {
	level, err := logging.LevelFromString(cfg.Level)
	if err != nil {
		return nil, err
	}
	if debug {
		level = logging.DEBUG
	}

	root := logging.NewLogger("balancer")
	l := &loggers{root: root, registry: logging.NewRegistry()}
	// appenders are shared with subloggers at creation, so the file goes on first
	if cfg.File.Path != "" {
		l.file = logging.NewFileAppender(cfg.File)
		root.AddAppender(l.file)
	}
	if err := l.registry.Apply(level, cfg.Patterns); err != nil {
		root.Warnw("ignoring invalid log level patterns", "error", err)
	}
	l.registry.GetOrRegister("balancer", root)
	return l, nil
}

func (l *loggers) named(subname string) logging.Logger {
	return l.registry.GetOrRegister("balancer."+subname, l.root.Sublogger(subname))
}

func (l *loggers) Close() error {
	err := l.registry.Sync()
	if l.file != nil {
		err = multierr.Combine(err, l.file.Close())
	}
	return err
}

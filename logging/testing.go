package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that writes through tb.Log so that lines are attributed to
// the right test, including parallel ones.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

// Write outputs the log entry to the underlying test object `Log` method.
func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	line, err := formatEntry(entry, fields)
	tapp.tb.Log(line)
	return err
}

// Sync is a no-op.
func (tapp *testAppender) Sync() error {
	return nil
}

// NewTestLogger returns a debug logger writing to the test log.
func NewTestLogger(tb testing.TB) Logger {
	return newImpl("", DEBUG, false, NewTestAppender(tb))
}

// observedCore adapts a zap observer core so that it can be added as an Appender.
type observedCore struct {
	zapcore.Core
}

func (oc observedCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return oc.Core.Write(entry, fields)
}

func (oc observedCore) Sync() error {
	return nil
}

// NewObservedTestLogger is like NewTestLogger but also records every entry so tests can assert on
// what was logged.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	core, observed := observer.New(zap.DebugLevel)
	logger := newImpl("", DEBUG, false, NewTestAppender(tb), observedCore{core})
	return logger, observed
}

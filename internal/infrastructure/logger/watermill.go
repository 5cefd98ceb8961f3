package logger

import (
	"github.com/ThreeDotsLabs/watermill"
)

type watermillAdapter struct {
	logger Logger
}

// NewWatermillAdapter lets the event bus log through l.
// Watermill's trace level is mapped to debug.
func NewWatermillAdapter(l Logger) watermill.LoggerAdapter {
	return &watermillAdapter{logger: l.WithField("component", "watermill")}
}

func (a *watermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.withFields(fields).WithField("error", err).Error(msg)
}

func (a *watermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.withFields(fields).Info(msg)
}

func (a *watermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.withFields(fields).Debug(msg)
}

func (a *watermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.withFields(fields).Debug(msg)
}

func (a *watermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillAdapter{logger: a.withFields(fields)}
}

func (a *watermillAdapter) withFields(fields watermill.LogFields) Logger {
	if len(fields) == 0 {
		return a.logger
	}
	return a.logger.WithFields(Fields(fields))
}

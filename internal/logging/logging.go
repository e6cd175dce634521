// Package logging builds the process-wide structured logger, binding a
// "component" field per subsystem on top of a node id bound into every
// log line.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a console-friendly zerolog.Logger bound to nodeID.
func New(nodeID string, level zerolog.Level) zerolog.Logger {
	return NewWithWriter(os.Stderr, nodeID, level)
}

// NewWithWriter is New with an explicit sink, used by tests that want to
// capture output.
func NewWithWriter(w io.Writer, nodeID string, level zerolog.Level) zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(console).
		Level(level).
		With().
		Timestamp().
		Str("node", nodeID).
		Logger()
}

// Component returns a child logger scoped to one subsystem, e.g.
// logging.Component(log, "coordinator").
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

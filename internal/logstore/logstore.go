// Package logstore implements the append-only in-memory message log shared
// by master and secondary: a mutex-guarded slice, with no write-ahead log,
// snapshotting, or conflict resolution, since there is a single writer and
// no durable persistence (see DESIGN.md).
package logstore

import "sync"

// Log is an append-only, in-memory sequence of message records.
//
// Big idea:
//
// Every accepted message is appended exactly once, in the order it was
// accepted. Readers see a stable snapshot; writers never reorder or remove
// entries. That is the entirety of the durability contract here — there is
// no disk, no WAL, no crash recovery. A process restart loses the log,
// which is acceptable because persistence is explicitly out of scope.
type Log struct {
	mu       sync.RWMutex
	messages []string
}

// New returns an empty log.
func New() *Log {
	return &Log{}
}

// Append adds content to the end of the log.
func (l *Log) Append(content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, content)
}

// All returns a copy of the log's contents in insertion order.
func (l *Log) All() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len reports the number of messages currently appended.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

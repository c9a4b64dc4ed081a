// Package calllog keeps a bounded, newest-first record of calls made against
// the remote prompt service.
package calllog

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"asamanthinks/internal/domain"
)

const (
	// DefaultCapacity is the number of entries retained.
	DefaultCapacity = 10

	// ErrorEndpoint marks synthetic entries written when a pipeline fails.
	ErrorEndpoint = "ERROR"
)

// Logger is safe for concurrent use.
type Logger struct {
	mu       sync.Mutex
	entries  []domain.CallLogEntry
	nextID   int64
	capacity int

	log *slog.Logger
	now func() time.Time
}

type Option func(*Logger)

func WithCapacity(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.capacity = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a Logger. Every recorded entry is mirrored to log at debug
// level; a nil log discards the mirror.
func New(log *slog.Logger, opts ...Option) *Logger {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	l := &Logger{
		capacity: DefaultCapacity,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record prepends an entry and drops anything past capacity.
func (l *Logger) Record(endpoint, method string, payload, response any) {
	l.mu.Lock()
	l.nextID++
	entry := domain.CallLogEntry{
		ID:        l.nextID,
		Timestamp: l.now().UTC(),
		Endpoint:  endpoint,
		Method:    method,
		Payload:   payload,
		Response:  response,
	}
	keep := len(l.entries)
	if keep > l.capacity-1 {
		keep = l.capacity - 1
	}
	next := make([]domain.CallLogEntry, 0, keep+1)
	next = append(next, entry)
	next = append(next, l.entries[:keep]...)
	l.entries = next
	l.mu.Unlock()

	l.log.Debug("remote call", "id", entry.ID, "endpoint", endpoint, "method", method)
}

// RecordError writes the synthetic ERROR entry for a failed pipeline. The
// operation name goes into the method column.
func (l *Logger) RecordError(operation string, payload any, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	l.Record(ErrorEndpoint, operation, payload, msg)
	l.log.Warn("pipeline failed", "operation", operation, "err", err)
}

// Entries returns a copy of the retained entries, newest first.
func (l *Logger) Entries() []domain.CallLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.CallLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Logger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

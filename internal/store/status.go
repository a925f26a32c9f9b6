// Package store keeps short-lived export status records.
package store

import (
	"context"
	"sync"
	"time"
)

// Export states.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Status describes one export.
type Status struct {
	Status   string     `json:"status"`
	Name     string     `json:"name,omitempty"`
	Images   int        `json:"images"`
	Bytes    int        `json:"bytes"`
	Message  string     `json:"message,omitempty"`
	Location string     `json:"location,omitempty"`
	Start    *time.Time `json:"start_time,omitempty"`
	End      *time.Time `json:"end_time,omitempty"`
}

// Store saves and loads status records by export ID.
type Store interface {
	Set(ctx context.Context, id string, st Status) error
	Get(ctx context.Context, id string) (Status, bool, error)
	Close() error
}

// Memory is an in-process Store. Records expire after the configured TTL.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memEntry
}

type memEntry struct {
	st      Status
	expires time.Time
}

// NewMemory returns an empty Memory store. A zero ttl keeps records forever.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, entries: make(map[string]memEntry)}
}

func (m *Memory) Set(_ context.Context, id string, st Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var exp time.Time
	if m.ttl > 0 {
		exp = m.now().Add(m.ttl)
	}
	m.entries[id] = memEntry{st: st, expires: exp}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (Status, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return Status{}, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, id)
		return Status{}, false, nil
	}
	return e.st, true, nil
}

func (m *Memory) Close() error { return nil }

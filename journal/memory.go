package journal

import (
	"context"
	"sync"
)

// Memory keeps the journal in process memory. Suited to tests and
// single-run tools; the sqlite store is the durable option.
type Memory struct {
	mu      sync.RWMutex
	events  []*Event
	streams map[string][]int
	closed  bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{streams: make(map[string][]int)}
}

func (m *Memory) Append(ctx context.Context, e *Event) (uint64, error) {
	if e == nil {
		return 0, ErrNilEvent
	}
	if e.Stream == "" {
		return 0, ErrEmptyStream
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	e.Seq = uint64(len(m.events)) + 1
	m.events = append(m.events, e)
	m.streams[e.Stream] = append(m.streams[e.Stream], len(m.events)-1)
	return e.Seq, nil
}

func (m *Memory) Read(ctx context.Context, stream string, fromSeq uint64) ([]*Event, error) {
	if stream == "" {
		return nil, ErrEmptyStream
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	var out []*Event
	for _, idx := range m.streams[stream] {
		e := m.events[idx]
		if e.Seq >= fromSeq {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) ReadAll(ctx context.Context, f Filter) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	var out []*Event
	for _, e := range m.events {
		if e.Seq < f.FromSeq {
			continue
		}
		if f.Stream != "" && e.Stream != f.Stream {
			continue
		}
		if !f.matchType(e.Type) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

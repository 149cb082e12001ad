package kvstore

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// subscriberBuffer bounds the per-subscriber delivery queue. When a slow
// consumer falls behind, the oldest queued snapshot is dropped; the newest
// settled state is always delivered.
const subscriberBuffer = 64

// MemoryStore is the in-process Store implementation. It is the default
// backend and the substrate the engine tests run against.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage

	subMu  sync.Mutex
	subs   map[int]*memorySubscriber
	nextID int
	closed bool
}

type memorySubscriber struct {
	prefix string
	ch     chan Snapshot
	done   chan struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]json.RawMessage),
		subs: make(map[int]*memorySubscriber),
	}
}

// Get returns the leaf at path, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, path string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[path]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRaw(raw), nil
}

// List returns every leaf under prefix, keyed by path relative to it.
func (s *MemoryStore) List(_ context.Context, prefix string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(prefix), nil
}

// Update applies the batch atomically. Marshal failures reject the whole
// batch before any key is touched.
func (s *MemoryStore) Update(_ context.Context, writes map[string]any) error {
	raws, err := marshalWrites(writes)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for path, raw := range raws {
		if raw == nil {
			delete(s.data, path)
		} else {
			s.data[path] = raw
		}
	}
	s.mu.Unlock()

	s.notify(raws)
	return nil
}

// Subscribe registers fn for prefix. The current snapshot is queued before
// Subscribe returns, so the initial replay is always delivered first.
func (s *MemoryStore) Subscribe(prefix string, fn func(Snapshot)) (func(), error) {
	sub := &memorySubscriber{
		prefix: prefix,
		ch:     make(chan Snapshot, subscriberBuffer),
		done:   make(chan struct{}),
	}

	s.subMu.Lock()
	if s.closed {
		s.subMu.Unlock()
		return nil, ErrClosed
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	s.subMu.Unlock()

	s.mu.RLock()
	initial := s.snapshotLocked(prefix)
	s.mu.RUnlock()
	sub.push(initial)

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case snap := <-sub.ch:
				fn(snap)
			}
		}
	}()

	cancel := func() {
		s.subMu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub.done)
		}
		s.subMu.Unlock()
	}
	return cancel, nil
}

// Close cancels every subscription.
func (s *MemoryStore) Close() error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for id, sub := range s.subs {
		delete(s.subs, id)
		close(sub.done)
	}
	return nil
}

// notify delivers fresh post-commit snapshots to every subscriber whose
// prefix covers a written path.
func (s *MemoryStore) notify(raws map[string]json.RawMessage) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, sub := range s.subs {
		touched := false
		for path := range raws {
			if underPrefix(path, sub.prefix) {
				touched = true
				break
			}
		}
		if !touched {
			continue
		}
		s.mu.RLock()
		snap := s.snapshotLocked(sub.prefix)
		s.mu.RUnlock()
		sub.push(snap)
	}
}

func (s *MemoryStore) snapshotLocked(prefix string) Snapshot {
	snap := make(Snapshot)
	p := prefix + "/"
	for path, raw := range s.data {
		if strings.HasPrefix(path, p) {
			snap[strings.TrimPrefix(path, p)] = cloneRaw(raw)
		}
	}
	return snap
}

// push queues a snapshot, dropping the oldest entry when the consumer is
// too far behind.
func (sub *memorySubscriber) push(snap Snapshot) {
	for {
		select {
		case sub.ch <- snap:
			return
		default:
			select {
			case <-sub.ch:
			default:
			}
		}
	}
}

func underPrefix(path, prefix string) bool {
	return strings.HasPrefix(path, prefix+"/")
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

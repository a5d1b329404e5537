package stats

import "sync"

// Snapshot is an immutable view of the outcome counters
type Snapshot struct {
	DocWriteSuccess uint64 `json:"document_write_success"`
	DocWriteFailed  uint64 `json:"document_write_failed"`
	PushSuccess     uint64 `json:"push_success"`
	PushFailed      uint64 `json:"push_failed"`
}

// Store tracks document-write and push delivery outcomes for the lifetime of
// the process. Counters only ever grow; increments taken under the lock are
// never lost to each other. Subscribers are notified with a snapshot after
// every increment.
type Store struct {
	mu       sync.Mutex
	counters Snapshot
	subs     map[int]func(Snapshot)
	nextSub  int
}

// NewStore creates a Store with all counters at zero
func NewStore() *Store {
	return &Store{subs: make(map[int]func(Snapshot))}
}

// IncrementDocWriteSuccess records a successful document write
func (s *Store) IncrementDocWriteSuccess() Snapshot {
	return s.increment(func(c *Snapshot) { c.DocWriteSuccess++ })
}

// IncrementDocWriteFailed records a failed document write
func (s *Store) IncrementDocWriteFailed() Snapshot {
	return s.increment(func(c *Snapshot) { c.DocWriteFailed++ })
}

// IncrementPushSuccess records a successful push delivery
func (s *Store) IncrementPushSuccess() Snapshot {
	return s.increment(func(c *Snapshot) { c.PushSuccess++ })
}

// IncrementPushFailed records a failed push delivery
func (s *Store) IncrementPushFailed() Snapshot {
	return s.increment(func(c *Snapshot) { c.PushFailed++ })
}

// Snapshot returns the current counter values
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// Subscribe registers fn to be called with each new snapshot and returns an
// id for Unsubscribe. fn is called outside the store lock.
func (s *Store) Subscribe(fn func(Snapshot)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return id
}

// Unsubscribe removes a subscriber
func (s *Store) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

func (s *Store) increment(apply func(*Snapshot)) Snapshot {
	s.mu.Lock()
	apply(&s.counters)
	snap := s.counters
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

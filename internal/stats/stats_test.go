package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementsAreIndependent(t *testing.T) {
	s := NewStore()

	s.IncrementDocWriteSuccess()
	s.IncrementDocWriteSuccess()
	s.IncrementDocWriteFailed()
	s.IncrementPushSuccess()
	s.IncrementPushSuccess()
	s.IncrementPushSuccess()
	s.IncrementPushFailed()

	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap.DocWriteSuccess)
	assert.Equal(t, uint64(1), snap.DocWriteFailed)
	assert.Equal(t, uint64(3), snap.PushSuccess)
	assert.Equal(t, uint64(1), snap.PushFailed)
}

func TestIncrementReturnsUpdatedSnapshot(t *testing.T) {
	s := NewStore()

	snap := s.IncrementDocWriteFailed()
	assert.Equal(t, uint64(1), snap.DocWriteFailed)
	assert.Equal(t, uint64(0), snap.DocWriteSuccess)
}

func TestConcurrentIncrementsAreNotLost(t *testing.T) {
	s := NewStore()

	const workers = 8
	const perWorker = 500

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				s.IncrementDocWriteSuccess()
				s.IncrementPushFailed()
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, uint64(workers*perWorker), snap.DocWriteSuccess)
	assert.Equal(t, uint64(workers*perWorker), snap.PushFailed)
	assert.Equal(t, uint64(0), snap.DocWriteFailed)
	assert.Equal(t, uint64(0), snap.PushSuccess)
}

func TestSubscribers(t *testing.T) {
	s := NewStore()

	var mu sync.Mutex
	var seen []Snapshot
	id := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		seen = append(seen, snap)
		mu.Unlock()
	})

	s.IncrementPushSuccess()
	s.IncrementPushSuccess()

	mu.Lock()
	require.Len(t, seen, 2)
	assert.Equal(t, uint64(1), seen[0].PushSuccess)
	assert.Equal(t, uint64(2), seen[1].PushSuccess)
	mu.Unlock()

	s.Unsubscribe(id)
	s.IncrementPushSuccess()

	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()
}

package lease

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store with the same compare-and-set semantics the
// Postgres-backed group repo provides.
type memStore struct {
	mu sync.Mutex

	held      map[int64]bool
	startedAt map[int64]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		held:      map[int64]bool{},
		startedAt: map[int64]time.Time{},
	}
}

func (s *memStore) TryAcquire(_ context.Context, id int64, startedAt, staleBefore time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held[id] && !s.startedAt[id].Before(staleBefore) {
		return false, nil
	}
	s.held[id] = true
	s.startedAt[id] = startedAt
	return true, nil
}

func (s *memStore) Release(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.held[id] = false
	return nil
}

func TestAcquireRelease(t *testing.T) {
	m := NewManager(newMemStore(), 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Acquire(ctx, 1))
	assert.ErrorIs(t, m.Acquire(ctx, 1), ErrHeld)

	// an unrelated group is not affected
	require.NoError(t, m.Acquire(ctx, 2))

	require.NoError(t, m.Release(ctx, 1))
	assert.NoError(t, m.Acquire(ctx, 1))
}

func TestReclaimExpiredLease(t *testing.T) {
	store := newMemStore()
	m := NewManager(store, 30*time.Minute)
	ctx := context.Background()

	base := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	m.now = func() time.Time { return base }
	require.NoError(t, m.Acquire(ctx, 1))

	// 29 minutes later the holder is still presumed alive
	m.now = func() time.Time { return base.Add(29 * time.Minute) }
	assert.ErrorIs(t, m.Acquire(ctx, 1), ErrHeld)

	// 31 minutes later the lease counts as abandoned and is reclaimed
	// even though held was never cleared
	m.now = func() time.Time { return base.Add(31 * time.Minute) }
	assert.NoError(t, m.Acquire(ctx, 1))
}

func TestConcurrentAcquireExactlyOneWinner(t *testing.T) {
	m := NewManager(newMemStore(), 30*time.Minute)
	ctx := context.Background()

	const callers = 16

	var wg sync.WaitGroup
	results := make(chan error, callers)

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			results <- m.Acquire(ctx, 1)
		}()
	}
	wg.Wait()
	close(results)

	won, held := 0, 0
	for err := range results {
		switch {
		case err == nil:
			won++
		case assert.ErrorIs(t, err, ErrHeld):
			held++
		}
	}
	assert.Equal(t, 1, won, "exactly one caller must win the lease")
	assert.Equal(t, callers-1, held)
}

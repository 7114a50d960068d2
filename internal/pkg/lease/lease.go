// Package lease implements the single-flight generation lease: a boolean
// plus a start timestamp on the owning row, acquired through an atomic
// conditional write. A holder that exceeds the timeout is presumed dead and
// its lease may be reclaimed by the next acquirer. Reclamation is a
// heuristic, not a fencing mechanism: a crashed-but-alive holder can race
// the reclaimer in a narrow window, which the design accepts.
package lease

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrHeld = errors.New("lease: currently held by another run")

// Store is the persistence hook the manager drives. TryAcquire must be a
// compare-and-set equivalent: set held=true with the given start time only
// when the lease is free or started before staleBefore, returning whether
// the caller won it.
type Store interface {
	TryAcquire(ctx context.Context, id int64, startedAt, staleBefore time.Time) (bool, error)
	Release(ctx context.Context, id int64) error
}

type Manager struct {
	store   Store
	timeout time.Duration

	now func() time.Time
}

func NewManager(store Store, timeout time.Duration) *Manager {
	return &Manager{
		store:   store,
		timeout: timeout,
		now:     time.Now,
	}
}

// Acquire wins the lease for id or returns ErrHeld. A lease older than the
// manager's timeout counts as abandoned and is reclaimed by this call.
func (m *Manager) Acquire(ctx context.Context, id int64) error {
	now := m.now()
	ok, err := m.store.TryAcquire(ctx, id, now, now.Add(-m.timeout))
	if err != nil {
		return errors.Wrap(err, "failed to acquire lease")
	}
	if !ok {
		return ErrHeld
	}
	return nil
}

// Release frees the lease. Callers release on every exit path, including
// failures, so a run can never leave the lease held past the timeout on
// purpose; release errors are returned for logging but the timeout still
// bounds the damage.
func (m *Manager) Release(ctx context.Context, id int64) error {
	return errors.Wrap(m.store.Release(ctx, id), "failed to release lease")
}

// Timeout exposes the reclamation horizon for status surfaces.
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

package service

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/iliyamo/travel-planner/internal/model"
	"github.com/iliyamo/travel-planner/internal/repository"
)

// AttemptStore persists per-(identifier, ip) failure tallies.
// Implemented by repository.LoginAttemptRepo.
type AttemptStore interface {
	Get(ctx context.Context, identifier, ip string) (model.LoginAttempt, error)
	RecordFailure(ctx context.Context, identifier, ip string, threshold int, lockout time.Duration) (model.LoginAttempt, error)
	Clear(ctx context.Context, identifier, ip string) error
	CleanupStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// LockStatus describes the current lockout state of a key.
type LockStatus struct {
	Locked           bool
	RemainingMinutes int
	AttemptCount     int
}

// AttemptTracker enforces the login lockout policy.  Keys move from
// clean (no row) through accumulating failures into a locked state once
// the threshold is reached; further attempts while locked extend the
// window.  A successful login clears the key.
type AttemptTracker struct {
	store     AttemptStore
	threshold int
	lockout   time.Duration
}

func NewAttemptTracker(store AttemptStore, threshold int, lockout time.Duration) *AttemptTracker {
	return &AttemptTracker{store: store, threshold: threshold, lockout: lockout}
}

// IsLocked reports whether a key is currently locked out.  A stored
// lock whose window has passed counts as unlocked; the row is left for
// the next failure or success to resolve.  Storage errors fail open:
// an infrastructure outage must not block every login.
func (t *AttemptTracker) IsLocked(ctx context.Context, identifier, ip string) LockStatus {
	a, err := t.store.Get(ctx, identifier, ip)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("attempt tracker: lock check failed for %q: %v", identifier, err)
		}
		return LockStatus{}
	}
	status := LockStatus{AttemptCount: a.AttemptCount}
	if a.BlockedUntil != nil && a.BlockedUntil.After(time.Now().UTC()) {
		status.Locked = true
		status.RemainingMinutes = int(math.Ceil(time.Until(*a.BlockedUntil).Minutes()))
	}
	return status
}

// RecordFailure tallies a failed attempt and reports the resulting
// state.  Storage errors are logged and swallowed; the login outcome
// has already been decided at this point.
func (t *AttemptTracker) RecordFailure(ctx context.Context, identifier, ip string) LockStatus {
	a, err := t.store.RecordFailure(ctx, identifier, ip, t.threshold, t.lockout)
	if err != nil {
		log.Printf("attempt tracker: record failure for %q: %v", identifier, err)
		return LockStatus{}
	}
	status := LockStatus{AttemptCount: a.AttemptCount}
	if a.BlockedUntil != nil && a.BlockedUntil.After(time.Now().UTC()) {
		status.Locked = true
		status.RemainingMinutes = int(math.Ceil(time.Until(*a.BlockedUntil).Minutes()))
	}
	return status
}

// ClearOnSuccess deletes the key's tally after a successful login so
// the next failure starts counting from one again.
func (t *AttemptTracker) ClearOnSuccess(ctx context.Context, identifier, ip string) {
	if err := t.store.Clear(ctx, identifier, ip); err != nil {
		log.Printf("attempt tracker: clear for %q: %v", identifier, err)
	}
}

// CleanupStale removes accumulating rows that never locked and have
// been idle for the given duration (typically 24h).
func (t *AttemptTracker) CleanupStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	return t.store.CleanupStale(ctx, olderThan)
}

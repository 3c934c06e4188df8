package refreshgate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCooldown is the minimum time between two successful refreshes of the
// same subject.
const DefaultCooldown = time.Hour

// CooldownStore records the instant of each subject's last successful refresh.
type CooldownStore interface {
	LastRefresh(ctx context.Context, subjectID string) (time.Time, bool, error)
	MarkRefreshed(ctx context.Context, subjectID string, at time.Time) error
}

// Decision is the outcome of a cooldown check.
type Decision struct {
	Allowed           bool
	RetryAfterSeconds int
}

// Gate throttles and deduplicates outbound refreshes per subject. Subjects
// never block each other.
//
// The in-flight set is per process. The cooldown is shared only when the
// store is (see RedisStore).
type Gate struct {
	store    CooldownStore
	cooldown time.Duration
	flights  singleflight.Group
}

func New(store CooldownStore, cooldown time.Duration) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if store == nil {
		store = NewMemoryStore(cooldown)
	}
	return &Gate{store: store, cooldown: cooldown}
}

func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}

// CheckCooldown allows the first refresh of a subject, and any refresh at least
// one cooldown window after the last recorded success. Otherwise it reports
// the remaining wait rounded up to a whole second.
func (g *Gate) CheckCooldown(ctx context.Context, subjectID string, now time.Time) (Decision, error) {
	last, ok, err := g.store.LastRefresh(ctx, subjectID)
	if err != nil {
		return Decision{}, fmt.Errorf("read cooldown for %s: %w", subjectID, err)
	}
	if !ok {
		return Decision{Allowed: true}, nil
	}

	elapsed := now.Sub(last)
	if elapsed >= g.cooldown {
		return Decision{Allowed: true}, nil
	}

	remaining := g.cooldown - elapsed
	return Decision{Allowed: false, RetryAfterSeconds: ceilSeconds(remaining)}, nil
}

// MarkRefreshed must only be called once the refreshed credentials are stored.
func (g *Gate) MarkRefreshed(ctx context.Context, subjectID string, now time.Time) error {
	if err := g.store.MarkRefreshed(ctx, subjectID, now); err != nil {
		return fmt.Errorf("mark refreshed for %s: %w", subjectID, err)
	}
	return nil
}

// RunOncePerUser runs task unless a task for the same subject is already in
// flight, in which case it waits for that one and returns its result. The
// flight is forgotten when it settles, so later calls start a new attempt.
func RunOncePerUser[T any](g *Gate, subjectID string, task func() (T, error)) (T, error) {
	v, err, _ := g.flights.Do(subjectID, func() (any, error) {
		return task()
	})
	res, _ := v.(T)
	return res, err
}

func ceilSeconds(d time.Duration) int {
	secs := d / time.Second
	if d%time.Second != 0 {
		secs++
	}
	return int(secs)
}

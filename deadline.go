package idlequeue

import (
	"time"
)

// nominalIdleWindow is the modeled length of an idle period, matching the
// nominal frame idle budget of interactive hosts.
const nominalIdleWindow = 50 * time.Millisecond

type (
	// Deadline describes how much of the current idle period remains. The
	// drain loop consults it before starting each task, to decide whether to
	// keep running or yield until a later, less contended idle period.
	//
	// Implementations are not retained beyond the scheduling callback
	// invocation they were passed to.
	Deadline interface {
		// TimeRemaining returns the remaining execution budget. Never
		// negative.
		TimeRemaining() time.Duration

		// DidTimeout reports whether the host invoked the scheduling
		// callback because the registration overran, rather than because
		// the host was idle.
		DidTimeout() bool
	}

	// estimatedDeadline models the remaining budget as a linear decay from
	// nominalIdleWindow to zero, anchored at the moment of creation.
	estimatedDeadline struct {
		now   func() time.Time
		start time.Time
	}
)

// NewEstimatedDeadline returns a best-effort [Deadline] for hosts that do not
// natively supply deadline information, capturing the current time at
// creation. The remaining budget decays linearly from 50ms to zero, and
// DidTimeout is always false: the estimator approximates, it never claims an
// overrun occurred.
//
// Create one per scheduling callback invocation. [DeferredScheduler] does so
// automatically.
func NewEstimatedDeadline() Deadline {
	x := estimatedDeadline{now: time.Now}
	x.start = x.now()
	return &x
}

func (x *estimatedDeadline) TimeRemaining() time.Duration {
	if remaining := nominalIdleWindow - x.now().Sub(x.start); remaining > 0 {
		return remaining
	}
	return 0
}

func (x *estimatedDeadline) DidTimeout() bool { return false }

// shouldYield reports whether the drain loop must defer the front task to a
// later idle period, comparing the task's minimum time budget against the
// remaining deadline. A nil deadline (forced run) never yields.
func shouldYield(deadline Deadline, minTaskTime time.Duration) bool {
	return deadline != nil && deadline.TimeRemaining() <= minTaskTime
}

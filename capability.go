package idlequeue

type (
	// Visibility is the host environment's presentation state, stamped into
	// [RunState] at enqueue time and consulted by the scheduling step.
	Visibility uint8

	// IdleHandle identifies an outstanding idle callback registration.
	IdleHandle uint64

	// IdleScheduler is the idle scheduling primitive: it invokes a callback
	// once, asynchronously, during a period the host considers idle,
	// passing that period's [Deadline].
	//
	// [IdleQueue] holds at most one outstanding registration at a time, so
	// implementations need no registration dedup of their own. The callback
	// may be invoked on any goroutine. Implementations without native
	// deadline information should pass [NewEstimatedDeadline]; a nil
	// Deadline is permitted, and means the drain never yields.
	IdleScheduler interface {
		// ScheduleIdle registers callback to be invoked once. The returned
		// handle identifies the registration for CancelIdle. ScheduleIdle
		// must not invoke the callback before returning.
		ScheduleIdle(callback func(Deadline)) IdleHandle

		// CancelIdle revokes a registration. Unknown or already-fired
		// handles are ignored.
		CancelIdle(handle IdleHandle)
	}

	// MicrotaskScheduler is the microtask scheduling primitive: it invokes
	// a callback once, promptly, before the next coarser-grained scheduling
	// tick. Used as a teardown-safety escalation, when the host is hidden
	// and the queue must guarantee completion.
	//
	// There is no cancellation; [IdleQueue] discards stale callbacks
	// itself. ScheduleMicrotask must not invoke the callback before
	// returning.
	MicrotaskScheduler interface {
		ScheduleMicrotask(callback func())
	}

	// LifecycleMonitor reports the host's visibility, and delivers the
	// lifecycle signals that force a synchronous drain when
	// [Config.EnsureTasksRun] is set.
	//
	// Registration methods return a detach function, which must be
	// idempotent. [IdleQueue] attaches its hooks at most once, at
	// construction, and detaches them exactly once, at Destroy.
	LifecycleMonitor interface {
		// Visibility returns the current visibility.
		Visibility() Visibility

		// OnHidden registers callback to fire on each transition into
		// [VisibilityHidden].
		OnHidden(callback func()) (detach func())

		// OnShutdown registers callback to fire when the environment is
		// about to be discarded. Hosts that deliver hidden transitions
		// reliably may register nothing and return a no-op detach.
		OnShutdown(callback func()) (detach func())
	}
)

const (
	// VisibilityVisible indicates the environment is presented. The zero
	// value.
	VisibilityVisible Visibility = iota
	// VisibilityHidden indicates the environment is not presented.
	VisibilityHidden
	// VisibilityPrerender indicates the environment is being prepared and
	// has not yet been presented.
	VisibilityPrerender
	// VisibilityUnloaded indicates the environment is being discarded.
	VisibilityUnloaded
)

// String returns the lower-case name of the visibility state.
func (v Visibility) String() string {
	switch v {
	case VisibilityVisible:
		return "visible"
	case VisibilityHidden:
		return "hidden"
	case VisibilityPrerender:
		return "prerender"
	case VisibilityUnloaded:
		return "unloaded"
	default:
		return "unknown"
	}
}

// staticLifecycle is the default LifecycleMonitor, a fixed visibility with no
// signals.
type staticLifecycle struct {
	visibility Visibility
}

func (x staticLifecycle) Visibility() Visibility {
	return x.visibility
}

func (x staticLifecycle) OnHidden(func()) (detach func()) {
	return func() {}
}

func (x staticLifecycle) OnShutdown(func()) (detach func()) {
	return func() {}
}

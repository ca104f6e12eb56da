package idlequeue

import (
	"time"

	"github.com/joeycumines/logiface"
)

type (
	// Config models optional configuration, for New. Values are copied at
	// construction and are immutable for the lifetime of the queue.
	Config struct {
		// EnsureTasksRun guarantees queued work completes even when the
		// host stops reporting idle time: while hidden, scheduling requests
		// use microtask granularity, and lifecycle hidden/shutdown signals
		// force a full synchronous drain.
		// **Defaults to false.**
		EnsureTasksRun bool

		// DefaultMinTaskTime is the minimum remaining deadline budget a
		// task requires before the drain loop will start it, applied to
		// tasks submitted without their own [TaskOptions.MinTaskTime].
		// **Defaults to 0, also if negative.**
		DefaultMinTaskTime time.Duration

		// MaxTasksPerIteration caps how many tasks a single drain
		// invocation may run, bounding how long one idle period is
		// monopolized even when the deadline is generous.
		// **Defaults to 20, if <= 0, or Config is nil.**
		MaxTasksPerIteration int

		// IdleScheduler is the idle scheduling primitive.
		// **Defaults to an internally owned [DeferredScheduler], closed at
		// Destroy.** When both IdleScheduler and MicrotaskScheduler are
		// absent, a single owned instance serves both.
		IdleScheduler IdleScheduler

		// MicrotaskScheduler is the microtask scheduling primitive,
		// requested instead of IdleScheduler while the host is hidden and
		// EnsureTasksRun is set.
		// **Defaults to an internally owned [DeferredScheduler], closed at
		// Destroy.**
		MicrotaskScheduler MicrotaskScheduler

		// Lifecycle reports visibility for [RunState] stamping and, when
		// EnsureTasksRun is set, delivers the signals that force a flush.
		// **Defaults to a monitor that is always [VisibilityVisible] and
		// never signals.**
		Lifecycle LifecycleMonitor

		// Logger is the diagnostic channel, receiving task panics and
		// similar low-volume structured events.
		// **Defaults to nil, which disables diagnostics.**
		Logger *logiface.Logger[logiface.Event]
	}

	// TaskOptions models optional per-submission configuration, for
	// [IdleQueue.PushTask] and [IdleQueue.UnshiftTask].
	TaskOptions struct {
		// MinTaskTime is the minimum remaining deadline budget this task
		// requires before the drain loop will start it. Larger values defer
		// the task to a later, less contended idle period, rather than
		// starting it only for it to be cut short.
		// **Defaults to [Config.DefaultMinTaskTime], if <= 0, or
		// TaskOptions is nil.**
		MinTaskTime time.Duration
	}

	// capabilities is the resolved capability set of a queue.
	capabilities struct {
		idle      IdleScheduler
		microtask MicrotaskScheduler
		lifecycle LifecycleMonitor
		owned     *DeferredScheduler
	}
)

const defaultMaxTasksPerIteration = 20

// resolveCapabilities maps the configured capabilities to the effective set,
// substituting one owned [DeferredScheduler] for whichever scheduling
// primitives are absent, and a static always-visible monitor for a missing
// lifecycle. Pure with respect to process state: no feature probing, no
// memoized globals, so the resolution is inspectable and overridable in
// tests.
func resolveCapabilities(config *Config) capabilities {
	var c capabilities
	if config != nil {
		c.idle = config.IdleScheduler
		c.microtask = config.MicrotaskScheduler
		c.lifecycle = config.Lifecycle
	}
	if c.idle == nil || c.microtask == nil {
		c.owned = NewDeferredScheduler()
		if c.idle == nil {
			c.idle = c.owned
		}
		if c.microtask == nil {
			c.microtask = c.owned
		}
	}
	if c.lifecycle == nil {
		c.lifecycle = staticLifecycle{visibility: VisibilityVisible}
	}
	return c
}

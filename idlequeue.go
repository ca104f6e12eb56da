package idlequeue

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

type (
	// RunState is a task's enqueue-time context: when it was submitted, and
	// what the host's visibility was at that moment. It is stamped by
	// PushTask/UnshiftTask, never updated, and passed to the task when it
	// eventually runs, so the task can tell how stale its context is.
	RunState struct {
		// Time is when the task was enqueued.
		Time time.Time

		// Visibility is the host visibility at enqueue time.
		Visibility Visibility
	}

	// Task is a unit of deferred work. It is expected to run to completion
	// without suspending (cooperative, non-reentrant model); work that
	// needs more than one idle period should re-enqueue its continuation.
	// A panicking task is isolated: it is reported through the diagnostic
	// channel and does not affect other queued tasks.
	Task func(state RunState)

	// IdleQueue defers tasks to the host's idle periods, batching and
	// bounding their execution so they never block higher-priority work,
	// while optionally guaranteeing they still run when the host stops
	// reporting idle time. Instances must be initialized using the New
	// factory.
	//
	// Tasks run in queue order: run-next (unshifted) tasks first, FIFO
	// within each class. No two tasks ever run concurrently, and a task is
	// never interrupted mid-execution.
	//
	// All methods are safe for concurrent use.
	IdleQueue struct { // betteralign:ignore
		ensureTasksRun       bool          // configurable
		defaultMinTaskTime   time.Duration // configurable
		maxTasksPerIteration int           // configurable
		idle                 IdleScheduler
		microtask            MicrotaskScheduler
		lifecycle            LifecycleMonitor
		logger               *logiface.Logger[logiface.Event]
		owned                *DeferredScheduler

		mu        sync.Mutex
		queue     taskQueue
		pending   *scheduleReg
		draining  bool
		destroyed bool

		detachHidden   func()
		detachShutdown func()

		state   queueState
		current atomic.Pointer[RunState]
		metrics metricsState
	}

	// scheduleReg identifies one outstanding scheduling request. Pointer
	// identity is the registration token: a firing callback whose token no
	// longer matches IdleQueue.pending is stale and runs nothing, which is
	// how cancellation works for the microtask primitive, which has no
	// cancel operation.
	scheduleReg struct {
		handle IdleHandle
		micro  bool
	}
)

// New initializes a new IdleQueue, using the provided Config. The provided
// config may be nil. Capabilities missing from the config are substituted
// per resolveCapabilities, and when Config.EnsureTasksRun is set the
// lifecycle hooks are attached, exactly once.
//
// The IdleQueue.Destroy method should be called when the queue is no longer
// needed.
func New(config *Config) *IdleQueue {
	x := IdleQueue{
		maxTasksPerIteration: defaultMaxTasksPerIteration,
	}
	if config != nil {
		x.ensureTasksRun = config.EnsureTasksRun
		if config.DefaultMinTaskTime > 0 {
			x.defaultMinTaskTime = config.DefaultMinTaskTime
		}
		if config.MaxTasksPerIteration > 0 {
			x.maxTasksPerIteration = config.MaxTasksPerIteration
		}
		x.logger = config.Logger
	}

	c := resolveCapabilities(config)
	x.idle = c.idle
	x.microtask = c.microtask
	x.lifecycle = c.lifecycle
	x.owned = c.owned

	if x.ensureTasksRun {
		x.detachHidden = x.lifecycle.OnHidden(x.lifecycleDrain(`hidden`))
		x.detachShutdown = x.lifecycle.OnShutdown(x.lifecycleDrain(`shutdown`))
	}

	return &x
}

// PushTask stamps the current RunState into the task, appends it to the
// queue, and invokes the scheduling step. Never blocks. Panics on a nil
// task. After Destroy, the task is dropped, with a warning diagnostic.
func (x *IdleQueue) PushTask(opts *TaskOptions, task Task) {
	x.enqueue(opts, task, false)
}

// UnshiftTask is PushTask with run-next semantics: the task is placed ahead
// of all normally pushed tasks, behind earlier unshifted ones. Intended for
// urgent work such as cleanup that must preempt the backlog.
func (x *IdleQueue) UnshiftTask(opts *TaskOptions, task Task) {
	x.enqueue(opts, task, true)
}

func (x *IdleQueue) enqueue(opts *TaskOptions, task Task, runNext bool) {
	if task == nil {
		panic(`idlequeue: nil task`)
	}

	item := queueItem{
		state: RunState{
			Time:       time.Now(),
			Visibility: x.lifecycle.Visibility(),
		},
		task:        task,
		minTaskTime: x.defaultMinTaskTime,
	}
	if opts != nil && opts.MinTaskTime > 0 {
		item.minTaskTime = opts.MinTaskTime
	}

	x.mu.Lock()
	if x.destroyed {
		x.mu.Unlock()
		x.metrics.tasksDropped.Add(1)
		x.logger.Warning().
			Limit().
			Log(`task submitted after destroy`)
		return
	}
	if runNext {
		x.queue.prepend(item)
		x.metrics.tasksUnshifted.Add(1)
	} else {
		x.queue.append(item)
		x.metrics.tasksPushed.Add(1)
	}
	x.metrics.observeDepth(x.queue.len())
	x.scheduleLocked()
	x.mu.Unlock()
}

// RunTasksImmediately synchronously drains the queue with no deadline,
// looping cap-bounded passes back-to-back until it is empty, so that by
// return HasPendingTasks reports false. The exceptions: a drain already in
// progress on another goroutine causes an immediate return, and a task that
// perpetually enqueues new work extends the call.
func (x *IdleQueue) RunTasksImmediately() {
	x.runTasks(nil, true)
}

// HasPendingTasks reports whether the queue is non-empty.
func (x *IdleQueue) HasPendingTasks() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return !x.queue.empty()
}

// Len returns the number of queued tasks.
func (x *IdleQueue) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.queue.len()
}

// ClearPendingTasks discards all queued tasks and cancels any outstanding
// scheduling request. It runs nothing. A task that is already executing
// completes; remaining items are discarded even when called mid-drain.
func (x *IdleQueue) ClearPendingTasks() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.queue.clear()
	x.cancelPendingLocked()
	if !x.draining && !x.destroyed {
		x.state.Store(QueueStateIdle)
	}
}

// GetState returns the RunState of the task currently executing, with ok
// false when no task is mid-execution. A running task may call it to
// introspect its own enqueue-time context.
func (x *IdleQueue) GetState() (state RunState, ok bool) {
	if current := x.current.Load(); current != nil {
		return *current, true
	}
	return RunState{}, false
}

// State returns the queue's scheduling state. Lock-free.
func (x *IdleQueue) State() QueueState {
	return x.state.Load()
}

// Metrics returns a snapshot of the queue's activity counters.
func (x *IdleQueue) Metrics() Metrics {
	return x.metrics.snapshot()
}

// Destroy discards queued tasks, cancels any outstanding scheduling request,
// detaches the lifecycle hooks attached at construction, and closes the
// internally owned DeferredScheduler, if any. Terminal and idempotent. A
// scheduling callback firing afterwards is stale and runs nothing; no
// previously queued task executes after Destroy returns, beyond a task
// already mid-execution.
func (x *IdleQueue) Destroy() {
	x.mu.Lock()
	if x.destroyed {
		x.mu.Unlock()
		return
	}
	x.destroyed = true
	x.queue.clear()
	x.cancelPendingLocked()
	x.state.Store(QueueStateDestroyed)
	detachHidden, detachShutdown := x.detachHidden, x.detachShutdown
	x.detachHidden, x.detachShutdown = nil, nil
	x.mu.Unlock()

	if detachHidden != nil {
		detachHidden()
	}
	if detachShutdown != nil {
		detachShutdown()
	}
	if x.owned != nil {
		_ = x.owned.Close()
	}

	x.logger.Trace().
		Log(`idle queue destroyed`)
}

// lifecycleDrain adapts a lifecycle signal into a forced synchronous drain.
func (x *IdleQueue) lifecycleDrain(signal string) func() {
	return func() {
		x.logger.Debug().
			Str(`signal`, signal).
			Log(`lifecycle forced drain`)
		x.runTasks(nil, true)
	}
}

// scheduleLocked is the scheduling step, invoked after every enqueue and
// after a drain that leaves work queued. At most one scheduling request is
// outstanding at a time, of either kind; while hidden with EnsureTasksRun
// set it uses microtask granularity, so the drain still happens even if
// coarser idle callbacks are never delivered during teardown. No-op while
// draining: the drain re-invokes this step on exit.
//
// Caller must hold x.mu.
func (x *IdleQueue) scheduleLocked() {
	if x.destroyed || x.draining || x.pending != nil || x.queue.empty() {
		return
	}

	reg := &scheduleReg{}
	x.pending = reg
	x.state.Store(QueueStateScheduled)

	if x.ensureTasksRun && x.lifecycle.Visibility() == VisibilityHidden {
		reg.micro = true
		x.metrics.microtaskSchedules.Add(1)
		x.microtask.ScheduleMicrotask(func() {
			x.onScheduled(reg, nil)
		})
	} else {
		x.metrics.idleSchedules.Add(1)
		reg.handle = x.idle.ScheduleIdle(func(deadline Deadline) {
			x.onScheduled(reg, deadline)
		})
	}
}

// cancelPendingLocked revokes the outstanding scheduling request, if any.
//
// Caller must hold x.mu.
func (x *IdleQueue) cancelPendingLocked() {
	if reg := x.pending; reg != nil {
		x.pending = nil
		x.metrics.canceledSchedules.Add(1)
		if !reg.micro {
			x.idle.CancelIdle(reg.handle)
		}
	}
}

// onScheduled is the scheduling callback target. A token mismatch means the
// registration was superseded, cleared, or destroyed after it fired.
func (x *IdleQueue) onScheduled(reg *scheduleReg, deadline Deadline) {
	x.mu.Lock()
	if x.pending != reg {
		x.mu.Unlock()
		return
	}
	x.pending = nil
	x.mu.Unlock()

	x.runTasks(deadline, false)
}

// runTasks is the drain algorithm. It first cancels any still-pending
// scheduling request (the current invocation supersedes it). The loop runs
// while the queue is non-empty, fewer than maxTasksPerIteration tasks have
// been processed this pass, and the front item's minTaskTime fits within
// the deadline; exhaust repeats passes back-to-back until the queue is
// empty. Tasks execute outside the mutex; the draining flag is the
// reentrancy guard that keeps a task's own side effects from recursing into
// a nested drain, and keeps concurrent drains out.
func (x *IdleQueue) runTasks(deadline Deadline, exhaust bool) {
	x.mu.Lock()
	x.cancelPendingLocked()
	if x.draining || x.destroyed {
		x.mu.Unlock()
		return
	}
	x.draining = true
	x.state.Store(QueueStateDraining)
	x.metrics.drains.Add(1)
	if exhaust {
		x.metrics.forcedDrains.Add(1)
	}

	for {
		processed := 0
		for processed < x.maxTasksPerIteration && !x.destroyed {
			minTaskTime, ok := x.queue.peekFrontMinTaskTime()
			if !ok {
				break
			}
			if shouldYield(deadline, minTaskTime) {
				x.metrics.yields.Add(1)
				break
			}

			item, _ := x.queue.removeFront()
			x.current.Store(&item.state)
			x.mu.Unlock()
			x.invoke(item)
			x.mu.Lock()
			x.current.Store(nil)
			processed++
		}
		if !exhaust || x.destroyed || x.queue.empty() {
			break
		}
	}

	x.draining = false
	if !x.destroyed {
		if x.queue.empty() {
			x.state.Store(QueueStateIdle)
		} else {
			x.metrics.continuations.Add(1)
			x.scheduleLocked()
		}
	}
	x.mu.Unlock()
}

// invoke executes a task with panic recovery.
func (x *IdleQueue) invoke(item queueItem) {
	defer func() {
		if r := recover(); r != nil {
			x.metrics.taskPanics.Add(1)
			x.logger.Err().
				Limit().
				Interface(`recovered`, r).
				Str(`stack`, string(debug.Stack())).
				Log(`task panicked`)
		}
	}()

	x.metrics.tasksRun.Add(1)
	item.task(item.state)
}

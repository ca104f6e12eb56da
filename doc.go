// Package idlequeue provides an idle-aware cooperative task scheduler for
// Go, deferring non-critical work to the host's idle periods while
// guaranteeing, optionally, that the work still runs before teardown.
//
// # Architecture
//
// The scheduler is built around an [IdleQueue] holding a two-lane FIFO:
// run-next tasks ([IdleQueue.UnshiftTask]) drain ahead of normally pushed
// tasks ([IdleQueue.PushTask]), FIFO within each lane. Each enqueue stamps a
// [RunState] (submission time and host [Visibility]) that is handed to the
// task when it eventually executes, and triggers the scheduling step, which
// keeps at most one scheduling request outstanding at a time:
//   - normally an idle callback via [IdleScheduler], carrying a [Deadline]
//   - microtask granularity via [MicrotaskScheduler] while the host is
//     hidden with [Config.EnsureTasksRun] set, so the drain happens even if
//     idle callbacks are never delivered again
//
// The drain is time-bounded and count-bounded: it yields once the front
// task's minimum time requirement no longer fits within the deadline's
// remaining budget, or after [Config.MaxTasksPerIteration] tasks, whichever
// comes first, then re-schedules itself for the remainder.
//
// Host capabilities are interfaces ([IdleScheduler], [MicrotaskScheduler],
// [LifecycleMonitor]); absent ones are substituted with an internally owned
// [DeferredScheduler] and a static always-visible lifecycle, so a bare
// idlequeue.New(nil) is fully functional.
//
// # Thread Safety
//
// All [IdleQueue] methods are safe for concurrent use:
//   - [IdleQueue.PushTask] and [IdleQueue.UnshiftTask] never block on task
//     execution
//   - [IdleQueue.GetState] and [IdleQueue.State] are lock-free reads
//   - tasks execute outside the queue's mutex, one at a time, so a task may
//     itself push, unshift, clear, or destroy
//
// # Usage
//
//	queue := idlequeue.New(&idlequeue.Config{
//	    EnsureTasksRun: true,
//	    Lifecycle:      lifecycle,
//	})
//	defer queue.Destroy()
//
//	queue.PushTask(nil, func(state idlequeue.RunState) {
//	    fmt.Println("queued while", state.Visibility)
//	})
//
//	// urgent work jumps the backlog
//	queue.UnshiftTask(&idlequeue.TaskOptions{MinTaskTime: time.Millisecond}, cleanup)
//
//	// synchronous flush, e.g. before shutdown
//	queue.RunTasksImmediately()
//
// # Lifecycle Integration
//
// When [Config.EnsureTasksRun] is set, construction attaches hooks to the
// [LifecycleMonitor]: transitions into hidden and the terminal shutdown
// signal both force a synchronous full drain, mirroring the page-lifecycle
// strategy of flushing state while the process still can. [ManualLifecycle]
// drives visibility programmatically (and from tests); [SignalLifecycle]
// adapts OS signals, treating the first SIGINT/SIGTERM as hidden-then-
// shutdown.
package idlequeue

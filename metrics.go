package idlequeue

import (
	"sync/atomic"
)

// Metrics is a point-in-time snapshot of an [IdleQueue]'s activity counters,
// retrieved with [IdleQueue.Metrics]. Collection is always on; each counter
// is a single atomic add on the path it observes.
type Metrics struct {
	// TasksPushed counts PushTask submissions accepted into the queue.
	TasksPushed uint64
	// TasksUnshifted counts UnshiftTask submissions accepted into the queue.
	TasksUnshifted uint64
	// TasksRun counts task invocations, including invocations that
	// panicked.
	TasksRun uint64
	// TaskPanics counts task invocations that panicked.
	TaskPanics uint64
	// TasksDropped counts submissions rejected after Destroy.
	TasksDropped uint64
	// Drains counts drain invocations of any origin.
	Drains uint64
	// ForcedDrains counts synchronous full drains, i.e.
	// RunTasksImmediately and lifecycle-forced flushes.
	ForcedDrains uint64
	// Continuations counts scheduling requests re-issued because a drain
	// stopped with work remaining.
	Continuations uint64
	// Yields counts drain passes stopped by the deadline yield policy.
	Yields uint64
	// IdleSchedules counts idle callback registrations.
	IdleSchedules uint64
	// MicrotaskSchedules counts microtask callback registrations.
	MicrotaskSchedules uint64
	// CanceledSchedules counts registrations canceled before they fired.
	CanceledSchedules uint64
	// PeakQueueDepth is the maximum number of queued items observed.
	PeakQueueDepth uint64
}

// metricsState carries the live counters behind [Metrics].
type metricsState struct {
	tasksPushed        atomic.Uint64
	tasksUnshifted     atomic.Uint64
	tasksRun           atomic.Uint64
	taskPanics         atomic.Uint64
	tasksDropped       atomic.Uint64
	drains             atomic.Uint64
	forcedDrains       atomic.Uint64
	continuations      atomic.Uint64
	yields             atomic.Uint64
	idleSchedules      atomic.Uint64
	microtaskSchedules atomic.Uint64
	canceledSchedules  atomic.Uint64
	peakQueueDepth     atomic.Uint64
}

// observeDepth raises the peak queue depth gauge.
func (x *metricsState) observeDepth(depth int) {
	for {
		cur := x.peakQueueDepth.Load()
		if uint64(depth) <= cur {
			return
		}
		if x.peakQueueDepth.CompareAndSwap(cur, uint64(depth)) {
			return
		}
	}
}

func (x *metricsState) snapshot() Metrics {
	return Metrics{
		TasksPushed:        x.tasksPushed.Load(),
		TasksUnshifted:     x.tasksUnshifted.Load(),
		TasksRun:           x.tasksRun.Load(),
		TaskPanics:         x.taskPanics.Load(),
		TasksDropped:       x.tasksDropped.Load(),
		Drains:             x.drains.Load(),
		ForcedDrains:       x.forcedDrains.Load(),
		Continuations:      x.continuations.Load(),
		Yields:             x.yields.Load(),
		IdleSchedules:      x.idleSchedules.Load(),
		MicrotaskSchedules: x.microtaskSchedules.Load(),
		CanceledSchedules:  x.canceledSchedules.Load(),
		PeakQueueDepth:     x.peakQueueDepth.Load(),
	}
}

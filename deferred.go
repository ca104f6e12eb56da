package idlequeue

import (
	"sync"
)

const (
	// deferredCompactThreshold bounds how many consumed slots may accumulate
	// at the head of the microtask slice before it is compacted.
	deferredCompactThreshold = 64
)

type (
	// DeferredScheduler is a portable fallback for hosts without native
	// scheduling primitives. It implements both [IdleScheduler] and
	// [MicrotaskScheduler] on a single serial executor goroutine, trading
	// precision for availability: "idle" callbacks run as soon as the
	// executor is free, with a fresh [NewEstimatedDeadline] substituted for
	// host deadline information, and microtasks always run before idle
	// callbacks.
	//
	// [New] constructs one automatically when [Config] does not supply the
	// corresponding capability, and closes it at [IdleQueue.Destroy].
	// Independently constructed instances may be shared between queues and
	// must be released with Close.
	//
	// The zero value is not usable; construct with [NewDeferredScheduler].
	DeferredScheduler struct {
		mu        sync.Mutex
		micro     []func()
		microHead int
		idle      []deferredIdle
		handleSeq IdleHandle
		closed    bool
		wake      chan struct{}
		quit      chan struct{}
	}

	// deferredIdle is a pending idle callback registration.
	deferredIdle struct {
		handle   IdleHandle
		callback func(Deadline)
	}
)

// NewDeferredScheduler constructs a DeferredScheduler and starts its executor
// goroutine. Release it with Close.
func NewDeferredScheduler() *DeferredScheduler {
	x := &DeferredScheduler{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
	go x.run()
	return x
}

// ScheduleIdle implements [IdleScheduler]. The callback receives a fresh
// estimated deadline when it runs. Returns 0, without scheduling, after
// Close. Panics on a nil callback.
func (x *DeferredScheduler) ScheduleIdle(callback func(Deadline)) IdleHandle {
	if callback == nil {
		panic(`idlequeue: nil callback`)
	}
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return 0
	}
	x.handleSeq++
	handle := x.handleSeq
	x.idle = append(x.idle, deferredIdle{handle: handle, callback: callback})
	x.mu.Unlock()
	x.wakeExecutor()
	return handle
}

// CancelIdle implements [IdleScheduler]. Unknown, already-fired, and zero
// handles are ignored.
func (x *DeferredScheduler) CancelIdle(handle IdleHandle) {
	if handle == 0 {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for i := range x.idle {
		if x.idle[i].handle == handle {
			copy(x.idle[i:], x.idle[i+1:])
			x.idle[len(x.idle)-1] = deferredIdle{}
			x.idle = x.idle[:len(x.idle)-1]
			return
		}
	}
}

// ScheduleMicrotask implements [MicrotaskScheduler]. Microtasks run in FIFO
// order, ahead of any pending idle callbacks. Dropped after Close. Panics on
// a nil callback.
func (x *DeferredScheduler) ScheduleMicrotask(callback func()) {
	if callback == nil {
		panic(`idlequeue: nil callback`)
	}
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return
	}
	x.micro = append(x.micro, callback)
	x.mu.Unlock()
	x.wakeExecutor()
}

// Close stops intake immediately and signals the executor goroutine to exit.
// It does not wait for an in-flight callback, so a task may close the
// scheduler that is running it. Pending callbacks are discarded. Idempotent;
// always returns nil.
func (x *DeferredScheduler) Close() error {
	x.mu.Lock()
	if !x.closed {
		x.closed = true
		close(x.quit)
		x.micro = nil
		x.microHead = 0
		x.idle = nil
	}
	x.mu.Unlock()
	return nil
}

func (x *DeferredScheduler) wakeExecutor() {
	select {
	case x.wake <- struct{}{}:
	default:
	}
}

// take removes the next callback to execute, microtasks first. Returns nil
// when nothing is pending.
func (x *DeferredScheduler) take() func() {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.microHead < len(x.micro) {
		fn := x.micro[x.microHead]
		x.micro[x.microHead] = nil
		x.microHead++
		switch {
		case x.microHead == len(x.micro):
			x.micro = x.micro[:0]
			x.microHead = 0
		case x.microHead > deferredCompactThreshold && x.microHead > len(x.micro)/2:
			n := copy(x.micro, x.micro[x.microHead:])
			clear(x.micro[n:])
			x.micro = x.micro[:n]
			x.microHead = 0
		}
		return fn
	}

	if len(x.idle) > 0 {
		entry := x.idle[0]
		copy(x.idle, x.idle[1:])
		x.idle[len(x.idle)-1] = deferredIdle{}
		x.idle = x.idle[:len(x.idle)-1]
		return func() {
			entry.callback(NewEstimatedDeadline())
		}
	}

	return nil
}

func (x *DeferredScheduler) run() {
	for {
		fn := x.take()
		if fn == nil {
			select {
			case <-x.wake:
				continue
			case <-x.quit:
				return
			}
		}
		select {
		case <-x.quit:
			return
		default:
		}
		fn()
	}
}

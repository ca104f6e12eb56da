package idlequeue

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

type (
	// ManualLifecycle is a [LifecycleMonitor] driven by the embedding
	// application, for hosts whose foreground/background transitions arrive
	// through some platform-specific channel the application already owns.
	//
	// All methods are safe for concurrent use. Registered callbacks run
	// synchronously on the goroutine that triggered them, outside the
	// monitor's lock, in registration order; SetVisibility to
	// [VisibilityHidden] therefore returns only after an
	// [Config.EnsureTasksRun] queue has flushed.
	ManualLifecycle struct {
		mu           sync.Mutex
		visibility   Visibility
		seq          uint64
		hidden       []lifecycleHook
		shutdown     []lifecycleHook
		shutdownDone bool
	}

	// SignalLifecycle is a [LifecycleMonitor] that maps process signals to
	// lifecycle transitions: the first signal received marks the
	// environment hidden, fires the hidden hooks, then fires the shutdown
	// hooks. Delivery stops after the first signal, so a second signal
	// follows the default process disposition.
	//
	// Release with Close.
	SignalLifecycle struct {
		manual  *ManualLifecycle
		ch      chan os.Signal
		quit    chan struct{}
		stopped sync.Once
	}

	// lifecycleHook is a registered callback, ordered by registration.
	lifecycleHook struct {
		id uint64
		fn func()
	}
)

// NewManualLifecycle constructs a ManualLifecycle reporting the given initial
// visibility.
func NewManualLifecycle(initial Visibility) *ManualLifecycle {
	return &ManualLifecycle{visibility: initial}
}

// Visibility implements [LifecycleMonitor].
func (x *ManualLifecycle) Visibility() Visibility {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.visibility
}

// SetVisibility records the new visibility, firing the hidden hooks when it
// transitions into [VisibilityHidden] from any other state.
func (x *ManualLifecycle) SetVisibility(v Visibility) {
	x.mu.Lock()
	prev := x.visibility
	x.visibility = v
	var fire []func()
	if v == VisibilityHidden && prev != VisibilityHidden {
		fire = snapshotHooks(x.hidden)
	}
	x.mu.Unlock()
	for _, fn := range fire {
		fn()
	}
}

// Shutdown marks the environment [VisibilityUnloaded] and fires the shutdown
// hooks. Only the first call fires; subsequent calls are no-ops.
func (x *ManualLifecycle) Shutdown() {
	x.mu.Lock()
	if x.shutdownDone {
		x.mu.Unlock()
		return
	}
	x.shutdownDone = true
	x.visibility = VisibilityUnloaded
	fire := snapshotHooks(x.shutdown)
	x.mu.Unlock()
	for _, fn := range fire {
		fn()
	}
}

// OnHidden implements [LifecycleMonitor]. Panics on a nil callback.
func (x *ManualLifecycle) OnHidden(callback func()) (detach func()) {
	if callback == nil {
		panic(`idlequeue: nil callback`)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.seq++
	id := x.seq
	x.hidden = append(x.hidden, lifecycleHook{id: id, fn: callback})
	return func() {
		x.mu.Lock()
		defer x.mu.Unlock()
		x.hidden = removeHook(x.hidden, id)
	}
}

// OnShutdown implements [LifecycleMonitor]. Panics on a nil callback.
func (x *ManualLifecycle) OnShutdown(callback func()) (detach func()) {
	if callback == nil {
		panic(`idlequeue: nil callback`)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.seq++
	id := x.seq
	x.shutdown = append(x.shutdown, lifecycleHook{id: id, fn: callback})
	return func() {
		x.mu.Lock()
		defer x.mu.Unlock()
		x.shutdown = removeHook(x.shutdown, id)
	}
}

func snapshotHooks(hooks []lifecycleHook) []func() {
	if len(hooks) == 0 {
		return nil
	}
	fns := make([]func(), len(hooks))
	for i := range hooks {
		fns[i] = hooks[i].fn
	}
	return fns
}

func removeHook(hooks []lifecycleHook, id uint64) []lifecycleHook {
	for i := range hooks {
		if hooks[i].id == id {
			copy(hooks[i:], hooks[i+1:])
			hooks[len(hooks)-1] = lifecycleHook{}
			return hooks[:len(hooks)-1]
		}
	}
	return hooks
}

// NewSignalLifecycle constructs a SignalLifecycle subscribed to the given
// signals, starting its delivery goroutine. With no arguments it subscribes
// to [os.Interrupt] and [syscall.SIGTERM].
func NewSignalLifecycle(signals ...os.Signal) *SignalLifecycle {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	x := &SignalLifecycle{
		manual: NewManualLifecycle(VisibilityVisible),
		ch:     make(chan os.Signal, 1),
		quit:   make(chan struct{}),
	}
	signal.Notify(x.ch, signals...)
	go x.run()
	return x
}

func (x *SignalLifecycle) run() {
	select {
	case <-x.quit:
		return
	case <-x.ch:
	}
	signal.Stop(x.ch)
	x.manual.SetVisibility(VisibilityHidden)
	x.manual.Shutdown()
}

// Visibility implements [LifecycleMonitor].
func (x *SignalLifecycle) Visibility() Visibility {
	return x.manual.Visibility()
}

// OnHidden implements [LifecycleMonitor].
func (x *SignalLifecycle) OnHidden(callback func()) (detach func()) {
	return x.manual.OnHidden(callback)
}

// OnShutdown implements [LifecycleMonitor].
func (x *SignalLifecycle) OnShutdown(callback func()) (detach func()) {
	return x.manual.OnShutdown(callback)
}

// Close stops signal delivery and releases the delivery goroutine.
// Idempotent; always returns nil.
func (x *SignalLifecycle) Close() error {
	x.stopped.Do(func() {
		signal.Stop(x.ch)
		close(x.quit)
	})
	return nil
}

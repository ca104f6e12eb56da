package idlequeue

import (
	"os"
	"reflect"
	"syscall"
	"testing"
	"time"
)

func TestManualLifecycle_visibility(t *testing.T) {
	l := NewManualLifecycle(VisibilityPrerender)
	if got := l.Visibility(); got != VisibilityPrerender {
		t.Fatalf(`got %v`, got)
	}
	l.SetVisibility(VisibilityVisible)
	if got := l.Visibility(); got != VisibilityVisible {
		t.Fatalf(`got %v`, got)
	}
}

func TestManualLifecycle_hiddenTransitions(t *testing.T) {
	l := NewManualLifecycle(VisibilityVisible)
	var fired []string
	l.OnHidden(func() { fired = append(fired, `a`) })
	l.OnHidden(func() { fired = append(fired, `b`) })

	l.SetVisibility(VisibilityHidden)
	l.SetVisibility(VisibilityHidden) // not a transition, no refire
	l.SetVisibility(VisibilityVisible)
	l.SetVisibility(VisibilityHidden)

	// registration order, once per transition into hidden
	if want := []string{`a`, `b`, `a`, `b`}; !reflect.DeepEqual(fired, want) {
		t.Fatalf(`got %v want %v`, fired, want)
	}
}

func TestManualLifecycle_detach(t *testing.T) {
	l := NewManualLifecycle(VisibilityVisible)
	var fired []string
	detach := l.OnHidden(func() { fired = append(fired, `a`) })
	l.OnHidden(func() { fired = append(fired, `b`) })
	detach()
	detach() // idempotent

	l.SetVisibility(VisibilityHidden)
	if want := []string{`b`}; !reflect.DeepEqual(fired, want) {
		t.Fatalf(`got %v want %v`, fired, want)
	}
}

func TestManualLifecycle_shutdown(t *testing.T) {
	l := NewManualLifecycle(VisibilityVisible)
	var count int
	l.OnShutdown(func() { count++ })

	l.Shutdown()
	l.Shutdown() // fires once only
	if count != 1 {
		t.Fatalf(`fired %d times`, count)
	}
	if got := l.Visibility(); got != VisibilityUnloaded {
		t.Fatalf(`got %v`, got)
	}
}

// Hooks fire outside the monitor's lock, so they may call back in.
func TestManualLifecycle_hookReentry(t *testing.T) {
	l := NewManualLifecycle(VisibilityVisible)
	var saw Visibility
	l.OnHidden(func() { saw = l.Visibility() })
	l.SetVisibility(VisibilityHidden)
	if saw != VisibilityHidden {
		t.Fatalf(`got %v`, saw)
	}
}

func TestManualLifecycle_nilCallbackPanics(t *testing.T) {
	l := NewManualLifecycle(VisibilityVisible)
	for name, fn := range map[string]func(){
		`OnHidden`:   func() { l.OnHidden(nil) },
		`OnShutdown`: func() { l.OnShutdown(nil) },
	} {
		func() {
			defer func() {
				if r := recover(); r != `idlequeue: nil callback` {
					t.Errorf(`%s: recovered %v`, name, r)
				}
			}()
			fn()
		}()
	}
}

func TestSignalLifecycle_signal(t *testing.T) {
	defer checkNumGoroutines(time.Second * 3)(t)

	l := NewSignalLifecycle()
	defer l.Close()

	if got := l.Visibility(); got != VisibilityVisible {
		t.Fatalf(`initial visibility: got %v`, got)
	}

	hidden := make(chan struct{})
	shutdown := make(chan struct{})
	l.OnHidden(func() { close(hidden) })
	l.OnShutdown(func() { close(shutdown) })

	// Inject directly rather than signalling the process, for determinism.
	l.ch <- os.Interrupt

	select {
	case <-shutdown:
	case <-time.After(time.Second * 3):
		t.Fatal(`timed out waiting for the shutdown hook`)
	}
	select {
	case <-hidden:
	default:
		t.Error(`the hidden hook fires before the shutdown hook`)
	}
	if got := l.Visibility(); got != VisibilityUnloaded {
		t.Errorf(`got %v`, got)
	}
}

func TestSignalLifecycle_close(t *testing.T) {
	defer checkNumGoroutines(time.Second * 3)(t)

	l := NewSignalLifecycle(syscall.SIGHUP)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err) // idempotent
	}
}

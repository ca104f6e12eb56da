package idlequeue

import (
	"testing"
)

func TestQueueState_String(t *testing.T) {
	for _, tc := range [...]struct {
		state QueueState
		want  string
	}{
		{QueueStateIdle, `Idle`},
		{QueueStateScheduled, `Scheduled`},
		{QueueStateDraining, `Draining`},
		{QueueStateDestroyed, `Destroyed`},
		{QueueState(99), `Unknown`},
	} {
		if got := tc.state.String(); got != tc.want {
			t.Errorf(`%d: got %q want %q`, tc.state, got, tc.want)
		}
	}
}

func TestQueueState_holder(t *testing.T) {
	var s queueState
	if got := s.Load(); got != QueueStateIdle {
		t.Fatalf(`zero value: got %v`, got)
	}
	if s.IsTerminal() {
		t.Fatal(`zero value should not be terminal`)
	}

	s.Store(QueueStateDraining)
	if got := s.Load(); got != QueueStateDraining {
		t.Fatalf(`got %v`, got)
	}
	if s.IsTerminal() {
		t.Fatal(`draining should not be terminal`)
	}

	s.Store(QueueStateDestroyed)
	if !s.IsTerminal() {
		t.Fatal(`destroyed should be terminal`)
	}
}

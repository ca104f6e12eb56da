package idlequeue

import (
	"sync/atomic"
)

// QueueState represents the scheduling state of an [IdleQueue].
//
// State machine:
//
//	QueueStateIdle → QueueStateScheduled       [enqueue]
//	QueueStateScheduled → QueueStateDraining   [scheduling callback fires]
//	QueueStateDraining → QueueStateIdle        [drain exits, queue empty]
//	QueueStateDraining → QueueStateScheduled   [drain exits, work remains]
//	QueueStateScheduled → QueueStateIdle       [ClearPendingTasks]
//	any → QueueStateDestroyed                  [Destroy]
//
// QueueStateDestroyed is terminal.
type QueueState uint32

const (
	// QueueStateIdle indicates no scheduling request is outstanding and no
	// drain is in progress.
	QueueStateIdle QueueState = iota
	// QueueStateScheduled indicates exactly one scheduling request is
	// outstanding, of either idle or microtask granularity.
	QueueStateScheduled
	// QueueStateDraining indicates the drain loop is executing tasks.
	QueueStateDraining
	// QueueStateDestroyed indicates Destroy was called.
	QueueStateDestroyed
)

// String returns a human-readable representation of the state.
func (s QueueState) String() string {
	switch s {
	case QueueStateIdle:
		return "Idle"
	case QueueStateScheduled:
		return "Scheduled"
	case QueueStateDraining:
		return "Draining"
	case QueueStateDestroyed:
		return "Destroyed"
	default:
		return "Unknown"
	}
}

// queueState holds a QueueState. Writes occur while holding IdleQueue.mu,
// reads are lock-free.
type queueState struct {
	v atomic.Uint32
}

func (s *queueState) Load() QueueState {
	return QueueState(s.v.Load())
}

func (s *queueState) Store(state QueueState) {
	s.v.Store(uint32(state))
}

// IsTerminal returns true if the current state is terminal (Destroyed).
func (s *queueState) IsTerminal() bool {
	return s.Load() == QueueStateDestroyed
}

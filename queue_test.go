package idlequeue

import (
	"testing"
	"time"
)

// numbered returns an item identifiable by its minTaskTime.
func numbered(i int) queueItem {
	return queueItem{minTaskTime: time.Duration(i)}
}

func TestTaskLane_fifoAcrossChunks(t *testing.T) {
	var lane taskLane
	const n = laneChunkSize*3 + 5
	for i := 1; i <= n; i++ {
		lane.push(numbered(i))
	}
	if lane.length != n {
		t.Fatalf(`got length %d`, lane.length)
	}
	for i := 1; i <= n; i++ {
		item, ok := lane.pop()
		if !ok || item.minTaskTime != time.Duration(i) {
			t.Fatalf(`pop %d: got %v %v`, i, item.minTaskTime, ok)
		}
	}
	if _, ok := lane.pop(); ok || lane.length != 0 {
		t.Fatal(`expected an empty lane`)
	}
}

func TestTaskLane_interleavedPushPop(t *testing.T) {
	var lane taskLane
	next, expect := 1, 1
	push := func(count int) {
		for i := 0; i < count; i++ {
			lane.push(numbered(next))
			next++
		}
	}
	pop := func(count int) {
		t.Helper()
		for i := 0; i < count; i++ {
			item, ok := lane.pop()
			if !ok || item.minTaskTime != time.Duration(expect) {
				t.Fatalf(`pop %d: got %v %v`, expect, item.minTaskTime, ok)
			}
			expect++
		}
	}

	// Drive the cursors across several chunk boundaries, including fully
	// draining and reusing the lane.
	push(laneChunkSize + 3)
	pop(laneChunkSize)
	push(laneChunkSize * 2)
	pop(laneChunkSize*2 + 3)
	if lane.length != 0 {
		t.Fatalf(`got length %d`, lane.length)
	}
	push(5)
	pop(5)
}

func TestTaskLane_peek(t *testing.T) {
	var lane taskLane
	if _, ok := lane.peek(); ok {
		t.Fatal(`peek on an empty lane`)
	}
	lane.push(numbered(1))
	lane.push(numbered(2))
	for i := 0; i < 2; i++ {
		// peek must not consume
		if item, ok := lane.peek(); !ok || item.minTaskTime != 1 {
			t.Fatalf(`got %v %v`, item.minTaskTime, ok)
		}
	}
	if lane.length != 2 {
		t.Fatalf(`got length %d`, lane.length)
	}
}

func TestTaskLane_clear(t *testing.T) {
	var lane taskLane
	for i := 1; i <= laneChunkSize*2; i++ {
		lane.push(numbered(i))
	}
	lane.clear()
	if lane.length != 0 || lane.head != nil || lane.tail != nil {
		t.Fatal(`clear must reset the lane`)
	}
	// and the lane remains usable
	lane.push(numbered(7))
	if item, ok := lane.pop(); !ok || item.minTaskTime != 7 {
		t.Fatalf(`got %v %v`, item.minTaskTime, ok)
	}
}

func TestTaskQueue_runNextBeforeNormal(t *testing.T) {
	var q taskQueue
	q.append(numbered(1))
	q.append(numbered(2))
	q.prepend(numbered(3))
	q.prepend(numbered(4))

	// Prepends drain first, FIFO among themselves; then appends, FIFO.
	for _, want := range []time.Duration{3, 4, 1, 2} {
		item, ok := q.removeFront()
		if !ok || item.minTaskTime != want {
			t.Fatalf(`want %v: got %v %v`, want, item.minTaskTime, ok)
		}
	}
	if !q.empty() {
		t.Fatal(`expected an empty queue`)
	}
}

func TestTaskQueue_peekFrontMinTaskTime(t *testing.T) {
	var q taskQueue
	if _, ok := q.peekFrontMinTaskTime(); ok {
		t.Fatal(`peek on an empty queue`)
	}

	q.append(numbered(1))
	if got, ok := q.peekFrontMinTaskTime(); !ok || got != 1 {
		t.Fatalf(`got %v %v`, got, ok)
	}

	q.prepend(numbered(2))
	if got, ok := q.peekFrontMinTaskTime(); !ok || got != 2 {
		t.Fatalf(`run-next should be the front: got %v %v`, got, ok)
	}

	if item, _ := q.removeFront(); item.minTaskTime != 2 {
		t.Fatalf(`got %v`, item.minTaskTime)
	}
	if got, ok := q.peekFrontMinTaskTime(); !ok || got != 1 {
		t.Fatalf(`got %v %v`, got, ok)
	}
}

func TestTaskQueue_lenAndClear(t *testing.T) {
	var q taskQueue
	for i := 1; i <= 3; i++ {
		q.append(numbered(i))
	}
	q.prepend(numbered(4))
	if got := q.len(); got != 4 {
		t.Fatalf(`got %d`, got)
	}
	q.clear()
	if !q.empty() || q.len() != 0 {
		t.Fatal(`clear must empty both lanes`)
	}
	if _, ok := q.removeFront(); ok {
		t.Fatal(`expected an empty queue`)
	}
}

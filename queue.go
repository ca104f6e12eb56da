package idlequeue

import (
	"sync"
	"time"
)

// laneChunkSize is the number of items per node in a task lane's linked
// list. 32 items at ~48 bytes each keeps chunks around 1.5KB.
const laneChunkSize = 32

type (
	// queueItem is a queued unit of work together with its enqueue-time
	// context and admission budget.
	queueItem struct {
		state       RunState
		task        Task
		minTaskTime time.Duration
	}

	// taskLane is a chunked linked-list FIFO of queue items.
	//
	// Not goroutine-safe. The caller must hold IdleQueue.mu.
	taskLane struct {
		head   *laneChunk
		tail   *laneChunk
		length int
	}

	// laneChunk is a fixed-size node using readPos/pos cursors for O(1)
	// append/remove without shifting.
	laneChunk struct {
		items   [laneChunkSize]queueItem
		next    *laneChunk
		readPos int // first unread slot
		pos     int // first unused slot
	}

	// taskQueue is the scheduler's pending work, split into a run-next lane
	// and a normal lane. Run-next items execute before all normal items;
	// each lane is FIFO, which makes prepends FIFO among themselves.
	//
	// Not goroutine-safe. The caller must hold IdleQueue.mu.
	taskQueue struct {
		next   taskLane
		normal taskLane
	}
)

// laneChunkPool recycles lane chunks to avoid churn under sustained load.
var laneChunkPool = sync.Pool{New: func() any { return new(laneChunk) }}

func newLaneChunk() *laneChunk {
	c := laneChunkPool.Get().(*laneChunk)
	c.pos = 0
	c.readPos = 0
	c.next = nil
	return c
}

// returnLaneChunk clears retained item references and returns the chunk to
// the pool.
func returnLaneChunk(c *laneChunk) {
	for i := 0; i < c.pos; i++ {
		c.items[i] = queueItem{}
	}
	c.pos = 0
	c.readPos = 0
	c.next = nil
	laneChunkPool.Put(c)
}

// push appends an item to the lane.
func (q *taskLane) push(item queueItem) {
	if q.tail == nil {
		q.tail = newLaneChunk()
		q.head = q.tail
	}

	if q.tail.pos == len(q.tail.items) {
		c := newLaneChunk()
		q.tail.next = c
		q.tail = c
	}

	q.tail.items[q.tail.pos] = item
	q.tail.pos++
	q.length++
}

// front returns the head chunk positioned at an unread item, advancing past
// and recycling an exhausted head chunk. Returns nil when the lane is empty.
func (q *taskLane) front() *laneChunk {
	if q.head == nil {
		return nil
	}

	if q.head.readPos >= q.head.pos {
		// If this is the only chunk the lane is empty; reset cursors for
		// reuse.
		if q.head == q.tail {
			q.head.pos = 0
			q.head.readPos = 0
			return nil
		}
		old := q.head
		q.head = q.head.next
		returnLaneChunk(old)
	}

	if q.head.readPos >= q.head.pos {
		return nil
	}

	return q.head
}

// pop removes and returns the front item. Returns false if the lane is
// empty.
func (q *taskLane) pop() (queueItem, bool) {
	c := q.front()
	if c == nil {
		return queueItem{}, false
	}

	item := c.items[c.readPos]
	// Zero out the popped slot so the task closure is collectable.
	c.items[c.readPos] = queueItem{}
	c.readPos++
	q.length--

	if c.readPos >= c.pos {
		if c == q.tail {
			c.pos = 0
			c.readPos = 0
		} else {
			q.head = c.next
			returnLaneChunk(c)
		}
	}

	return item, true
}

// peek returns a copy of the front item without removing it.
func (q *taskLane) peek() (queueItem, bool) {
	c := q.front()
	if c == nil {
		return queueItem{}, false
	}
	return c.items[c.readPos], true
}

// clear discards all items and returns every chunk to the pool.
func (q *taskLane) clear() {
	for c := q.head; c != nil; {
		next := c.next
		returnLaneChunk(c)
		c = next
	}
	q.head = nil
	q.tail = nil
	q.length = 0
}

func (q *taskQueue) append(item queueItem) {
	q.normal.push(item)
}

func (q *taskQueue) prepend(item queueItem) {
	q.next.push(item)
}

func (q *taskQueue) removeFront() (queueItem, bool) {
	if item, ok := q.next.pop(); ok {
		return item, true
	}
	return q.normal.pop()
}

func (q *taskQueue) peekFrontMinTaskTime() (time.Duration, bool) {
	if item, ok := q.next.peek(); ok {
		return item.minTaskTime, true
	}
	if item, ok := q.normal.peek(); ok {
		return item.minTaskTime, true
	}
	return 0, false
}

func (q *taskQueue) clear() {
	q.next.clear()
	q.normal.clear()
}

func (q *taskQueue) len() int {
	return q.next.length + q.normal.length
}

func (q *taskQueue) empty() bool {
	return q.len() == 0
}

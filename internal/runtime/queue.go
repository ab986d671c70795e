package runtime

import (
	"sync"

	"github.com/prismlang/prism/internal/ast"
)

// EventKind distinguishes between input event kinds.
type EventKind int

const (
	// EventClick represents a pointer activation of a node.
	EventClick EventKind = iota + 1
	// EventTextInput represents typed text for a bound input node.
	EventTextInput
	// EventBackspace represents a single-rune deletion on a bound input node.
	EventBackspace
	// EventAction represents a direct action dispatch by name.
	EventAction
)

// String returns the kind's wire name.
func (k EventKind) String() string {
	switch k {
	case EventClick:
		return "click"
	case EventTextInput:
		return "text_input"
	case EventBackspace:
		return "backspace"
	case EventAction:
		return "action"
	default:
		return "unknown"
	}
}

// Event is one unit of input work for the run loop. Every event carries
// a correlation token and a logical sequence number stamped at enqueue.
type Event struct {
	Kind   EventKind
	Token  string
	Seq    int64
	Node   ast.NodeRef // click, text_input, backspace
	Text   string      // text_input payload
	Action string      // action dispatch name
}

// eventQueue is a thread-safe FIFO queue for input events.
//
// The queue is unbounded so burst input never blocks the producer.
// Thread-safety covers external enqueuing (renderer goroutine, signal
// handlers) while the run loop dequeues; most usage is single-threaded.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the run loop.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1, coalesces signals
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that signals when events may be available.
// Use with select for context-aware waiting.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

package session

import (
	"fmt"
	"log/slog"
	"sync"
)

// MessageType classifies a Message event.
type MessageType string

const (
	// MessageResult carries the CLI's final answer.
	MessageResult MessageType = "result"

	// MessageDone acknowledges a run that finished without new result text.
	MessageDone MessageType = "done"

	// MessageStopped confirms that a stop keyword terminated a running session.
	MessageStopped MessageType = "stopped"

	// MessageInfo is informational, e.g. a stop keyword with nothing running.
	MessageInfo MessageType = "info"
)

// Message is the payload of a message event.
type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
}

// Handler receives session events. All methods are called from one goroutine,
// in emission order.
type Handler interface {
	// OnWaiting reports that a session is still waiting for the CLI.
	OnWaiting(key, text string)

	// OnStream delivers partial output: assistant text or the init summary.
	OnStream(key, text string)

	// OnToolUse reports a tool invocation. details is a display-ready summary.
	OnToolUse(key, toolName, details string)

	// OnMessage delivers a terminal success or a control acknowledgement.
	OnMessage(key string, msg Message)

	// OnError delivers a terminal failure.
	OnError(key, message string)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Waiting func(key, text string)
	Stream  func(key, text string)
	ToolUse func(key, toolName, details string)
	Message func(key string, msg Message)
	Error   func(key, message string)
}

// OnWaiting implements Handler.
func (h HandlerFuncs) OnWaiting(key, text string) {
	if h.Waiting != nil {
		h.Waiting(key, text)
	}
}

// OnStream implements Handler.
func (h HandlerFuncs) OnStream(key, text string) {
	if h.Stream != nil {
		h.Stream(key, text)
	}
}

// OnToolUse implements Handler.
func (h HandlerFuncs) OnToolUse(key, toolName, details string) {
	if h.ToolUse != nil {
		h.ToolUse(key, toolName, details)
	}
}

// OnMessage implements Handler.
func (h HandlerFuncs) OnMessage(key string, msg Message) {
	if h.Message != nil {
		h.Message(key, msg)
	}
}

// OnError implements Handler.
func (h HandlerFuncs) OnError(key, message string) {
	if h.Error != nil {
		h.Error(key, message)
	}
}

// EventKind enumerates the events a Manager emits.
type EventKind int

const (
	EventWaiting EventKind = iota
	EventStream
	EventToolUse
	EventMessage
	EventError
)

// String returns the event name used in logs.
func (k EventKind) String() string {
	switch k {
	case EventWaiting:
		return "waiting"
	case EventStream:
		return "stream"
	case EventToolUse:
		return "tool_use"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one queued emission. Text holds the waiting, stream, tool details
// or error text depending on Kind.
type Event struct {
	Kind     EventKind
	Key      string
	Text     string
	ToolName string
	Message  Message
}

// deliver calls the Handler method matching e.Kind.
func (e Event) deliver(h Handler) {
	switch e.Kind {
	case EventWaiting:
		h.OnWaiting(e.Key, e.Text)
	case EventStream:
		h.OnStream(e.Key, e.Text)
	case EventToolUse:
		h.OnToolUse(e.Key, e.ToolName, e.Text)
	case EventMessage:
		h.OnMessage(e.Key, e.Message)
	case EventError:
		h.OnError(e.Key, e.Text)
	}
}

// dispatcher is an unbounded FIFO between the goroutines that produce events
// (process readers, timers, SendMessage) and the Handler. Enqueue never
// blocks, so producers can emit while holding their session lock.
type dispatcher struct {
	handler Handler
	logger  *slog.Logger

	mu     sync.Mutex
	queue  []Event
	closed bool

	wake chan struct{}
	done chan struct{}
}

func newDispatcher(h Handler, logger *slog.Logger) *dispatcher {
	d := &dispatcher{
		handler: h,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// enqueue appends e. Events enqueued after close are dropped.
func (d *dispatcher) enqueue(e Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Debug("dropping event after close", "kind", e.Kind, "key", e.Key)
		return
	}
	d.queue = append(d.queue, e)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer close(d.done)

	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		closed := d.closed
		d.mu.Unlock()

		for _, e := range batch {
			d.deliver(e)
		}

		if len(batch) == 0 {
			if closed {
				return
			}
			<-d.wake
		}
	}
}

func (d *dispatcher) deliver(e Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked", "kind", e.Kind, "key", e.Key, "panic", r)
		}
	}()
	e.deliver(d.handler)
}

// close stops accepting events, delivers what is queued, and waits for the
// dispatch goroutine to exit. Calling close from a Handler deadlocks.
func (d *dispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	<-d.done
}

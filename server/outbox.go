package server

import (
	"sync"
)

// FrameWriter is the write half of a connection.
type FrameWriter interface {
	WriteFrame(frame []byte) error
}

// Outbox is an unbounded FIFO of encoded frames for one session. Push never
// blocks, so it is safe to call while holding a game lock; a single Run loop
// drains it to the wire in submission order.
type Outbox struct {
	mu     sync.Mutex
	queue  [][]byte
	closed bool
	notify chan struct{}
}

func NewOutbox() *Outbox {
	return &Outbox{notify: make(chan struct{}, 1)}
}

// Push enqueues frame and reports false once the outbox is closed.
func (o *Outbox) Push(frame []byte) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.queue = append(o.queue, frame)
	o.mu.Unlock()
	o.wake()
	return true
}

// Close stops accepting frames. Run still writes what was queued before.
func (o *Outbox) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.wake()
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

func (o *Outbox) wake() {
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// Run writes queued frames until the outbox is closed and empty, or a write
// fails. Each frame is counted on written.
func (o *Outbox) Run(w FrameWriter, written func()) error {
	for {
		o.mu.Lock()
		batch := o.queue
		o.queue = nil
		closed := o.closed
		o.mu.Unlock()

		for _, frame := range batch {
			if err := w.WriteFrame(frame); err != nil {
				return err
			}
			if written != nil {
				written()
			}
		}
		if len(batch) == 0 {
			if closed {
				return nil
			}
			<-o.notify
		}
	}
}

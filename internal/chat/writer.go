package chat

import (
	"bufio"
	"net"
	"sync"
	"time"
)

const lineEnding = "\r\n"

// Outbox is a session's outbound line queue. Post appends at the tail and
// never blocks or drops; the writer goroutine consumes from the head, so
// lines reach the connection in post order with one write in flight.
type Outbox struct {
	mu     sync.Mutex
	lines  []string
	closed bool
	wake   chan struct{}
}

func NewOutbox() *Outbox {
	return &Outbox{wake: make(chan struct{}, 1)}
}

// Post queues line and reports whether the outbox was still open.
func (o *Outbox) Post(line string) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.lines = append(o.lines, line)
	// wake is closed under mu, so signalling must happen under mu too.
	select {
	case o.wake <- struct{}{}:
	default:
	}
	o.mu.Unlock()
	return true
}

// Close stops accepting lines. Lines already queued are still handed out.
func (o *Outbox) Close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.wake)
	}
	o.mu.Unlock()
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.lines)
}

// next blocks until a line is available. ok is false once the outbox is
// closed and drained.
func (o *Outbox) next() (line string, ok bool) {
	for {
		o.mu.Lock()
		if len(o.lines) > 0 {
			line = o.lines[0]
			o.lines[0] = ""
			o.lines = o.lines[1:]
			o.mu.Unlock()
			return line, true
		}
		closed := o.closed
		o.mu.Unlock()

		if closed {
			return "", false
		}
		<-o.wake
	}
}

// StartOutboundWriter drains out into conn. A write failure closes conn so
// the session's reader observes the error and runs the disconnect path.
func StartOutboundWriter(conn net.Conn, out *Outbox, writeTimeout time.Duration) {
	go func() {
		w := bufio.NewWriter(conn)
		for {
			line, ok := out.next()
			if !ok {
				return
			}
			if writeTimeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			}
			if _, err := w.WriteString(line + lineEnding); err != nil {
				_ = conn.Close()
				return
			}
			if err := w.Flush(); err != nil {
				_ = conn.Close()
				return
			}
		}
	}()
}

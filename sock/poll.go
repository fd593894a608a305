package sock

import (
	"net"
	"sync"
	"time"
)

// Mode selects what a Poller does when a source fails to receive.
type Mode int

const (
	// HangupOnError delivers the first receive error as a hangup event and
	// stops reading the source. Used for stream sockets, where a failed read
	// means the peer is gone.
	HangupOnError Mode = iota
	// ContinueOnError delivers receive errors and keeps reading until the
	// socket is closed. Used for datagram sockets and listeners.
	ContinueOnError
)

// RecvFunc blocks until the next value is available on a source.
type RecvFunc[T any] func() (T, net.Addr, error)

// Event is a readiness notification from one source of a Poller.
type Event[T any] struct {
	Source string
	Value  T
	Addr   net.Addr
	Err    error
	// Hangup is set on the final event of a HangupOnError source.
	Hangup bool
}

// Poller multiplexes several blocking sources into a single stream of events
// that can be waited on with a bounded timeout.
//
// Each source is read by its own goroutine, so events from one source are
// delivered in the order they were received. There is no ordering between
// sources.
type Poller[T any] struct {
	events  chan Event[T]
	closed  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	discard func(T)
}

func NewPoller[T any]() *Poller[T] {
	return &Poller[T]{
		events: make(chan Event[T]),
		closed: make(chan struct{}),
	}
}

// OnDiscard sets f to be called with every value a source received but the
// poller could no longer deliver because it was closed. Set it before Add.
func (p *Poller[T]) OnDiscard(f func(T)) {
	p.discard = f
}

// Add starts reading source with recv. The goroutine exits once recv reports
// that the socket is closed, once a HangupOnError source fails, or once the
// poller is closed and recv returns.
func (p *Poller[T]) Add(source string, recv RecvFunc[T], mode Mode) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			v, addr, err := recv()
			ev := Event[T]{Source: source, Value: v, Addr: addr, Err: err}
			if err != nil && (mode == HangupOnError || IsClosed(err)) {
				ev.Hangup = true
			}
			if !p.post(ev) {
				if err == nil && p.discard != nil {
					p.discard(v)
				}
				return
			}
			if ev.Hangup {
				return
			}
		}
	}()
}

func (p *Poller[T]) post(ev Event[T]) bool {
	select {
	case p.events <- ev:
		return true
	case <-p.closed:
		return false
	}
}

// Wait returns the next event, or ok=false if none arrived within timeout.
func (p *Poller[T]) Wait(timeout time.Duration) (ev Event[T], ok bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case ev = <-p.events:
		return ev, true
	case <-t.C:
		return ev, false
	case <-p.closed:
		return ev, false
	}
}

// Close stops event delivery and waits for every reader goroutine to exit.
// The sockets behind the sources must be closed before or concurrently with
// Close, otherwise readers blocked in recv never return.
func (p *Poller[T]) Close() {
	p.once.Do(func() {
		close(p.closed)
	})
	p.wg.Wait()
}

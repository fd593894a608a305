package sock

import (
	"errors"
	"net"
	"testing"
	"time"
)

type fakeSource struct {
	vals chan int
	errs chan error
}

func newFakeSource() *fakeSource {
	return &fakeSource{vals: make(chan int, 8), errs: make(chan error, 8)}
}

func (f *fakeSource) recv() (int, net.Addr, error) {
	select {
	case v := <-f.vals:
		return v, nil, nil
	case err := <-f.errs:
		return 0, nil, err
	}
}

func waitEvent(t *testing.T, p *Poller[int]) Event[int] {
	t.Helper()
	ev, ok := p.Wait(2 * time.Second)
	if !ok {
		t.Fatalf("no event within timeout")
	}
	return ev
}

func TestPollerTimeout(t *testing.T) {
	p := NewPoller[int]()
	defer p.Close()

	start := time.Now()
	if _, ok := p.Wait(20 * time.Millisecond); ok {
		t.Errorf("got an event from an empty poller")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Wait returned after %v; want at least 20ms", elapsed)
	}
}

func TestPollerPreservesSourceOrder(t *testing.T) {
	p := NewPoller[int]()
	src := newFakeSource()
	for i := 0; i < 5; i++ {
		src.vals <- i
	}
	p.Add("a", src.recv, HangupOnError)

	for i := 0; i < 5; i++ {
		ev := waitEvent(t, p)
		if ev.Source != "a" || ev.Value != i {
			t.Errorf("event %d = %+v; want value %d from a", i, ev, i)
		}
	}

	src.errs <- net.ErrClosed
	if ev := waitEvent(t, p); !ev.Hangup {
		t.Errorf("closing source gave %+v; want hangup", ev)
	}
	p.Close()
}

func TestPollerModes(t *testing.T) {
	p := NewPoller[int]()
	stream, datagram := newFakeSource(), newFakeSource()
	p.Add("stream", stream.recv, HangupOnError)
	p.Add("datagram", datagram.recv, ContinueOnError)

	datagram.errs <- errors.New("malformed")
	ev := waitEvent(t, p)
	if ev.Source != "datagram" || ev.Err == nil || ev.Hangup {
		t.Errorf("datagram error event = %+v; want non-hangup error", ev)
	}
	datagram.vals <- 42
	if ev := waitEvent(t, p); ev.Value != 42 {
		t.Errorf("datagram source stopped after an error: %+v", ev)
	}

	stream.errs <- errors.New("reset")
	if ev := waitEvent(t, p); ev.Source != "stream" || !ev.Hangup {
		t.Errorf("stream error event = %+v; want hangup", ev)
	}

	datagram.errs <- net.ErrClosed
	if ev := waitEvent(t, p); !ev.Hangup {
		t.Errorf("closed datagram source gave %+v; want hangup", ev)
	}
	p.Close()
}

func TestPollerDiscardsUndelivered(t *testing.T) {
	p := NewPoller[int]()
	var discarded []int
	p.OnDiscard(func(v int) { discarded = append(discarded, v) })

	src := newFakeSource()
	p.Add("a", src.recv, ContinueOnError)
	// Nobody waits, so the reader is still trying to post when the poller
	// closes.
	src.vals <- 7
	p.Close()

	if len(discarded) != 1 || discarded[0] != 7 {
		t.Errorf("discarded %v; want [7]", discarded)
	}
}

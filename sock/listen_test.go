package sock

import (
	"context"
	"net"
	"testing"
)

func TestListenStreamAndDatagramShareAPort(t *testing.T) {
	ctx := context.Background()
	l, err := ListenStream(ctx, "127.0.0.1:0", 4)
	if err != nil {
		t.Fatalf("ListenStream: %v", err)
	}
	defer Close(l, "listener")

	port := l.Addr().(*net.TCPAddr).Port
	pc, err := ListenDatagram(ctx, HostPort("127.0.0.1", port))
	if err != nil {
		t.Fatalf("ListenDatagram on the stream port: %v", err)
	}
	defer Close(pc, "datagram socket")

	c, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	a, err := l.Accept()
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	a.Close()

	if !SameAddr(l.Addr(), pc.LocalAddr()) {
		t.Errorf("stream %v and datagram %v addresses differ", l.Addr(), pc.LocalAddr())
	}
}

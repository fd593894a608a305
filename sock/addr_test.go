package sock

import (
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/pkg/errors"

	"badc0de.net/pkg/voidofdreams/ttesting"
)

func TestPresentation(t *testing.T) {
	ttesting.AssertEqualString(t, "tcp4", Presentation(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 12525}), "127.0.0.1")
	ttesting.AssertEqualString(t, "udp6", Presentation(&net.UDPAddr{IP: net.IPv6loopback, Port: 1}), "::1")
	ttesting.AssertEqualString(t, "nil", Presentation(nil), "")
}

func TestParsePresentation(t *testing.T) {
	if _, err := ParsePresentation("10.0.0.1"); err != nil {
		t.Errorf("ParsePresentation(10.0.0.1): %v", err)
	}
	if _, err := ParsePresentation("not-an-ip"); err == nil {
		t.Errorf("ParsePresentation(not-an-ip) succeeded")
	}
}

func TestSameAddr(t *testing.T) {
	a := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5000}
	ttesting.AssertTrue(t, "same udp", SameAddr(a, &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 5000}))
	ttesting.AssertTrue(t, "tcp vs udp with same ip and port", SameAddr(a, &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5000}))
	ttesting.AssertTrue(t, "different port", !SameAddr(a, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5001}))
	ttesting.AssertTrue(t, "different family", !SameAddr(a, &net.UDPAddr{IP: net.IPv6loopback, Port: 5000}))
	ttesting.AssertTrue(t, "nil", !SameAddr(a, nil))
}

func TestLastError(t *testing.T) {
	err := errors.Wrap(&net.OpError{Op: "read", Err: syscall.ECONNRESET}, "reading")
	errno, ok := LastError(err)
	if !ok || errno != syscall.ECONNRESET {
		t.Errorf("LastError() = %v, %v; want ECONNRESET", errno, ok)
	}
	ttesting.AssertTrue(t, "reset counts as closed", IsClosed(err))
	ttesting.AssertTrue(t, "nil is not closed", !IsClosed(nil))
}

func TestIsTimeout(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	a.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
	_, err := a.Read(make([]byte, 1))
	ttesting.AssertTrue(t, "wrapped deadline", IsTimeout(errors.Wrap(err, "reading")))
	ttesting.AssertTrue(t, "deadline is not closed", !IsClosed(err))
	ttesting.AssertTrue(t, "reset is not a timeout", !IsTimeout(syscall.ECONNRESET))
}

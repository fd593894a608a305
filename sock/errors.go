package sock

import (
	"io"
	"net"
	"syscall"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// LastError extracts the OS error number carried by err, if any.
func LastError(err error) (syscall.Errno, bool) {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}

// IsClosed reports whether err means the socket was closed, either locally or
// by the peer.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errno, ok := LastError(err); ok {
		return errno == syscall.ECONNRESET || errno == syscall.EPIPE
	}
	return false
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Close closes c, logging failures other than the socket already being closed.
func Close(c io.Closer, what string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		if errno, ok := LastError(err); ok {
			glog.Warningf("closing %s: %v (errno %d)", what, err, int(errno))
			return
		}
		glog.Warningf("closing %s: %v", what, err)
	}
}

//go:build linux

package sock

import (
	"context"
	"net"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ListenStream opens a reusable TCP listener on address with the passed accept
// backlog.
//
// net.Listen always uses the system's maximum backlog, so on Linux the socket is
// created by hand and then handed to the runtime poller.
func ListenStream(ctx context.Context, address string, backlog int) (*net.TCPListener, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if backlog <= 0 {
		return listenStreamConfig(ctx, address)
	}

	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "sock: resolving %s", address)
	}
	family, sa, err := sockaddr(addr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errors.Wrap(os.NewSyscallError("socket", err), "sock: creating stream socket")
	}
	// FileListener dups the descriptor; f always owns and closes the original.
	f := os.NewFile(uintptr(fd), "tcp:"+address)
	defer f.Close()

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return nil, errors.Wrap(os.NewSyscallError("setsockopt", err), "sock: marking stream socket reusable")
	}
	if err := unix.Bind(fd, sa); err != nil {
		return nil, errors.Wrapf(os.NewSyscallError("bind", err), "sock: binding stream socket to %s", address)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return nil, errors.Wrap(os.NewSyscallError("listen", err), "sock: listening")
	}

	l, err := net.FileListener(f)
	if err != nil {
		return nil, errors.Wrap(err, "sock: wrapping listener")
	}
	glog.V(2).Infof("listening on %v with backlog %d", l.Addr(), backlog)
	return l.(*net.TCPListener), nil
}

func sockaddr(addr *net.TCPAddr) (int, unix.Sockaddr, error) {
	if addr.IP == nil || addr.IP.To4() != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		if ip4 := addr.IP.To4(); ip4 != nil {
			copy(sa.Addr[:], ip4)
		}
		return unix.AF_INET, sa, nil
	}
	if ip6 := addr.IP.To16(); ip6 != nil {
		sa := &unix.SockaddrInet6{Port: addr.Port}
		copy(sa.Addr[:], ip6)
		if addr.Zone != "" {
			ifi, err := net.InterfaceByName(addr.Zone)
			if err != nil {
				return 0, nil, errors.Wrapf(err, "sock: resolving zone %q", addr.Zone)
			}
			sa.ZoneId = uint32(ifi.Index)
		}
		return unix.AF_INET6, sa, nil
	}
	return 0, nil, errors.Errorf("sock: unsupported address %v", addr)
}

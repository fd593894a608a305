package sock

import (
	"context"
	"net"

	"github.com/pkg/errors"
)

// ListenDatagram opens a reusable UDP socket bound to address.
func ListenDatagram(ctx context.Context, address string) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: reuseControl}
	pc, err := lc.ListenPacket(ctx, "udp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "sock: binding datagram socket to %s", address)
	}
	return pc.(*net.UDPConn), nil
}

func listenStreamConfig(ctx context.Context, address string) (*net.TCPListener, error) {
	lc := net.ListenConfig{Control: reuseControl}
	l, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "sock: listening on %s", address)
	}
	return l.(*net.TCPListener), nil
}

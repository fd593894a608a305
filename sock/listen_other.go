//go:build !linux

package sock

import (
	"context"
	"net"

	"github.com/golang/glog"
)

// ListenStream opens a reusable TCP listener on address. The backlog is left to
// the operating system on this platform.
func ListenStream(ctx context.Context, address string, backlog int) (*net.TCPListener, error) {
	glog.V(2).Infof("backlog %d not applied on this platform", backlog)
	return listenStreamConfig(ctx, address)
}

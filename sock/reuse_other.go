//go:build !aix && !darwin && !dragonfly && !freebsd && !linux && !netbsd && !openbsd && !solaris

package sock

import (
	"syscall"
)

func reuseControl(network, address string, c syscall.RawConn) error {
	return nil
}

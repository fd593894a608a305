package sock

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// Presentation returns the textual IP of addr without the port, the way the
// address would be shown to a player.
func Presentation(addr net.Addr) string {
	if ip, _, ok := split(addr); ok {
		return ip.String()
	}
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// ParsePresentation parses a textual IPv4 or IPv6 address.
func ParsePresentation(s string) (net.IP, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, errors.Errorf("sock: %q is not an ip address", s)
	}
	return ip, nil
}

// SameAddr reports whether a and b name the same IP and port. Addresses of
// different families never match.
func SameAddr(a, b net.Addr) bool {
	ipA, portA, okA := split(a)
	ipB, portB, okB := split(b)
	if !okA || !okB {
		return false
	}
	if (ipA.To4() == nil) != (ipB.To4() == nil) {
		return false
	}
	return portA == portB && ipA.Equal(ipB)
}

func split(addr net.Addr) (net.IP, int, bool) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		if a != nil {
			return a.IP, a.Port, true
		}
	case *net.UDPAddr:
		if a != nil {
			return a.IP, a.Port, true
		}
	}
	return nil, 0, false
}

// HostPort joins host and port into a dialable address.
func HostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// WildcardAddr returns the IPv4 wildcard bind address for port.
func WildcardAddr(port int) string {
	return HostPort("0.0.0.0", port)
}

// DatagramAddrOf returns the UDP address with the same IP and port as a stream
// address. Both flows of an endpoint share one address.
func DatagramAddrOf(addr net.Addr) (*net.UDPAddr, error) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return &net.UDPAddr{IP: a.IP, Port: a.Port, Zone: a.Zone}, nil
	case *net.UDPAddr:
		return a, nil
	}
	return nil, errors.Errorf("sock: unsupported address %v (%T)", addr, addr)
}

package server

import (
	"github.com/golang/glog"

	vnet "badc0de.net/pkg/voidofdreams/net"
	"badc0de.net/pkg/voidofdreams/sock"
)

// dispatch applies the relay rules to a packet received from c. s.mu is held.
func (s *Server) dispatch(c *client, p *vnet.Packet) {
	glog.V(2).Infof("client %s (%q): %v", c.id, c.username, p)

	if _, ok := p.Body.(vnet.Connect); ok {
		s.connect(c, p)
		return
	}
	if !c.registered() {
		glog.V(1).Infof("client %s sent %v before Connect; ignored", c.id, p)
		return
	}

	switch b := p.Body.(type) {
	case vnet.UDPHandshake:
		// The datagram origin was learned when it arrived.

	case vnet.Disconnect:
		if s.clients.byName(p.Username) != c || c.left {
			glog.V(1).Infof("ignoring duplicate %v", p)
			return
		}
		c.left = true
		s.relayStream(c, p)
		s.clients.markRemoved(c)
		s.events.Printf("%q disconnected", c.username)
		glog.Infof("%q disconnected", c.username)

	case vnet.Move:
		s.relayDatagram(c, p)

	case vnet.Spawn:
		c.active = true
		s.relayStream(c, p)

	case vnet.Death:
		c.active = false
		s.relayStream(c, p)
		if s.stats != nil {
			if err := s.stats.RecordDeath(p.Username, b.Killer); err != nil {
				glog.Warningf("could not record death of %q: %v", p.Username, err)
			}
		}

	case vnet.Damage, vnet.Ray:
		s.relayStream(c, p)

	default:
		glog.Warningf("client %s sent unexpected %v", c.id, p)
	}
}

// connect registers c under the name in p, or rejects the connection if the
// name is empty, too long or taken.
func (s *Server) connect(c *client, p *vnet.Packet) {
	name := p.Username
	if c.username != "" {
		glog.V(1).Infof("client %s (%q) sent a second Connect; ignored", c.id, c.username)
		return
	}
	var reason string
	switch {
	case name == "":
		reason = "empty"
	case len(name) > vnet.MaxUsernameSize:
		reason = "too long"
		name = name[:32] + "..."
	case s.clients.byName(name) != nil:
		reason = "taken"
	}
	if reason != "" {
		glog.Warningf("rejecting client %s: username %q is %s", c.id, name, reason)
		s.events.Errorf("rejected %s as %q: %s", c.id, name, reason)
		s.metrics.connectsRejected.Inc()
		s.clients.markRemoved(c)
		return
	}

	c.username = name
	glog.Infof("client %s registered as %q", c.id, name)
	s.events.Printf("%s registered as %q", c.id, name)
	if s.stats != nil {
		if err := s.stats.RecordJoin(name); err != nil {
			glog.Warningf("could not record join of %q: %v", name, err)
		}
	}

	// The datagram origin is not known until the client answers this.
	s.send(c, &vnet.Packet{Username: name, Body: vnet.UDPHandshake{}})
	if c.removed {
		return
	}

	s.clients.each(func(other *client) {
		if other.registered() {
			s.send(other, p)
		}
	})

	// Let the newcomer rebuild the state it missed.
	s.clients.each(func(other *client) {
		if other == c || !other.registered() {
			return
		}
		s.send(c, &vnet.Packet{Username: other.username, Body: vnet.Connect{}})
		if other.active {
			s.send(c, &vnet.Packet{Username: other.username, Body: vnet.Spawn{}})
		}
	})
}

// send writes p to c's stream. A failed write, including one that timed out
// because c stopped reading, leaves the stream unusable and drops c.
func (s *Server) send(c *client, p *vnet.Packet) {
	if c.removed {
		return
	}
	if err := c.ep.Send(p); err != nil {
		if sock.IsTimeout(err) {
			glog.Warningf("client %s (%q) is not reading its stream; dropping it", c.id, c.username)
			s.metrics.stalled.Inc()
		} else {
			glog.Warningf("client %s (%q): %v", c.id, c.username, err)
		}
		s.events.Errorf("dropped %s (%q): %v", c.id, c.username, err)
		s.remove(c)
		return
	}
	s.metrics.packetsRelayed.WithLabelValues(p.Type().String()).Inc()
}

// relayStream sends p to every registered client except from.
func (s *Server) relayStream(from *client, p *vnet.Packet) {
	s.clients.each(func(c *client) {
		if c != from && c.registered() {
			s.send(c, p)
		}
	})
}

// relayDatagram sends p to the learned datagram address of every registered
// client except from. Clients that never sent a datagram are skipped.
func (s *Server) relayDatagram(from *client, p *vnet.Packet) {
	s.clients.each(func(c *client) {
		if c == from || !c.registered() || c.ep.Peer() == nil {
			return
		}
		if err := c.ep.SendDatagram(p); err != nil {
			glog.V(1).Infof("client %s (%q): %v", c.id, c.username, err)
			return
		}
		s.metrics.packetsRelayed.WithLabelValues(p.Type().String()).Inc()
	})
}

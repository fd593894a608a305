package client

import (
	"github.com/golang/glog"

	"badc0de.net/pkg/voidofdreams/geom"
	vnet "badc0de.net/pkg/voidofdreams/net"
)

// The send helpers are called by game code holding the world lock. They do
// nothing and return nil when the session is not connected. Send failures
// are logged and returned; a broken stream also shows up as a hangup in the
// receive loop.

// connected returns the endpoint and username if the session is connected.
func (s *Session) connected() (*vnet.Endpoint, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Connected || s.endpoint == nil {
		return nil, ""
	}
	return s.endpoint, s.username
}

func (s *Session) send(body vnet.Body, username string) error {
	ep, self := s.connected()
	if ep == nil {
		return nil
	}
	if username == "" {
		username = self
	}
	p := &vnet.Packet{Username: username, Body: body}
	if err := ep.Send(p); err != nil {
		glog.Warningf("could not send %v: %v", p, err)
		return err
	}
	return nil
}

func (s *Session) sendDatagram(body vnet.Body) error {
	ep, self := s.connected()
	if ep == nil {
		return nil
	}
	p := &vnet.Packet{Username: self, Body: body}
	if err := ep.SendDatagram(p); err != nil {
		glog.Warningf("could not send %v: %v", p, err)
		return err
	}
	return nil
}

// SendMove reports the local player's transform over the datagram socket.
// Lost moves are not resent.
func (s *Session) SendMove(m geom.Mat4) error {
	return s.sendDatagram(vnet.Move{Transform: m})
}

func (s *Session) SendSpawn() error {
	return s.send(vnet.Spawn{}, "")
}

// SendDeath reports the local player's death. killer may be empty.
func (s *Session) SendDeath(killer string) error {
	return s.send(vnet.Death{Killer: killer}, "")
}

// SendDamage reports that target was hurt by damager and now has health.
func (s *Session) SendDamage(target, damager string, amount, health float32) error {
	if target == "" {
		target = s.Username()
	}
	return s.send(vnet.Damage{Damager: damager, Damage: amount, Health: health}, target)
}

func (s *Session) SendRay(origin, direction geom.Vec3) error {
	return s.send(vnet.Ray{Origin: origin, Direction: direction}, "")
}

// SendHandshake sends a datagram so the server learns where this session's
// datagrams come from.
func (s *Session) SendHandshake() error {
	return s.sendDatagram(vnet.UDPHandshake{})
}

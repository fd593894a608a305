package client

import (
	"github.com/golang/glog"

	"badc0de.net/pkg/voidofdreams/gameworld"
	vnet "badc0de.net/pkg/voidofdreams/net"
)

// dispatch applies one received packet to the world. The world lock is held.
func (s *Session) dispatch(p *vnet.Packet) {
	glog.V(2).Infof("dispatching %v", p)

	switch b := p.Body.(type) {
	case vnet.Connect:
		if p.Username == s.Username() {
			s.world.AddLocalPlayer(p.Username)
		} else {
			s.world.AddRemotePlayer(p.Username)
		}

	case vnet.UDPHandshake:
		s.SendHandshake()

	case vnet.Disconnect:
		if pl := s.player(p.Username); pl != nil && !pl.Local() {
			s.world.RemovePlayer(p.Username)
		}

	case vnet.Move:
		// Datagrams may arrive before Connect or after Disconnect.
		if pl := s.player(p.Username); pl != nil && pl.Active() && !pl.Local() {
			pl.SetTransform(b.Transform)
		}

	case vnet.Damage:
		if pl := s.player(p.Username); pl != nil {
			pl.Damage(b.Damager, b.Damage, b.Health)
		}

	case vnet.Spawn:
		if pl := s.player(p.Username); pl != nil {
			pl.Spawn()
		}

	case vnet.Death:
		if pl := s.player(p.Username); pl != nil && pl.Active() {
			pl.Kill()
			if killer := s.player(b.Killer); killer != nil && b.Killer != "" {
				killer.CreditKill()
			}
		}

	case vnet.Ray:
		s.applyRay(p.Username, b)

	default:
		glog.Warningf("ignoring unexpected %v", p)
	}
}

// applyRay hit-tests a ray fired by shooterName. Damage to the local player
// is decided here and reported to everyone else; damage to other players is
// only a prediction until their own Damage arrives.
func (s *Session) applyRay(shooterName string, ray vnet.Ray) {
	shooter := s.player(shooterName)
	hit, ok := s.world.Raycast(ray.Origin, ray.Direction, gameworld.RayRange, shooter)
	if !ok {
		return
	}

	health := hit.Health() - gameworld.RayDamage
	if health < 0 {
		health = 0
	}
	hit.Damage(shooterName, gameworld.RayDamage, health)
	if !hit.Local() {
		return
	}

	s.SendDamage(hit.Username(), shooterName, gameworld.RayDamage, health)
	if health > 0 {
		return
	}
	hit.Kill()
	if shooter != nil {
		shooter.CreditKill()
	}
	s.SendDeath(shooterName)
}

func (s *Session) player(name string) gameworld.Player {
	pl, err := s.world.Player(name)
	if err != nil {
		return nil
	}
	return pl
}

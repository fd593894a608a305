// Package gameworld describes the game state the network sessions read and
// mutate, and provides an in-memory implementation of it.
//
// The sessions never own a world. They call into one that the game supplies,
// always while holding the world's lock.
package gameworld

import (
	"fmt"
	"sync"

	"badc0de.net/pkg/voidofdreams/geom"
)

const (
	// RayRange is how far a fired ray can hit.
	RayRange = 1000

	MaxHealth = 100
	MaxEnergy = 100

	// RayDamage is taken by a player hit by one ray.
	RayDamage = 25

	// ColliderRadius is the radius of the sphere a player is hit-tested as.
	ColliderRadius = 0.5
)

var (
	PlayerNotFound error
)

func init() {
	PlayerNotFound = fmt.Errorf("player not found")
}

// World is the set of players known to one game process.
//
// The embedded Locker is the single coarse world lock. Every other method
// requires it to be held by the caller, and so do all Player methods.
type World interface {
	sync.Locker

	Player(name string) (Player, error)
	// LocalPlayer returns the player controlled by this process, or nil.
	LocalPlayer() Player

	// AddLocalPlayer attaches the player controlled by this process. An
	// existing player with the same name is replaced.
	AddLocalPlayer(name string) Player
	// AddRemotePlayer returns the placeholder for a player controlled
	// elsewhere, creating an inactive one if needed.
	AddRemotePlayer(name string) Player
	RemovePlayer(name string) error
	// RemoveRemotePlayers removes every player except the local one.
	RemoveRemotePlayers()

	// Raycast returns the nearest active player whose collider the ray hits
	// within maxDistance, ignoring exclude.
	Raycast(origin, direction geom.Vec3, maxDistance float32, exclude Player) (Player, bool)
}

// Player is the synchronized state of one player's character.
type Player interface {
	Username() string
	Local() bool

	Transform() geom.Mat4
	SetTransform(geom.Mat4)

	Health() float32
	Energy() float32
	// Active reports whether the player has an alive, spawned character.
	Active() bool

	// Spawn brings the character to life at full health.
	Spawn()
	// Kill ends the character's life and counts a death.
	Kill()
	// CreditKill counts a kill scored by this player.
	CreditKill()
	Kills() int
	Deaths() int

	// Damage records that damager hurt the player by amount, leaving it with
	// health.
	Damage(damager string, amount, health float32)
	// LastDamager is the most recent damager since the last spawn.
	LastDamager() string
}

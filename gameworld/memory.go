package gameworld

import (
	"math"
	"sort"

	"github.com/golang/glog"
	"github.com/sasha-s/go-deadlock"

	"badc0de.net/pkg/voidofdreams/geom"
)

// EventKind names a change observed in a MemoryWorld.
type EventKind int

const (
	EventJoined EventKind = iota
	EventLeft
	EventSpawned
	EventDied
	EventDamaged
)

func (k EventKind) String() string {
	switch k {
	case EventJoined:
		return "joined"
	case EventLeft:
		return "left"
	case EventSpawned:
		return "spawned"
	case EventDied:
		return "died"
	case EventDamaged:
		return "damaged"
	}
	return "unknown"
}

// Event describes one change to a MemoryWorld.
type Event struct {
	Kind   EventKind
	Player string
	// Other is the damager of EventDamaged and the last damager, if any, of
	// EventDied.
	Other  string
	Health float32
	Local  bool
}

// MemoryWorld is a World keeping players in a map, with each active player
// hit-tested as a sphere around its position.
//
// The lock is a deadlock.Mutex, so taking it twice on one call stack is
// reported instead of hanging silently.
type MemoryWorld struct {
	deadlock.Mutex

	players  map[string]*memoryPlayer
	local    *memoryPlayer
	observer func(Event)
}

func NewMemoryWorld() *MemoryWorld {
	return &MemoryWorld{
		players: map[string]*memoryPlayer{},
	}
}

// Observe sets a function called for every change. It is called with the
// world lock held and must not take it.
func (w *MemoryWorld) Observe(f func(Event)) {
	w.Lock()
	defer w.Unlock()
	w.observer = f
}

func (w *MemoryWorld) notify(ev Event) {
	glog.V(2).Infof("world: %s %s", ev.Player, ev.Kind)
	if w.observer != nil {
		w.observer(ev)
	}
}

func (w *MemoryWorld) Player(name string) (Player, error) {
	if p, ok := w.players[name]; ok {
		return p, nil
	}
	return nil, PlayerNotFound
}

func (w *MemoryWorld) LocalPlayer() Player {
	if w.local == nil {
		return nil
	}
	return w.local
}

func (w *MemoryWorld) AddLocalPlayer(name string) Player {
	if w.local != nil && w.local.name == name {
		return w.local
	}
	if w.local != nil {
		delete(w.players, w.local.name)
	}
	p := &memoryPlayer{world: w, name: name, local: true, transform: geom.Identity()}
	w.players[name] = p
	w.local = p
	w.notify(Event{Kind: EventJoined, Player: name, Local: true})
	return p
}

func (w *MemoryWorld) AddRemotePlayer(name string) Player {
	if p, ok := w.players[name]; ok {
		return p
	}
	p := &memoryPlayer{world: w, name: name, transform: geom.Identity()}
	w.players[name] = p
	w.notify(Event{Kind: EventJoined, Player: name})
	return p
}

func (w *MemoryWorld) RemovePlayer(name string) error {
	p, ok := w.players[name]
	if !ok {
		return PlayerNotFound
	}
	delete(w.players, name)
	if p == w.local {
		w.local = nil
	}
	w.notify(Event{Kind: EventLeft, Player: name, Local: p.local})
	return nil
}

func (w *MemoryWorld) RemoveRemotePlayers() {
	for _, name := range w.names() {
		if p := w.players[name]; !p.local {
			delete(w.players, name)
			w.notify(Event{Kind: EventLeft, Player: name})
		}
	}
}

// Players returns the names of all players, sorted.
func (w *MemoryWorld) Players() []string {
	return w.names()
}

func (w *MemoryWorld) names() []string {
	names := make([]string, 0, len(w.players))
	for name := range w.players {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (w *MemoryWorld) Raycast(origin, direction geom.Vec3, maxDistance float32, exclude Player) (Player, bool) {
	dir := direction.Normalize()
	if dir.Length() == 0 {
		return nil, false
	}

	var (
		hit  *memoryPlayer
		best = float32(math.Inf(1))
	)
	for _, name := range w.names() {
		p := w.players[name]
		if !p.active || (exclude != nil && Player(p) == exclude) {
			continue
		}
		d, ok := hitSphere(origin, dir, p.transform.Position(), ColliderRadius)
		if !ok || d > maxDistance || d >= best {
			continue
		}
		hit, best = p, d
	}
	if hit == nil {
		return nil, false
	}
	return hit, true
}

// hitSphere returns the distance along the unit direction dir at which the
// ray from origin first enters the sphere, or 0 if origin is inside it.
func hitSphere(origin, dir, center geom.Vec3, radius float32) (float32, bool) {
	oc := center.Sub(origin)
	along := oc.Dot(dir)
	perp2 := oc.Dot(oc) - along*along
	r2 := radius * radius
	if perp2 > r2 {
		return 0, false
	}
	if oc.Dot(oc) <= r2 {
		return 0, true
	}
	half := float32(math.Sqrt(float64(r2 - perp2)))
	d := along - half
	if d < 0 {
		return 0, false
	}
	return d, true
}

type memoryPlayer struct {
	world *MemoryWorld
	name  string
	local bool

	transform   geom.Mat4
	health      float32
	energy      float32
	active      bool
	kills       int
	deaths      int
	lastDamager string
}

func (p *memoryPlayer) Username() string         { return p.name }
func (p *memoryPlayer) Local() bool              { return p.local }
func (p *memoryPlayer) Transform() geom.Mat4     { return p.transform }
func (p *memoryPlayer) SetTransform(m geom.Mat4) { p.transform = m }
func (p *memoryPlayer) Health() float32          { return p.health }
func (p *memoryPlayer) Energy() float32          { return p.energy }
func (p *memoryPlayer) Active() bool             { return p.active }
func (p *memoryPlayer) Kills() int               { return p.kills }
func (p *memoryPlayer) Deaths() int              { return p.deaths }
func (p *memoryPlayer) LastDamager() string      { return p.lastDamager }
func (p *memoryPlayer) CreditKill()              { p.kills++ }

func (p *memoryPlayer) Spawn() {
	p.active = true
	p.health = MaxHealth
	p.energy = MaxEnergy
	p.lastDamager = ""
	p.world.notify(Event{Kind: EventSpawned, Player: p.name, Health: p.health, Local: p.local})
}

func (p *memoryPlayer) Kill() {
	if !p.active {
		return
	}
	p.active = false
	p.health = 0
	p.deaths++
	p.world.notify(Event{Kind: EventDied, Player: p.name, Other: p.lastDamager, Local: p.local})
}

func (p *memoryPlayer) Damage(damager string, amount, health float32) {
	p.lastDamager = damager
	p.health = health
	p.world.notify(Event{Kind: EventDamaged, Player: p.name, Other: damager, Health: health, Local: p.local})
}

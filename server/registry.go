package server

import (
	"time"

	"github.com/google/uuid"

	vnet "badc0de.net/pkg/voidofdreams/net"
)

// client is the registry entry of one connected client.
type client struct {
	id       uuid.UUID
	ep       *vnet.Endpoint
	since    time.Time
	username string // empty until Connect
	active   bool

	// left is set once the client's departure has been announced.
	left    bool
	removed bool
}

func (c *client) registered() bool {
	return c.username != "" && !c.removed
}

// registry holds the connected clients in join order. Removal only marks an
// entry; compact drops marked entries, once per loop iteration, so passes
// over the clients never see the order change.
type registry struct {
	byID  map[uuid.UUID]*client
	order []*client
}

func newRegistry() *registry {
	return &registry{byID: map[uuid.UUID]*client{}}
}

func (r *registry) add(ep *vnet.Endpoint) *client {
	c := &client{id: uuid.New(), ep: ep, since: time.Now()}
	r.byID[c.id] = c
	r.order = append(r.order, c)
	return c
}

func (r *registry) get(id uuid.UUID) (*client, bool) {
	c, ok := r.byID[id]
	if !ok || c.removed {
		return nil, false
	}
	return c, true
}

// byName returns the registered client named name, or nil.
func (r *registry) byName(name string) *client {
	if name == "" {
		return nil
	}
	for _, c := range r.order {
		if c.registered() && c.username == name {
			return c
		}
	}
	return nil
}

// each calls f for every client not marked for removal, in join order.
func (r *registry) each(f func(*client)) {
	for _, c := range r.order {
		if !c.removed {
			f(c)
		}
	}
}

func (r *registry) markRemoved(c *client) {
	c.removed = true
}

// compact drops the entries marked for removal and returns them.
func (r *registry) compact() []*client {
	var removed []*client
	kept := r.order[:0]
	for _, c := range r.order {
		if c.removed {
			removed = append(removed, c)
			delete(r.byID, c.id)
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(r.order); i++ {
		r.order[i] = nil
	}
	r.order = kept
	return removed
}

func (r *registry) len() int {
	return len(r.order)
}

// clear drops every entry and returns them.
func (r *registry) clear() []*client {
	all := r.order
	r.order = nil
	r.byID = map[uuid.UUID]*client{}
	return all
}

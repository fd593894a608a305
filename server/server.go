// Package server implements the game server: it accepts clients on one
// stream port, shares one datagram socket between them on the same port
// number, and relays each client's events to the others.
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/trace"

	"badc0de.net/pkg/voidofdreams/config"
	"badc0de.net/pkg/voidofdreams/lifecycle"
	vnet "badc0de.net/pkg/voidofdreams/net"
	"badc0de.net/pkg/voidofdreams/sock"
)

const (
	sourceListener = "listener"
	sourceDatagram = "datagram"

	// DefaultSendTimeout bounds each stream write to a client. A client that
	// does not drain its stream for this long is dropped.
	DefaultSendTimeout = time.Second
)

// Recorder is told about joins and deaths, for example to keep a
// scoreboard.
type Recorder interface {
	RecordJoin(name string) error
	RecordDeath(victim, killer string) error
}

// arrival is what a poller source delivers: a new connection from the
// listener, or a packet from a socket.
type arrival struct {
	conn   net.Conn
	packet *vnet.Packet
}

// ClientInfo describes one connected client.
type ClientInfo struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Active       bool      `json:"active"`
	StreamAddr   string    `json:"stream_addr"`
	DatagramAddr string    `json:"datagram_addr,omitempty"`
	Since        time.Time `json:"since"`
}

type Server struct {
	flags   lifecycle.Flags
	metrics *metrics
	stats   Recorder

	// mu guards everything below. The loop holds it while handling one
	// event.
	mu          sync.Mutex
	listener    *net.TCPListener
	datagram    *net.UDPConn
	poller      *sock.Poller[arrival]
	clients     *registry
	events      trace.EventLog
	pollTimeout time.Duration
	sendTimeout time.Duration
	done        chan struct{}
}

type Option func(*Server)

// WithRegistry registers the server's metrics with reg instead of a private
// registry.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(s *Server) {
		s.metrics = newMetrics(reg)
	}
}

// WithSendTimeout replaces DefaultSendTimeout.
func WithSendTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.sendTimeout = d
	}
}

// WithStats reports joins and deaths to r.
func WithStats(r Recorder) Option {
	return func(s *Server) {
		s.stats = r
	}
}

func New(opts ...Option) *Server {
	done := make(chan struct{})
	close(done)
	s := &Server{clients: newRegistry(), sendTimeout: DefaultSendTimeout, done: done}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = newMetrics(prometheus.NewRegistry())
	}
	return s
}

// Start binds the stream listener and the datagram socket on the wildcard
// address and starts the loop. On failure the server stays inert and a
// *lifecycle.StartError is returned.
func (s *Server) Start(cfg config.Config) error {
	if !s.flags.Start() {
		return lifecycle.ErrRunning
	}

	ctx := context.Background()
	ln, err := sock.ListenStream(ctx, sock.WildcardAddr(cfg.Port), cfg.Backlog)
	if err != nil {
		s.flags.Finish()
		return &lifecycle.StartError{Stage: "listening", Err: err}
	}
	// With port 0 the datagram socket follows whatever port the listener got.
	port := ln.Addr().(*net.TCPAddr).Port
	pc, err := sock.ListenDatagram(ctx, sock.WildcardAddr(port))
	if err != nil {
		sock.Close(ln, "listener")
		s.flags.Finish()
		return &lifecycle.StartError{Stage: "binding datagram socket", Err: err}
	}

	poller := sock.NewPoller[arrival]()
	poller.OnDiscard(func(a arrival) {
		if a.conn != nil {
			sock.Close(a.conn, "unserved stream")
		}
	})
	poller.Add(sourceListener, func() (arrival, net.Addr, error) {
		conn, err := ln.Accept()
		return arrival{conn: conn}, nil, err
	}, sock.ContinueOnError)
	poller.Add(sourceDatagram, func() (arrival, net.Addr, error) {
		p, addr, err := vnet.ReadDatagram(pc)
		return arrival{packet: p}, addr, err
	}, sock.ContinueOnError)

	s.mu.Lock()
	s.listener = ln
	s.datagram = pc
	s.poller = poller
	s.clients = newRegistry()
	s.events = trace.NewEventLog("voidofdreams.Server", ln.Addr().String())
	s.pollTimeout = cfg.PollTimeout
	if s.pollTimeout <= 0 {
		s.pollTimeout = config.DefaultPollTimeout
	}
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	glog.Infof("listening on %v (stream) and %v (datagram)", ln.Addr(), pc.LocalAddr())
	s.events.Printf("listening on port %d", port)

	loopDone := make(chan struct{})
	go s.loop(poller, loopDone)
	go s.supervise(loopDone, done)
	return nil
}

func (s *Server) loop(poller *sock.Poller[arrival], loopDone chan<- struct{}) {
	defer close(loopDone)

	for !s.flags.ShouldStop() {
		ev, ok := poller.Wait(s.pollTimeout)
		if !ok {
			continue
		}

		s.mu.Lock()
		s.handle(ev)
		s.compact()
		s.mu.Unlock()
	}
}

// handle processes one poller event. s.mu is held.
func (s *Server) handle(ev sock.Event[arrival]) {
	switch ev.Source {
	case sourceListener:
		if ev.Err != nil {
			if ev.Hangup {
				glog.Warningf("listener closed: %v", ev.Err)
			} else {
				glog.Warningf("accept: %v", ev.Err)
			}
			return
		}
		s.accept(ev.Value.conn)

	case sourceDatagram:
		if ev.Err != nil {
			if ev.Hangup {
				glog.Warningf("datagram socket closed: %v", ev.Err)
				return
			}
			s.metrics.malformed.WithLabelValues("datagram").Inc()
			glog.V(2).Infof("ignoring datagram from %v: %v", ev.Addr, ev.Err)
			return
		}
		p := ev.Value.packet
		switch p.Body.(type) {
		case vnet.UDPHandshake, vnet.Move:
		default:
			// Anything else would let a forged datagram act for a client.
			glog.V(2).Infof("ignoring %v from %v: not a datagram packet", p, ev.Addr)
			return
		}
		c := s.clients.byName(p.Username)
		if c == nil {
			glog.V(2).Infof("ignoring %v from %v: not registered", p, ev.Addr)
			return
		}
		if old := c.ep.Peer(); old == nil {
			glog.Infof("client %s (%q) sends datagrams from %v", c.id, c.username, ev.Addr)
		} else if !sock.SameAddr(old, ev.Addr) {
			glog.Infof("client %s (%q) moved its datagrams from %v to %v", c.id, c.username, old, ev.Addr)
		}
		c.ep.SetPeer(ev.Addr)
		s.metrics.packetsReceived.WithLabelValues(p.Type().String(), "datagram").Inc()
		s.dispatch(c, p)

	default:
		id, err := uuid.Parse(ev.Source)
		if err != nil {
			glog.Errorf("event from unknown source %q", ev.Source)
			return
		}
		c, ok := s.clients.get(id)
		if !ok {
			// Already removed; its reader is draining.
			return
		}
		if ev.Err != nil {
			if !sock.IsClosed(ev.Err) {
				s.metrics.malformed.WithLabelValues("stream").Inc()
			}
			glog.Infof("client %s (%q) hung up: %v", c.id, c.username, ev.Err)
			s.remove(c)
			return
		}
		p := ev.Value.packet
		s.metrics.packetsReceived.WithLabelValues(p.Type().String(), "stream").Inc()
		s.dispatch(c, p)
	}
}

func (s *Server) accept(conn net.Conn) {
	ep := vnet.NewEndpoint(conn, s.datagram, nil)
	ep.WriteTimeout = s.sendTimeout
	c := s.clients.add(ep)
	s.poller.Add(c.id.String(), func() (arrival, net.Addr, error) {
		p, err := ep.Receive()
		return arrival{packet: p}, nil, err
	}, sock.HangupOnError)

	s.metrics.clients.Set(float64(s.clients.len()))
	glog.Infof("client %s connected from %s", c.id, sock.Presentation(conn.RemoteAddr()))
	s.events.Printf("accepted %s from %v", c.id, conn.RemoteAddr())
}

// remove marks c for removal, announcing its departure to the others if it
// had not said goodbye itself.
func (s *Server) remove(c *client) {
	if c.registered() && !c.left {
		c.left = true
		s.relayStream(c, &vnet.Packet{Username: c.username, Body: vnet.Disconnect{}})
	}
	s.clients.markRemoved(c)
}

// compact closes and drops clients marked for removal. s.mu is held.
func (s *Server) compact() {
	removed := s.clients.compact()
	for _, c := range removed {
		c.ep.CloseStream()
		s.events.Printf("removed %s (%q)", c.id, c.username)
	}
	if len(removed) > 0 {
		s.metrics.clients.Set(float64(s.clients.len()))
	}
}

// supervise tears the server down once the loop has exited.
func (s *Server) supervise(loopDone <-chan struct{}, done chan<- struct{}) {
	<-loopDone

	s.mu.Lock()
	sock.Close(s.listener, "listener")
	sock.Close(s.datagram, "datagram")
	for _, c := range s.clients.clear() {
		c.ep.CloseStream()
	}
	poller := s.poller
	events := s.events
	s.mu.Unlock()

	// Readers exit once their sockets are closed.
	poller.Close()

	s.metrics.clients.Set(0)
	events.Printf("stopped")
	events.Finish()
	glog.Infof("server stopped")

	s.flags.Finish()
	close(done)
}

func (s *Server) IsRunning() bool {
	return s.flags.Running()
}

// RequestStop asks the loop to exit at its next poll timeout. It does not
// wait.
func (s *Server) RequestStop() {
	s.flags.RequestStop()
}

// Done is closed once the server has been torn down.
func (s *Server) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Stop closes every socket and waits for teardown.
func (s *Server) Stop() {
	if !s.flags.Running() {
		return
	}
	s.RequestStop()
	<-s.Done()
}

// StreamAddr is the address of the stream listener, or nil if the server is
// not running.
func (s *Server) StreamAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || !s.flags.Running() {
		return nil
	}
	return s.listener.Addr()
}

// DatagramAddr is the address of the shared datagram socket, or nil if the
// server is not running.
func (s *Server) DatagramAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.datagram == nil || !s.flags.Running() {
		return nil
	}
	return s.datagram.LocalAddr()
}

// Clients returns the connected clients in the order they connected.
func (s *Server) Clients() []ClientInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	var infos []ClientInfo
	s.clients.each(func(c *client) {
		info := ClientInfo{
			ID:         c.id.String(),
			Username:   c.username,
			Active:     c.active,
			StreamAddr: c.ep.Stream.RemoteAddr().String(),
			Since:      c.since,
		}
		if peer := c.ep.Peer(); peer != nil {
			info.DatagramAddr = peer.String()
		}
		infos = append(infos, info)
	})
	return infos
}

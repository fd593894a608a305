// Package client implements the game client's side of a connection to the
// server: one stream connection and one datagram socket, a receive loop
// applying incoming events to the game world, and helpers sending the local
// player's actions.
package client

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/golang/glog"

	"badc0de.net/pkg/voidofdreams/config"
	"badc0de.net/pkg/voidofdreams/gameworld"
	"badc0de.net/pkg/voidofdreams/lifecycle"
	vnet "badc0de.net/pkg/voidofdreams/net"
	"badc0de.net/pkg/voidofdreams/sock"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "invalid"
}

const (
	sourceStream   = "stream"
	sourceDatagram = "datagram"

	dialTimeout = 5 * time.Second
)

// Session is one connection to a server.
type Session struct {
	world gameworld.World
	flags lifecycle.Flags

	mu          sync.Mutex
	state       State
	username    string
	endpoint    *vnet.Endpoint
	poller      *sock.Poller[*vnet.Packet]
	pollTimeout time.Duration
	done        chan struct{}
}

// New returns an inert session applying events to world.
func New(world gameworld.World) *Session {
	done := make(chan struct{})
	close(done)
	return &Session{world: world, done: done}
}

// Start connects to the server and starts the receive loop. On failure the
// session stays inert and a *lifecycle.StartError is returned.
func (s *Session) Start(cfg config.Config) error {
	if !s.flags.Start() {
		return lifecycle.ErrRunning
	}
	s.setState(Connecting)

	ep, err := s.connect(cfg)
	if err != nil {
		s.setState(Disconnected)
		s.flags.Finish()
		glog.Errorf("could not connect to %s:%d: %v", cfg.Address, cfg.Port, err)
		return err
	}

	poller := sock.NewPoller[*vnet.Packet]()
	poller.Add(sourceStream, func() (*vnet.Packet, net.Addr, error) {
		p, err := ep.Receive()
		return p, nil, err
	}, sock.HangupOnError)
	poller.Add(sourceDatagram, func() (*vnet.Packet, net.Addr, error) {
		return vnet.ReadDatagram(ep.Datagram)
	}, sock.ContinueOnError)

	s.mu.Lock()
	s.username = cfg.Username
	s.endpoint = ep
	s.poller = poller
	s.pollTimeout = cfg.PollTimeout
	if s.pollTimeout <= 0 {
		s.pollTimeout = config.DefaultPollTimeout
	}
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	if err := ep.Send(&vnet.Packet{Username: cfg.Username, Body: vnet.Connect{}}); err != nil {
		ep.Close()
		poller.Close()
		s.setState(Disconnected)
		s.flags.Finish()
		close(done)
		return &lifecycle.StartError{Stage: "announcing", Err: err}
	}
	s.setState(Connected)
	glog.Infof("connected to %s as %q", sock.Presentation(ep.Stream.RemoteAddr()), cfg.Username)

	loopDone := make(chan struct{})
	go s.loop(poller, loopDone)
	go s.supervise(ep, poller, loopDone, done)
	return nil
}

// connect opens both sockets. The datagram socket is bound to the local
// address of the stream so the server sees both flows from one address.
func (s *Session) connect(cfg config.Config) (*vnet.Endpoint, error) {
	// Literal addresses skip the resolver.
	var addr *net.TCPAddr
	if ip, err := sock.ParsePresentation(cfg.Address); err == nil {
		addr = &net.TCPAddr{IP: ip, Port: cfg.Port}
	} else {
		addr, err = net.ResolveTCPAddr("tcp", sock.HostPort(cfg.Address, cfg.Port))
		if err != nil {
			return nil, &lifecycle.StartError{Stage: "resolving", Err: err}
		}
		glog.V(1).Infof("resolved %q to %s", cfg.Address, sock.Presentation(addr))
	}

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.Dial("tcp", addr.String())
	if err != nil {
		return nil, &lifecycle.StartError{Stage: "connecting", Err: err}
	}

	local, err := sock.DatagramAddrOf(conn.LocalAddr())
	if err != nil {
		sock.Close(conn, "stream")
		return nil, &lifecycle.StartError{Stage: "binding datagram socket", Err: err}
	}
	peer, err := sock.DatagramAddrOf(conn.RemoteAddr())
	if err != nil {
		sock.Close(conn, "stream")
		return nil, &lifecycle.StartError{Stage: "binding datagram socket", Err: err}
	}
	pc, err := sock.ListenDatagram(context.Background(), local.String())
	if err != nil {
		sock.Close(conn, "stream")
		return nil, &lifecycle.StartError{Stage: "binding datagram socket", Err: err}
	}
	return vnet.NewEndpoint(conn, pc, peer), nil
}

// loop dispatches received packets until a stop is requested or the server
// hangs up.
func (s *Session) loop(poller *sock.Poller[*vnet.Packet], loopDone chan<- struct{}) {
	defer close(loopDone)

	for !s.flags.ShouldStop() {
		ev, ok := poller.Wait(s.pollTimeout)
		if !ok {
			continue
		}
		if ev.Err != nil {
			if ev.Source == sourceStream {
				if sock.IsClosed(ev.Err) {
					glog.Infof("server hung up")
				} else {
					glog.Warningf("dropping connection after a bad packet: %v", ev.Err)
				}
				return
			}
			if ev.Hangup {
				glog.Warningf("datagram socket closed: %v", ev.Err)
			} else {
				glog.V(2).Infof("ignoring datagram from %v: %v", ev.Addr, ev.Err)
			}
			continue
		}

		s.world.Lock()
		s.dispatch(ev.Value)
		s.world.Unlock()
	}
}

// supervise tears the connection down once the loop has exited.
func (s *Session) supervise(ep *vnet.Endpoint, poller *sock.Poller[*vnet.Packet], loopDone <-chan struct{}, done chan<- struct{}) {
	<-loopDone

	s.mu.Lock()
	wasConnected := s.state == Connected
	username := s.username
	s.state = Disconnected
	s.endpoint = nil
	s.mu.Unlock()

	if wasConnected && s.flags.ShouldStop() {
		if err := ep.Send(&vnet.Packet{Username: username, Body: vnet.Disconnect{}}); err != nil {
			glog.Warningf("could not say goodbye: %v", err)
		}
	}
	ep.Close()
	poller.Close()

	s.world.Lock()
	s.world.RemoveRemotePlayers()
	s.world.Unlock()

	glog.Infof("disconnected")
	s.flags.Finish()
	close(done)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) IsRunning() bool {
	return s.flags.Running()
}

// Username is the name the session connected with.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// RequestStop asks the receive loop to exit at its next poll timeout. It does
// not wait.
func (s *Session) RequestStop() {
	s.flags.RequestStop()
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Stop disconnects and waits for teardown. It takes the world lock, so it
// must not be called while holding it.
func (s *Session) Stop() {
	if !s.flags.Running() {
		return
	}
	s.RequestStop()
	<-s.Done()
}

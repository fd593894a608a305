package net

import (
	gonet "net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"badc0de.net/pkg/voidofdreams/sock"
)

// Endpoint pairs the stream connection to one peer with the datagram socket
// used to reach it and the peer's last known datagram address.
//
// On the server the datagram socket is shared by every endpoint; use
// CloseStream there and close the shared socket separately.
type Endpoint struct {
	Stream   gonet.Conn
	Datagram gonet.PacketConn

	// WriteTimeout bounds each Send. Zero means no bound. A stream whose
	// Send timed out may have carried part of a packet and must be closed.
	WriteTimeout time.Duration

	writeMu sync.Mutex

	peerMu sync.Mutex
	peer   gonet.Addr
}

func NewEndpoint(stream gonet.Conn, datagram gonet.PacketConn, peer gonet.Addr) *Endpoint {
	return &Endpoint{Stream: stream, Datagram: datagram, peer: peer}
}

// Peer returns the datagram address packets are sent to, or nil if it is not
// known yet.
func (e *Endpoint) Peer() gonet.Addr {
	e.peerMu.Lock()
	defer e.peerMu.Unlock()
	return e.peer
}

func (e *Endpoint) SetPeer(addr gonet.Addr) {
	e.peerMu.Lock()
	defer e.peerMu.Unlock()
	e.peer = addr
}

// Send writes p on the stream. Concurrent sends do not interleave.
func (e *Endpoint) Send(p *Packet) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if e.WriteTimeout > 0 {
		if err := e.Stream.SetWriteDeadline(time.Now().Add(e.WriteTimeout)); err != nil {
			return errors.Wrap(err, "setting write deadline")
		}
	}
	return WriteStream(e.Stream, p)
}

// SendDatagram sends p to the current datagram peer.
func (e *Endpoint) SendDatagram(p *Packet) error {
	peer := e.Peer()
	if peer == nil {
		return errors.Errorf("sending %v: datagram address not known yet", p)
	}
	return WriteDatagram(e.Datagram, peer, p)
}

// Receive reads the next packet from the stream.
func (e *Endpoint) Receive() (*Packet, error) {
	return ReadStream(e.Stream)
}

// CloseStream closes only the stream connection.
func (e *Endpoint) CloseStream() {
	sock.Close(e.Stream, "stream")
}

// Close closes both sockets.
func (e *Endpoint) Close() {
	sock.Close(e.Stream, "stream")
	sock.Close(e.Datagram, "datagram")
}

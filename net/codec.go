package net

import (
	"bytes"
	"io"
	gonet "net"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const (
	// MaxDatagramSize keeps a datagram under the common path MTU.
	MaxDatagramSize = 1472

	// MaxPacketSize bounds the payload size accepted from a stream peer.
	MaxPacketSize = 64 << 10

	// MaxUsernameSize is the longest username in bytes a server accepts. Any
	// datagram naming such a player fits in MaxDatagramSize.
	MaxUsernameSize = 255
)

func encodeInto(msg *Message, p *Packet) error {
	if p.Body == nil {
		return errors.New("net: packet without a body")
	}
	if err := msg.WriteHeader(p.PayloadSize(), p.Type()); err != nil {
		return errors.Wrap(err, "writing header")
	}
	if err := msg.WritePackedString(p.Username); err != nil {
		return errors.Wrap(err, "writing username")
	}
	if err := p.Body.pack(msg); err != nil {
		return errors.Wrapf(err, "writing %v", p.Type())
	}
	return nil
}

// Encode returns the wire form of p in a buffer of exactly p.FullSize()
// bytes.
func Encode(p *Packet) ([]byte, error) {
	if p.Body != nil && p.PayloadSize() > MaxPacketSize {
		return nil, errors.Wrapf(ErrPacketTooLarge, "%d byte payload", p.PayloadSize())
	}
	msg := NewMessage()
	if p.Body != nil {
		msg.Grow(int(p.FullSize()))
	}
	if err := encodeInto(msg, p); err != nil {
		return nil, err
	}
	return msg.Bytes(), nil
}

// decodePayload builds a packet of type t from exactly the payload bytes.
func decodePayload(t Type, payload []byte) (*Packet, error) {
	msg := NewMessageFrom(payload)
	username, err := msg.ReadPackedString()
	if err != nil {
		return nil, errors.Wrap(err, "reading username")
	}
	body, err := unpackBody(t, msg)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %v", t)
	}
	if msg.Len() != 0 {
		return nil, errors.Wrapf(ErrTrailingBytes, "%v has %d bytes left", t, msg.Len())
	}
	return &Packet{Username: username, Body: body}, nil
}

// WriteStream sends p on a stream, writing until every byte went out.
func WriteStream(w io.Writer, p *Packet) error {
	b, err := Encode(p)
	if err != nil {
		return err
	}
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return errors.Wrapf(err, "sending %v", p)
		}
		b = b[n:]
	}
	glog.V(3).Infof("sent %v", p)
	return nil
}

// ReadStream reads one packet from a stream. Any error means the stream is
// no longer usable and should be treated as a hangup.
func ReadStream(r io.Reader) (*Packet, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	size, t, err := NewMessageFrom(hdr[:]).ReadHeader()
	if err != nil {
		return nil, err
	}
	if size > MaxPacketSize {
		return nil, errors.Wrapf(ErrPacketTooLarge, "%v declares %d bytes", t, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrShortPacket
		}
		return nil, errors.Wrapf(err, "reading %d byte payload of %v", size, t)
	}
	p, err := decodePayload(t, payload)
	if err != nil {
		return nil, err
	}
	glog.V(3).Infof("received %v", p)
	return p, nil
}

// EncodeDatagram writes p into buf and returns the encoded length. Only that
// many bytes need to be sent.
func EncodeDatagram(p *Packet, buf *[MaxDatagramSize]byte) (int, error) {
	if p.Body == nil {
		return 0, errors.New("net: packet without a body")
	}
	if p.FullSize() > MaxDatagramSize {
		return 0, errors.Wrapf(ErrDatagramTooLarge, "%v needs %d bytes", p, p.FullSize())
	}
	msg := &Message{Buffer: *bytes.NewBuffer(buf[:0])}
	if err := encodeInto(msg, p); err != nil {
		return 0, err
	}
	return copy(buf[:], msg.Bytes()), nil
}

// DecodeDatagram decodes the packet at the start of b. The packet length is
// taken from the header; bytes past it are ignored, so a full fixed-size
// buffer decodes the same as an exact one.
func DecodeDatagram(b []byte) (*Packet, error) {
	if len(b) < int(HeaderSize()) {
		return nil, errors.Wrapf(ErrShortPacket, "%d byte datagram", len(b))
	}
	size, t, err := NewMessageFrom(b[:HeaderSize()]).ReadHeader()
	if err != nil {
		return nil, err
	}
	rest := b[HeaderSize():]
	if uint64(size) > uint64(len(rest)) {
		return nil, errors.Wrapf(ErrShortPacket, "%v declares %d bytes, datagram has %d", t, size, len(rest))
	}
	return decodePayload(t, rest[:size])
}

// ReadDatagram receives and decodes one datagram. The sender address is
// returned even when decoding fails.
func ReadDatagram(pc gonet.PacketConn) (*Packet, gonet.Addr, error) {
	var buf [MaxDatagramSize]byte
	n, addr, err := pc.ReadFrom(buf[:])
	if err != nil {
		return nil, addr, err
	}
	p, err := DecodeDatagram(buf[:n])
	if err != nil {
		return nil, addr, err
	}
	glog.V(3).Infof("received %v from %v", p, addr)
	return p, addr, nil
}

// WriteDatagram sends p to addr in a single datagram.
func WriteDatagram(pc gonet.PacketConn, addr gonet.Addr, p *Packet) error {
	var buf [MaxDatagramSize]byte
	n, err := EncodeDatagram(p, &buf)
	if err != nil {
		return err
	}
	if _, err := pc.WriteTo(buf[:n], addr); err != nil {
		return errors.Wrapf(err, "sending %v to %v", p, addr)
	}
	glog.V(3).Infof("sent %v to %v", p, addr)
	return nil
}

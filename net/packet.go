package net

import (
	"fmt"

	"github.com/pkg/errors"

	"badc0de.net/pkg/voidofdreams/geom"
	"badc0de.net/pkg/voidofdreams/sock"
)

// Type is the type code carried in every packet header.
type Type uint32

// Type 1 was a chat message and is no longer understood.
const (
	TypeConnect      Type = 2
	TypeDisconnect   Type = 3
	TypeMove         Type = 4
	TypeDamage       Type = 5
	TypeSpawn        Type = 6
	TypeDeath        Type = 7
	TypeRay          Type = 8
	TypeUDPHandshake Type = 9
)

func (t Type) String() string {
	switch t {
	case TypeConnect:
		return "Connect"
	case TypeDisconnect:
		return "Disconnect"
	case TypeMove:
		return "Move"
	case TypeDamage:
		return "Damage"
	case TypeSpawn:
		return "Spawn"
	case TypeDeath:
		return "Death"
	case TypeRay:
		return "Ray"
	case TypeUDPHandshake:
		return "UDPHandshake"
	default:
		return fmt.Sprintf("Type(%d)", uint32(t))
	}
}

var (
	ErrShortPacket      = errors.New("net: packet shorter than declared")
	ErrPacketTooLarge   = errors.New("net: packet too large")
	ErrDatagramTooLarge = errors.New("net: packet does not fit in a datagram")
	ErrUnknownType      = errors.New("net: unknown packet type")
	ErrTrailingBytes    = errors.New("net: packet longer than its fields")
)

// Packet is one message exchanged between a client and the server.
//
// Username identifies the player the packet is about: the sender for most
// packets, the damaged player for Damage.
type Packet struct {
	Username string
	Body     Body
}

// Body is the type-specific part of a packet. The set of bodies is closed; it
// is implemented only by the types in this package.
type Body interface {
	Type() Type
	dataSize() uint32
	pack(msg *Message) error
}

// Bodies are values; decoding fills a pointer and returns what it points at.
var _ = []Body{Connect{}, UDPHandshake{}, Disconnect{}, Move{}, Damage{}, Spawn{}, Death{}, Ray{}}

// Connect announces a player. Sent by a client to join and relayed by the
// server to every client.
type Connect struct{}

// UDPHandshake asks the receiving client to send a datagram so the server
// learns (or re-learns) the client's datagram origin. The client answers with
// the same packet over its datagram socket.
type UDPHandshake struct{}

// Disconnect announces that a player left.
type Disconnect struct{}

// Move carries a player's transform. Sent over the datagram path.
type Move struct {
	Transform geom.Mat4
}

// Damage reports that the named player was hurt.
type Damage struct {
	Damager string
	Damage  float32
	// Health is the player's health after the damage was applied.
	Health float32
}

// Spawn announces that the named player's character is alive in the world.
type Spawn struct{}

// Death announces that the named player's character died.
type Death struct {
	// Killer is credited with the kill. Empty if nobody is credited.
	Killer string
}

// Ray is a fired hitscan weapon.
type Ray struct {
	Origin    geom.Vec3
	Direction geom.Vec3
}

func (Connect) Type() Type      { return TypeConnect }
func (UDPHandshake) Type() Type { return TypeUDPHandshake }
func (Disconnect) Type() Type   { return TypeDisconnect }
func (Move) Type() Type         { return TypeMove }
func (Damage) Type() Type       { return TypeDamage }
func (Spawn) Type() Type        { return TypeSpawn }
func (Death) Type() Type        { return TypeDeath }
func (Ray) Type() Type          { return TypeRay }

func (Connect) dataSize() uint32      { return 0 }
func (UDPHandshake) dataSize() uint32 { return 0 }
func (Disconnect) dataSize() uint32   { return 0 }
func (Move) dataSize() uint32         { return sock.Mat4Size }
func (b Damage) dataSize() uint32     { return packedStringSize(b.Damager) + 2*sock.Float32Size }
func (Spawn) dataSize() uint32        { return 0 }
func (b Death) dataSize() uint32      { return packedStringSize(b.Killer) }
func (Ray) dataSize() uint32          { return 2 * sock.Vec3Size }

func (Connect) pack(*Message) error      { return nil }
func (UDPHandshake) pack(*Message) error { return nil }
func (Disconnect) pack(*Message) error   { return nil }
func (Spawn) pack(*Message) error        { return nil }

func (b Move) pack(msg *Message) error { return msg.WriteMat4(b.Transform) }

func (b *Move) unpack(msg *Message) (err error) {
	b.Transform, err = msg.ReadMat4()
	return err
}

func (b Damage) pack(msg *Message) error {
	if err := msg.WritePackedString(b.Damager); err != nil {
		return err
	}
	if err := msg.WriteFloat32(b.Damage); err != nil {
		return err
	}
	return msg.WriteFloat32(b.Health)
}

func (b *Damage) unpack(msg *Message) (err error) {
	if b.Damager, err = msg.ReadPackedString(); err != nil {
		return errors.Wrap(err, "damager")
	}
	if b.Damage, err = msg.ReadFloat32(); err != nil {
		return errors.Wrap(err, "damage")
	}
	if b.Health, err = msg.ReadFloat32(); err != nil {
		return errors.Wrap(err, "health")
	}
	return nil
}

func (b Death) pack(msg *Message) error { return msg.WritePackedString(b.Killer) }

func (b *Death) unpack(msg *Message) (err error) {
	b.Killer, err = msg.ReadPackedString()
	return errors.Wrap(err, "killer")
}

func (b Ray) pack(msg *Message) error {
	if err := msg.WriteVec3(b.Origin); err != nil {
		return err
	}
	return msg.WriteVec3(b.Direction)
}

func (b *Ray) unpack(msg *Message) (err error) {
	if b.Origin, err = msg.ReadVec3(); err != nil {
		return errors.Wrap(err, "origin")
	}
	if b.Direction, err = msg.ReadVec3(); err != nil {
		return errors.Wrap(err, "direction")
	}
	return nil
}

// unpackBody decodes the fields of a body of type t.
func unpackBody(t Type, msg *Message) (Body, error) {
	switch t {
	case TypeConnect:
		return Connect{}, nil
	case TypeUDPHandshake:
		return UDPHandshake{}, nil
	case TypeDisconnect:
		return Disconnect{}, nil
	case TypeSpawn:
		return Spawn{}, nil
	case TypeMove:
		b := &Move{}
		err := b.unpack(msg)
		return *b, err
	case TypeDamage:
		b := &Damage{}
		err := b.unpack(msg)
		return *b, err
	case TypeDeath:
		b := &Death{}
		err := b.unpack(msg)
		return *b, err
	case TypeRay:
		b := &Ray{}
		err := b.unpack(msg)
		return *b, err
	}
	return nil, errors.Wrapf(ErrUnknownType, "type code %d", uint32(t))
}

func packedStringSize(s string) uint32 {
	return 4 + uint32(len(s))
}

// HeaderSize is the size of the fixed packet header.
func HeaderSize() uint32 {
	return 2 * 4
}

// Type returns the type code of the packet's body.
func (p *Packet) Type() Type {
	return p.Body.Type()
}

// GeneralDataSize is the encoded size of the fields common to every packet.
func (p *Packet) GeneralDataSize() uint32 {
	return packedStringSize(p.Username)
}

// DataSize is the encoded size of the type-specific fields.
func (p *Packet) DataSize() uint32 {
	return p.Body.dataSize()
}

// PayloadSize is the size declared in the header.
func (p *Packet) PayloadSize() uint32 {
	return p.GeneralDataSize() + p.DataSize()
}

// FullSize is the number of bytes the packet occupies on the wire.
func (p *Packet) FullSize() uint32 {
	return HeaderSize() + p.GeneralDataSize() + p.DataSize()
}

func (p *Packet) String() string {
	return fmt.Sprintf("%v(%q)", p.Type(), p.Username)
}

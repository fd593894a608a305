package net

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/voidofdreams/geom"
	"badc0de.net/pkg/voidofdreams/sock"
)

// Message is a single packet being built or taken apart.
type Message struct {
	bytes.Buffer
}

func NewMessage() *Message {
	return &Message{Buffer: bytes.Buffer{}}
}

// NewMessageFrom returns a message reading from b. The message does not copy
// b.
func NewMessageFrom(b []byte) *Message {
	return &Message{Buffer: *bytes.NewBuffer(b)}
}

func (msg *Message) Read(b []byte) (int, error) {
	n, err := msg.Buffer.Read(b)
	glog.V(3).Infof("read %d bytes", n)
	return n, err
}

// WriteHeader writes the packet header.
func (msg *Message) WriteHeader(size uint32, t Type) error {
	if err := msg.WriteUint32(size); err != nil {
		return err
	}
	return msg.WriteUint32(uint32(t))
}

// ReadHeader reads the packet header written by WriteHeader.
func (msg *Message) ReadHeader() (uint32, Type, error) {
	size, err := msg.ReadUint32()
	if err != nil {
		return 0, 0, errors.Wrap(err, "reading payload size")
	}
	t, err := msg.ReadUint32()
	if err != nil {
		return 0, 0, errors.Wrap(err, "reading type code")
	}
	return size, Type(t), nil
}

func (msg *Message) WriteUint32(v uint32) error {
	return binary.Write(msg, binary.BigEndian, v)
}

func (msg *Message) ReadUint32() (uint32, error) {
	var v uint32
	if err := binary.Read(msg, binary.BigEndian, &v); err != nil {
		return 0, short(err)
	}
	return v, nil
}

// WritePackedString writes s prefixed with its length as a uint32.
func (msg *Message) WritePackedString(s string) error {
	if err := msg.WriteUint32(uint32(len(s))); err != nil {
		return errors.Wrap(err, "writing string size")
	}

	n, err := msg.WriteString(s)
	if err != nil {
		return errors.Wrap(err, "writing string")
	}
	if n != len(s) {
		return errors.New("writing string: not all was written")
	}
	return nil
}

// ReadPackedString reads a string written by WritePackedString.
func (msg *Message) ReadPackedString() (string, error) {
	sz, err := msg.ReadUint32()
	if err != nil {
		return "", errors.Wrap(err, "reading string size")
	}
	if int64(sz) > int64(msg.Len()) {
		return "", errors.Wrapf(ErrShortPacket, "string of %d bytes with %d bytes left", sz, msg.Len())
	}
	return string(msg.Next(int(sz))), nil
}

func (msg *Message) WriteFloat32(f float32) error {
	var b [sock.Float32Size]byte
	sock.PutFloat32(b[:], f)
	_, err := msg.Write(b[:])
	return err
}

func (msg *Message) ReadFloat32() (float32, error) {
	var b [sock.Float32Size]byte
	if _, err := io.ReadFull(msg, b[:]); err != nil {
		return 0, short(err)
	}
	return sock.GetFloat32(b[:]), nil
}

func (msg *Message) WriteVec3(v geom.Vec3) error {
	var b [sock.Vec3Size]byte
	sock.PutVec3(b[:], v)
	_, err := msg.Write(b[:])
	return err
}

func (msg *Message) ReadVec3() (geom.Vec3, error) {
	var b [sock.Vec3Size]byte
	if _, err := io.ReadFull(msg, b[:]); err != nil {
		return geom.Vec3{}, short(err)
	}
	return sock.GetVec3(b[:]), nil
}

func (msg *Message) WriteMat4(m geom.Mat4) error {
	var b [sock.Mat4Size]byte
	sock.PutMat4(b[:], m)
	_, err := msg.Write(b[:])
	return err
}

func (msg *Message) ReadMat4() (geom.Mat4, error) {
	var b [sock.Mat4Size]byte
	if _, err := io.ReadFull(msg, b[:]); err != nil {
		return geom.Mat4{}, short(err)
	}
	return sock.GetMat4(b[:]), nil
}

// short maps running out of message bytes to ErrShortPacket.
func short(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrShortPacket
	}
	return err
}

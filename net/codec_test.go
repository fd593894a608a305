package net

import (
	"bytes"
	gonet "net"
	"reflect"
	"testing"
	"time"

	"github.com/pkg/errors"

	"badc0de.net/pkg/voidofdreams/geom"
	"badc0de.net/pkg/voidofdreams/ttesting"
)

func samplePackets() []*Packet {
	return []*Packet{
		{Username: "alice", Body: Connect{}},
		{Username: "alice", Body: UDPHandshake{}},
		{Username: "alice", Body: Disconnect{}},
		{Username: "alice", Body: Move{Transform: geom.Translation(geom.Vec3{1.5, -2, 300})}},
		{Username: "bob", Body: Damage{Damager: "alice", Damage: 25, Health: 75}},
		{Username: "alice", Body: Spawn{}},
		{Username: "bob", Body: Death{Killer: "alice"}},
		{Username: "bob", Body: Death{}},
		{Username: "alice", Body: Ray{Origin: geom.Vec3{0, 1.8, 0}, Direction: geom.Vec3{0, 0, -1}}},
		{Username: "", Body: Connect{}},
	}
}

func TestStreamRoundTrip(t *testing.T) {
	for _, p := range samplePackets() {
		var buf bytes.Buffer
		if err := WriteStream(&buf, p); err != nil {
			t.Fatalf("WriteStream(%v): %v", p, err)
		}
		ttesting.AssertEqualInt(t, p.String()+"/size", buf.Len(), int(p.FullSize()))

		got, err := ReadStream(&buf)
		if err != nil {
			t.Fatalf("ReadStream(%v): %v", p, err)
		}
		if !reflect.DeepEqual(got, p) {
			t.Errorf("stream round trip: got %#v; want %#v", got, p)
		}
		ttesting.AssertEqualInt(t, p.String()+"/left", buf.Len(), 0)
	}
}

func TestDatagramRoundTrip(t *testing.T) {
	for _, p := range samplePackets() {
		var buf [MaxDatagramSize]byte
		n, err := EncodeDatagram(p, &buf)
		if err != nil {
			t.Fatalf("EncodeDatagram(%v): %v", p, err)
		}
		ttesting.AssertEqualInt(t, p.String()+"/size", n, int(p.FullSize()))

		// The whole fixed-size buffer decodes the same as the exact prefix.
		for _, b := range [][]byte{buf[:n], buf[:]} {
			got, err := DecodeDatagram(b)
			if err != nil {
				t.Fatalf("DecodeDatagram(%v, %d bytes): %v", p, len(b), err)
			}
			if !reflect.DeepEqual(got, p) {
				t.Errorf("datagram round trip: got %#v; want %#v", got, p)
			}
		}
	}
}

func TestFullSize(t *testing.T) {
	for _, p := range samplePackets() {
		ttesting.AssertEqualUint32(t, p.String(), p.FullSize(), HeaderSize()+p.GeneralDataSize()+p.DataSize())
	}
	ttesting.AssertEqualUint32(t, "header", HeaderSize(), 8)
	ttesting.AssertEqualUint32(t, "general", (&Packet{Username: "alice", Body: Spawn{}}).GeneralDataSize(), 9)
	ttesting.AssertEqualUint32(t, "move", (&Packet{Username: "a", Body: Move{}}).FullSize(), 8+5+64)
	ttesting.AssertEqualUint32(t, "ray", (&Packet{Username: "a", Body: Ray{}}).DataSize(), 24)
	ttesting.AssertEqualUint32(t, "damage", (&Packet{Username: "a", Body: Damage{Damager: "bob"}}).DataSize(), 4+3+8)
}

func TestWireFormat(t *testing.T) {
	b, err := Encode(&Packet{Username: "ab", Body: Death{Killer: "c"}})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0, 0, 0, 11, // payload size
		0, 0, 0, 7, // Death
		0, 0, 0, 2, 'a', 'b',
		0, 0, 0, 1, 'c',
	}
	if !bytes.Equal(b, want) {
		t.Errorf("got % x; want % x", b, want)
	}
}

func TestDatagramTooLarge(t *testing.T) {
	p := &Packet{Username: string(make([]byte, MaxDatagramSize)), Body: Connect{}}
	var buf [MaxDatagramSize]byte
	if _, err := EncodeDatagram(p, &buf); !errors.Is(err, ErrDatagramTooLarge) {
		t.Errorf("got %v; want ErrDatagramTooLarge", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	full, err := Encode(&Packet{Username: "alice", Body: Ray{}})
	if err != nil {
		t.Fatal(err)
	}

	unknown := append([]byte(nil), full...)
	unknown[7] = 1

	longer := append([]byte(nil), full...)
	longer[3] += 4
	longer = append(longer, 0, 0, 0, 0)

	for _, tc := range []struct {
		name string
		b    []byte
		want error
	}{
		{"header only", full[:4], ErrShortPacket},
		{"truncated payload", full[:len(full)-3], ErrShortPacket},
		{"unknown type", unknown, ErrUnknownType},
		{"trailing bytes", longer, ErrTrailingBytes},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeDatagram(tc.b); !errors.Is(err, tc.want) {
				t.Errorf("DecodeDatagram: got %v; want %v", err, tc.want)
			}
		})
	}

	t.Run("stream truncated", func(t *testing.T) {
		if _, err := ReadStream(bytes.NewReader(full[:len(full)-3])); !errors.Is(err, ErrShortPacket) {
			t.Errorf("got %v; want ErrShortPacket", err)
		}
	})
	t.Run("stream too large", func(t *testing.T) {
		hdr := []byte{0xff, 0xff, 0xff, 0xff, 0, 0, 0, 2}
		if _, err := ReadStream(bytes.NewReader(hdr)); !errors.Is(err, ErrPacketTooLarge) {
			t.Errorf("got %v; want ErrPacketTooLarge", err)
		}
	})
	t.Run("string past payload", func(t *testing.T) {
		b := []byte{0, 0, 0, 4, 0, 0, 0, 2, 0, 0, 0, 9}
		if _, err := DecodeDatagram(b); !errors.Is(err, ErrShortPacket) {
			t.Errorf("got %v; want ErrShortPacket", err)
		}
	})
}

// shortWriter accepts at most three bytes per call.
type shortWriter struct {
	bytes.Buffer
}

func (w *shortWriter) Write(b []byte) (int, error) {
	if len(b) > 3 {
		b = b[:3]
	}
	return w.Buffer.Write(b)
}

func TestWriteStreamPartialWrites(t *testing.T) {
	p := &Packet{Username: "alice", Body: Move{Transform: geom.Identity()}}
	var w shortWriter
	if err := WriteStream(&w, p); err != nil {
		t.Fatal(err)
	}
	got, err := ReadStream(&w.Buffer)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Errorf("got %#v; want %#v", got, p)
	}
}

func TestDatagramOverLoopback(t *testing.T) {
	a, err := gonet.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := gonet.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	want := &Packet{Username: "alice", Body: Move{Transform: geom.Translation(geom.Vec3{4, 5, 6})}}
	if err := WriteDatagram(a, b.LocalAddr(), want); err != nil {
		t.Fatal(err)
	}
	b.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, from, err := ReadDatagram(b)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v; want %#v", got, want)
	}
	ttesting.AssertEqualString(t, "from", from.String(), a.LocalAddr().String())
}

func TestDecodedBodiesAreValues(t *testing.T) {
	for _, p := range samplePackets() {
		b, err := Encode(p)
		if err != nil {
			t.Fatal(err)
		}
		got, err := ReadStream(bytes.NewReader(b))
		if err != nil {
			t.Fatalf("ReadStream(%v): %v", p, err)
		}
		switch got.Body.(type) {
		case Connect, UDPHandshake, Disconnect, Move, Damage, Spawn, Death, Ray:
		default:
			t.Errorf("%v: body is %T, want a value type", p, got.Body)
		}
	}
}

package sock

import (
	"encoding/binary"
	"math"

	"github.com/bradfitz/iter"

	"badc0de.net/pkg/voidofdreams/geom"
)

const (
	Float32Size = 4
	Vec3Size    = 3 * Float32Size
	Mat4Size    = 16 * Float32Size
)

// Htonf converts a float32 into its network order wire word.
func Htonf(f float32) uint32 {
	var b [Float32Size]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(f))
	return binary.NativeEndian.Uint32(b[:])
}

// Ntohf is the inverse of Htonf.
func Ntohf(n uint32) float32 {
	var b [Float32Size]byte
	binary.NativeEndian.PutUint32(b[:], n)
	return math.Float32frombits(binary.BigEndian.Uint32(b[:]))
}

// PutFloat32 writes f into b in network byte order. b must hold Float32Size bytes.
func PutFloat32(b []byte, f float32) {
	binary.NativeEndian.PutUint32(b, Htonf(f))
}

// GetFloat32 reads a network order float32 from b.
func GetFloat32(b []byte) float32 {
	return Ntohf(binary.NativeEndian.Uint32(b))
}

// PutVec3 writes v into b as three network order words. b must hold Vec3Size
// bytes.
func PutVec3(b []byte, v geom.Vec3) {
	for i := range iter.N(3) {
		PutFloat32(b[i*Float32Size:], v[i])
	}
}

// GetVec3 reads a vector written by PutVec3.
func GetVec3(b []byte) geom.Vec3 {
	var v geom.Vec3
	for i := range iter.N(3) {
		v[i] = GetFloat32(b[i*Float32Size:])
	}
	return v
}

// PutMat4 writes m into b as 16 network order words, column by column. b must
// hold Mat4Size bytes.
func PutMat4(b []byte, m geom.Mat4) {
	for i := range iter.N(16) {
		PutFloat32(b[i*Float32Size:], m.At(i/4, i%4))
	}
}

// GetMat4 reads a matrix written by PutMat4.
func GetMat4(b []byte) geom.Mat4 {
	var m geom.Mat4
	for i := range iter.N(16) {
		m.Set(i/4, i%4, GetFloat32(b[i*Float32Size:]))
	}
	return m
}

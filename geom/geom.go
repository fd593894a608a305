// Package geom holds the small vector and matrix types exchanged between the
// network layer and the game world.
package geom

import (
	"fmt"
	"math"
)

// Vec3 is a three component float32 vector.
type Vec3 [3]float32

// Mat4 is a 4x4 float32 matrix stored column-major: element (col, row) lives at
// index col*4+row, and the translation is in column 3.
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns a matrix translating by v.
func Translation(v Vec3) Mat4 {
	m := Identity()
	m.SetPosition(v)
	return m
}

// At returns the element in column col and row row.
func (m Mat4) At(col, row int) float32 {
	return m[col*4+row]
}

// Set sets the element in column col and row row.
func (m *Mat4) Set(col, row int, v float32) {
	m[col*4+row] = v
}

// Position returns the translation part of the matrix.
func (m Mat4) Position() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// SetPosition overwrites the translation part of the matrix.
func (m *Mat4) SetPosition(v Vec3) {
	m[12], m[13], m[14] = v[0], v[1], v[2]
}

func (m Mat4) String() string {
	return fmt.Sprintf("mat4(pos=%v)", m.Position())
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

func (v Vec3) Dot(o Vec3) float32 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

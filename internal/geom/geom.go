// Package geom provides the world-space vector, quaternion, and pose types
// shared by anchors, label records, and the placement pipeline.
//
// Conventions: right-handed, Y-up, metres. Yaw is a rotation about +Y.
package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a 3-D world position or direction in metres.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// R3 converts to a gonum r3.Vec for math operations.
func (v Vec3) R3() r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

// FromR3 converts a gonum r3.Vec back to a Vec3.
func FromR3(v r3.Vec) Vec3 { return Vec3{X: v.X, Y: v.Y, Z: v.Z} }

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return FromR3(r3.Add(v.R3(), o.R3())) }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return FromR3(r3.Sub(v.R3(), o.R3())) }

// Scale returns v scaled by k.
func (v Vec3) Scale(k float64) Vec3 { return FromR3(r3.Scale(k, v.R3())) }

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 { return r3.Norm(v.R3()) }

// Unit returns v normalised to unit length. The zero vector is returned
// unchanged.
func (v Vec3) Unit() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// Distance returns the Euclidean distance between v and o.
func (v Vec3) Distance(o Vec3) float64 { return r3.Norm(r3.Sub(v.R3(), o.R3())) }

// Quat is a world orientation expressed as a quaternion. Well-formed values
// are unit quaternions; Normalize repairs drift after composition.
type Quat struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IdentityQuat returns the no-rotation orientation.
func IdentityQuat() Quat { return Quat{W: 1} }

// YawQuat returns a rotation of the given angle in radians about +Y.
func YawQuat(radians float64) Quat {
	half := radians / 2
	return Quat{W: math.Cos(half), Y: math.Sin(half)}
}

// Number converts to a gonum quat.Number.
func (q Quat) Number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

// FromNumber converts a gonum quat.Number back to a Quat.
func FromNumber(n quat.Number) Quat {
	return Quat{W: n.Real, X: n.Imag, Y: n.Jmag, Z: n.Kmag}
}

// Mul composes two rotations: applying the result rotates by o first, then q.
func (q Quat) Mul(o Quat) Quat {
	return FromNumber(quat.Mul(q.Number(), o.Number()))
}

// Normalize returns q scaled to unit length. A zero quaternion normalises to
// the identity so downstream rotation math stays well defined.
func (q Quat) Normalize() Quat {
	n := quat.Abs(q.Number())
	if n == 0 {
		return IdentityQuat()
	}
	return FromNumber(quat.Scale(1/n, q.Number()))
}

// Rotate applies the rotation q to the vector v.
func (q Quat) Rotate(v Vec3) Vec3 {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	qn := q.Number()
	out := quat.Mul(quat.Mul(qn, p), quat.Conj(qn))
	return Vec3{X: out.Imag, Y: out.Jmag, Z: out.Kmag}
}

// Pose is a world position plus orientation.
type Pose struct {
	Position    Vec3 `json:"position"`
	Orientation Quat `json:"orientation"`
}

// Distance returns the positional distance between two poses; orientation is
// ignored.
func (p Pose) Distance(o Pose) float64 {
	return p.Position.Distance(o.Position)
}

// Package math provides the vector and matrix value types decoded from
// per-feature binary properties.
package math

// Vec2 is a 2D vector.
type Vec2 struct {
	X, Y float64
}

// Components returns the vector as a slice in X, Y order.
func (v Vec2) Components() []float64 {
	return []float64{v.X, v.Y}
}

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float64
}

// Components returns the vector as a slice in X, Y, Z order.
func (v Vec3) Components() []float64 {
	return []float64{v.X, v.Y, v.Z}
}

// Vec4 is a 4D vector.
type Vec4 struct {
	X, Y, Z, W float64
}

// Components returns the vector as a slice in X, Y, Z, W order.
func (v Vec4) Components() []float64 {
	return []float64{v.X, v.Y, v.Z, v.W}
}

package property

import (
	"fmt"
	"strings"
)

// Shape is the vector or matrix arity of a stored value.
type Shape uint8

// Shapes. The zero value means the shape was not specified.
const (
	ShapeUnspecified Shape = iota
	Scalar
	Vec2
	Vec3
	Vec4
	Mat2
	Mat3
	Mat4
)

var shapeNames = [...]string{
	ShapeUnspecified: "",
	Scalar:           "SCALAR",
	Vec2:             "VEC2",
	Vec3:             "VEC3",
	Vec4:             "VEC4",
	Mat2:             "MAT2",
	Mat3:             "MAT3",
	Mat4:             "MAT4",
}

// ParseShape parses a shape name such as "VEC3".
func ParseShape(name string) (Shape, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range shapeNames {
		if n != "" && n == name {
			return Shape(i), nil
		}
	}
	return ShapeUnspecified, fmt.Errorf("%w: unknown type %q", ErrInvalidDescriptor, name)
}

// String returns the shape name.
func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		if s == ShapeUnspecified {
			return "UNSPECIFIED"
		}
		return shapeNames[s]
	}
	return fmt.Sprintf("Shape(%d)", s)
}

// Valid reports whether s is a known, specified shape.
func (s Shape) Valid() bool {
	return s > ShapeUnspecified && s <= Mat4
}

// ComponentCount returns the number of components in one value.
func (s Shape) ComponentCount() int {
	switch s {
	case Scalar:
		return 1
	case Vec2:
		return 2
	case Vec3:
		return 3
	case Vec4, Mat2:
		return 4
	case Mat3:
		return 9
	case Mat4:
		return 16
	default:
		return 0
	}
}

// IsMatrix reports whether s is a square matrix shape.
func (s Shape) IsMatrix() bool {
	return s == Mat2 || s == Mat3 || s == Mat4
}

package property

import (
	"fmt"

	"github.com/Faultbox/tilebatch/pkg/math"
)

// Value is a decoded property value: float64 for SCALAR, math.Vec2/3/4 for
// vectors and math.Mat2/3/4 (row-major) for matrices.
type Value = any

// Read decodes one value of the given shape starting at byteOffset.
// Matrices are stored column-major and returned row-major.
func Read(buf []byte, byteOffset int, t ComponentType, s Shape) (Value, error) {
	if err := checkTypes(t, s); err != nil {
		return nil, err
	}
	c, err := ReadComponents(buf, byteOffset, t, s.ComponentCount())
	if err != nil {
		return nil, err
	}

	switch s {
	case Scalar:
		return c[0], nil
	case Vec2:
		return math.Vec2{X: c[0], Y: c[1]}, nil
	case Vec3:
		return math.Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
	case Vec4:
		return math.Vec4{X: c[0], Y: c[1], Z: c[2], W: c[3]}, nil
	case Mat2:
		return math.Mat2FromColumnMajor(c), nil
	case Mat3:
		return math.Mat3FromColumnMajor(c), nil
	default:
		return math.Mat4FromColumnMajor(c), nil
	}
}

// Write encodes v at byteOffset. Matrices are accepted row-major and stored
// column-major. Nothing is written if v does not fit the shape or a component
// is out of range.
func Write(buf []byte, byteOffset int, t ComponentType, s Shape, v Value) error {
	if err := checkTypes(t, s); err != nil {
		return err
	}
	c, err := components(s, v)
	if err != nil {
		return err
	}

	size := t.Size()
	if !InBounds(len(buf), byteOffset, len(c), size) {
		return fmt.Errorf("%w: %s %s at byte %d (buffer %d bytes)", ErrOutOfBounds, t, s, byteOffset, len(buf))
	}
	for _, x := range c {
		if err := checkRange(t, x); err != nil {
			return err
		}
	}
	for i, x := range c {
		writeComponent(buf[byteOffset+i*size:], t, x)
	}
	return nil
}

func checkTypes(t ComponentType, s Shape) error {
	if !t.Valid() {
		return fmt.Errorf("%w: component type unspecified", ErrInvalidDescriptor)
	}
	if !s.Valid() {
		return fmt.Errorf("%w: type unspecified", ErrInvalidDescriptor)
	}
	return nil
}

// components flattens v into the stored component order for shape s.
func components(s Shape, v Value) ([]float64, error) {
	switch s {
	case Scalar:
		if f, ok := toFloat(v); ok {
			return []float64{f}, nil
		}
	case Vec2:
		if vv, ok := v.(math.Vec2); ok {
			return vv.Components(), nil
		}
	case Vec3:
		if vv, ok := v.(math.Vec3); ok {
			return vv.Components(), nil
		}
	case Vec4:
		if vv, ok := v.(math.Vec4); ok {
			return vv.Components(), nil
		}
	case Mat2:
		if m, ok := v.(math.Mat2); ok {
			return m.ColumnMajor(), nil
		}
	case Mat3:
		if m, ok := v.(math.Mat3); ok {
			return m.ColumnMajor(), nil
		}
	case Mat4:
		if m, ok := v.(math.Mat4); ok {
			return m.ColumnMajor(), nil
		}
	}

	// Plain slices are accepted in the in-memory order: vector components,
	// or matrix elements row by row.
	if sl, ok := v.([]float64); ok && len(sl) == s.ComponentCount() {
		if !s.IsMatrix() {
			return append([]float64(nil), sl...), nil
		}
		switch s {
		case Mat2:
			var m math.Mat2
			copy(m[:], sl)
			return m.ColumnMajor(), nil
		case Mat3:
			var m math.Mat3
			copy(m[:], sl)
			return m.ColumnMajor(), nil
		default:
			var m math.Mat4
			copy(m[:], sl)
			return m.ColumnMajor(), nil
		}
	}
	return nil, fmt.Errorf("%w: %T for %s", ErrValueType, v, s)
}

func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

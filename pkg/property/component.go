// Package property decodes and encodes typed per-feature values stored in
// packed little-endian binary buffers.
package property

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Property codec errors.
var (
	ErrInvalidDescriptor = errors.New("invalid binary property descriptor")
	ErrOutOfBounds       = errors.New("binary property out of bounds")
	ErrValueType         = errors.New("value does not match property shape")
	ErrValueRange        = errors.New("value out of range for component type")
)

// ComponentType is the numeric type of a single stored component.
type ComponentType uint8

// Component types. The zero value means the type was not specified.
const (
	ComponentTypeUnspecified ComponentType = iota
	Byte
	UnsignedByte
	Short
	UnsignedShort
	Int
	UnsignedInt
	Float
	Double
)

var componentTypeNames = [...]string{
	ComponentTypeUnspecified: "",
	Byte:                     "BYTE",
	UnsignedByte:             "UNSIGNED_BYTE",
	Short:                    "SHORT",
	UnsignedShort:            "UNSIGNED_SHORT",
	Int:                      "INT",
	UnsignedInt:              "UNSIGNED_INT",
	Float:                    "FLOAT",
	Double:                   "DOUBLE",
}

// ParseComponentType parses a component type name such as "UNSIGNED_SHORT".
func ParseComponentType(name string) (ComponentType, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range componentTypeNames {
		if n != "" && n == name {
			return ComponentType(i), nil
		}
	}
	return ComponentTypeUnspecified, fmt.Errorf("%w: unknown component type %q", ErrInvalidDescriptor, name)
}

// ComponentTypeFromGL maps a WebGL data type enum (5120-5126, 5130) to a
// component type. Older tiles store component types numerically.
func ComponentTypeFromGL(code int) (ComponentType, error) {
	switch code {
	case 5120:
		return Byte, nil
	case 5121:
		return UnsignedByte, nil
	case 5122:
		return Short, nil
	case 5123:
		return UnsignedShort, nil
	case 5124:
		return Int, nil
	case 5125:
		return UnsignedInt, nil
	case 5126:
		return Float, nil
	case 5130:
		return Double, nil
	default:
		return ComponentTypeUnspecified, fmt.Errorf("%w: unknown component type code %d", ErrInvalidDescriptor, code)
	}
}

// String returns the component type name.
func (t ComponentType) String() string {
	if int(t) < len(componentTypeNames) {
		if t == ComponentTypeUnspecified {
			return "UNSPECIFIED"
		}
		return componentTypeNames[t]
	}
	return fmt.Sprintf("ComponentType(%d)", t)
}

// Valid reports whether t is a known, specified component type.
func (t ComponentType) Valid() bool {
	return t > ComponentTypeUnspecified && t <= Double
}

// Size returns the width of one component in bytes.
func (t ComponentType) Size() int {
	switch t {
	case Byte, UnsignedByte:
		return 1
	case Short, UnsignedShort:
		return 2
	case Int, UnsignedInt, Float:
		return 4
	case Double:
		return 8
	default:
		return 0
	}
}

// IsInteger reports whether t stores integers.
func (t ComponentType) IsInteger() bool {
	return t.Valid() && t != Float && t != Double
}

// bounds returns the inclusive value range of an integer component type.
func (t ComponentType) bounds() (lo, hi float64) {
	switch t {
	case Byte:
		return math.MinInt8, math.MaxInt8
	case UnsignedByte:
		return 0, math.MaxUint8
	case Short:
		return math.MinInt16, math.MaxInt16
	case UnsignedShort:
		return 0, math.MaxUint16
	case Int:
		return math.MinInt32, math.MaxInt32
	case UnsignedInt:
		return 0, math.MaxUint32
	default:
		return math.Inf(-1), math.Inf(1)
	}
}

// InBounds reports whether count values of size bytes starting at byteOffset
// fit in a buffer of bufLen bytes. Offsets near the int range do not wrap.
func InBounds(bufLen, byteOffset, count, size int) bool {
	if byteOffset < 0 || count < 0 || size < 1 || byteOffset > bufLen {
		return false
	}
	return count <= (bufLen-byteOffset)/size
}

// ReadComponent reads one component of type t at byteOffset.
func ReadComponent(buf []byte, byteOffset int, t ComponentType) (float64, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("%w: component type unspecified", ErrInvalidDescriptor)
	}
	if !InBounds(len(buf), byteOffset, 1, t.Size()) {
		return 0, fmt.Errorf("%w: %s at byte %d (buffer %d bytes)", ErrOutOfBounds, t, byteOffset, len(buf))
	}
	return readComponent(buf[byteOffset:], t), nil
}

// WriteComponent writes one component of type t at byteOffset. Integer types
// truncate toward zero and reject values outside their range.
func WriteComponent(buf []byte, byteOffset int, t ComponentType, v float64) error {
	if !t.Valid() {
		return fmt.Errorf("%w: component type unspecified", ErrInvalidDescriptor)
	}
	if !InBounds(len(buf), byteOffset, 1, t.Size()) {
		return fmt.Errorf("%w: %s at byte %d (buffer %d bytes)", ErrOutOfBounds, t, byteOffset, len(buf))
	}
	if err := checkRange(t, v); err != nil {
		return err
	}
	writeComponent(buf[byteOffset:], t, v)
	return nil
}

// ReadComponents reads count consecutive components of type t starting at
// byteOffset.
func ReadComponents(buf []byte, byteOffset int, t ComponentType, count int) ([]float64, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: component type unspecified", ErrInvalidDescriptor)
	}
	size := t.Size()
	if !InBounds(len(buf), byteOffset, count, size) {
		return nil, fmt.Errorf("%w: %d x %s at byte %d (buffer %d bytes)", ErrOutOfBounds, count, t, byteOffset, len(buf))
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = readComponent(buf[byteOffset+i*size:], t)
	}
	return out, nil
}

func checkRange(t ComponentType, v float64) error {
	if math.IsNaN(v) && t.IsInteger() {
		return fmt.Errorf("%w: NaN for %s", ErrValueRange, t)
	}
	if !t.IsInteger() {
		return nil
	}
	lo, hi := t.bounds()
	v = math.Trunc(v)
	if v < lo || v > hi {
		return fmt.Errorf("%w: %v for %s", ErrValueRange, v, t)
	}
	return nil
}

// readComponent assumes b holds at least t.Size() bytes.
func readComponent(b []byte, t ComponentType) float64 {
	le := binary.LittleEndian
	switch t {
	case Byte:
		return float64(int8(b[0]))
	case UnsignedByte:
		return float64(b[0])
	case Short:
		return float64(int16(le.Uint16(b)))
	case UnsignedShort:
		return float64(le.Uint16(b))
	case Int:
		return float64(int32(le.Uint32(b)))
	case UnsignedInt:
		return float64(le.Uint32(b))
	case Float:
		return float64(math.Float32frombits(le.Uint32(b)))
	case Double:
		return math.Float64frombits(le.Uint64(b))
	}
	return 0
}

// writeComponent assumes b holds at least t.Size() bytes and v is in range.
func writeComponent(b []byte, t ComponentType, v float64) {
	le := binary.LittleEndian
	switch t {
	case Byte:
		b[0] = byte(int8(v))
	case UnsignedByte:
		b[0] = uint8(v)
	case Short:
		le.PutUint16(b, uint16(int16(v)))
	case UnsignedShort:
		le.PutUint16(b, uint16(v))
	case Int:
		le.PutUint32(b, uint32(int32(v)))
	case UnsignedInt:
		le.PutUint32(b, uint32(v))
	case Float:
		le.PutUint32(b, math.Float32bits(float32(v)))
	case Double:
		le.PutUint64(b, math.Float64bits(v))
	}
}

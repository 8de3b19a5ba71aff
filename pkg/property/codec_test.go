package property

import (
	"bytes"
	"encoding/binary"
	"errors"
	stdmath "math"
	"testing"

	"github.com/Faultbox/tilebatch/pkg/math"
)

var allComponentTypes = []ComponentType{Byte, UnsignedByte, Short, UnsignedShort, Int, UnsignedInt, Float, Double}

var allShapes = []Shape{Scalar, Vec2, Vec3, Vec4, Mat2, Mat3, Mat4}

// sampleValue builds a value for shape s whose components are small positive
// integers, so it is representable by every component type.
func sampleValue(s Shape, seed int) Value {
	c := make([]float64, s.ComponentCount())
	for i := range c {
		c[i] = float64(seed + i)
	}
	switch s {
	case Scalar:
		return c[0]
	case Vec2:
		return math.Vec2{X: c[0], Y: c[1]}
	case Vec3:
		return math.Vec3{X: c[0], Y: c[1], Z: c[2]}
	case Vec4:
		return math.Vec4{X: c[0], Y: c[1], Z: c[2], W: c[3]}
	case Mat2:
		var m math.Mat2
		copy(m[:], c)
		return m
	case Mat3:
		var m math.Mat3
		copy(m[:], c)
		return m
	default:
		var m math.Mat4
		copy(m[:], c)
		return m
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, ct := range allComponentTypes {
		for _, s := range allShapes {
			t.Run(ct.String()+"_"+s.String(), func(t *testing.T) {
				offset := 3
				buf := make([]byte, offset+ct.Size()*s.ComponentCount())
				want := sampleValue(s, 7)

				if err := Write(buf, offset, ct, s, want); err != nil {
					t.Fatalf("Write failed: %v", err)
				}
				got, err := Read(buf, offset, ct, s)
				if err != nil {
					t.Fatalf("Read failed: %v", err)
				}
				if got != want {
					t.Errorf("Read() = %v, want %v", got, want)
				}
			})
		}
	}
}

func TestMatrixStoredColumnMajor(t *testing.T) {
	m := math.Mat3{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	buf := make([]byte, 9*2)
	if err := Write(buf, 0, UnsignedShort, Mat3, m); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Reinterpret the raw bytes manually.
	var raw [9]uint16
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &raw); err != nil {
		t.Fatalf("binary.Read failed: %v", err)
	}
	tr := m.Transpose()
	for i := range raw {
		if float64(raw[i]) != tr[i] {
			t.Errorf("raw[%d] = %d, want %v", i, raw[i], tr[i])
		}
	}
}

func TestReadMatricesFromColumnMajorBuffer(t *testing.T) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, []int16{20, 21, 22, 23, 24, 25, 26, 27})

	got, err := Read(buf.Bytes(), 8, Short, Mat2)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	want := math.Mat2{24, 26, 25, 27}
	if got != want {
		t.Errorf("Read() = %v, want %v", got, want)
	}
}

func TestIntegerSignedness(t *testing.T) {
	tests := []struct {
		ct   ComponentType
		in   float64
		want float64
	}{
		{Byte, -128, -128},
		{Byte, 127, 127},
		{UnsignedByte, 255, 255},
		{Short, -32768, -32768},
		{UnsignedShort, 65535, 65535},
		{Int, -2147483648, -2147483648},
		{UnsignedInt, 4294967295, 4294967295},
		{Int, 12.9, 12},
		{Int, -12.9, -12},
	}

	for _, tt := range tests {
		buf := make([]byte, 8)
		if err := WriteComponent(buf, 0, tt.ct, tt.in); err != nil {
			t.Fatalf("WriteComponent(%s, %v) failed: %v", tt.ct, tt.in, err)
		}
		got, err := ReadComponent(buf, 0, tt.ct)
		if err != nil {
			t.Fatalf("ReadComponent(%s) failed: %v", tt.ct, err)
		}
		if got != tt.want {
			t.Errorf("%s: wrote %v, read %v, want %v", tt.ct, tt.in, got, tt.want)
		}
	}
}

func TestFloatPreservesIEEE(t *testing.T) {
	buf := make([]byte, 8)
	v := 0.1
	if err := Write(buf, 0, Double, Scalar, v); err != nil {
		t.Fatal(err)
	}
	got, _ := Read(buf, 0, Double, Scalar)
	if got != v {
		t.Errorf("double round trip = %v, want %v", got, v)
	}

	if err := Write(buf, 0, Float, Scalar, v); err != nil {
		t.Fatal(err)
	}
	got, _ = Read(buf, 0, Float, Scalar)
	if got != float64(float32(v)) {
		t.Errorf("float round trip = %v, want %v", got, float64(float32(v)))
	}
}

func TestWriteRejectsOutOfRange(t *testing.T) {
	buf := []byte{9, 9}
	err := Write(buf, 0, UnsignedByte, Vec2, math.Vec2{X: 1, Y: 256})
	if !errors.Is(err, ErrValueRange) {
		t.Fatalf("expected ErrValueRange, got %v", err)
	}
	// No partial write
	if buf[0] != 9 || buf[1] != 9 {
		t.Errorf("buffer modified on failed write: %v", buf)
	}

	if err := Write(buf, 0, Byte, Scalar, -129); !errors.Is(err, ErrValueRange) {
		t.Errorf("expected ErrValueRange for -129 BYTE, got %v", err)
	}
}

func TestWriteRejectsWrongShape(t *testing.T) {
	buf := make([]byte, 64)
	tests := []struct {
		s Shape
		v Value
	}{
		{Scalar, "1"},
		{Vec2, math.Vec3{}},
		{Mat2, math.Mat3{}},
		{Vec3, []float64{1, 2}},
	}
	for _, tt := range tests {
		if err := Write(buf, 0, Float, tt.s, tt.v); !errors.Is(err, ErrValueType) {
			t.Errorf("Write(%s, %T) error = %v, want ErrValueType", tt.s, tt.v, err)
		}
	}
}

func TestWriteAcceptsSlices(t *testing.T) {
	buf := make([]byte, 4)
	if err := Write(buf, 0, UnsignedByte, Mat2, []float64{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	// Row-major input [1 2; 3 4] is stored column-major.
	if !bytes.Equal(buf, []byte{1, 3, 2, 4}) {
		t.Errorf("buffer = %v, want [1 3 2 4]", buf)
	}
}

func TestUnspecifiedTypes(t *testing.T) {
	buf := make([]byte, 16)
	if _, err := Read(buf, 0, ComponentTypeUnspecified, Scalar); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("expected ErrInvalidDescriptor, got %v", err)
	}
	if _, err := Read(buf, 0, Float, ShapeUnspecified); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("expected ErrInvalidDescriptor, got %v", err)
	}
	if err := Write(buf, 0, ComponentTypeUnspecified, Scalar, 1.0); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("expected ErrInvalidDescriptor, got %v", err)
	}
}

func TestOutOfBounds(t *testing.T) {
	buf := make([]byte, 10)
	if _, err := Read(buf, 4, Double, Scalar); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
	if err := Write(buf, 8, Float, Scalar, 1.0); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
	if _, err := ReadComponents(buf, -1, UnsignedByte, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds for negative offset, got %v", err)
	}

	// Offsets near the int limit must not wrap into the buffer.
	huge := stdmath.MaxInt - 4
	if _, err := Read(buf, huge, Double, Scalar); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Read: expected ErrOutOfBounds, got %v", err)
	}
	if err := Write(buf, huge, Double, Scalar, 1.0); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Write: expected ErrOutOfBounds, got %v", err)
	}
	if _, err := ReadComponent(buf, huge, Int); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("ReadComponent: expected ErrOutOfBounds, got %v", err)
	}
	if err := WriteComponent(buf, huge, Int, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("WriteComponent: expected ErrOutOfBounds, got %v", err)
	}
	if _, err := ReadComponents(buf, 2, Double, stdmath.MaxInt/4); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("ReadComponents: expected ErrOutOfBounds for wrapping count, got %v", err)
	}
}

func TestInBounds(t *testing.T) {
	tests := []struct {
		bufLen, byteOffset, count, size int
		want                            bool
	}{
		{16, 0, 2, 8, true},
		{16, 8, 1, 8, true},
		{16, 16, 0, 8, true},
		{16, 9, 1, 8, false},
		{16, 17, 0, 8, false},
		{16, -1, 1, 1, false},
		{16, 0, -1, 1, false},
		{16, stdmath.MaxInt - 4, 1, 8, false},
		{16, 0, stdmath.MaxInt / 2, 4, false},
	}
	for _, tt := range tests {
		if got := InBounds(tt.bufLen, tt.byteOffset, tt.count, tt.size); got != tt.want {
			t.Errorf("InBounds(%d, %d, %d, %d) = %v, want %v", tt.bufLen, tt.byteOffset, tt.count, tt.size, got, tt.want)
		}
	}
}

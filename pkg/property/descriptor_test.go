package property

import (
	"errors"
	"testing"
)

func TestParseComponentType(t *testing.T) {
	for _, ct := range allComponentTypes {
		got, err := ParseComponentType(ct.String())
		if err != nil {
			t.Fatalf("ParseComponentType(%q) failed: %v", ct.String(), err)
		}
		if got != ct {
			t.Errorf("ParseComponentType(%q) = %v", ct.String(), got)
		}
	}

	if _, err := ParseComponentType("HALF"); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("expected ErrInvalidDescriptor, got %v", err)
	}
}

func TestComponentTypeFromGL(t *testing.T) {
	tests := []struct {
		code int
		want ComponentType
	}{
		{5120, Byte},
		{5121, UnsignedByte},
		{5122, Short},
		{5123, UnsignedShort},
		{5124, Int},
		{5125, UnsignedInt},
		{5126, Float},
		{5130, Double},
	}
	for _, tt := range tests {
		got, err := ComponentTypeFromGL(tt.code)
		if err != nil || got != tt.want {
			t.Errorf("ComponentTypeFromGL(%d) = %v, %v; want %v", tt.code, got, err, tt.want)
		}
	}
	if _, err := ComponentTypeFromGL(5127); err == nil {
		t.Error("expected error for unknown code")
	}
}

func TestComponentTypeSize(t *testing.T) {
	want := map[ComponentType]int{
		Byte: 1, UnsignedByte: 1, Short: 2, UnsignedShort: 2,
		Int: 4, UnsignedInt: 4, Float: 4, Double: 8,
		ComponentTypeUnspecified: 0,
	}
	for ct, size := range want {
		if ct.Size() != size {
			t.Errorf("%s.Size() = %d, want %d", ct, ct.Size(), size)
		}
	}
}

func TestParseShape(t *testing.T) {
	counts := map[string]int{
		"SCALAR": 1, "VEC2": 2, "VEC3": 3, "VEC4": 4,
		"MAT2": 4, "MAT3": 9, "MAT4": 16,
	}
	for name, count := range counts {
		s, err := ParseShape(name)
		if err != nil {
			t.Fatalf("ParseShape(%q) failed: %v", name, err)
		}
		if s.ComponentCount() != count {
			t.Errorf("%s.ComponentCount() = %d, want %d", name, s.ComponentCount(), count)
		}
		if s.String() != name {
			t.Errorf("String() = %q, want %q", s.String(), name)
		}
	}
	if _, err := ParseShape("VEC5"); err == nil {
		t.Error("expected error for VEC5")
	}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		d       Descriptor
		wantErr bool
	}{
		{"valid", Descriptor{Name: "a", ByteOffset: 0, ComponentType: Double, Shape: Scalar}, false},
		{"missing component type", Descriptor{Name: "a", Shape: Scalar}, true},
		{"missing shape", Descriptor{Name: "a", ComponentType: Double}, true},
		{"negative offset", Descriptor{Name: "a", ByteOffset: -4, ComponentType: Double, Shape: Scalar}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("expected ErrInvalidDescriptor, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDescriptorStride(t *testing.T) {
	d := Descriptor{Name: "m", ByteOffset: 140, ComponentType: UnsignedByte, Shape: Mat4}
	if d.ByteWidth() != 16 {
		t.Errorf("ByteWidth() = %d, want 16", d.ByteWidth())
	}
	if d.Offset(1) != 156 {
		t.Errorf("Offset(1) = %d, want 156", d.Offset(1))
	}
	if d.ByteLength(2) != 32 {
		t.Errorf("ByteLength(2) = %d, want 32", d.ByteLength(2))
	}
}

func TestDescriptorReadWrite(t *testing.T) {
	d := Descriptor{Name: "height", ByteOffset: 2, ComponentType: UnsignedShort, Shape: Scalar}
	buf := make([]byte, 2+2*3)
	for i := 0; i < 3; i++ {
		if err := d.Write(buf, i, float64(100*(i+1))); err != nil {
			t.Fatalf("Write(%d) failed: %v", i, err)
		}
	}
	for i := 0; i < 3; i++ {
		v, err := d.Read(buf, i)
		if err != nil {
			t.Fatalf("Read(%d) failed: %v", i, err)
		}
		if v != float64(100*(i+1)) {
			t.Errorf("Read(%d) = %v, want %d", i, v, 100*(i+1))
		}
	}
}

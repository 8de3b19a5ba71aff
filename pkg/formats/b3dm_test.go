package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/tilebatch/pkg/color"
	"github.com/Faultbox/tilebatch/pkg/property"
)

var testGLB = []byte("glTF\x02\x00\x00\x00\x0c\x00\x00\x00")

// createTestB3DM creates a tile with three features, an inline and a binary
// batch table property.
func createTestB3DM(t *testing.T) []byte {
	t.Helper()
	heights := new(bytes.Buffer)
	binary.Write(heights, binary.LittleEndian, []float32{10, 20, 30})

	b, err := NewB3DM(
		map[string]any{"BATCH_LENGTH": 3},
		map[string]any{
			"name":   []any{"a", "b", "c"},
			"height": map[string]any{"byteOffset": 0, "componentType": "FLOAT", "type": "SCALAR"},
		},
		heights.Bytes(),
		testGLB,
	)
	if err != nil {
		t.Fatalf("NewB3DM failed: %v", err)
	}
	return b.Encode()
}

func TestParseB3DM_ValidFile(t *testing.T) {
	data := createTestB3DM(t)

	b, err := ParseB3DM(data)
	if err != nil {
		t.Fatalf("ParseB3DM failed: %v", err)
	}
	if b.Version != 1 {
		t.Errorf("expected version 1, got %d", b.Version)
	}
	if int(b.ByteLength) != len(data) {
		t.Errorf("expected byteLength %d, got %d", len(data), b.ByteLength)
	}
	if b.Layout != B3DMLayoutCurrent {
		t.Errorf("expected current layout, got %s", b.Layout)
	}
	if !bytes.Equal(b.GLB, testGLB) {
		t.Errorf("GLB = %q", b.GLB)
	}
	for name, section := range map[string][]byte{
		"feature table JSON": b.FeatureTableJSON,
		"batch table JSON":   b.BatchTableJSON,
		"batch table binary": b.BatchTableBinary,
	} {
		if len(section)%8 != 0 {
			t.Errorf("%s is %d bytes, not 8-byte aligned", name, len(section))
		}
	}
}

func TestB3DMTables(t *testing.T) {
	b, err := ParseB3DM(createTestB3DM(t))
	if err != nil {
		t.Fatalf("ParseB3DM failed: %v", err)
	}

	ft, bt, err := b.Tables(nil)
	if err != nil {
		t.Fatalf("Tables failed: %v", err)
	}
	if ft.FeaturesLength != 3 || bt.FeaturesLength() != 3 {
		t.Fatalf("featuresLength = %d / %d, want 3", ft.FeaturesLength, bt.FeaturesLength())
	}

	if v, _ := bt.Property(1, "name"); v != "b" {
		t.Errorf("Property(1, name) = %v, want b", v)
	}
	if v, _ := bt.Property(2, "height"); v != 30.0 {
		t.Errorf("Property(2, height) = %v, want 30", v)
	}

	// Writes go to a private copy of the binary body.
	if err := bt.SetProperty(2, "height", 35.0); err != nil {
		t.Fatalf("SetProperty failed: %v", err)
	}
	if v, _ := property.Read(b.BatchTableBinary, 8, property.Float, property.Scalar); v != 30.0 {
		t.Errorf("tile binary changed to %v", v)
	}

	if err := bt.SetColor(0, color.Red); err != nil {
		t.Fatalf("SetColor failed: %v", err)
	}
}

func TestParseB3DM_InvalidMagic(t *testing.T) {
	data := createTestB3DM(t)
	copy(data, "i3dm")

	if _, err := ParseB3DM(data); !errors.Is(err, ErrInvalidB3DMMagic) {
		t.Errorf("expected ErrInvalidB3DMMagic, got %v", err)
	}
}

func TestParseB3DM_UnsupportedVersion(t *testing.T) {
	data := createTestB3DM(t)
	binary.LittleEndian.PutUint32(data[4:], 2)

	if _, err := ParseB3DM(data); !errors.Is(err, ErrUnsupportedB3DMVersion) {
		t.Errorf("expected ErrUnsupportedB3DMVersion, got %v", err)
	}
}

func TestParseB3DM_Truncated(t *testing.T) {
	data := createTestB3DM(t)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", data[:20]},
		{"missing body", data[:len(data)-20]},
		{"byteLength inside header", func() []byte {
			d := append([]byte(nil), data...)
			binary.LittleEndian.PutUint32(d[8:], 12)
			return d
		}()},
		{"section past byteLength", func() []byte {
			d := append([]byte(nil), data...)
			binary.LittleEndian.PutUint32(d[8:], 40)
			return d
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseB3DM(tt.data); !errors.Is(err, ErrTruncatedB3DMData) {
				t.Errorf("expected ErrTruncatedB3DMData, got %v", err)
			}
		})
	}
}

func TestParseB3DM_Legacy20(t *testing.T) {
	btJSON := []byte(`{"id":[7,8]}`)
	buf := new(bytes.Buffer)
	buf.WriteString("b3dm")
	binary.Write(buf, binary.LittleEndian, []uint32{1, uint32(20 + len(btJSON) + len(testGLB)), 2, uint32(len(btJSON))})
	buf.Write(btJSON)
	buf.Write(testGLB)

	b, err := ParseB3DM(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseB3DM failed: %v", err)
	}
	if b.Layout != B3DMLayoutLegacy20 {
		t.Errorf("expected legacy-20 layout, got %s", b.Layout)
	}
	if !bytes.Equal(b.BatchTableJSON, btJSON) || !bytes.Equal(b.GLB, testGLB) {
		t.Errorf("sections = %q / %q", b.BatchTableJSON, b.GLB)
	}

	_, bt, err := b.Tables(nil)
	if err != nil {
		t.Fatalf("Tables failed: %v", err)
	}
	if bt.FeaturesLength() != 2 {
		t.Errorf("featuresLength = %d, want 2 from header", bt.FeaturesLength())
	}
	if v, _ := bt.Property(1, "id"); v != 8.0 {
		t.Errorf("Property(1, id) = %v, want 8", v)
	}
}

func TestParseB3DM_Legacy24(t *testing.T) {
	btJSON := []byte(`{"h":{"byteOffset":0,"componentType":"UNSIGNED_BYTE","type":"SCALAR"}}`)
	btBin := []byte{5, 6, 7, 0}
	buf := new(bytes.Buffer)
	buf.WriteString("b3dm")
	total := 24 + len(btJSON) + len(btBin) + len(testGLB)
	binary.Write(buf, binary.LittleEndian, []uint32{1, uint32(total), 3, uint32(len(btJSON)), uint32(len(btBin))})
	buf.Write(btJSON)
	buf.Write(btBin)
	buf.Write(testGLB)

	b, err := ParseB3DM(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseB3DM failed: %v", err)
	}
	if b.Layout != B3DMLayoutLegacy24 {
		t.Errorf("expected legacy-24 layout, got %s", b.Layout)
	}
	if b.BatchLength != 3 {
		t.Errorf("BatchLength = %d, want 3", b.BatchLength)
	}

	_, bt, err := b.Tables(nil)
	if err != nil {
		t.Fatalf("Tables failed: %v", err)
	}
	if v, _ := bt.Property(2, "h"); v != 7.0 {
		t.Errorf("Property(2, h) = %v, want 7", v)
	}
}

func TestB3DMTables_InvalidBatchTable(t *testing.T) {
	b, err := NewB3DM(
		map[string]any{"BATCH_LENGTH": 2},
		map[string]any{"h": map[string]any{"byteOffset": 0, "type": "SCALAR"}},
		[]byte{0, 0, 0, 0, 0, 0, 0, 0},
		testGLB,
	)
	if err != nil {
		t.Fatalf("NewB3DM failed: %v", err)
	}
	parsed, err := ParseB3DM(b.Encode())
	if err != nil {
		t.Fatalf("ParseB3DM failed: %v", err)
	}
	if _, _, err := parsed.Tables(nil); !errors.Is(err, property.ErrInvalidDescriptor) {
		t.Errorf("expected ErrInvalidDescriptor, got %v", err)
	}
}

func TestParseB3DMFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.b3dm")
	if err := os.WriteFile(path, createTestB3DM(t), 0644); err != nil {
		t.Fatalf("failed to write tile: %v", err)
	}
	if _, err := ParseB3DMFile(path); err != nil {
		t.Errorf("ParseB3DMFile failed: %v", err)
	}
	if _, err := ParseB3DMFile(filepath.Join(t.TempDir(), "missing.b3dm")); err == nil {
		t.Error("expected error for missing file")
	}
}

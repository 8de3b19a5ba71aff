// Package formats provides parsers for 3D Tiles content containers.
package formats

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/tilebatch/pkg/batchtable"
	"github.com/Faultbox/tilebatch/pkg/featuretable"
)

// B3DM format errors.
var (
	ErrInvalidB3DMMagic       = errors.New("invalid b3dm magic: expected 'b3dm'")
	ErrUnsupportedB3DMVersion = errors.New("unsupported b3dm version")
	ErrTruncatedB3DMData      = errors.New("truncated b3dm data")
)

const (
	b3dmMagic      = "b3dm"
	b3dmHeaderSize = 28

	// A header length field at or above this value is really the first bytes
	// of JSON or glTF content, which means the header uses a legacy layout.
	legacyLengthThreshold = 570425344
)

// B3DMLayout identifies the header layout a tile was written with.
type B3DMLayout uint8

// Header layouts.
const (
	// B3DMLayoutCurrent is the 28-byte header with feature table sections.
	B3DMLayoutCurrent B3DMLayout = iota
	// B3DMLayoutLegacy20 is the 20-byte header: batchLength,
	// batchTableByteLength.
	B3DMLayoutLegacy20
	// B3DMLayoutLegacy24 is the 24-byte header: batchLength,
	// batchTableJsonByteLength, batchTableBinaryByteLength.
	B3DMLayoutLegacy24
)

// String returns the layout name.
func (l B3DMLayout) String() string {
	switch l {
	case B3DMLayoutCurrent:
		return "current"
	case B3DMLayoutLegacy20:
		return "legacy-20"
	case B3DMLayoutLegacy24:
		return "legacy-24"
	default:
		return fmt.Sprintf("B3DMLayout(%d)", l)
	}
}

// B3DM is a parsed batched 3D model tile.
type B3DM struct {
	Version    uint32
	ByteLength uint32
	Layout     B3DMLayout

	FeatureTableJSON   []byte
	FeatureTableBinary []byte
	BatchTableJSON     []byte
	BatchTableBinary   []byte

	// BatchLength comes from the header for legacy layouts and is zero
	// otherwise; the feature table's BATCH_LENGTH is authoritative.
	BatchLength uint32

	// GLB is the embedded binary glTF, kept opaque.
	GLB []byte
}

// ParseB3DM parses a b3dm tile from raw bytes.
func ParseB3DM(data []byte) (*B3DM, error) {
	if len(data) < b3dmHeaderSize {
		return nil, ErrTruncatedB3DMData
	}
	if string(data[0:4]) != b3dmMagic {
		return nil, ErrInvalidB3DMMagic
	}

	var h [6]uint32
	if err := binary.Read(bytes.NewReader(data[4:b3dmHeaderSize]), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedB3DMData)
	}
	b := &B3DM{Version: h[0], ByteLength: h[1]}
	if b.Version != 1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedB3DMVersion, b.Version)
	}
	if int(b.ByteLength) > len(data) {
		return nil, fmt.Errorf("%w: header declares %d bytes, have %d", ErrTruncatedB3DMData, b.ByteLength, len(data))
	}

	ftJSON, ftBin, btJSON, btBin := h[2], h[3], h[4], h[5]
	offset := b3dmHeaderSize
	switch {
	case btJSON >= legacyLengthThreshold:
		b.Layout = B3DMLayoutLegacy20
		b.BatchLength = ftJSON
		btJSON, btBin = ftBin, 0
		ftJSON, ftBin = 0, 0
		offset = 20
	case btBin >= legacyLengthThreshold:
		b.Layout = B3DMLayoutLegacy24
		b.BatchLength = ftJSON
		btJSON, btBin = ftBin, btJSON
		ftJSON, ftBin = 0, 0
		offset = 24
	}

	end := int(b.ByteLength)
	if end == 0 {
		end = len(data)
	}
	if end < offset {
		return nil, fmt.Errorf("%w: byteLength %d is shorter than the header", ErrTruncatedB3DMData, end)
	}
	sections := []struct {
		dst  *[]byte
		size uint32
		name string
	}{
		{&b.FeatureTableJSON, ftJSON, "feature table JSON"},
		{&b.FeatureTableBinary, ftBin, "feature table binary"},
		{&b.BatchTableJSON, btJSON, "batch table JSON"},
		{&b.BatchTableBinary, btBin, "batch table binary"},
	}
	for _, s := range sections {
		if s.size == 0 {
			continue
		}
		if offset+int(s.size) > end {
			return nil, fmt.Errorf("%w: reading %s", ErrTruncatedB3DMData, s.name)
		}
		*s.dst = data[offset : offset+int(s.size)]
		offset += int(s.size)
	}
	b.GLB = data[offset:end]

	return b, nil
}

// ParseB3DMFile parses a b3dm tile from disk.
func ParseB3DMFile(path string) (*B3DM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading b3dm file: %w", err)
	}
	return ParseB3DM(data)
}

// FeatureTable parses the feature table. Legacy tiles without one get a
// BATCH_LENGTH from the header.
func (b *B3DM) FeatureTable() (*featuretable.FeatureTable, error) {
	if len(b.FeatureTableJSON) == 0 {
		return featuretable.NewFromMap(map[string]any{"BATCH_LENGTH": float64(b.BatchLength)}, nil), nil
	}
	return featuretable.New(b.FeatureTableJSON, b.FeatureTableBinary)
}

// Tables parses both tables and builds a batch table sized by the feature
// table's BATCH_LENGTH. opts may be nil.
func (b *B3DM) Tables(opts *batchtable.Options) (*featuretable.FeatureTable, *batchtable.BatchTable, error) {
	ft, err := b.FeatureTable()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing feature table: %w", err)
	}
	schema, err := batchtable.ParseSchema(b.BatchTableJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing batch table: %w", err)
	}
	var binary []byte
	if len(b.BatchTableBinary) > 0 {
		binary = b.BatchTableBinary
	}
	bt, err := batchtable.New(ft.FeaturesLength, schema, binary, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("creating batch table: %w", err)
	}
	return ft, bt, nil
}

// Encode writes the tile with the current 28-byte header. JSON sections are
// padded with spaces and binary sections with zeros to 8-byte boundaries.
func (b *B3DM) Encode() []byte {
	ftJSON := pad(b.FeatureTableJSON, ' ')
	ftBin := pad(b.FeatureTableBinary, 0)
	btJSON := pad(b.BatchTableJSON, ' ')
	btBin := pad(b.BatchTableBinary, 0)
	total := b3dmHeaderSize + len(ftJSON) + len(ftBin) + len(btJSON) + len(btBin) + len(b.GLB)

	buf := new(bytes.Buffer)
	buf.Grow(total)
	buf.WriteString(b3dmMagic)
	binary.Write(buf, binary.LittleEndian, [6]uint32{
		1,
		uint32(total),
		uint32(len(ftJSON)),
		uint32(len(ftBin)),
		uint32(len(btJSON)),
		uint32(len(btBin)),
	})
	for _, s := range [][]byte{ftJSON, ftBin, btJSON, btBin, b.GLB} {
		buf.Write(s)
	}
	return buf.Bytes()
}

func pad(data []byte, fill byte) []byte {
	if len(data)%8 == 0 {
		return data
	}
	out := make([]byte, (len(data)+7)/8*8)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = fill
	}
	return out
}

// NewB3DM builds a tile from table contents. featureTable and batchTable
// are marshaled to JSON; batchTable may be nil.
func NewB3DM(featureTable, batchTable map[string]any, batchBinary, glb []byte) (*B3DM, error) {
	ftJSON, err := json.Marshal(featureTable)
	if err != nil {
		return nil, fmt.Errorf("encoding feature table: %w", err)
	}
	b := &B3DM{
		Version:          1,
		FeatureTableJSON: ftJSON,
		BatchTableBinary: batchBinary,
		GLB:              glb,
	}
	if batchTable != nil {
		if b.BatchTableJSON, err = json.Marshal(batchTable); err != nil {
			return nil, fmt.Errorf("encoding batch table: %w", err)
		}
	}
	return b, nil
}

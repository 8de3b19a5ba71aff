// Package featuretable provides access to a tile's feature table: global and
// per-feature semantics stored either inline in JSON or in a binary body.
package featuretable

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Faultbox/tilebatch/internal/logger"
	"github.com/Faultbox/tilebatch/pkg/property"
)

// Feature table errors.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrMissingBuffer   = errors.New("binary property has no backing buffer")
	ErrNotNumeric      = errors.New("property is not a numeric array")
	ErrDestroyed       = errors.New("feature table destroyed")
)

// Semantics that carry the feature count.
var lengthSemantics = []string{"BATCH_LENGTH", "INSTANCES_LENGTH", "POINTS_LENGTH"}

// FeatureTable holds the parsed feature table JSON, the optional binary body
// and a cache of decoded arrays keyed by semantic name.
type FeatureTable struct {
	// FeaturesLength is the number of rows in the table.
	FeaturesLength int

	json   map[string]any
	buffer []byte

	// cache holds decoded views. An entry is created once per name and lives
	// until Destroy.
	cache map[string][]float64

	log       *zap.Logger
	destroyed bool
}

// New parses feature table JSON and pairs it with an optional binary body.
// Empty JSON yields an empty table.
func New(jsonData []byte, binary []byte) (*FeatureTable, error) {
	m := map[string]any{}
	if len(jsonData) > 0 {
		if err := json.Unmarshal(jsonData, &m); err != nil {
			return nil, fmt.Errorf("parsing feature table JSON: %w", err)
		}
	}
	return NewFromMap(m, binary), nil
}

// NewFromMap builds a table from already decoded JSON.
func NewFromMap(m map[string]any, binary []byte) *FeatureTable {
	if m == nil {
		m = map[string]any{}
	}
	ft := &FeatureTable{
		json:   m,
		buffer: binary,
		cache:  make(map[string][]float64),
		log:    logger.Named("featuretable"),
	}
	for _, s := range lengthSemantics {
		if n, ok := number(m[s]); ok {
			ft.FeaturesLength = int(n)
			break
		}
	}
	return ft
}

// Has reports whether the table declares the semantic.
func (ft *FeatureTable) Has(semantic string) bool {
	_, ok := ft.json[semantic]
	return ok
}

// TypedArrayForSemantic decodes count*featureSize components of type t
// starting at byteOffset, caching the result under semantic. A cached array
// is returned without touching the buffer.
func (ft *FeatureTable) TypedArrayForSemantic(semantic string, byteOffset int, t property.ComponentType, count, featureSize int) ([]float64, error) {
	if ft.destroyed {
		return nil, ErrDestroyed
	}
	if byteOffset < 0 {
		return nil, fmt.Errorf("%w: byteOffset is required for %q", ErrInvalidArgument, semantic)
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: componentType is required for %q", ErrInvalidArgument, semantic)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count is required for %q", ErrInvalidArgument, semantic)
	}
	if featureSize < 1 {
		featureSize = 1
	}
	if count > math.MaxInt/featureSize {
		return nil, fmt.Errorf("%w: %q: %d x %d components", property.ErrOutOfBounds, semantic, count, featureSize)
	}

	if cached, ok := ft.cache[semantic]; ok {
		return cached, nil
	}
	if ft.buffer == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingBuffer, semantic)
	}

	values, err := property.ReadComponents(ft.buffer, byteOffset, t, count*featureSize)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", semantic, err)
	}
	ft.cache[semantic] = values
	ft.log.Debug("materialized feature table view",
		zap.String("semantic", semantic),
		zap.Stringer("componentType", t),
		zap.Int("components", len(values)),
	)
	return values, nil
}

// PropertyArray returns all featuresLength*componentCount components of a
// per-feature semantic. A binary reference's own componentType, when present,
// takes precedence over t. Returns nil if the semantic is absent.
func (ft *FeatureTable) PropertyArray(semantic string, t property.ComponentType, componentCount int) ([]float64, error) {
	if ft.destroyed {
		return nil, ErrDestroyed
	}
	v, ok := ft.json[semantic]
	if !ok {
		return nil, nil
	}

	if ref, isRef, err := binaryRef(semantic, v); isRef {
		if err != nil {
			return nil, err
		}
		if ref.ComponentType.Valid() {
			t = ref.ComponentType
		}
		return ft.TypedArrayForSemantic(semantic, ref.ByteOffset, t, ft.FeaturesLength, componentCount)
	}

	if cached, ok := ft.cache[semantic]; ok {
		return cached, nil
	}
	values, err := numericArray(semantic, v)
	if err != nil {
		return nil, err
	}
	ft.cache[semantic] = values
	return values, nil
}

// GlobalProperty returns a semantic that applies to the whole table. Inline
// values are returned as decoded from JSON; binary references decode count
// components (default 1) into a []float64. Returns nil if absent.
func (ft *FeatureTable) GlobalProperty(semantic string, t property.ComponentType, count int) (any, error) {
	if ft.destroyed {
		return nil, ErrDestroyed
	}
	v, ok := ft.json[semantic]
	if !ok {
		return nil, nil
	}

	ref, isRef, err := binaryRef(semantic, v)
	if !isRef {
		return v, nil
	}
	if err != nil {
		return nil, err
	}
	if ref.ComponentType.Valid() {
		t = ref.ComponentType
	}
	if count < 1 {
		count = 1
	}
	return ft.TypedArrayForSemantic(semantic, ref.ByteOffset, t, count, 1)
}

// Property returns the componentCount components belonging to one feature.
func (ft *FeatureTable) Property(semantic string, featureIndex int, t property.ComponentType, componentCount int) ([]float64, error) {
	if ft.destroyed {
		return nil, ErrDestroyed
	}
	if featureIndex < 0 || featureIndex >= ft.FeaturesLength {
		return nil, fmt.Errorf("%w: feature index %d out of range [0, %d)", ErrInvalidArgument, featureIndex, ft.FeaturesLength)
	}
	if componentCount < 1 {
		componentCount = 1
	}

	values, err := ft.PropertyArray(semantic, t, componentCount)
	if err != nil || values == nil {
		return nil, err
	}
	start := featureIndex * componentCount
	end := start + componentCount
	if end > len(values) {
		return nil, fmt.Errorf("%w: %q has %d components, need %d", ErrInvalidArgument, semantic, len(values), end)
	}
	return values[start:end:end], nil
}

// IsDestroyed reports whether Destroy has been called.
func (ft *FeatureTable) IsDestroyed() bool {
	return ft.destroyed
}

// Destroy drops all cached views. The table must not be used afterwards.
func (ft *FeatureTable) Destroy() {
	ft.cache = nil
	ft.json = nil
	ft.buffer = nil
	ft.destroyed = true
}

// binaryRef interprets v as a {"byteOffset": n[, "componentType": ...]}
// reference. isRef is false for inline values.
func binaryRef(semantic string, v any) (ref property.Descriptor, isRef bool, err error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return ref, false, nil
	}
	off, ok := obj["byteOffset"]
	if !ok {
		return ref, false, nil
	}

	ref.Name = semantic
	n, ok := number(off)
	if !ok {
		return ref, true, fmt.Errorf("%w: %q byteOffset is not a number", ErrInvalidArgument, semantic)
	}
	if n < 0 || n >= math.MaxInt {
		return ref, true, fmt.Errorf("%w: %q byteOffset %v is out of range", ErrInvalidArgument, semantic, n)
	}
	ref.ByteOffset = int(n)

	switch ct := obj["componentType"].(type) {
	case nil:
	case string:
		if ref.ComponentType, err = property.ParseComponentType(ct); err != nil {
			return ref, true, err
		}
	case property.ComponentType:
		ref.ComponentType = ct
	default:
		code, ok := number(ct)
		if !ok {
			return ref, true, fmt.Errorf("%w: %q componentType is %T", ErrInvalidArgument, semantic, ct)
		}
		if ref.ComponentType, err = property.ComponentTypeFromGL(int(code)); err != nil {
			return ref, true, err
		}
	}
	return ref, true, nil
}

func numericArray(semantic string, v any) ([]float64, error) {
	if fs, ok := v.([]float64); ok {
		return fs, nil
	}
	arr, ok := v.([]any)
	if !ok {
		if f, ok := number(v); ok {
			return []float64{f}, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrNotNumeric, semantic)
	}
	out := make([]float64, len(arr))
	for i, x := range arr {
		f, ok := number(x)
		if !ok {
			return nil, fmt.Errorf("%w: %q element %d is %T", ErrNotNumeric, semantic, i, x)
		}
		out[i] = f
	}
	return out, nil
}

// number accepts JSON-decoded numbers and the integer types used when tables
// are built in code.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}

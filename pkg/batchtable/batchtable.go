// Package batchtable stores per-feature properties for a batched draw and
// encodes per-feature show/color overrides into a GPU resource.
//
// A BatchTable is single-threaded: setters only touch CPU-side arrays and
// mark the override state dirty; Update, called once per frame before draw
// commands are issued, uploads the changes.
package batchtable

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/tilebatch/internal/logger"
	"github.com/Faultbox/tilebatch/pkg/color"
	"github.com/Faultbox/tilebatch/pkg/property"
)

// Batch table errors.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidDescriptor = property.ErrInvalidDescriptor
	ErrDestroyed         = errors.New("batch table destroyed")
)

// Options configure a batch table.
type Options struct {
	// VertexBatchIDs maps each vertex of the batched geometry to its feature.
	// It is only used when overrides fall back to a vertex attribute.
	VertexBatchIDs []uint32
}

// BatchTable holds per-feature properties and show/color overrides.
type BatchTable struct {
	featuresLength int
	schema         *Schema

	binary      []byte
	binaryOwned bool

	overrides overrides
	state     OverrideState
	encoder   encoder
	resource  Resource

	vertexBatchIDs []uint32

	log       *zap.Logger
	destroyed bool
}

// New creates a batch table for featuresLength features. schema may be nil
// for a table without properties. The table works on its own copy of the
// schema, so later edits on either side are not shared. binary backs the
// schema's binary properties; it is shared read-only until a binary property
// is written.
func New(featuresLength int, schema *Schema, binary []byte, opts *Options) (*BatchTable, error) {
	if featuresLength < 0 {
		return nil, fmt.Errorf("%w: featuresLength %d", ErrInvalidArgument, featuresLength)
	}
	if schema == nil {
		schema = NewSchema()
	} else {
		schema = schema.clone()
	}

	for _, e := range schema.entries {
		if e.kind != entryBinary {
			continue
		}
		if err := e.desc.Validate(); err != nil {
			return nil, err
		}
		if binary == nil {
			return nil, fmt.Errorf("%w: %q is a binary property but there is no binary body", ErrInvalidDescriptor, e.name)
		}
		if !e.desc.Fits(len(binary), featuresLength) {
			return nil, fmt.Errorf("%w: %q needs %d values of %d bytes from byte %d, binary body has %d",
				ErrInvalidDescriptor, e.name, featuresLength, e.desc.ByteWidth(), e.desc.ByteOffset, len(binary))
		}
	}

	bt := &BatchTable{
		featuresLength: featuresLength,
		schema:         schema,
		binary:         binary,
		log:            logger.Named("batchtable"),
	}
	if opts != nil && opts.VertexBatchIDs != nil {
		for v, id := range opts.VertexBatchIDs {
			if int(id) >= featuresLength {
				return nil, fmt.Errorf("%w: vertex %d has batch id %d, featuresLength %d", ErrInvalidArgument, v, id, featuresLength)
			}
		}
		bt.vertexBatchIDs = opts.VertexBatchIDs
	}
	return bt, nil
}

// FeaturesLength returns the number of features. It never changes.
func (bt *BatchTable) FeaturesLength() int {
	return bt.featuresLength
}

// State returns the override resource state.
func (bt *BatchTable) State() OverrideState {
	return bt.state
}

// checkBatchID validates the table and id before any access.
func (bt *BatchTable) checkBatchID(batchID int) error {
	if bt.destroyed {
		return ErrDestroyed
	}
	if batchID < 0 || batchID >= bt.featuresLength {
		return fmt.Errorf("%w: invalid batch id %d, featuresLength %d", ErrInvalidArgument, batchID, bt.featuresLength)
	}
	return nil
}

func (bt *BatchTable) markDirty() {
	bt.state = StateDirty
}

// Show reports whether the feature is visible. Features are visible by
// default.
func (bt *BatchTable) Show(batchID int) (bool, error) {
	if err := bt.checkBatchID(batchID); err != nil {
		return false, err
	}
	return bt.overrides.shown(batchID), nil
}

// SetShow sets the feature's visibility. Writing the current value is a no-op.
func (bt *BatchTable) SetShow(batchID int, show bool) error {
	if err := bt.checkBatchID(batchID); err != nil {
		return err
	}
	if bt.overrides.shown(batchID) == show {
		return nil
	}
	bt.overrides.allocShow(bt.featuresLength)
	bt.overrides.setShown(batchID, show)
	bt.markDirty()
	return nil
}

// SetAllShow sets the visibility of every feature and always marks the
// overrides dirty.
func (bt *BatchTable) SetAllShow(show bool) error {
	if bt.destroyed {
		return ErrDestroyed
	}
	bt.overrides.allocShow(bt.featuresLength)
	for i := 0; i < bt.featuresLength; i++ {
		bt.overrides.setShown(i, show)
	}
	bt.markDirty()
	return nil
}

// Color returns the feature's color. The default is opaque white.
func (bt *BatchTable) Color(batchID int) (color.Color, error) {
	if err := bt.checkBatchID(batchID); err != nil {
		return color.Color{}, err
	}
	return color.FromBytes(bt.overrides.rgba(batchID)), nil
}

// SetColor sets the feature's color. Colors are stored as bytes; writing a
// color that encodes to the current bytes is a no-op.
func (bt *BatchTable) SetColor(batchID int, c color.Color) error {
	if err := bt.checkBatchID(batchID); err != nil {
		return err
	}
	rgba := c.Bytes()
	if bt.overrides.rgba(batchID) == rgba {
		return nil
	}
	bt.overrides.allocColors(bt.featuresLength)
	copy(bt.overrides.colors[batchID*4:], rgba[:])
	bt.markDirty()
	return nil
}

// SetAllColor assigns c to every feature and always marks the overrides
// dirty.
func (bt *BatchTable) SetAllColor(c color.Color) error {
	if bt.destroyed {
		return ErrDestroyed
	}
	rgba := c.Bytes()
	bt.overrides.allocColors(bt.featuresLength)
	for i := 0; i < bt.featuresLength; i++ {
		copy(bt.overrides.colors[i*4:], rgba[:])
	}
	bt.markDirty()
	return nil
}

// HasProperty reports whether the table declares the named property. The
// empty name is never declared.
func (bt *BatchTable) HasProperty(name string) bool {
	if bt.destroyed || name == "" {
		return false
	}
	return bt.schema.lookup(name) != nil
}

// PropertyNames returns the property names in declaration order.
func (bt *BatchTable) PropertyNames() []string {
	if bt.destroyed {
		return []string{}
	}
	return bt.schema.Names()
}

// PropertyDescriptor returns the descriptor of a binary property. ok is
// false for inline and unknown properties.
func (bt *BatchTable) PropertyDescriptor(name string) (d property.Descriptor, ok bool) {
	if bt.destroyed {
		return property.Descriptor{}, false
	}
	e := bt.schema.lookup(name)
	if e == nil || e.kind != entryBinary {
		return property.Descriptor{}, false
	}
	return e.desc, true
}

// Property returns the feature's value of the named property, or nil if the
// property does not exist or has no value for this feature.
func (bt *BatchTable) Property(batchID int, name string) (any, error) {
	if err := bt.checkBatchID(batchID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: missing property name", ErrInvalidArgument)
	}

	e := bt.schema.lookup(name)
	if e == nil {
		return nil, nil
	}
	if e.kind == entryBinary {
		v, err := e.desc.Read(bt.binary, batchID)
		if err != nil {
			return nil, fmt.Errorf("reading %q for batch id %d: %w", name, batchID, err)
		}
		return v, nil
	}
	if batchID >= len(e.values) {
		return nil, nil
	}
	return e.values[batchID], nil
}

// SetProperty sets the feature's value of the named property. Binary
// properties take a value matching their shape. An unknown name creates an
// inline property with featuresLength slots, all other slots nil.
func (bt *BatchTable) SetProperty(batchID int, name string, value any) error {
	if err := bt.checkBatchID(batchID); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: missing property name", ErrInvalidArgument)
	}
	if value == nil {
		return fmt.Errorf("%w: missing value for %q", ErrInvalidArgument, name)
	}

	e := bt.schema.lookup(name)
	if e == nil {
		bt.schema.AddInline(name, make([]any, bt.featuresLength))
		e = bt.schema.lookup(name)
	}

	if e.kind == entryBinary {
		if err := bt.ownBinary(); err != nil {
			return err
		}
		if err := e.desc.Write(bt.binary, batchID, value); err != nil {
			return fmt.Errorf("writing %q for batch id %d: %w", name, batchID, err)
		}
		return nil
	}

	if len(e.values) < bt.featuresLength {
		grown := make([]any, bt.featuresLength)
		copy(grown, e.values)
		e.values = grown
	}
	e.values[batchID] = value
	return nil
}

// ownBinary copies the shared binary body before the first write.
func (bt *BatchTable) ownBinary() error {
	if bt.binaryOwned {
		return nil
	}
	if bt.binary == nil {
		return fmt.Errorf("%w: no binary body", ErrInvalidDescriptor)
	}
	bt.binary = append([]byte(nil), bt.binary...)
	bt.binaryOwned = true
	return nil
}

// Feature returns a handle for the feature with the given batch id.
func (bt *BatchTable) Feature(batchID int) (*Feature, error) {
	if err := bt.checkBatchID(batchID); err != nil {
		return nil, err
	}
	return &Feature{table: bt, batchID: batchID}, nil
}

// ForEachFeature calls fn for every feature in batch id order, stopping at
// the first error. Styling code uses this to evaluate a style per feature.
func (bt *BatchTable) ForEachFeature(fn func(f *Feature) error) error {
	if bt.destroyed {
		return ErrDestroyed
	}
	for i := 0; i < bt.featuresLength; i++ {
		if err := fn(&Feature{table: bt, batchID: i}); err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
	}
	return nil
}

// Update uploads override changes made since the last call. It creates the
// override resource on the first call after an override deviates from the
// default and is a no-op while the table is clean or has no overrides.
func (bt *BatchTable) Update(fs *FrameState) error {
	if bt.destroyed {
		return ErrDestroyed
	}
	if bt.state != StateDirty {
		return nil
	}
	if fs == nil || fs.Device == nil {
		return fmt.Errorf("%w: frame state has no device", ErrInvalidArgument)
	}

	if bt.resource == nil {
		if err := bt.createResource(fs.Device); err != nil {
			return err
		}
	}

	data := bt.encoder.encode(&bt.overrides, bt.featuresLength)
	if err := bt.resource.Upload(data); err != nil {
		return fmt.Errorf("uploading batch table overrides: %w", err)
	}
	bt.state = StateClean
	bt.log.Debug("uploaded overrides",
		zap.Uint64("frame", fs.FrameNumber),
		zap.Stringer("kind", bt.encoder.kind()),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// createResource picks the encoding once, from the device limits.
func (bt *BatchTable) createResource(dev Device) error {
	limits := dev.Limits()
	var enc encoder
	if reason := fallbackReason(limits, bt.featuresLength); reason != "" {
		enc = newVertexEncoder(bt.vertexBatchIDs, bt.featuresLength)
		bt.log.Warn("encoding overrides per vertex",
			zap.String("reason", reason),
			zap.Int("featuresLength", bt.featuresLength),
			zap.Int("maxTextureSize", limits.MaxTextureSize),
		)
	} else {
		dim, _ := TextureDimensions(bt.featuresLength, limits.MaxTextureSize)
		enc = &textureEncoder{dim: dim}
	}

	res, err := enc.create(dev)
	if err != nil {
		return fmt.Errorf("creating batch table %s: %w", enc.kind(), err)
	}
	bt.encoder = enc
	bt.resource = res

	w, h := enc.dimensions()
	bt.log.Debug("created override resource",
		zap.Stringer("kind", enc.kind()),
		zap.Int("width", w),
		zap.Int("height", h),
	)
	return nil
}

// OverrideResource returns the current override resource. Kind is
// ResourceNone until Update has created one.
func (bt *BatchTable) OverrideResource() OverrideResource {
	if bt.destroyed || bt.resource == nil {
		return OverrideResource{}
	}
	w, h := bt.encoder.dimensions()
	return OverrideResource{
		Kind:     bt.encoder.kind(),
		Width:    w,
		Height:   h,
		Resource: bt.resource,
	}
}

// IsDestroyed reports whether Destroy has been called.
func (bt *BatchTable) IsDestroyed() bool {
	return bt.destroyed
}

// Destroy releases the override resource and drops all arrays. Every later
// call except IsDestroyed and Destroy fails with ErrDestroyed.
func (bt *BatchTable) Destroy() {
	if bt.destroyed {
		return
	}
	if bt.resource != nil {
		bt.resource.Release()
		bt.resource = nil
	}
	bt.encoder = nil
	bt.overrides = overrides{}
	bt.schema = nil
	bt.binary = nil
	bt.vertexBatchIDs = nil
	bt.destroyed = true
}

package batchtable

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// OverrideState tags the lifecycle of the GPU override resource.
type OverrideState uint8

// Override states.
const (
	// StateUnallocated: every feature uses the default show/color and no GPU
	// resource exists.
	StateUnallocated OverrideState = iota
	// StateDirty: overrides changed since the last Update.
	StateDirty
	// StateClean: the GPU resource matches the override arrays.
	StateClean
)

// String returns the state name.
func (s OverrideState) String() string {
	switch s {
	case StateUnallocated:
		return "unallocated"
	case StateDirty:
		return "dirty"
	case StateClean:
		return "clean"
	default:
		return fmt.Sprintf("OverrideState(%d)", s)
	}
}

// bytesPerOverride is the size of one encoded RGBA8 override value.
const bytesPerOverride = 4

// overrides holds the per-feature show bits and RGBA bytes. Either slice is
// nil until a feature deviates from the default.
type overrides struct {
	show   []uint64
	colors []byte
}

func (o *overrides) shown(i int) bool {
	if o.show == nil {
		return true
	}
	return o.show[i/64]&(1<<(uint(i)%64)) != 0
}

func (o *overrides) setShown(i int, v bool) {
	if v {
		o.show[i/64] |= 1 << (uint(i) % 64)
	} else {
		o.show[i/64] &^= 1 << (uint(i) % 64)
	}
}

func (o *overrides) allocShow(n int) {
	if o.show != nil {
		return
	}
	o.show = make([]uint64, (n+63)/64)
	for i := range o.show {
		o.show[i] = ^uint64(0)
	}
}

func (o *overrides) rgba(i int) [4]byte {
	if o.colors == nil {
		return [4]byte{255, 255, 255, 255}
	}
	var c [4]byte
	copy(c[:], o.colors[i*4:i*4+4])
	return c
}

func (o *overrides) allocColors(n int) {
	if o.colors != nil {
		return
	}
	o.colors = make([]byte, n*4)
	for i := range o.colors {
		o.colors[i] = 255
	}
}

// encodeFeature writes the override value of feature i into dst: the RGBA
// color, with alpha forced to zero when the feature is hidden.
func (o *overrides) encodeFeature(dst []byte, i int) {
	c := o.rgba(i)
	if !o.shown(i) {
		c[3] = 0
	}
	copy(dst, c[:])
}

// encoder turns override arrays into the bytes of one resource kind.
// Both implementations produce the same per-feature value; they differ only
// in where the consuming shader stage reads it.
type encoder interface {
	kind() ResourceKind
	dimensions() (width, height int)
	create(dev Device) (Resource, error)
	encode(o *overrides, featuresLength int) []byte
}

// textureEncoder packs feature i into texel (i % dim, i / dim) of a square
// RGBA8 texture.
type textureEncoder struct {
	dim int
}

func (e *textureEncoder) kind() ResourceKind { return ResourceTexture }

func (e *textureEncoder) dimensions() (int, int) { return e.dim, e.dim }

func (e *textureEncoder) create(dev Device) (Resource, error) {
	return dev.CreateTexture(TextureDescriptor{
		Label: "batch-table-overrides",
		Size: gputypes.Extent3D{
			Width:              uint32(e.dim),
			Height:             uint32(e.dim),
			DepthOrArrayLayers: 1,
		},
		Format: gputypes.TextureFormatRGBA8Unorm,
	})
}

func (e *textureEncoder) encode(o *overrides, featuresLength int) []byte {
	data := make([]byte, e.dim*e.dim*bytesPerOverride)
	for i := 0; i < featuresLength; i++ {
		o.encodeFeature(data[i*bytesPerOverride:], i)
	}
	return data
}

// vertexEncoder emits one override value per vertex, looked up through the
// vertex batch ids. Without batch ids it emits one value per feature.
type vertexEncoder struct {
	batchIDs []uint32
	count    int
}

func newVertexEncoder(batchIDs []uint32, featuresLength int) *vertexEncoder {
	count := featuresLength
	if batchIDs != nil {
		count = len(batchIDs)
	}
	return &vertexEncoder{batchIDs: batchIDs, count: count}
}

func (e *vertexEncoder) kind() ResourceKind { return ResourceVertexAttribute }

func (e *vertexEncoder) dimensions() (int, int) { return e.count, 1 }

func (e *vertexEncoder) create(dev Device) (Resource, error) {
	return dev.CreateVertexBuffer(VertexBufferDescriptor{
		Label:       "batch-table-overrides",
		Format:      gputypes.VertexFormatUnorm8x4,
		VertexCount: e.count,
	})
}

func (e *vertexEncoder) encode(o *overrides, featuresLength int) []byte {
	data := make([]byte, e.count*bytesPerOverride)
	for v := 0; v < e.count; v++ {
		id := v
		if e.batchIDs != nil {
			id = int(e.batchIDs[v])
		}
		o.encodeFeature(data[v*bytesPerOverride:], id)
	}
	return data
}

// OverrideResource is the renderer's view of the current override resource.
type OverrideResource struct {
	Kind     ResourceKind
	Width    int
	Height   int
	Resource Resource
}

// TexelCoordinates returns the texture coordinates of the texel center that
// holds the given feature. Only meaningful for ResourceTexture.
func (r OverrideResource) TexelCoordinates(batchID int) (u, v float64) {
	if r.Kind != ResourceTexture || r.Width == 0 || r.Height == 0 {
		return 0, 0
	}
	x := batchID % r.Width
	y := batchID / r.Width
	return (float64(x) + 0.5) / float64(r.Width), (float64(y) + 0.5) / float64(r.Height)
}

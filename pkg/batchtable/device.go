package batchtable

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Limits are the platform capabilities that decide how overrides are encoded.
type Limits struct {
	// MaxTextureSize is the largest supported width/height of a 2D texture.
	MaxTextureSize int
	// MaxVertexTextureImageUnits is zero when the vertex stage cannot sample
	// textures.
	MaxVertexTextureImageUnits int
}

// DefaultLimits returns the WebGPU baseline texture dimension with vertex
// texture fetch available.
func DefaultLimits() Limits {
	return Limits{
		MaxTextureSize:             int(gputypes.DefaultLimits().MaxTextureDimension2D),
		MaxVertexTextureImageUnits: 16,
	}
}

// VertexTextureFetch reports whether the vertex stage can sample textures.
func (l Limits) VertexTextureFetch() bool {
	return l.MaxVertexTextureImageUnits > 0
}

// ResourceKind identifies how the override state reaches the shader.
type ResourceKind uint8

// Resource kinds.
const (
	ResourceNone ResourceKind = iota
	ResourceTexture
	ResourceVertexAttribute
)

// String returns a readable kind name.
func (k ResourceKind) String() string {
	switch k {
	case ResourceNone:
		return "none"
	case ResourceTexture:
		return "texture"
	case ResourceVertexAttribute:
		return "vertex-attribute"
	default:
		return fmt.Sprintf("ResourceKind(%d)", k)
	}
}

// TextureDescriptor describes the square RGBA8 override texture.
type TextureDescriptor struct {
	Label  string
	Size   gputypes.Extent3D
	Format gputypes.TextureFormat
}

// VertexBufferDescriptor describes the per-vertex override attribute.
type VertexBufferDescriptor struct {
	Label       string
	Format      gputypes.VertexFormat
	VertexCount int
}

// Resource is a GPU object owned by one batch table.
type Resource interface {
	// Upload replaces the full contents of the resource.
	Upload(data []byte) error
	// Release frees the GPU object. It is called exactly once.
	Release()
}

// Device creates override resources. Implementations live outside this
// package (OpenGL, in-memory).
type Device interface {
	Limits() Limits
	CreateTexture(desc TextureDescriptor) (Resource, error)
	CreateVertexBuffer(desc VertexBufferDescriptor) (Resource, error)
}

// FrameState is the per-frame context handed to Update.
type FrameState struct {
	Device      Device
	FrameNumber uint64
}

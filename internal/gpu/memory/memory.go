// Package memory provides a RAM-backed override device for headless use and
// tests. Resources keep a copy of every upload.
package memory

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"

	"github.com/Faultbox/tilebatch/pkg/batchtable"
)

// Device errors.
var (
	ErrUploadSize  = errors.New("upload size does not match resource")
	ErrReleased    = errors.New("resource already released")
	ErrUnsupported = errors.New("unsupported resource format")
	ErrNotTexture  = errors.New("resource is not a texture")
)

// Device implements batchtable.Device in memory.
type Device struct {
	limits    batchtable.Limits
	resources []*Resource
}

// NewDevice creates a device reporting the given limits.
func NewDevice(limits batchtable.Limits) *Device {
	return &Device{limits: limits}
}

// Limits returns the configured limits.
func (d *Device) Limits() batchtable.Limits {
	return d.limits
}

// CreateTexture allocates an RGBA8 texture.
func (d *Device) CreateTexture(desc batchtable.TextureDescriptor) (batchtable.Resource, error) {
	if desc.Format != gputypes.TextureFormatRGBA8Unorm {
		return nil, fmt.Errorf("%w: texture format %v", ErrUnsupported, desc.Format)
	}
	w, h := int(desc.Size.Width), int(desc.Size.Height)
	if w < 1 || h < 1 || w > d.limits.MaxTextureSize || h > d.limits.MaxTextureSize {
		return nil, fmt.Errorf("texture %dx%d exceeds limit %d", w, h, d.limits.MaxTextureSize)
	}
	r := &Resource{
		Kind:   batchtable.ResourceTexture,
		Label:  desc.Label,
		Width:  w,
		Height: h,
		Data:   make([]byte, w*h*4),
	}
	d.resources = append(d.resources, r)
	return r, nil
}

// CreateVertexBuffer allocates a buffer of unorm8x4 values.
func (d *Device) CreateVertexBuffer(desc batchtable.VertexBufferDescriptor) (batchtable.Resource, error) {
	if desc.Format != gputypes.VertexFormatUnorm8x4 {
		return nil, fmt.Errorf("%w: vertex format %v", ErrUnsupported, desc.Format)
	}
	r := &Resource{
		Kind:   batchtable.ResourceVertexAttribute,
		Label:  desc.Label,
		Width:  desc.VertexCount,
		Height: 1,
		Data:   make([]byte, desc.VertexCount*4),
	}
	d.resources = append(d.resources, r)
	return r, nil
}

// Created returns the number of resources created so far.
func (d *Device) Created() int {
	return len(d.resources)
}

// Live returns the number of resources not yet released.
func (d *Device) Live() int {
	n := 0
	for _, r := range d.resources {
		if !r.Released {
			n++
		}
	}
	return n
}

// Resource is an in-memory texture or vertex buffer.
type Resource struct {
	Kind     batchtable.ResourceKind
	Label    string
	Width    int
	Height   int
	Data     []byte
	Uploads  int
	Released bool
}

// Upload replaces the resource contents.
func (r *Resource) Upload(data []byte) error {
	if r.Released {
		return ErrReleased
	}
	if len(data) != len(r.Data) {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrUploadSize, len(data), len(r.Data))
	}
	copy(r.Data, data)
	r.Uploads++
	return nil
}

// Release marks the resource released.
func (r *Resource) Release() {
	r.Released = true
	r.Data = nil
}

// Value returns the RGBA value stored at element i (texel or vertex).
func (r *Resource) Value(i int) [4]byte {
	var v [4]byte
	copy(v[:], r.Data[i*4:i*4+4])
	return v
}

// Image returns a texture's contents as an image.
func (r *Resource) Image() (*image.RGBA, error) {
	if r.Kind != batchtable.ResourceTexture {
		return nil, ErrNotTexture
	}
	if r.Released {
		return nil, ErrReleased
	}
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	copy(img.Pix, r.Data)
	return img, nil
}

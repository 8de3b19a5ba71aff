// Package opengl implements the batch table override device on OpenGL 4.1
// core. Every call must be made on the thread that owns the GL context.
package opengl

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/gogpu/gputypes"
	"go.uber.org/zap"

	"github.com/Faultbox/tilebatch/internal/logger"
	"github.com/Faultbox/tilebatch/pkg/batchtable"
)

// Device errors.
var (
	ErrUnsupported = errors.New("unsupported resource format")
	ErrUploadSize  = errors.New("upload size does not match resource")
	ErrReleased    = errors.New("resource already released")
	ErrShader      = errors.New("shader program failed")
)

// Device creates override textures and vertex buffers in the current GL
// context.
type Device struct {
	limits batchtable.Limits
	log    *zap.Logger
}

// NewDevice loads GL function pointers and queries the driver limits.
// A non-nil caps lowers the reported limits, which lets a caller force the
// vertex fallback on capable hardware.
// IMPORTANT: Must be called AFTER the OpenGL context is created.
func NewDevice(caps *batchtable.Limits) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	var maxTexture, vertexUnits int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxTexture)
	gl.GetIntegerv(gl.MAX_VERTEX_TEXTURE_IMAGE_UNITS, &vertexUnits)

	d := &Device{
		limits: capLimits(batchtable.Limits{
			MaxTextureSize:             int(maxTexture),
			MaxVertexTextureImageUnits: int(vertexUnits),
		}, caps),
		log: logger.Named("opengl"),
	}
	d.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.Int("maxTextureSize", d.limits.MaxTextureSize),
		zap.Int("maxVertexTextureImageUnits", d.limits.MaxVertexTextureImageUnits),
	)
	return d, nil
}

// capLimits lowers driver limits to caps. A zero MaxTextureSize cap is
// ignored; a zero MaxVertexTextureImageUnits cap disables vertex texture
// fetch.
func capLimits(driver batchtable.Limits, caps *batchtable.Limits) batchtable.Limits {
	out := driver
	if caps == nil {
		return out
	}
	if caps.MaxTextureSize > 0 {
		out.MaxTextureSize = min(out.MaxTextureSize, caps.MaxTextureSize)
	}
	out.MaxVertexTextureImageUnits = max(0, min(out.MaxVertexTextureImageUnits, caps.MaxVertexTextureImageUnits))
	return out
}

// Limits returns the effective limits.
func (d *Device) Limits() batchtable.Limits {
	return d.limits
}

// CreateTexture allocates an RGBA8 texture with nearest filtering so each
// texel is read back exactly.
func (d *Device) CreateTexture(desc batchtable.TextureDescriptor) (batchtable.Resource, error) {
	if desc.Format != gputypes.TextureFormatRGBA8Unorm {
		return nil, fmt.Errorf("%w: texture format %v", ErrUnsupported, desc.Format)
	}
	w, h := int32(desc.Size.Width), int32(desc.Size.Height)
	if w < 1 || h < 1 || int(w) > d.limits.MaxTextureSize || int(h) > d.limits.MaxTextureSize {
		return nil, fmt.Errorf("texture %dx%d exceeds limit %d", w, h, d.limits.MaxTextureSize)
	}

	r := &Texture{width: w, height: h}
	gl.GenTextures(1, &r.id)
	gl.BindTexture(gl.TEXTURE_2D, r.id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, w, h, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if e := gl.GetError(); e != gl.NO_ERROR {
		r.Release()
		return nil, fmt.Errorf("creating %q: GL error 0x%x", desc.Label, e)
	}
	d.log.Debug("created texture", zap.String("label", desc.Label), zap.Int32("width", w), zap.Int32("height", h))
	return r, nil
}

// CreateVertexBuffer allocates an array buffer of unorm8x4 values.
func (d *Device) CreateVertexBuffer(desc batchtable.VertexBufferDescriptor) (batchtable.Resource, error) {
	if desc.Format != gputypes.VertexFormatUnorm8x4 {
		return nil, fmt.Errorf("%w: vertex format %v", ErrUnsupported, desc.Format)
	}
	size := desc.VertexCount * 4

	r := &VertexBuffer{size: size}
	gl.GenBuffers(1, &r.id)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.id)
	gl.BufferData(gl.ARRAY_BUFFER, size, nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	if e := gl.GetError(); e != gl.NO_ERROR {
		r.Release()
		return nil, fmt.Errorf("creating %q: GL error 0x%x", desc.Label, e)
	}
	d.log.Debug("created vertex buffer", zap.String("label", desc.Label), zap.Int("vertices", desc.VertexCount))
	return r, nil
}

// Texture is an override texture.
type Texture struct {
	id            uint32
	width, height int32
}

// ID returns the GL texture name for binding in a shader.
func (t *Texture) ID() uint32 {
	return t.id
}

// Upload replaces the whole texture.
func (t *Texture) Upload(data []byte) error {
	if t.id == 0 {
		return ErrReleased
	}
	if want := int(t.width * t.height * 4); len(data) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrUploadSize, len(data), want)
	}
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, t.width, t.height, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(data))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

// Image reads the texture back. Row 0 is texel row 0 (feature ids 0..w-1).
func (t *Texture) Image() (*image.RGBA, error) {
	if t.id == 0 {
		return nil, ErrReleased
	}
	img := image.NewRGBA(image.Rect(0, 0, int(t.width), int(t.height)))
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.GetTexImage(gl.TEXTURE_2D, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return img, nil
}

// Release deletes the texture.
func (t *Texture) Release() {
	if t.id != 0 {
		gl.DeleteTextures(1, &t.id)
		t.id = 0
	}
}

// VertexBuffer is a per-vertex override attribute buffer.
type VertexBuffer struct {
	id   uint32
	size int
}

// ID returns the GL buffer name for binding as a vertex attribute.
func (b *VertexBuffer) ID() uint32 {
	return b.id
}

// Upload replaces the whole buffer.
func (b *VertexBuffer) Upload(data []byte) error {
	if b.id == 0 {
		return ErrReleased
	}
	if len(data) != b.size {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrUploadSize, len(data), b.size)
	}
	if len(data) == 0 {
		return nil
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, b.id)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

// Release deletes the buffer.
func (b *VertexBuffer) Release() {
	if b.id != 0 {
		gl.DeleteBuffers(1, &b.id)
		b.id = 0
	}
}

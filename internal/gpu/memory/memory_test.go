package memory

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/Faultbox/tilebatch/pkg/batchtable"
)

func testLimits() batchtable.Limits {
	return batchtable.Limits{MaxTextureSize: 8, MaxVertexTextureImageUnits: 16}
}

func TestCreateTexture(t *testing.T) {
	d := NewDevice(testLimits())
	res, err := d.CreateTexture(batchtable.TextureDescriptor{
		Label:  "t",
		Size:   gputypes.Extent3D{Width: 2, Height: 2, DepthOrArrayLayers: 1},
		Format: gputypes.TextureFormatRGBA8Unorm,
	})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	r := res.(*Resource)
	if r.Kind != batchtable.ResourceTexture || len(r.Data) != 16 {
		t.Errorf("resource = %+v", r)
	}
	if d.Created() != 1 || d.Live() != 1 {
		t.Errorf("Created() = %d, Live() = %d", d.Created(), d.Live())
	}
}

func TestCreateTextureErrors(t *testing.T) {
	d := NewDevice(testLimits())

	_, err := d.CreateTexture(batchtable.TextureDescriptor{
		Size:   gputypes.Extent3D{Width: 2, Height: 2, DepthOrArrayLayers: 1},
		Format: gputypes.TextureFormatBGRA8Unorm,
	})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}

	_, err = d.CreateTexture(batchtable.TextureDescriptor{
		Size:   gputypes.Extent3D{Width: 16, Height: 16, DepthOrArrayLayers: 1},
		Format: gputypes.TextureFormatRGBA8Unorm,
	})
	if err == nil {
		t.Error("expected error for texture above the limit")
	}
	if d.Created() != 0 {
		t.Errorf("Created() = %d after failures", d.Created())
	}
}

func TestCreateVertexBuffer(t *testing.T) {
	d := NewDevice(testLimits())
	res, err := d.CreateVertexBuffer(batchtable.VertexBufferDescriptor{
		Format:      gputypes.VertexFormatUnorm8x4,
		VertexCount: 5,
	})
	if err != nil {
		t.Fatalf("CreateVertexBuffer failed: %v", err)
	}
	r := res.(*Resource)
	if r.Kind != batchtable.ResourceVertexAttribute || r.Width != 5 || len(r.Data) != 20 {
		t.Errorf("resource = %+v", r)
	}
	if _, err := r.Image(); !errors.Is(err, ErrNotTexture) {
		t.Errorf("Image() on vertex buffer: expected ErrNotTexture, got %v", err)
	}

	_, err = d.CreateVertexBuffer(batchtable.VertexBufferDescriptor{
		Format:      gputypes.VertexFormatFloat32x2,
		VertexCount: 5,
	})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestUploadAndRelease(t *testing.T) {
	d := NewDevice(testLimits())
	res, _ := d.CreateTexture(batchtable.TextureDescriptor{
		Size:   gputypes.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		Format: gputypes.TextureFormatRGBA8Unorm,
	})
	r := res.(*Resource)

	if err := r.Upload([]byte{1, 2, 3}); !errors.Is(err, ErrUploadSize) {
		t.Errorf("expected ErrUploadSize, got %v", err)
	}
	if err := r.Upload([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if r.Value(0) != [4]byte{1, 2, 3, 4} || r.Uploads != 1 {
		t.Errorf("Value(0) = %v, Uploads = %d", r.Value(0), r.Uploads)
	}

	img, err := r.Image()
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if c := img.RGBAAt(0, 0); c.R != 1 || c.A != 4 {
		t.Errorf("pixel = %v", c)
	}

	r.Release()
	if d.Live() != 0 {
		t.Errorf("Live() = %d after release", d.Live())
	}
	if err := r.Upload([]byte{1, 2, 3, 4}); !errors.Is(err, ErrReleased) {
		t.Errorf("expected ErrReleased, got %v", err)
	}
}

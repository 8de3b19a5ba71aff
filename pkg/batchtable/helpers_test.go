package batchtable

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// fakeDevice records created resources without touching a GPU.
type fakeDevice struct {
	limits    Limits
	textures  []*fakeResource
	buffers   []*fakeResource
	createErr error
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{limits: Limits{MaxTextureSize: 4096, MaxVertexTextureImageUnits: 16}}
}

func (d *fakeDevice) Limits() Limits { return d.limits }

func (d *fakeDevice) CreateTexture(desc TextureDescriptor) (Resource, error) {
	if d.createErr != nil {
		return nil, d.createErr
	}
	r := &fakeResource{width: int(desc.Size.Width), height: int(desc.Size.Height)}
	d.textures = append(d.textures, r)
	return r, nil
}

func (d *fakeDevice) CreateVertexBuffer(desc VertexBufferDescriptor) (Resource, error) {
	if d.createErr != nil {
		return nil, d.createErr
	}
	r := &fakeResource{width: desc.VertexCount, height: 1}
	d.buffers = append(d.buffers, r)
	return r, nil
}

type fakeResource struct {
	width, height int
	data          []byte
	uploads       int
	released      bool
}

func (r *fakeResource) Upload(data []byte) error {
	if r.released {
		return errors.New("released")
	}
	r.data = append(r.data[:0], data...)
	r.uploads++
	return nil
}

func (r *fakeResource) Release() { r.released = true }

func (r *fakeResource) value(i int) [4]byte {
	var v [4]byte
	copy(v[:], r.data[i*4:])
	return v
}

// concatLE packs every value little-endian, back to back.
func concatLE(values ...any) []byte {
	buf := new(bytes.Buffer)
	for _, v := range values {
		if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

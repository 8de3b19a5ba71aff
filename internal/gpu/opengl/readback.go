package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/tilebatch/pkg/batchtable"
)

// The readback draws one point per value. Each point's color is the override
// value as the vertex stage sees it: fetched from the override texture at
// (id % width, id / width), or read from the override attribute.
const readbackVertexShader = `#version 410 core
layout(location = 0) in vec4 a_override;

uniform sampler2D u_overrides;
uniform bool u_texture;
uniform int u_textureWidth;
uniform int u_gridWidth;
uniform int u_gridHeight;

out vec4 v_color;

void main() {
	int id = gl_VertexID;
	if (u_texture) {
		v_color = texelFetch(u_overrides, ivec2(id % u_textureWidth, id / u_textureWidth), 0);
	} else {
		v_color = a_override;
	}
	vec2 cell = vec2(id % u_gridWidth, id / u_gridWidth) + 0.5;
	gl_Position = vec4(cell / vec2(u_gridWidth, u_gridHeight) * 2.0 - 1.0, 0.0, 1.0);
	gl_PointSize = 1.0;
}
`

const readbackFragmentShader = `#version 410 core
in vec4 v_color;
out vec4 fragColor;

void main() {
	fragColor = v_color;
}
`

const readbackGridWidth = 256

// readbackGrid returns the render target size holding count points.
func readbackGrid(count int) (width, height int) {
	width = min(count, readbackGridWidth)
	if width < 1 {
		return 1, 1
	}
	return width, (count + width - 1) / width
}

// ReadOverrides renders count override values through the vertex stage and
// reads them back. count is the number of features for a texture and the
// number of vertices for a vertex attribute.
func (d *Device) ReadOverrides(r batchtable.OverrideResource, count int) ([][4]byte, error) {
	if count < 1 {
		return nil, nil
	}

	prog, err := newProgram(
		stage{gl.VERTEX_SHADER, readbackVertexShader},
		stage{gl.FRAGMENT_SHADER, readbackFragmentShader},
	)
	if err != nil {
		return nil, err
	}
	defer prog.delete()

	gw, gh := readbackGrid(count)
	fb, err := newFramebuffer(int32(gw), int32(gh))
	if err != nil {
		return nil, err
	}
	defer fb.destroy()

	var vao uint32
	gl.GenVertexArrays(1, &vao)
	defer gl.DeleteVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	prog.use()
	prog.setInt("u_gridWidth", gw)
	prog.setInt("u_gridHeight", gh)

	switch res := r.Resource.(type) {
	case *Texture:
		if count > r.Width*r.Height {
			return nil, fmt.Errorf("texture holds %d values, asked for %d", r.Width*r.Height, count)
		}
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, res.id)
		prog.setInt("u_overrides", 0)
		prog.setInt("u_texture", 1)
		prog.setInt("u_textureWidth", r.Width)
	case *VertexBuffer:
		if count > res.size/4 {
			return nil, fmt.Errorf("vertex buffer holds %d values, asked for %d", res.size/4, count)
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, res.id)
		gl.VertexAttribPointerWithOffset(0, 4, gl.UNSIGNED_BYTE, true, 4, 0)
		gl.EnableVertexAttribArray(0)
		prog.setInt("u_texture", 0)
	default:
		return nil, fmt.Errorf("%w: %T is not an OpenGL override resource", ErrUnsupported, r.Resource)
	}

	restore := fb.bind()
	gl.Disable(gl.BLEND)
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.DrawArrays(gl.POINTS, 0, int32(count))
	restore()

	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	gl.UseProgram(0)

	if e := gl.GetError(); e != gl.NO_ERROR {
		return nil, fmt.Errorf("readback draw: GL error 0x%x", e)
	}

	pixels := fb.readPixels()
	values := make([][4]byte, count)
	for i := range values {
		copy(values[i][:], pixels[i*4:])
	}
	d.log.Debug("read overrides back", zap.Stringer("kind", r.Kind), zap.Int("count", count))
	return values, nil
}

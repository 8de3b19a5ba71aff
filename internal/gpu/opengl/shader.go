package opengl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// stage is the source of one shader stage.
type stage struct {
	kind   uint32 // gl.VERTEX_SHADER or gl.FRAGMENT_SHADER
	source string
}

func (s stage) String() string {
	if s.kind == gl.VERTEX_SHADER {
		return "vertex"
	}
	return "fragment"
}

// program is a linked GL program with cached integer uniform locations.
type program struct {
	id       uint32
	uniforms map[string]int32
}

// newProgram compiles every stage and links them. Stage objects are
// deleted once linked.
func newProgram(stages ...stage) (*program, error) {
	id := gl.CreateProgram()
	for _, s := range stages {
		shader, err := compileStage(s)
		if err != nil {
			gl.DeleteProgram(id)
			return nil, err
		}
		gl.AttachShader(id, shader)
		defer gl.DeleteShader(shader)
	}
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &n)
		log := infoLog(n, func(buf *uint8) { gl.GetProgramInfoLog(id, n, nil, buf) })
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("%w: link: %s", ErrShader, log)
	}
	return &program{id: id, uniforms: make(map[string]int32)}, nil
}

func compileStage(s stage) (uint32, error) {
	shader := gl.CreateShader(s.kind)
	src, free := gl.Strs(s.source + "\x00")
	gl.ShaderSource(shader, 1, src, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &n)
		log := infoLog(n, func(buf *uint8) { gl.GetShaderInfoLog(shader, n, nil, buf) })
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%w: %s stage: %s", ErrShader, s, log)
	}
	return shader, nil
}

// infoLog reads a driver log of n bytes (including the terminator).
func infoLog(n int32, read func(*uint8)) string {
	if n < 1 {
		return "no driver log"
	}
	buf := make([]byte, n+1)
	read(&buf[0])
	return strings.TrimRight(string(buf), "\x00\n ")
}

func (p *program) use() {
	gl.UseProgram(p.id)
}

// setInt sets an int or sampler uniform. Uniforms the compiler optimized
// away have location -1, which GL ignores.
func (p *program) setInt(name string, v int) {
	loc, ok := p.uniforms[name]
	if !ok {
		loc = gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
		p.uniforms[name] = loc
	}
	gl.Uniform1i(loc, int32(v))
}

func (p *program) delete() {
	gl.DeleteProgram(p.id)
	p.id = 0
}

// batchtool is a CLI utility for inspecting and styling b3dm batch tables.
package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Faultbox/tilebatch/internal/config"
	"github.com/Faultbox/tilebatch/internal/gpu/memory"
	"github.com/Faultbox/tilebatch/internal/gpu/opengl"
	"github.com/Faultbox/tilebatch/internal/logger"
	"github.com/Faultbox/tilebatch/internal/window"
	"github.com/Faultbox/tilebatch/pkg/batchtable"
	"github.com/Faultbox/tilebatch/pkg/formats"
	"github.com/Faultbox/tilebatch/pkg/property"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "props", "p":
		cmdProps(args)
	case "limits":
		cmdLimits(args)
	case "update":
		cmdUpdate(args)
	case "dump":
		cmdDump(args)
	case "sample":
		cmdSample(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`batchtool - b3dm batch table utility

Usage:
  batchtool <command> [options]

Commands:
  info <tile.b3dm>                      Show header, tables and properties
  props <tile.b3dm> [-id N]             Print feature properties
  limits [-gl]                          Show override device limits
  update <tile.b3dm> [style] [-gl]      Apply a style and upload overrides
                     [-verify]          Read them back through a vertex shader
  dump <tile.b3dm> -o out.bmp [style]   Write the override texture as BMP
  sample -o tile.b3dm [-n N]            Write a sample tile
  config [-o path]                      Write the effective config

Style options:
  -color <name|r,g,b>[,a]   Feature color
  -ids <1,4-6>              Features to color (default: all)
  -hide <1,4-6>             Features to hide

Common options:
  -config <path>  -debug  -log <file>  -max-texture-size N  -no-vtf  -scale N

Examples:
  batchtool sample -o tile.b3dm -n 10
  batchtool update tile.b3dm -color red -ids 0-3 -hide 5 -max-texture-size 3
  batchtool dump tile.b3dm -o overrides.bmp -color 1,0,0,0.5 -scale 16`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	logger.Sync()
	os.Exit(1)
}

// parseArgs parses flags placed before, between or after positional
// arguments and returns the positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) []string {
	var pos []string
	for {
		fs.Parse(args)
		if fs.NArg() == 0 {
			return pos
		}
		pos = append(pos, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

// setup parses the command flags and loads config and logging.
func setup(fs *flag.FlagSet, args []string) (*config.Config, []string) {
	flags := config.RegisterFlags(fs)
	pos := parseArgs(fs, args)

	cfg, err := config.Load(flags)
	if err != nil {
		fatalf("%v", err)
	}
	if err := logger.Init(cfg.Logging.Options()); err != nil {
		fatalf("initializing logger: %v", err)
	}
	return cfg, pos
}

type styleFlags struct {
	color, ids, hide *string
}

func registerStyleFlags(fs *flag.FlagSet) styleFlags {
	return styleFlags{
		color: fs.String("color", "", "Feature color: name[,a] or r,g,b[,a]"),
		ids:   fs.String("ids", "", "Batch ids to color (default: all)"),
		hide:  fs.String("hide", "", "Batch ids to hide"),
	}
}

func (f styleFlags) parse() *style {
	st, err := parseStyle(*f.color, *f.ids, *f.hide)
	if err != nil {
		fatalf("%v", err)
	}
	return st
}

func loadTile(path string) (*formats.B3DM, *batchtable.BatchTable) {
	tile, err := formats.ParseB3DMFile(path)
	if err != nil {
		fatalf("%v", err)
	}
	_, bt, err := tile.Tables(nil)
	if err != nil {
		fatalf("%s: %v", path, err)
	}
	return tile, bt
}

// openDevice returns the in-memory device, or a GL device in a hidden window
// when useGL is set. The returned func releases the window.
func openDevice(cfg *config.Config, useGL bool) (batchtable.Device, func()) {
	limits := cfg.Limits.Batch()
	if !useGL {
		return memory.NewDevice(limits), func() {}
	}

	w, err := window.New(window.Config{Title: "batchtool", Width: 1, Height: 1, Hidden: true})
	if err != nil {
		fatalf("%v", err)
	}
	dev, err := opengl.NewDevice(&limits)
	if err != nil {
		w.Close()
		fatalf("%v", err)
	}
	return dev, w.Close
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	_, pos := setup(fs, args)

	if len(pos) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: batchtool info <tile.b3dm>")
		os.Exit(1)
	}
	tile, bt := loadTile(pos[0])
	defer bt.Destroy()

	p := message.NewPrinter(language.English)
	p.Printf("Tile:     %s\n", pos[0])
	p.Printf("Version:  %d (%s header)\n", tile.Version, tile.Layout)
	p.Printf("Size:     %d bytes\n", tile.ByteLength)
	p.Printf("Features: %d\n", bt.FeaturesLength())
	if center, err := rtcCenter(tile); err != nil {
		fatalf("%v", err)
	} else if center != nil {
		p.Printf("RTC:      %.3f\n", center)
	}
	fmt.Println()
	fmt.Println("Sections:")
	p.Printf("  %-22s %d bytes\n", "feature table JSON", len(tile.FeatureTableJSON))
	p.Printf("  %-22s %d bytes\n", "feature table binary", len(tile.FeatureTableBinary))
	p.Printf("  %-22s %d bytes\n", "batch table JSON", len(tile.BatchTableJSON))
	p.Printf("  %-22s %d bytes\n", "batch table binary", len(tile.BatchTableBinary))
	p.Printf("  %-22s %d bytes\n", "glTF", len(tile.GLB))

	names := bt.PropertyNames()
	if len(names) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Properties:")
	for _, name := range names {
		if d, ok := bt.PropertyDescriptor(name); ok {
			p.Printf("  %-22s binary %s %s @ %d (%d bytes)\n", name, d.ComponentType, d.Shape, d.ByteOffset, d.ByteLength(bt.FeaturesLength()))
		} else {
			fmt.Printf("  %-22s inline\n", name)
		}
	}
}

// rtcCenter returns the feature table's RTC_CENTER, or nil if the tile has
// none.
func rtcCenter(tile *formats.B3DM) ([]float64, error) {
	ft, err := tile.FeatureTable()
	if err != nil {
		return nil, err
	}
	if !ft.Has("RTC_CENTER") {
		return nil, nil
	}
	v, err := ft.GlobalProperty("RTC_CENTER", property.Float, 3)
	if err != nil {
		return nil, err
	}
	var center []float64
	switch c := v.(type) {
	case []float64:
		center = c
	case []any:
		for _, x := range c {
			f, ok := x.(float64)
			if !ok {
				return nil, fmt.Errorf("RTC_CENTER component %v is not a number", x)
			}
			center = append(center, f)
		}
	}
	if len(center) != 3 {
		return nil, fmt.Errorf("RTC_CENTER has %d components, want 3", len(center))
	}
	return center, nil
}

func cmdProps(args []string) {
	fs := flag.NewFlagSet("props", flag.ExitOnError)
	id := fs.Int("id", -1, "Only print this batch id")
	_, pos := setup(fs, args)

	if len(pos) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: batchtool props <tile.b3dm> [-id N]")
		os.Exit(1)
	}
	_, bt := loadTile(pos[0])
	defer bt.Destroy()
	if *id >= bt.FeaturesLength() {
		fatalf("batch id %d out of range, tile has %d features", *id, bt.FeaturesLength())
	}

	err := bt.ForEachFeature(func(f *batchtable.Feature) error {
		if *id >= 0 && f.BatchID() != *id {
			return nil
		}
		fmt.Printf("feature %d\n", f.BatchID())
		for _, name := range f.PropertyNames() {
			v, err := f.Property(name)
			if err != nil {
				return err
			}
			fmt.Printf("  %-20s %v\n", name, v)
		}
		return nil
	})
	if err != nil {
		fatalf("%v", err)
	}
}

func cmdLimits(args []string) {
	fs := flag.NewFlagSet("limits", flag.ExitOnError)
	useGL := fs.Bool("gl", false, "Query an OpenGL driver")
	n := fs.Int("n", 0, "Also report the encoding for N features")
	cfg, _ := setup(fs, args)

	dev, closeDevice := openDevice(cfg, *useGL)
	defer closeDevice()

	limits := dev.Limits()
	p := message.NewPrinter(language.English)
	p.Printf("Max texture size:               %d\n", limits.MaxTextureSize)
	p.Printf("Max vertex texture image units: %d\n", limits.MaxVertexTextureImageUnits)
	fmt.Printf("Vertex texture fetch:           %v\n", limits.VertexTextureFetch())

	if *n > 0 {
		if d, ok := batchtable.TextureDimensions(*n, limits.MaxTextureSize); ok && limits.VertexTextureFetch() {
			p.Printf("%d features:  %dx%d texture\n", *n, d, d)
		} else {
			p.Printf("%d features:  vertex attribute\n", *n)
		}
	}
}

func cmdUpdate(args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	useGL := fs.Bool("gl", false, "Upload to an OpenGL driver")
	verify := fs.Bool("verify", false, "Read overrides back through the vertex stage (requires -gl)")
	sf := registerStyleFlags(fs)
	cfg, pos := setup(fs, args)

	if len(pos) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: batchtool update <tile.b3dm> [style] [-gl [-verify]]")
		os.Exit(1)
	}
	if *verify && !*useGL {
		fatalf("-verify requires -gl")
	}
	st := sf.parse()
	_, bt := loadTile(pos[0])
	defer bt.Destroy()

	dev, closeDevice := openDevice(cfg, *useGL)
	defer closeDevice()

	r, err := styleAndUpdate(bt, st, dev)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("State:    %s\n", bt.State())
	if r.Kind == batchtable.ResourceNone {
		fmt.Println("Resource: none (all features use defaults)")
		return
	}
	fmt.Printf("Resource: %s %dx%d\n", r.Kind, r.Width, r.Height)

	if *verify {
		want, err := expectedOverrides(bt)
		if err != nil {
			fatalf("%v", err)
		}
		got, err := dev.(*opengl.Device).ReadOverrides(r, len(want))
		if err != nil {
			fatalf("%v", err)
		}
		if mismatches := compareOverrides(got, want); len(mismatches) > 0 {
			for _, m := range mismatches {
				fmt.Fprintln(os.Stderr, m)
			}
			fatalf("%d of %d features differ", len(mismatches), len(want))
		}
		fmt.Printf("Verified: %d features\n", len(want))
	}
}

// expectedOverrides returns each feature's override value as the shader
// should see it.
func expectedOverrides(bt *batchtable.BatchTable) ([][4]byte, error) {
	values := make([][4]byte, bt.FeaturesLength())
	for i := range values {
		c, err := bt.Color(i)
		if err != nil {
			return nil, err
		}
		show, err := bt.Show(i)
		if err != nil {
			return nil, err
		}
		values[i] = c.Bytes()
		if !show {
			values[i][3] = 0
		}
	}
	return values, nil
}

func compareOverrides(got, want [][4]byte) []string {
	var out []string
	for i := range want {
		if i >= len(got) {
			out = append(out, fmt.Sprintf("feature %d: missing", i))
			continue
		}
		if got[i] != want[i] {
			out = append(out, fmt.Sprintf("feature %d: got %v, want %v", i, got[i], want[i]))
		}
	}
	return out
}

// styleAndUpdate applies st and runs one frame's update.
func styleAndUpdate(bt *batchtable.BatchTable, st *style, dev batchtable.Device) (batchtable.OverrideResource, error) {
	if err := st.apply(bt); err != nil {
		return batchtable.OverrideResource{}, err
	}
	if err := bt.Update(&batchtable.FrameState{Device: dev, FrameNumber: 1}); err != nil {
		return batchtable.OverrideResource{}, err
	}
	return bt.OverrideResource(), nil
}

// imager is a resource that can be read back as an image.
type imager interface {
	Image() (*image.RGBA, error)
}

var errNoTexture = errors.New("overrides are not stored in a texture")

// overrideImage reads the override texture back, upscaled by scale.
func overrideImage(r batchtable.OverrideResource, scale int) (*image.RGBA, error) {
	if r.Kind != batchtable.ResourceTexture {
		return nil, fmt.Errorf("%w: resource is %s", errNoTexture, r.Kind)
	}
	src, ok := r.Resource.(imager)
	if !ok {
		return nil, fmt.Errorf("%w: %T cannot be read back", errNoTexture, r.Resource)
	}
	img, err := src.Image()
	if err != nil {
		return nil, err
	}
	if scale <= 1 {
		return img, nil
	}

	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}

func writeBMP(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bmp.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

func cmdDump(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	output := fs.String("o", "overrides.bmp", "Output BMP path")
	useGL := fs.Bool("gl", false, "Round-trip through an OpenGL driver")
	sf := registerStyleFlags(fs)
	cfg, pos := setup(fs, args)

	if len(pos) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: batchtool dump <tile.b3dm> -o out.bmp [style]")
		os.Exit(1)
	}
	st := sf.parse()
	_, bt := loadTile(pos[0])
	defer bt.Destroy()

	dev, closeDevice := openDevice(cfg, *useGL)
	defer closeDevice()

	r, err := styleAndUpdate(bt, st, dev)
	if err != nil {
		fatalf("%v", err)
	}
	if r.Kind == batchtable.ResourceNone {
		fmt.Println("No overrides: every feature uses the default color")
		return
	}
	img, err := overrideImage(r, cfg.Output.Scale)
	if err != nil {
		fatalf("%v", err)
	}
	if err := writeBMP(*output, img); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Wrote: %s (%dx%d texels)\n", *output, r.Width, r.Height)
}

// sampleTile builds a tile with n features carrying inline and binary
// properties of several shapes.
func sampleTile(n int) (*formats.B3DM, error) {
	ids := make([]any, n)
	names := make([]any, n)
	heights := make([]float32, n)
	centers := make([]float32, 3*n)
	for i := 0; i < n; i++ {
		ids[i] = i
		names[i] = fmt.Sprintf("building%d", i)
		heights[i] = float32(10 + 5*i)
		centers[3*i], centers[3*i+1], centers[3*i+2] = float32(i), float32(2*i), 0
	}

	body := new(bytes.Buffer)
	binary.Write(body, binary.LittleEndian, heights)
	centerOffset := body.Len()
	binary.Write(body, binary.LittleEndian, centers)

	glb := new(bytes.Buffer)
	glb.WriteString("glTF")
	binary.Write(glb, binary.LittleEndian, []uint32{2, 12})

	return formats.NewB3DM(
		map[string]any{"BATCH_LENGTH": n, "RTC_CENTER": sampleRTCCenter},
		map[string]any{
			"id":     ids,
			"name":   names,
			"height": map[string]any{"byteOffset": 0, "componentType": "FLOAT", "type": "SCALAR"},
			"center": map[string]any{"byteOffset": centerOffset, "componentType": "FLOAT", "type": "VEC3"},
		},
		body.Bytes(),
		glb.Bytes(),
	)
}

var sampleRTCCenter = []float64{1215012.8, -4736313.1, 4081605.2}

func cmdSample(args []string) {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	output := fs.String("o", "sample.b3dm", "Output tile path")
	n := fs.Int("n", 10, "Number of features")
	setup(fs, args)

	if *n < 0 {
		fatalf("feature count must not be negative")
	}
	tile, err := sampleTile(*n)
	if err != nil {
		fatalf("%v", err)
	}
	if err := os.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		fatalf("creating directory: %v", err)
	}
	data := tile.Encode()
	if err := os.WriteFile(*output, data, 0644); err != nil {
		fatalf("writing tile: %v", err)
	}
	fmt.Printf("Wrote: %s (%d features, %d bytes)\n", *output, *n, len(data))
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	output := fs.String("o", "", "Output path (default: user config directory)")
	cfg, _ := setup(fs, args)

	if *output == "" {
		*output = config.DefaultPath()
	}
	if err := cfg.SaveTo(*output); err != nil {
		fatalf("saving config: %v", err)
	}
	fmt.Printf("Wrote: %s\n", *output)
}

// Package color provides the normalized RGBA color used for per-feature
// color overrides.
package color

import "fmt"

// Color represents an RGBA color with float components (0.0 to 1.0).
type Color struct {
	R, G, B, A float64
}

// Predefined colors.
var (
	Transparent = Color{0, 0, 0, 0}

	White  = Color{1, 1, 1, 1}
	Black  = Color{0, 0, 0, 1}
	Red    = Color{1, 0, 0, 1}
	Green  = Color{0, 1, 0, 1}
	Blue   = Color{0, 0, 1, 1}
	Yellow = Color{1, 1, 0, 1}
)

// FloatToByte converts a component in [0, 1] to a byte.
// 1.0 maps to 255; everything else maps to floor(f*256), clamped.
func FloatToByte(f float64) uint8 {
	if f >= 1.0 {
		return 255
	}
	if f <= 0 {
		return 0
	}
	return uint8(f * 256.0)
}

// ByteToFloat converts a byte component to [0, 1].
func ByteToFloat(b uint8) float64 {
	return float64(b) / 255.0
}

// RGBA creates a color from 8-bit RGBA values (0-255).
func RGBA(r, g, b, a uint8) Color {
	return Color{
		R: ByteToFloat(r),
		G: ByteToFloat(g),
		B: ByteToFloat(b),
		A: ByteToFloat(a),
	}
}

// FromBytes creates a color from packed RGBA bytes.
func FromBytes(rgba [4]uint8) Color {
	return RGBA(rgba[0], rgba[1], rgba[2], rgba[3])
}

// Bytes returns the color packed as RGBA bytes.
func (c Color) Bytes() [4]uint8 {
	return [4]uint8{
		FloatToByte(c.R),
		FloatToByte(c.G),
		FloatToByte(c.B),
		FloatToByte(c.A),
	}
}

// WithAlpha returns a copy of the color with a different alpha value.
func (c Color) WithAlpha(a float64) Color {
	return Color{c.R, c.G, c.B, a}
}

// String returns the color as "rgba(r, g, b, a)" with byte components.
func (c Color) String() string {
	b := c.Bytes()
	return fmt.Sprintf("rgba(%d, %d, %d, %d)", b[0], b[1], b[2], b[3])
}

package batchtable

import "math"

// TextureDimensions returns the side d of the smallest square texture with
// d*d >= featuresLength. ok is false when d would exceed maxTextureSize, in
// which case overrides must be encoded per vertex.
func TextureDimensions(featuresLength, maxTextureSize int) (d int, ok bool) {
	if featuresLength <= 1 {
		return 1, maxTextureSize >= 1
	}

	d = int(math.Ceil(math.Sqrt(float64(featuresLength))))
	for d*d < featuresLength {
		d++
	}
	for d > 1 && (d-1)*(d-1) >= featuresLength {
		d--
	}

	if d > maxTextureSize {
		return 0, false
	}
	return d, true
}

// fallbackReason returns why the texture path cannot be used, or "" if it can.
func fallbackReason(limits Limits, featuresLength int) string {
	if !limits.VertexTextureFetch() {
		return "vertex texture fetch unsupported"
	}
	if _, ok := TextureDimensions(featuresLength, limits.MaxTextureSize); !ok {
		return "features exceed maximum texture size"
	}
	return ""
}

package capture

import "math"

// Display gamma used around the HDR tone curve. Decoding uses 1/0.4545,
// which is the same exponent the compositing program hard-codes.
const (
	hdrDecodeGamma = 1 / 0.4545
	hdrEncodeGamma = 1 / 2.2
)

// ACES applies the fitted ACES filmic curve (Narkowicz). ACES(1) ≈ 0.80.
func ACES(x float64) float64 {
	const (
		a = 2.51
		b = 0.03
		c = 2.43
		d = 0.59
		e = 0.14
	)
	if x <= 0 {
		return 0
	}
	return saturate((x * (a*x + b)) / (x*(c*x+d) + e))
}

// ToneMapHDR maps one HDR channel value to standard range.
func ToneMapHDR(v float64) float64 {
	if v <= 0 {
		return 0
	}
	lin := math.Pow(v, hdrDecodeGamma)
	return saturate(math.Pow(ACES(lin), hdrEncodeGamma))
}

// ScaleSDRValue applies the white level ratio to one SDR channel value.
func ScaleSDRValue(v, white, reference float64) float64 {
	if reference <= 0 {
		return saturate(v)
	}
	return saturate(v * white / reference)
}

// Shade converts one source color to the canvas color. rgb is read from the
// source texture as normalized floats.
func (p Params) Shade(r, g, b float64) (float64, float64, float64) {
	switch {
	case p.HDR:
		return ToneMapHDR(r), ToneMapHDR(g), ToneMapHDR(b)
	case p.ScaleSDR:
		w, ref := float64(p.WhiteLevel), float64(p.ReferenceWhite)
		return ScaleSDRValue(r, w, ref), ScaleSDRValue(g, w, ref), ScaleSDRValue(b, w, ref)
	default:
		return saturate(r), saturate(g), saturate(b)
	}
}

// UNorm8 quantizes a [0,1] value the way a UNORM render target does.
func UNorm8(v float64) byte {
	return byte(math.Floor(saturate(v)*255 + 0.5))
}

func saturate(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package soft

import (
	"encoding/binary"

	"github.com/x448/float16"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
)

// pitchAlign mimics the row alignment of mapped D3D11 staging textures, so
// readback always goes through the row-pitch-aware copy.
const pitchAlign = 256

type texture struct {
	w, h   int
	format capture.PixelFormat
	pitch  int
	data   []byte
}

func newTexture(w, h int, format capture.PixelFormat) *texture {
	bpp := 4
	if format == capture.FormatRGBA16F {
		bpp = 8
	}
	pitch := (w*bpp + pitchAlign - 1) / pitchAlign * pitchAlign
	return &texture{w: w, h: h, format: format, pitch: pitch, data: make([]byte, pitch*h)}
}

func (t *texture) offset(x, y int) int {
	if t.format == capture.FormatRGBA16F {
		return y*t.pitch + x*8
	}
	return y*t.pitch + x*4
}

// load returns the normalized color of texel (x, y).
func (t *texture) load(x, y int) (r, g, b float64) {
	i := t.offset(x, y)
	if t.format == capture.FormatRGBA16F {
		le := binary.LittleEndian
		r = float64(float16.Frombits(le.Uint16(t.data[i:])).Float32())
		g = float64(float16.Frombits(le.Uint16(t.data[i+2:])).Float32())
		b = float64(float16.Frombits(le.Uint16(t.data[i+4:])).Float32())
		return r, g, b
	}
	return float64(t.data[i+2]) / 255, float64(t.data[i+1]) / 255, float64(t.data[i]) / 255
}

func (t *texture) store(x, y int, r, g, b float64) {
	i := t.offset(x, y)
	if t.format == capture.FormatRGBA16F {
		le := binary.LittleEndian
		le.PutUint16(t.data[i:], float16.Fromfloat32(float32(r)).Bits())
		le.PutUint16(t.data[i+2:], float16.Fromfloat32(float32(g)).Bits())
		le.PutUint16(t.data[i+4:], float16.Fromfloat32(float32(b)).Bits())
		le.PutUint16(t.data[i+6:], float16.Fromfloat32(1).Bits())
		return
	}
	t.data[i] = capture.UNorm8(b)
	t.data[i+1] = capture.UNorm8(g)
	t.data[i+2] = capture.UNorm8(r)
	t.data[i+3] = 0xFF
}

func (t *texture) fill(px [4]byte) {
	for y := 0; y < t.h; y++ {
		row := t.data[y*t.pitch : y*t.pitch+t.w*4]
		for x := 0; x < len(row); x += 4 {
			copy(row[x:x+4], px[:])
		}
	}
}

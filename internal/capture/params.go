package capture

import (
	"encoding/binary"
	"image"
	"math"
)

// ParamsSize is the byte size of the constant buffer Params packs into.
const ParamsSize = 64

// Params are the per-monitor values pushed to the compositing program right
// before its dispatch. The affine transform maps a source texel (x, y) to the
// canvas texel (A*x + B*y + TX, C*x + D*y + TY).
type Params struct {
	A, B, TX float32
	C, D, TY float32

	WhiteLevel     float32
	ReferenceWhite float32
	HDR            bool
	ScaleSDR       bool

	SrcWidth, SrcHeight       uint32
	CanvasWidth, CanvasHeight uint32
}

// NewParams computes the parameters for one monitor. srcW and srcH are the
// native frame size; region is the captured virtual-desktop rectangle, whose
// origin maps to canvas (0, 0).
//
// The rotation is applied about the source origin and then shifted by the
// pivot so that the rotated frame covers exactly the monitor's desktop
// rectangle. Rotations undo DXGI's native orientation: a 90° monitor's
// native row 0 becomes the rightmost desktop column, so texel (0, 0) lands
// at (X+H-1, Y) rather than at the monitor origin.
func NewParams(desc Descriptor, srcW, srcH int, region image.Rectangle, white float64, opts Options) Params {
	x := float32(desc.Bounds.Min.X - region.Min.X)
	y := float32(desc.Bounds.Min.Y - region.Min.Y)
	w := float32(srcW)
	h := float32(srcH)

	p := Params{
		WhiteLevel:     float32(white),
		ReferenceWhite: float32(opts.ReferenceWhite),
		HDR:            desc.ColorSpace.HDR(),
		ScaleSDR:       opts.ScaleSDR,
		SrcWidth:       uint32(srcW),
		SrcHeight:      uint32(srcH),
		CanvasWidth:    uint32(region.Dx()),
		CanvasHeight:   uint32(region.Dy()),
	}

	switch desc.Rotation {
	case Rotate90:
		p.A, p.B, p.TX = 0, -1, x+h-1
		p.C, p.D, p.TY = 1, 0, y
	case Rotate180:
		p.A, p.B, p.TX = -1, 0, x+w-1
		p.C, p.D, p.TY = 0, -1, y+h-1
	case Rotate270:
		p.A, p.B, p.TX = 0, 1, x
		p.C, p.D, p.TY = -1, 0, y+w-1
	default:
		p.A, p.B, p.TX = 1, 0, x
		p.C, p.D, p.TY = 0, 1, y
	}
	return p
}

// Map returns the canvas texel for source texel (x, y) and whether it lies
// inside the canvas.
func (p Params) Map(x, y int) (dx, dy int, ok bool) {
	fx, fy := float32(x), float32(y)
	dx = int(math.Round(float64(p.A*fx + p.B*fy + p.TX)))
	dy = int(math.Round(float64(p.C*fx + p.D*fy + p.TY)))
	ok = dx >= 0 && dy >= 0 && dx < int(p.CanvasWidth) && dy < int(p.CanvasHeight)
	return dx, dy, ok
}

// Groups returns the dispatch grid for 16x16 thread groups covering the
// source extent.
func (p Params) Groups() (x, y uint32) {
	return (p.SrcWidth + 15) / 16, (p.SrcHeight + 15) / 16
}

// MarshalBinary packs the parameters in the constant buffer layout:
//
//	float4 row0     (A, B, TX, 0)
//	float4 row1     (C, D, TY, 0)
//	float  white, reference; uint hdr, scaleSdr
//	uint4  srcW, srcH, canvasW, canvasH
func (p Params) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, ParamsSize)
	le := binary.LittleEndian
	for _, f := range []float32{p.A, p.B, p.TX, 0, p.C, p.D, p.TY, 0, p.WhiteLevel, p.ReferenceWhite} {
		buf = le.AppendUint32(buf, math.Float32bits(f))
	}
	buf = le.AppendUint32(buf, boolToUint32(p.HDR))
	buf = le.AppendUint32(buf, boolToUint32(p.ScaleSDR))
	buf = le.AppendUint32(buf, p.SrcWidth)
	buf = le.AppendUint32(buf, p.SrcHeight)
	buf = le.AppendUint32(buf, p.CanvasWidth)
	buf = le.AppendUint32(buf, p.CanvasHeight)
	return buf, nil
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

package capture

import (
	"encoding/binary"
	"image"
	"math"
	"testing"
)

func TestNewParamsRotationMapping(t *testing.T) {
	const x, y = 1920, 0
	region := image.Rect(0, 0, 3000, 1920)

	tests := []struct {
		name     string
		rotation Rotation
		bounds   image.Rectangle
		srcW     int
		srcH     int
		texels   map[image.Point]image.Point
	}{
		{
			name:     "identity",
			rotation: Rotate0,
			bounds:   image.Rect(x, y, x+1080, y+1920),
			srcW:     1080,
			srcH:     1920,
			texels: map[image.Point]image.Point{
				{0, 0}:       {x, y},
				{1079, 1919}: {x + 1079, y + 1919},
			},
		},
		{
			name:     "rotate90",
			rotation: Rotate90,
			bounds:   image.Rect(x, y, x+1080, y+1920),
			srcW:     1920,
			srcH:     1080,
			texels: map[image.Point]image.Point{
				{0, 0}:       {x + 1079, y},
				{1919, 0}:    {x + 1079, y + 1919},
				{0, 1079}:    {x, y},
				{1919, 1079}: {x, y + 1919},
			},
		},
		{
			name:     "rotate180",
			rotation: Rotate180,
			bounds:   image.Rect(x, y, x+1080, y+1920),
			srcW:     1080,
			srcH:     1920,
			texels: map[image.Point]image.Point{
				{0, 0}:       {x + 1079, y + 1919},
				{1079, 1919}: {x, y},
			},
		},
		{
			name:     "rotate270",
			rotation: Rotate270,
			bounds:   image.Rect(x, y, x+1080, y+1920),
			srcW:     1920,
			srcH:     1080,
			texels: map[image.Point]image.Point{
				{0, 0}:    {x, y + 1919},
				{1919, 0}: {x, y},
				{0, 1079}: {x + 1079, y + 1919},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := Descriptor{Bounds: tt.bounds, Rotation: tt.rotation}
			p := NewParams(desc, tt.srcW, tt.srcH, region, 200, DefaultOptions())
			for src, want := range tt.texels {
				dx, dy, ok := p.Map(src.X, src.Y)
				if !ok || dx != want.X || dy != want.Y {
					t.Fatalf("Map(%v) = (%d,%d,%v), want %v", src, dx, dy, ok, want)
				}
			}
		})
	}
}

func TestParamsMapStaysInsideMonitorRect(t *testing.T) {
	bounds := image.Rect(10, 20, 16, 24)
	region := image.Rect(0, 0, 40, 40)
	for _, rot := range []Rotation{Rotate0, Rotate90, Rotate180, Rotate270} {
		desc := Descriptor{Bounds: bounds, Rotation: rot}
		w, h := desc.TextureSize()
		p := NewParams(desc, w, h, region, 200, DefaultOptions())
		seen := map[image.Point]bool{}
		for sy := 0; sy < h; sy++ {
			for sx := 0; sx < w; sx++ {
				dx, dy, ok := p.Map(sx, sy)
				pt := image.Pt(dx, dy)
				if !ok || !pt.In(bounds) {
					t.Fatalf("rotation %d: texel (%d,%d) -> %v outside %v", rot, sx, sy, pt, bounds)
				}
				seen[pt] = true
			}
		}
		if len(seen) != bounds.Dx()*bounds.Dy() {
			t.Fatalf("rotation %d covered %d pixels, want %d", rot, len(seen), bounds.Dx()*bounds.Dy())
		}
	}
}

func TestParamsMapDiscardsOutsideCanvas(t *testing.T) {
	desc := Descriptor{Bounds: image.Rect(90, 0, 110, 10)}
	p := NewParams(desc, 20, 10, image.Rect(0, 0, 100, 10), 200, DefaultOptions())
	if _, _, ok := p.Map(5, 5); !ok {
		t.Fatal("texel inside canvas reported outside")
	}
	if _, _, ok := p.Map(15, 5); ok {
		t.Fatal("texel past the right edge reported inside")
	}
}

func TestParamsRegionOrigin(t *testing.T) {
	desc := Descriptor{Bounds: image.Rect(-1920, 0, 0, 1080)}
	p := NewParams(desc, 1920, 1080, image.Rect(-1920, 0, 1920, 1080), 200, DefaultOptions())
	if dx, dy, ok := p.Map(0, 0); !ok || dx != 0 || dy != 0 {
		t.Fatalf("Map(0,0) = (%d,%d,%v), want (0,0,true)", dx, dy, ok)
	}
}

func TestParamsGroups(t *testing.T) {
	p := Params{SrcWidth: 1920, SrcHeight: 1081}
	if gx, gy := p.Groups(); gx != 120 || gy != 68 {
		t.Fatalf("Groups() = (%d,%d), want (120,68)", gx, gy)
	}
}

func TestParamsMarshalLayout(t *testing.T) {
	desc := Descriptor{Bounds: image.Rect(100, 50, 200, 250), Rotation: Rotate90, ColorSpace: ColorSpaceHDR10}
	opts := DefaultOptions()
	opts.ScaleSDR = true
	p := NewParams(desc, 200, 100, image.Rect(0, 0, 640, 480), 240, opts)

	buf, err := p.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(buf) != ParamsSize {
		t.Fatalf("len = %d, want %d", len(buf), ParamsSize)
	}

	f := func(i int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])) }
	u := func(i int) uint32 { return binary.LittleEndian.Uint32(buf[i*4:]) }

	if f(0) != 0 || f(1) != -1 || f(2) != 100+100-1 {
		t.Fatalf("row0 = %v %v %v", f(0), f(1), f(2))
	}
	if f(4) != 1 || f(5) != 0 || f(6) != 50 {
		t.Fatalf("row1 = %v %v %v", f(4), f(5), f(6))
	}
	if f(8) != 240 || f(9) != float32(opts.ReferenceWhite) {
		t.Fatalf("white = %v ref = %v", f(8), f(9))
	}
	if u(10) != 1 || u(11) != 1 {
		t.Fatalf("flags hdr=%d scale=%d", u(10), u(11))
	}
	if u(12) != 200 || u(13) != 100 || u(14) != 640 || u(15) != 480 {
		t.Fatalf("extents = %d %d %d %d", u(12), u(13), u(14), u(15))
	}
}

func TestToneMapCompresses(t *testing.T) {
	if got := ACES(1.0); got >= 1.0 || got < 0.79 || got > 0.81 {
		t.Fatalf("ACES(1.0) = %v, want about 0.80", got)
	}
	if got := ToneMapHDR(1.0); got >= 1.0 {
		t.Fatalf("ToneMapHDR(1.0) = %v, want < 1", got)
	}
	if got := ToneMapHDR(100); got != 1 {
		t.Fatalf("ToneMapHDR(100) = %v, want saturated 1", got)
	}
	if got := ToneMapHDR(-1); got != 0 {
		t.Fatalf("ToneMapHDR(-1) = %v, want 0", got)
	}
	prev := 0.0
	for v := 0.05; v <= 4; v += 0.05 {
		got := ToneMapHDR(v)
		if got < prev {
			t.Fatalf("tone curve not monotonic at %v: %v < %v", v, got, prev)
		}
		prev = got
	}
}

func TestShadeSDRPassthroughAndScaling(t *testing.T) {
	p := Params{WhiteLevel: 240, ReferenceWhite: 80}
	if r, g, b := p.Shade(0.25, 0.5, 1.5); r != 0.25 || g != 0.5 || b != 1 {
		t.Fatalf("passthrough = %v %v %v", r, g, b)
	}
	p.ScaleSDR = true
	if r, _, _ := p.Shade(0.25, 0, 0); r != 0.75 {
		t.Fatalf("scaled = %v, want 0.75", r)
	}
}

func TestUNorm8Rounding(t *testing.T) {
	tests := map[float64]byte{0: 0, 1: 255, 0.5: 128, -3: 0, 7: 255}
	for in, want := range tests {
		if got := UNorm8(in); got != want {
			t.Fatalf("UNorm8(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestCopyRowsHonorsPitch(t *testing.T) {
	const w, h, pitch = 2, 3, 12
	src := make([]byte, pitch*h)
	for y := 0; y < h; y++ {
		for i := 0; i < pitch; i++ {
			if i < w*4 {
				src[y*pitch+i] = byte(y + 1)
			} else {
				src[y*pitch+i] = 0xEE
			}
		}
	}
	dst := make([]byte, w*h*4)
	if err := CopyRows(dst, src, pitch, w, h); err != nil {
		t.Fatalf("CopyRows: %v", err)
	}
	for i, v := range dst {
		if want := byte(i/(w*4) + 1); v != want {
			t.Fatalf("dst[%d] = %#x, want %#x", i, v, want)
		}
	}
}

func TestCopyRowsRejectsShortBuffers(t *testing.T) {
	if err := CopyRows(make([]byte, 4), make([]byte, 64), 16, 2, 2); err == nil {
		t.Fatal("expected error for short destination")
	}
	if err := CopyRows(make([]byte, 16), make([]byte, 8), 16, 2, 2); err == nil {
		t.Fatal("expected error for short source")
	}
	if err := CopyRows(make([]byte, 16), make([]byte, 64), 4, 2, 2); err == nil {
		t.Fatal("expected error for pitch smaller than row")
	}
}

func TestRotationFromDXGI(t *testing.T) {
	tests := map[uint32]Rotation{0: Rotate0, 1: Rotate0, 2: Rotate90, 3: Rotate180, 4: Rotate270}
	for in, want := range tests {
		if got := RotationFromDXGI(in); got != want {
			t.Fatalf("RotationFromDXGI(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestParseFramePolicy(t *testing.T) {
	if p, err := ParseFramePolicy("require_presented"); err != nil || p != RequirePresented {
		t.Fatalf("ParseFramePolicy(require_presented) = %v, %v", p, err)
	}
	if p, err := ParseFramePolicy(""); err != nil || p != AcceptFirst {
		t.Fatalf("ParseFramePolicy(\"\") = %v, %v", p, err)
	}
	if _, err := ParseFramePolicy("sometimes"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestZeroOptionsKeepStreamRebuilds(t *testing.T) {
	if got := (Options{}).withDefaults().MaxStreamRebuilds; got != DefaultMaxStreamRebuilds {
		t.Fatalf("zero options rebuilds = %d, want %d", got, DefaultMaxStreamRebuilds)
	}
	if got := (Options{MaxStreamRebuilds: NoStreamRebuilds}).withDefaults().MaxStreamRebuilds; got != 0 {
		t.Fatalf("NoStreamRebuilds = %d, want 0", got)
	}
	if got := (Options{MaxStreamRebuilds: 5}).withDefaults().MaxStreamRebuilds; got != 5 {
		t.Fatalf("explicit rebuilds = %d, want 5", got)
	}
}

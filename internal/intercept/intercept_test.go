package intercept

import (
	"errors"
	"image"
	"testing"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
	"github.com/vinhtt98/bitblt-hdr/internal/gpu/soft"
	"github.com/vinhtt98/bitblt-hdr/internal/health"
	"github.com/vinhtt98/bitblt-hdr/internal/logging"
)

const srcCopy = 0x00CC0020

func TestMain(m *testing.M) {
	logging.Discard()
	m.Run()
}

type fakeEngine struct {
	img      *capture.Image
	err      error
	regions  []image.Rectangle
	recycled int
}

func (f *fakeEngine) CaptureRegion(r image.Rectangle) (*capture.Image, error) {
	f.regions = append(f.regions, r)
	return f.img, f.err
}

func (f *fakeEngine) Recycle(*capture.Image) { f.recycled++ }

func desktopCall() BlitCall {
	return BlitCall{Width: 1920, Height: 1080, Rop: srcCopy | CaptureBlt, ScreenDC: true}
}

func TestWholeDesktop(t *testing.T) {
	tests := []struct {
		name string
		call BlitCall
		want bool
	}{
		{"captureblt from screen", desktopCall(), true},
		{"no captureblt", BlitCall{Width: 10, Height: 10, Rop: srcCopy, ScreenDC: true}, false},
		{"memory dc", BlitCall{Width: 10, Height: 10, Rop: srcCopy | CaptureBlt}, false},
		{"empty", BlitCall{Rop: srcCopy | CaptureBlt, ScreenDC: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WholeDesktop(tt.call); got != tt.want {
				t.Fatalf("WholeDesktop = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubstituteRewritesCall(t *testing.T) {
	eng := &fakeEngine{img: &capture.Image{Width: 100, Height: 50, Pix: make([]byte, 100*50*4)}}
	call := desktopCall()
	call.SrcX, call.SrcY, call.Width, call.Height = -100, 20, 100, 50

	var got BlitCall
	handled, err := New(eng).Substitute(call, func(img *capture.Image, c BlitCall) error {
		got = c
		return nil
	})
	if err != nil || !handled {
		t.Fatalf("Substitute = %v, %v", handled, err)
	}
	if want := image.Rect(-100, 20, 0, 70); len(eng.regions) != 1 || eng.regions[0] != want {
		t.Fatalf("regions = %v, want [%v]", eng.regions, want)
	}
	if got.Rop != srcCopy {
		t.Fatalf("rop = 0x%08X, want CAPTUREBLT cleared", got.Rop)
	}
	if got.SrcX != 0 || got.SrcY != 0 {
		t.Fatalf("source origin = (%d,%d), want (0,0)", got.SrcX, got.SrcY)
	}
	if eng.recycled != 1 {
		t.Fatalf("recycled = %d, want 1", eng.recycled)
	}
}

func TestSubstituteSkipsNonMatching(t *testing.T) {
	eng := &fakeEngine{}
	call := desktopCall()
	call.Rop = srcCopy
	handled, err := New(eng).Substitute(call, func(*capture.Image, BlitCall) error {
		t.Fatal("use called for non-matching call")
		return nil
	})
	if handled || err != nil {
		t.Fatalf("Substitute = %v, %v", handled, err)
	}
	if len(eng.regions) != 0 {
		t.Fatal("engine ran for non-matching call")
	}
}

func TestSubstituteFallsBackWhenUnavailable(t *testing.T) {
	eng := &fakeEngine{err: capture.ErrUnavailable}
	handled, err := New(eng).Substitute(desktopCall(), func(*capture.Image, BlitCall) error {
		t.Fatal("use called without an image")
		return nil
	})
	if handled {
		t.Fatal("handled = true on unavailable engine")
	}
	if !errors.Is(err, capture.ErrUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestSubstituteFallsBackWhenUseFails(t *testing.T) {
	eng := &fakeEngine{img: &capture.Image{Width: 1, Height: 1, Pix: make([]byte, 4)}}
	boom := errors.New("CreateBitmap failed")
	handled, err := New(eng).Substitute(desktopCall(), func(*capture.Image, BlitCall) error { return boom })
	if handled || !errors.Is(err, boom) {
		t.Fatalf("Substitute = %v, %v", handled, err)
	}
	if eng.recycled != 1 {
		t.Fatalf("recycled = %d, want 1", eng.recycled)
	}
}

func TestCustomPredicate(t *testing.T) {
	eng := &fakeEngine{img: &capture.Image{Width: 1, Height: 1, Pix: make([]byte, 4)}}
	tr := New(eng)
	tr.Predicate = func(BlitCall) bool { return true }
	call := BlitCall{Width: 1, Height: 1, Rop: srcCopy}
	handled, err := tr.Substitute(call, func(*capture.Image, BlitCall) error { return nil })
	if !handled || err != nil {
		t.Fatalf("Substitute = %v, %v", handled, err)
	}
}

func TestSubstituteWithSoftEngine(t *testing.T) {
	backend := soft.New(&soft.Display{
		Name:    `\\.\DISPLAY1`,
		Bounds:  image.Rect(0, 0, 64, 32),
		Pattern: soft.Solid(1, 0, 0),
	})
	eng := capture.New(backend, capture.DefaultOptions(), nil, health.NewTracker())
	defer eng.Shutdown()

	call := desktopCall()
	call.Width, call.Height = 64, 32
	var px [4]byte
	handled, err := New(eng).Substitute(call, func(img *capture.Image, _ BlitCall) error {
		px = img.At(10, 10)
		return nil
	})
	if !handled || err != nil {
		t.Fatalf("Substitute = %v, %v", handled, err)
	}
	if px != [4]byte{0, 0, 0xFF, 0xFF} {
		t.Fatalf("pixel = %v, want opaque red in BGRA", px)
	}
}

// Package intercept decides which intercepted screen blits are served by the
// capture engine and hands the composited image back to the call site. How
// the blit is intercepted is left to the host.
package intercept

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
	"github.com/vinhtt98/bitblt-hdr/internal/logging"
)

// CaptureBlt is the raster-op flag asking for layered windows to be included.
// Callers set it when copying what is actually on screen.
const CaptureBlt uint32 = 0x40000000

// BlitCall is the argument set of one intercepted BitBlt.
type BlitCall struct {
	Dest          uintptr
	X, Y          int
	Width, Height int
	Src           uintptr
	SrcX, SrcY    int
	Rop           uint32
	// ScreenDC is true when Src is a device context for the whole screen.
	ScreenDC bool
}

// Region is the virtual-desktop rectangle the call reads.
func (c BlitCall) Region() image.Rectangle {
	return image.Rect(c.SrcX, c.SrcY, c.SrcX+c.Width, c.SrcY+c.Height)
}

// Predicate selects the calls to substitute.
type Predicate func(BlitCall) bool

// WholeDesktop matches screen-DC copies that request CAPTUREBLT.
func WholeDesktop(c BlitCall) bool {
	return c.ScreenDC && c.Rop&CaptureBlt != 0 && c.Width > 0 && c.Height > 0
}

// Capturer is the part of capture.Engine the trigger needs.
type Capturer interface {
	CaptureRegion(region image.Rectangle) (*capture.Image, error)
	Recycle(img *capture.Image)
}

// UseFunc performs the blit from img. call is the original call rewritten to
// read img from its origin with CAPTUREBLT cleared.
type UseFunc func(img *capture.Image, call BlitCall) error

// Trigger runs the engine for matching calls.
type Trigger struct {
	Engine    Capturer
	Predicate Predicate

	log *slog.Logger
}

// New creates a trigger with the WholeDesktop predicate.
func New(engine Capturer) *Trigger {
	return &Trigger{Engine: engine, Predicate: WholeDesktop, log: logging.L("intercept")}
}

// Substitute serves call from the engine when the predicate matches. handled
// is false when the call did not match or when anything failed; the caller
// must then run the original blit unmodified. The image passed to use is
// recycled when use returns.
func (t *Trigger) Substitute(call BlitCall, use UseFunc) (handled bool, err error) {
	pred := t.Predicate
	if pred == nil {
		pred = WholeDesktop
	}
	if t.Engine == nil || !pred(call) {
		return false, nil
	}
	log := t.log
	if log == nil {
		log = logging.L("intercept")
	}

	img, err := t.Engine.CaptureRegion(call.Region())
	if err != nil {
		if errors.Is(err, capture.ErrUnavailable) {
			log.Debug("engine unavailable, passing through", logging.KeyError, err.Error())
		} else {
			log.Warn("capture failed, passing through", logging.KeyError, err.Error())
		}
		return false, err
	}
	defer t.Engine.Recycle(img)

	rewritten := call
	rewritten.SrcX, rewritten.SrcY = 0, 0
	rewritten.Rop = call.Rop &^ CaptureBlt
	if err := use(img, rewritten); err != nil {
		log.Warn("substituted blit failed", logging.KeyError, err.Error())
		return false, fmt.Errorf("substituted blit: %w", err)
	}
	return true, nil
}

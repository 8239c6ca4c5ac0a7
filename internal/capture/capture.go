// Package capture composites every display attached to the desktop into one
// standard-range BGRA image. It owns the duplication state machine, the
// per-display transform and tone mapping parameters, and the readback path.
// The GPU itself is reached through the Backend interfaces so the engine can
// run on D3D11 or on the software reference implementation.
package capture

import (
	"fmt"
	"image"
	"time"
)

// Rotation is the display rotation in degrees, clockwise.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// RotationFromDXGI converts a DXGI_MODE_ROTATION value.
// DXGI: 0=unspecified, 1=identity, 2=90°, 3=180°, 4=270°.
func RotationFromDXGI(v uint32) Rotation {
	switch v {
	case 2:
		return Rotate90
	case 3:
		return Rotate180
	case 4:
		return Rotate270
	default:
		return Rotate0
	}
}

// Swapped reports whether the native texture has width and height swapped
// relative to the desktop rectangle.
func (r Rotation) Swapped() bool {
	return r == Rotate90 || r == Rotate270
}

func (r Rotation) Valid() bool {
	switch r {
	case Rotate0, Rotate90, Rotate180, Rotate270:
		return true
	}
	return false
}

// ColorSpace tags the signal a display is being driven with. Values match
// DXGI_COLOR_SPACE_TYPE.
type ColorSpace uint32

const (
	ColorSpaceSRGB  ColorSpace = 0  // RGB_FULL_G22_NONE_P709
	ColorSpaceSCRGB ColorSpace = 1  // RGB_FULL_G10_NONE_P709
	ColorSpaceHDR10 ColorSpace = 12 // RGB_FULL_G2084_NONE_P2020
)

// HDR reports whether the display runs in high dynamic range.
func (c ColorSpace) HDR() bool {
	return c == ColorSpaceHDR10
}

func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceSRGB:
		return "sdr"
	case ColorSpaceSCRGB:
		return "scrgb"
	case ColorSpaceHDR10:
		return "hdr10"
	default:
		return fmt.Sprintf("colorspace(%d)", uint32(c))
	}
}

// PixelFormat values match DXGI_FORMAT.
type PixelFormat uint32

const (
	FormatRGBA16F PixelFormat = 10 // R16G16B16A16_FLOAT
	FormatBGRA8   PixelFormat = 87 // B8G8R8A8_UNORM
)

// DuplicationFormats is the ordered list of formats a stream accepts, most
// preferred first.
var DuplicationFormats = []PixelFormat{FormatBGRA8, FormatRGBA16F}

func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA16F:
		return "rgba16f"
	case FormatBGRA8:
		return "bgra8"
	default:
		return fmt.Sprintf("format(%d)", uint32(f))
	}
}

// Descriptor is a per-display snapshot taken from the live output.
type Descriptor struct {
	// Name is the GDI device name (\\.\DISPLAYn), used as the display
	// identity for white level lookups.
	Name       string
	Bounds     image.Rectangle
	Rotation   Rotation
	ColorSpace ColorSpace
}

// TextureSize returns the native (pre-rotation) size of frames duplicated
// from this display.
func (d Descriptor) TextureSize() (w, h int) {
	w, h = d.Bounds.Dx(), d.Bounds.Dy()
	if d.Rotation.Swapped() {
		w, h = h, w
	}
	return w, h
}

// Image is a tightly packed BGRA pixel buffer, rows top to bottom.
type Image struct {
	Width  int
	Height int
	Pix    []byte
}

// Stride is the byte length of one row.
func (img *Image) Stride() int { return img.Width * 4 }

// At returns the B, G, R, A bytes of pixel (x, y).
func (img *Image) At(x, y int) [4]byte {
	i := y*img.Stride() + x*4
	return [4]byte{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

// FrameInfo carries metadata of one acquisition.
type FrameInfo struct {
	// Presented is false when the duplication returned an image without a
	// new present since the previous acquisition (mouse-only updates).
	Presented         bool
	AccumulatedFrames uint32
}

// Backend opens GPU devices. Open fails when no adapter reaches the minimum
// capability level.
type Backend interface {
	Name() string
	Open() (Device, error)
}

// Device is the GPU device and its single command context.
type Device interface {
	// Outputs enumerates the displays attached to the desktop on this device.
	Outputs() ([]Output, error)
	NewCanvas(width, height int) (Canvas, error)
	NewCompositor() (Compositor, error)
	Close() error
}

// Output is one physical display.
type Output interface {
	Describe() (Descriptor, error)
	// Duplicate binds a new duplication stream accepting formats in order.
	Duplicate(formats []PixelFormat) (Stream, error)
	Close() error
}

// Stream is a live duplication subscription. AcquireNextFrame returns
// ErrWaitTimeout when nothing arrived within timeout and ErrAccessLost when
// the stream must be rebuilt.
type Stream interface {
	AcquireNextFrame(timeout time.Duration) (Frame, FrameInfo, error)
	Close() error
}

// Frame is a GPU texture holding one display's contents in native
// orientation.
type Frame interface {
	Size() (width, height int)
	Format() PixelFormat
	Release() error
}

// Canvas is the GPU accumulation target for one capture size.
type Canvas interface {
	Size() (width, height int)
	// Clear fills the canvas with the background color.
	Clear() error
	// Readback blocks until all prior GPU work finished and copies the
	// canvas into dst, tightly packed BGRA.
	Readback(dst []byte) error
	Release() error
}

// Compositor runs the compositing program for one monitor.
type Compositor interface {
	Composite(src Frame, params Params, dst Canvas) error
	Release() error
}

// WhiteLevelSource resolves the SDR reference white of a display in nits.
type WhiteLevelSource interface {
	SDRWhiteLevel(display string) (float64, error)
}

// WhiteLevelFunc adapts a function to WhiteLevelSource.
type WhiteLevelFunc func(display string) (float64, error)

func (f WhiteLevelFunc) SDRWhiteLevel(display string) (float64, error) { return f(display) }

// Background is the canvas clear color in B, G, R, A order.
var Background = [4]byte{0, 0, 0, 0xFF}

// Package soft is a CPU implementation of the capture backend. It runs the
// same compositing math as the GPU program over scripted displays, so the
// engine can be exercised on any platform and faults can be injected per
// acquisition.
package soft

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
)

// Pattern returns the native-orientation color of texel (x, y). SDR displays
// clamp to [0,1]; HDR displays may exceed 1.
type Pattern func(x, y int) (r, g, b float64)

// Solid returns a uniform pattern.
func Solid(r, g, b float64) Pattern {
	return func(int, int) (float64, float64, float64) { return r, g, b }
}

// Display is one scripted display.
type Display struct {
	Name       string
	Bounds     image.Rectangle
	Rotation   capture.Rotation
	ColorSpace capture.ColorSpace
	Pattern    Pattern

	// Script is consumed one entry per AcquireNextFrame call before frames
	// flow normally. A nil entry delivers a frame.
	Script []error
	// NotPresented marks the next n delivered frames as pointer-only updates.
	NotPresented int
	// Static delivers one frame per stream and then only timeouts.
	Static bool
	// DuplicateErr fails stream creation.
	DuplicateErr error
	// DescribeErr fails descriptor reads.
	DescribeErr error
}

func (d *Display) descriptor() capture.Descriptor {
	return capture.Descriptor{
		Name:       d.Name,
		Bounds:     d.Bounds,
		Rotation:   d.Rotation,
		ColorSpace: d.ColorSpace,
	}
}

func (d *Display) format() capture.PixelFormat {
	if d.ColorSpace.HDR() {
		return capture.FormatRGBA16F
	}
	return capture.FormatBGRA8
}

// Backend hands out software devices over a fixed display list. All fields
// may be changed between captures; access is serialized by the backend.
type Backend struct {
	mu       sync.Mutex
	displays []*Display

	// OpenErr fails device creation.
	OpenErr error
	// EnumerateErr fails output enumeration.
	EnumerateErr error
	// CompositorErr fails creation of the compositing program.
	CompositorErr error
	// CompositeErr fails every dispatch for the named display.
	CompositeErr map[string]error

	opens         int
	enumerations  int
	streamsOpened int
	streamsClosed int
	liveFrames    int
	canvases      int
}

// New creates a backend over displays.
func New(displays ...*Display) *Backend {
	return &Backend{displays: displays, CompositeErr: map[string]error{}}
}

func (b *Backend) Name() string { return "soft" }

// SetDisplays replaces the display list seen by the next enumeration.
func (b *Backend) SetDisplays(displays ...*Display) {
	b.mu.Lock()
	b.displays = displays
	b.mu.Unlock()
}

// Counters is a snapshot of resource accounting.
type Counters struct {
	Opens         int
	Enumerations  int
	StreamsOpened int
	StreamsClosed int
	LiveFrames    int
	Canvases      int
}

// LiveStreams is the number of streams not yet closed.
func (c Counters) LiveStreams() int { return c.StreamsOpened - c.StreamsClosed }

func (b *Backend) Counters() Counters {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Counters{
		Opens:         b.opens,
		Enumerations:  b.enumerations,
		StreamsOpened: b.streamsOpened,
		StreamsClosed: b.streamsClosed,
		LiveFrames:    b.liveFrames,
		Canvases:      b.canvases,
	}
}

func (b *Backend) Open() (capture.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	b.opens++
	return &device{backend: b}, nil
}

type device struct {
	backend *Backend
	closed  bool
}

func (d *device) Outputs() ([]capture.Output, error) {
	b := d.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if d.closed {
		return nil, errors.New("device closed")
	}
	if b.EnumerateErr != nil {
		return nil, b.EnumerateErr
	}
	b.enumerations++
	outs := make([]capture.Output, 0, len(b.displays))
	for _, disp := range b.displays {
		outs = append(outs, &output{backend: b, display: disp})
	}
	return outs, nil
}

func (d *device) NewCanvas(width, height int) (capture.Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}
	d.backend.mu.Lock()
	d.backend.canvases++
	d.backend.mu.Unlock()
	return &canvas{tex: newTexture(width, height, capture.FormatBGRA8)}, nil
}

func (d *device) NewCompositor() (capture.Compositor, error) {
	d.backend.mu.Lock()
	defer d.backend.mu.Unlock()
	if d.backend.CompositorErr != nil {
		return nil, d.backend.CompositorErr
	}
	return &compositor{backend: d.backend}, nil
}

func (d *device) Close() error {
	d.closed = true
	return nil
}

type output struct {
	backend *Backend
	display *Display
}

func (o *output) Describe() (capture.Descriptor, error) {
	o.backend.mu.Lock()
	defer o.backend.mu.Unlock()
	if o.display.DescribeErr != nil {
		return capture.Descriptor{}, o.display.DescribeErr
	}
	return o.display.descriptor(), nil
}

func (o *output) Duplicate(formats []capture.PixelFormat) (capture.Stream, error) {
	b := o.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if o.display.DuplicateErr != nil {
		return nil, o.display.DuplicateErr
	}
	want := o.display.format()
	supported := false
	for _, f := range formats {
		if f == want {
			supported = true
			break
		}
	}
	if !supported {
		return nil, fmt.Errorf("display format %s not in accepted formats", want)
	}
	b.streamsOpened++
	return &stream{backend: b, display: o.display}, nil
}

func (o *output) Close() error { return nil }

type stream struct {
	backend   *Backend
	display   *Display
	delivered int
	lost      bool
	closed    bool
}

func (s *stream) AcquireNextFrame(time.Duration) (capture.Frame, capture.FrameInfo, error) {
	b := s.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.closed {
		return nil, capture.FrameInfo{}, errors.New("stream closed")
	}
	if s.lost {
		return nil, capture.FrameInfo{}, capture.ErrAccessLost
	}

	d := s.display
	if len(d.Script) > 0 {
		err := d.Script[0]
		d.Script = d.Script[1:]
		if errors.Is(err, capture.ErrAccessLost) {
			s.lost = true
		}
		if err != nil {
			return nil, capture.FrameInfo{}, err
		}
	} else if d.Static && s.delivered > 0 {
		return nil, capture.FrameInfo{}, capture.ErrWaitTimeout
	}

	info := capture.FrameInfo{Presented: true, AccumulatedFrames: 1}
	if d.NotPresented > 0 {
		d.NotPresented--
		info.Presented = false
	}
	s.delivered++
	b.liveFrames++
	return &frame{backend: b, display: d.Name, tex: render(d)}, info, nil
}

func (s *stream) Close() error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if s.closed {
		return errors.New("stream already closed")
	}
	s.closed = true
	s.backend.streamsClosed++
	return nil
}

type frame struct {
	backend  *Backend
	display  string
	tex      *texture
	released bool
}

func (f *frame) Size() (int, int)            { return f.tex.w, f.tex.h }
func (f *frame) Format() capture.PixelFormat { return f.tex.format }

func (f *frame) Release() error {
	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	if f.released {
		return errors.New("frame already released")
	}
	f.released = true
	f.backend.liveFrames--
	return nil
}

func render(d *Display) *texture {
	w, h := d.descriptor().TextureSize()
	tex := newTexture(w, h, d.format())
	pattern := d.Pattern
	if pattern == nil {
		pattern = Solid(0.5, 0.5, 0.5)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := pattern(x, y)
			tex.store(x, y, r, g, b)
		}
	}
	return tex
}

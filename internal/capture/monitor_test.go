package capture

import (
	"errors"
	"image"
	"testing"
	"time"
)

type stubFrame struct{ released int }

func (f *stubFrame) Size() (int, int)    { return 4, 4 }
func (f *stubFrame) Format() PixelFormat { return FormatBGRA8 }
func (f *stubFrame) Release() error {
	f.released++
	return nil
}

type stubStream struct {
	results []error
	frames  []*stubFrame
	closed  bool
}

func (s *stubStream) AcquireNextFrame(time.Duration) (Frame, FrameInfo, error) {
	if len(s.results) > 0 {
		err := s.results[0]
		s.results = s.results[1:]
		if err != nil {
			return nil, FrameInfo{}, err
		}
	}
	f := &stubFrame{}
	s.frames = append(s.frames, f)
	return f, FrameInfo{Presented: true}, nil
}

func (s *stubStream) Close() error {
	s.closed = true
	return nil
}

type stubOutput struct {
	desc    Descriptor
	scripts [][]error
	streams []*stubStream
	dupErr  error
}

func (o *stubOutput) Describe() (Descriptor, error) { return o.desc, nil }

func (o *stubOutput) Duplicate([]PixelFormat) (Stream, error) {
	if o.dupErr != nil {
		return nil, o.dupErr
	}
	s := &stubStream{}
	if len(o.scripts) > 0 {
		s.results = o.scripts[0]
		o.scripts = o.scripts[1:]
	}
	o.streams = append(o.streams, s)
	return s, nil
}

func (o *stubOutput) Close() error { return nil }

func testMonitor(out *stubOutput, mutate func(*Options)) *Monitor {
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	clk := clock{now: time.Now, sleep: func(time.Duration) {}}
	return newMonitor(out, opts.withDefaults(), nil, clk)
}

func TestMonitorStateTransitions(t *testing.T) {
	out := &stubOutput{
		desc:    Descriptor{Name: "A", Bounds: image.Rect(0, 0, 4, 4)},
		scripts: [][]error{{ErrAccessLost}},
	}
	m := testMonitor(out, nil)
	if m.State() != StateUnbound {
		t.Fatalf("initial state = %v, want unbound", m.State())
	}

	acq, err := m.Acquire(time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if m.State() != StateBound {
		t.Fatalf("state after acquire = %v, want bound", m.State())
	}
	if acq.Rebuilds != 1 || len(out.streams) != 2 {
		t.Fatalf("rebuilds=%d streams=%d, want 1 and 2", acq.Rebuilds, len(out.streams))
	}
	if !out.streams[0].closed {
		t.Fatal("lost stream was not closed before rebuild")
	}
	if out.streams[1].closed {
		t.Fatal("replacement stream closed")
	}
	if acq.Desc.Name != "A" {
		t.Fatalf("descriptor not refreshed: %+v", acq.Desc)
	}
}

func TestMonitorPollsRebuiltStreamPastAttemptBound(t *testing.T) {
	out := &stubOutput{
		desc:    Descriptor{Name: "A"},
		scripts: [][]error{{ErrWaitTimeout, ErrAccessLost}},
	}
	m := testMonitor(out, func(o *Options) { o.MaxAcquireAttempts = 2 })

	acq, err := m.Acquire(time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if acq.Reused || acq.Frame == nil {
		t.Fatalf("reused=%v frame=%v, want a fresh frame", acq.Reused, acq.Frame)
	}
	if acq.Attempts != 3 || acq.Rebuilds != 1 {
		t.Fatalf("attempts=%d rebuilds=%d, want 3 and 1", acq.Attempts, acq.Rebuilds)
	}
}

func TestMonitorPollsRebuiltStreamPastDeadline(t *testing.T) {
	out := &stubOutput{
		desc:    Descriptor{Name: "A"},
		scripts: [][]error{{ErrAccessLost}},
	}
	m := testMonitor(out, nil)

	acq, err := m.Acquire(time.Now().Add(-time.Second))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if acq.Attempts != 2 || acq.Rebuilds != 1 {
		t.Fatalf("attempts=%d rebuilds=%d, want 2 and 1", acq.Attempts, acq.Rebuilds)
	}
}

func TestMonitorReleasesPreviousFrameOnNewAcquisition(t *testing.T) {
	out := &stubOutput{desc: Descriptor{Name: "A"}}
	m := testMonitor(out, nil)

	first, err := m.Acquire(time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if _, err := m.Acquire(time.Now().Add(time.Second)); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if got := first.Frame.(*stubFrame).released; got != 1 {
		t.Fatalf("previous frame released %d times, want 1", got)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for i, f := range out.streams[0].frames {
		if f.released != 1 {
			t.Fatalf("frame %d released %d times, want 1", i, f.released)
		}
	}
	if !out.streams[0].closed {
		t.Fatal("stream not closed by Close")
	}
}

func TestMonitorFailedRebindIsAcquisitionError(t *testing.T) {
	out := &stubOutput{desc: Descriptor{Name: "A"}, dupErr: errors.New("E_ACCESSDENIED")}
	m := testMonitor(out, nil)

	_, err := m.Acquire(time.Now().Add(time.Second))
	var acqErr *AcquisitionError
	if !errors.As(err, &acqErr) || acqErr.Display != "A" {
		t.Fatalf("error = %v, want AcquisitionError for A", err)
	}
	if m.State() != StateUnbound {
		t.Fatalf("state = %v, want unbound", m.State())
	}
}

func TestMonitorOtherFailurePropagates(t *testing.T) {
	boom := errors.New("E_INVALIDARG")
	out := &stubOutput{desc: Descriptor{Name: "A"}, scripts: [][]error{{boom}}}
	m := testMonitor(out, nil)

	acq, err := m.Acquire(time.Now().Add(time.Second))
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if acq.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", acq.Attempts)
	}
}

func TestMonitorSDRWhiteLevelFallsBack(t *testing.T) {
	out := &stubOutput{desc: Descriptor{Name: "A"}}
	m := testMonitor(out, nil)
	if got := m.SDRWhiteLevel(); got != DefaultWhiteLevel {
		t.Fatalf("no source: %v, want %v", got, DefaultWhiteLevel)
	}

	m.whiteLevels = WhiteLevelFunc(func(string) (float64, error) { return 0, errors.New("no path") })
	if got := m.SDRWhiteLevel(); got != DefaultWhiteLevel {
		t.Fatalf("failing source: %v, want %v", got, DefaultWhiteLevel)
	}

	m.whiteLevels = WhiteLevelFunc(func(name string) (float64, error) {
		if name != "A" {
			t.Fatalf("lookup for %q, want A", name)
		}
		return 240, nil
	})
	if got := m.SDRWhiteLevel(); got != 240 {
		t.Fatalf("calibrated: %v, want 240", got)
	}
}

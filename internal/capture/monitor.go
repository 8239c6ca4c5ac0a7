package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vinhtt98/bitblt-hdr/internal/logging"
)

// State is the duplication state of a Monitor.
type State int

const (
	StateUnbound State = iota
	StateBound
	StateLost
)

func (s State) String() string {
	switch s {
	case StateBound:
		return "bound"
	case StateLost:
		return "lost"
	default:
		return "unbound"
	}
}

type clock struct {
	now   func() time.Time
	sleep func(time.Duration)
}

var systemClock = clock{now: time.Now, sleep: time.Sleep}

// Acquisition is the result of one Monitor.Acquire call.
type Acquisition struct {
	Frame Frame
	Desc  Descriptor
	Info  FrameInfo
	// Reused is set when polling ran out and the frame held from an earlier
	// cycle on the same stream was returned instead.
	Reused   bool
	Attempts int
	Rebuilds int
}

// Monitor owns one display's duplication stream and its last frame.
type Monitor struct {
	output Output
	stream Stream
	state  State
	frame  Frame
	desc   Descriptor

	opts        Options
	whiteLevels WhiteLevelSource
	clock       clock
	log         *slog.Logger
}

func newMonitor(out Output, opts Options, wl WhiteLevelSource, clk clock) *Monitor {
	m := &Monitor{
		output:      out,
		opts:        opts,
		whiteLevels: wl,
		clock:       clk,
		log:         logging.L("monitor"),
	}
	if desc, err := out.Describe(); err == nil {
		m.desc = desc
		m.log = logging.WithDisplay(m.log, desc.Name)
	} else {
		m.log.Debug("initial describe failed", logging.KeyError, err.Error())
	}
	return m
}

// Name returns the display identity of the last descriptor.
func (m *Monitor) Name() string { return m.desc.Name }

// Descriptor returns the last descriptor read from the live output.
func (m *Monitor) Descriptor() Descriptor { return m.desc }

func (m *Monitor) State() State { return m.state }

// Describe refreshes the descriptor from the live output.
func (m *Monitor) Describe() (Descriptor, error) {
	desc, err := m.output.Describe()
	if err != nil {
		return m.desc, err
	}
	m.desc = desc
	return desc, nil
}

// Acquire polls the duplication stream for a frame, rebuilding the stream on
// access loss. Polling stops at deadline or after MaxAcquireAttempts, except
// that a freshly rebuilt stream always gets one attempt. Rebuilds are bounded
// by MaxStreamRebuilds.
func (m *Monitor) Acquire(deadline time.Time) (Acquisition, error) {
	var acq Acquisition

	if m.state != StateBound {
		if err := m.rebind(); err != nil {
			return acq, m.fail(err)
		}
	}

	rebuilt := false
	for rebuilt || acq.Attempts < m.opts.MaxAcquireAttempts {
		if !rebuilt && acq.Attempts > 0 && !m.clock.now().Before(deadline) {
			break
		}
		rebuilt = false
		acq.Attempts++

		frame, info, err := m.stream.AcquireNextFrame(m.opts.AcquireTimeout)
		switch {
		case err == nil:
			if m.opts.FramePolicy == RequirePresented && !info.Presented {
				if rerr := frame.Release(); rerr != nil {
					return acq, m.fail(rerr)
				}
				m.backoff(deadline)
				continue
			}
			m.releaseFrame()
			m.frame = frame
			desc, derr := m.Describe()
			if derr != nil {
				m.releaseFrame()
				return acq, m.fail(fmt.Errorf("describe output: %w", derr))
			}
			acq.Frame, acq.Desc, acq.Info = frame, desc, info
			return acq, nil

		case errors.Is(err, ErrWaitTimeout):
			m.backoff(deadline)

		case errors.Is(err, ErrAccessLost):
			m.state = StateLost
			if acq.Rebuilds >= m.opts.MaxStreamRebuilds {
				m.unbind()
				return acq, m.fail(fmt.Errorf("stream rebuild limit %d reached: %w", m.opts.MaxStreamRebuilds, err))
			}
			acq.Rebuilds++
			m.log.Info("duplication access lost, rebuilding stream", "rebuild", acq.Rebuilds)
			if rerr := m.rebind(); rerr != nil {
				return acq, m.fail(rerr)
			}
			rebuilt = true

		default:
			return acq, m.fail(err)
		}
	}

	if m.frame != nil {
		desc, err := m.Describe()
		if err != nil {
			return acq, m.fail(fmt.Errorf("describe output: %w", err))
		}
		acq.Frame, acq.Desc, acq.Reused = m.frame, desc, true
		return acq, nil
	}
	return acq, m.fail(ErrNoFrame)
}

// SDRWhiteLevel returns the display's calibrated SDR white in nits, or the
// configured default when the lookup is unavailable.
func (m *Monitor) SDRWhiteLevel() float64 {
	if m.whiteLevels == nil {
		return m.opts.DefaultWhiteLevel
	}
	nits, err := m.whiteLevels.SDRWhiteLevel(m.desc.Name)
	if err != nil || nits <= 0 {
		if err != nil {
			m.log.Debug("white level lookup failed, using default", logging.KeyError, err.Error())
		}
		return m.opts.DefaultWhiteLevel
	}
	return nits
}

// Close releases the frame, the stream and the output.
func (m *Monitor) Close() error {
	m.releaseFrame()
	m.unbind()
	if m.output == nil {
		return nil
	}
	err := m.output.Close()
	m.output = nil
	return err
}

// rebind moves UNBOUND (or LOST) to BOUND, tearing down any previous stream
// first.
func (m *Monitor) rebind() error {
	m.unbind()
	stream, err := m.output.Duplicate(DuplicationFormats)
	if err != nil {
		return fmt.Errorf("duplicate output: %w", err)
	}
	m.stream = stream
	m.state = StateBound
	return nil
}

// unbind closes the stream. The held frame belongs to that stream and goes
// with it.
func (m *Monitor) unbind() {
	m.releaseFrame()
	if m.stream != nil {
		if err := m.stream.Close(); err != nil {
			m.log.Warn("close duplication stream", logging.KeyError, err.Error())
		}
		m.stream = nil
	}
	m.state = StateUnbound
}

func (m *Monitor) releaseFrame() {
	if m.frame == nil {
		return
	}
	if err := m.frame.Release(); err != nil {
		m.log.Warn("release frame", logging.KeyError, err.Error())
	}
	m.frame = nil
}

func (m *Monitor) backoff(deadline time.Time) {
	d := m.opts.RetryBackoff
	if remaining := deadline.Sub(m.clock.now()); remaining < d {
		d = remaining
	}
	if d > 0 {
		m.clock.sleep(d)
	}
}

func (m *Monitor) fail(err error) error {
	return &AcquisitionError{Display: m.desc.Name, Err: err}
}

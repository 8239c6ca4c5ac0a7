package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned by Capture when the engine cannot produce
	// an image this cycle. Callers must fall back to the original blit.
	ErrUnavailable = errors.New("capture unavailable")

	// ErrWaitTimeout means no frame arrived within the poll timeout.
	ErrWaitTimeout = errors.New("duplication wait timeout")

	// ErrAccessLost means the duplication stream was invalidated (mode
	// change, desktop switch) and must be rebuilt.
	ErrAccessLost = errors.New("duplication access lost")

	// ErrDeviceRemoved means the GPU device itself is gone.
	ErrDeviceRemoved = errors.New("gpu device removed")

	// ErrNoFrame means polling ran out of attempts before any frame arrived.
	ErrNoFrame = errors.New("no frame available")

	// ErrNotSupported is returned by backends on platforms they cannot run on.
	ErrNotSupported = errors.New("capture backend not supported on this platform")
)

// DeviceInitError means no adapter could provide a usable device. It is
// sticky: once recorded every capture reports ErrUnavailable.
type DeviceInitError struct {
	Err error
}

func (e *DeviceInitError) Error() string { return "device init: " + e.Err.Error() }
func (e *DeviceInitError) Unwrap() error { return e.Err }

// EnumerationError means the outputs could not be listed. Fatal for the
// current cycle only.
type EnumerationError struct {
	Err error
}

func (e *EnumerationError) Error() string { return "enumerate outputs: " + e.Err.Error() }
func (e *EnumerationError) Unwrap() error { return e.Err }

// AcquisitionError means a display's stream could not deliver a frame. The
// display is skipped for the cycle.
type AcquisitionError struct {
	Display string
	Err     error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire %s: %v", e.Display, e.Err)
}
func (e *AcquisitionError) Unwrap() error { return e.Err }

// CompositeError means the compositing pass failed for one display. Its
// canvas region keeps the background.
type CompositeError struct {
	Display string
	Err     error
}

func (e *CompositeError) Error() string {
	return fmt.Sprintf("composite %s: %v", e.Display, e.Err)
}
func (e *CompositeError) Unwrap() error { return e.Err }

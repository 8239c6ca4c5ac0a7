package capture

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vinhtt98/bitblt-hdr/internal/health"
	"github.com/vinhtt98/bitblt-hdr/internal/logging"
)

var errShutdown = errors.New("engine shut down")

// engineHealthKey is the tracker entry for device-level state.
const engineHealthKey = "engine"

// gpuContext is the lazily opened device. Either device is set or it is nil;
// initErr is sticky once recorded.
type gpuContext struct {
	backend Backend
	device  Device
	initErr error
}

func (g *gpuContext) ensureInitialized() (Device, error) {
	if g.initErr != nil {
		return nil, g.initErr
	}
	if g.device != nil {
		return g.device, nil
	}
	dev, err := g.backend.Open()
	if err != nil {
		g.initErr = &DeviceInitError{Err: err}
		return nil, g.initErr
	}
	g.device = dev
	return dev, nil
}

func (g *gpuContext) close() error {
	if g.device == nil {
		return nil
	}
	err := g.device.Close()
	g.device = nil
	return err
}

// Engine is the capture orchestrator. One instance serves the whole process;
// Capture calls are serialized and run on the caller's goroutine.
type Engine struct {
	mu sync.Mutex

	opts        Options
	whiteLevels WhiteLevelSource
	tracker     *health.Tracker
	clock       clock
	log         *slog.Logger

	gpu         gpuContext
	compositor  Compositor
	canvas      Canvas
	region      image.Rectangle
	needRefresh bool
	registry    *Registry
	closed      bool

	pool    pixelPool
	metrics *cycleMetrics
}

// New creates an engine. Nothing touches the GPU until Initialize or the
// first Capture. whiteLevels and tracker may be nil.
func New(backend Backend, opts Options, whiteLevels WhiteLevelSource, tracker *health.Tracker) *Engine {
	opts = opts.withDefaults()
	if tracker == nil {
		tracker = health.NewTracker()
	}
	e := &Engine{
		opts:        opts,
		whiteLevels: whiteLevels,
		tracker:     tracker,
		clock:       systemClock,
		log:         logging.L("capture").With("backend", backend.Name()),
		gpu:         gpuContext{backend: backend},
		needRefresh: true,
		metrics:     newCycleMetrics(),
	}
	e.registry = newRegistry(opts, whiteLevels, e.clock)
	return e
}

// Initialize opens the GPU device. It is idempotent; a failed
// initialization is permanent and reported by every later call.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.ensureDevice()
	return err
}

// Capture composites the virtual-desktop rectangle (0, 0, width, height).
func (e *Engine) Capture(width, height int) (*Image, error) {
	return e.CaptureRegion(image.Rect(0, 0, width, height))
}

// CaptureRegion composites the given virtual-desktop rectangle into a BGRA
// image of the same size. Any error wraps ErrUnavailable and means the caller
// must fall back to the uncomposited path. Per-monitor failures are logged
// and leave that monitor's area at the background color.
func (e *Engine) CaptureRegion(region image.Rectangle) (*Image, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.clock.now()
	deadline := start.Add(e.opts.CycleBudget)
	log := logging.WithCycle(e.log, uuid.NewString())

	if region.Empty() {
		return nil, e.unavailable(fmt.Errorf("empty capture region %v", region))
	}

	dev, err := e.ensureDevice()
	if err != nil {
		return nil, e.unavailable(err)
	}

	canvas, err := e.ensureCanvas(dev, region, log)
	if err != nil {
		return nil, e.unavailable(err)
	}

	if e.needRefresh {
		if err := e.registry.Refresh(dev); err != nil {
			log.Warn("monitor enumeration failed", logging.KeyError, err.Error())
			e.tracker.Update(engineHealthKey, health.Unhealthy, err.Error())
			return nil, e.unavailable(e.checkDevice(err))
		}
		e.metrics.recordRefresh()
		e.needRefresh = false
		e.tracker.Forget(append(e.registry.Names(), engineHealthKey)...)
	}

	if err := canvas.Clear(); err != nil {
		return nil, e.unavailable(e.checkDevice(fmt.Errorf("clear canvas: %w", err)))
	}

	if err := e.compositeAll(dev, canvas, region, deadline, log); err != nil {
		return nil, e.unavailable(err)
	}

	rbStart := e.clock.now()
	pix := e.pool.Get(region.Dx(), region.Dy())
	if err := canvas.Readback(pix); err != nil {
		e.pool.Put(pix)
		return nil, e.unavailable(e.checkDevice(fmt.Errorf("readback: %w", err)))
	}
	end := e.clock.now()
	e.metrics.recordCycle(end.Sub(start), end.Sub(rbStart))
	e.tracker.Update(engineHealthKey, health.Healthy, "")

	log.Debug("capture cycle complete",
		"width", region.Dx(), "height", region.Dy(),
		logging.KeyDurationMs, end.Sub(start).Milliseconds())

	return &Image{Width: region.Dx(), Height: region.Dy(), Pix: pix}, nil
}

// compositeAll acquires and composites every monitor in registry order. It
// only fails for device removal; everything else is contained per monitor.
func (e *Engine) compositeAll(dev Device, canvas Canvas, region image.Rectangle, deadline time.Time, log *slog.Logger) error {
	var compErr error
	if e.compositor == nil {
		c, err := dev.NewCompositor()
		if err != nil {
			compErr = fmt.Errorf("create compositor: %w", err)
			log.Error("compositing program unavailable", logging.KeyError, err.Error())
		} else {
			e.compositor = c
		}
	}

	for _, m := range e.registry.Monitors() {
		mlog := logging.WithDisplay(log, m.Name())

		acq, err := m.Acquire(deadline)
		e.metrics.recordRebuilds(acq.Rebuilds)
		if err != nil {
			if errors.Is(err, ErrDeviceRemoved) {
				return e.resetDevice(err, log)
			}
			mlog.Warn("skipping monitor", logging.KeyError, err.Error(), "attempts", acq.Attempts)
			e.tracker.Update(m.Name(), health.Unhealthy, err.Error())
			e.metrics.recordMonitor(false, false, true, false)
			continue
		}

		w, h := acq.Frame.Size()
		params := NewParams(acq.Desc, w, h, region, m.SDRWhiteLevel(), e.opts)

		err = compErr
		if err == nil {
			err = e.compositor.Composite(acq.Frame, params, canvas)
		}
		if err != nil {
			if errors.Is(err, ErrDeviceRemoved) {
				return e.resetDevice(err, log)
			}
			cerr := &CompositeError{Display: m.Name(), Err: err}
			mlog.Warn("composite failed", logging.KeyError, cerr.Error())
			e.tracker.Update(m.Name(), health.Unhealthy, cerr.Error())
			e.metrics.recordMonitor(true, acq.Reused, false, true)
			continue
		}

		if acq.Reused {
			e.tracker.Update(m.Name(), health.Degraded, "no new frame, reused previous")
		} else {
			e.tracker.Update(m.Name(), health.Healthy, "")
		}
		e.metrics.recordMonitor(true, acq.Reused, false, false)
		mlog.Debug("monitor composited",
			"rotation", int(acq.Desc.Rotation),
			"colorSpace", acq.Desc.ColorSpace.String(),
			"reused", acq.Reused,
			"attempts", acq.Attempts)
	}
	return nil
}

// ensureCanvas reallocates the canvas when the requested size changed and
// schedules a registry rebuild for the new canvas generation.
func (e *Engine) ensureCanvas(dev Device, region image.Rectangle, log *slog.Logger) (Canvas, error) {
	if e.canvas != nil && e.region.Size() == region.Size() {
		e.region = region
		return e.canvas, nil
	}
	if e.canvas != nil {
		if err := e.canvas.Release(); err != nil {
			log.Warn("release canvas", logging.KeyError, err.Error())
		}
		e.canvas = nil
	}
	canvas, err := dev.NewCanvas(region.Dx(), region.Dy())
	if err != nil {
		return nil, e.checkDevice(fmt.Errorf("allocate canvas %dx%d: %w", region.Dx(), region.Dy(), err))
	}
	log.Info("canvas allocated", "width", region.Dx(), "height", region.Dy())
	e.canvas = canvas
	e.region = region
	e.needRefresh = true
	return canvas, nil
}

// Monitors lists the current display descriptors, enumerating the registry
// if needed.
func (e *Engine) Monitors() ([]Descriptor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dev, err := e.ensureDevice()
	if err != nil {
		return nil, err
	}
	if e.needRefresh || len(e.registry.Monitors()) == 0 {
		if err := e.registry.Refresh(dev); err != nil {
			return nil, err
		}
		e.metrics.recordRefresh()
		e.needRefresh = false
	}

	descs := make([]Descriptor, 0, len(e.registry.Monitors()))
	for _, m := range e.registry.Monitors() {
		d, err := m.Describe()
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", m.Name(), err)
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return e.metrics.snapshot()
}

// Health returns the tracker the engine reports to.
func (e *Engine) Health() *health.Tracker {
	return e.tracker
}

// Recycle hands an image's pixel buffer back for reuse. img must not be used
// afterwards.
func (e *Engine) Recycle(img *Image) {
	if img == nil {
		return
	}
	e.pool.Put(img.Pix)
	img.Pix = nil
}

// Shutdown releases every GPU resource. The engine cannot be used afterwards.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.releaseResources()
	return e.gpu.close()
}

func (e *Engine) ensureDevice() (Device, error) {
	if e.closed {
		return nil, errShutdown
	}
	dev, err := e.gpu.ensureInitialized()
	if err != nil {
		e.tracker.Update(engineHealthKey, health.Unhealthy, err.Error())
	}
	return dev, err
}

// checkDevice resets the device when err reports its removal.
func (e *Engine) checkDevice(err error) error {
	if errors.Is(err, ErrDeviceRemoved) {
		return e.resetDevice(err, e.log)
	}
	return err
}

// resetDevice drops the device and everything created on it. The next call
// reopens it.
func (e *Engine) resetDevice(cause error, log *slog.Logger) error {
	log.Error("gpu device removed, resetting", logging.KeyError, cause.Error())
	e.metrics.recordDeviceReset()
	e.tracker.Update(engineHealthKey, health.Degraded, "device reset")
	e.releaseResources()
	if err := e.gpu.close(); err != nil {
		log.Warn("close removed device", logging.KeyError, err.Error())
	}
	return cause
}

func (e *Engine) releaseResources() {
	e.registry.Close()
	if e.compositor != nil {
		if err := e.compositor.Release(); err != nil {
			e.log.Warn("release compositor", logging.KeyError, err.Error())
		}
		e.compositor = nil
	}
	if e.canvas != nil {
		if err := e.canvas.Release(); err != nil {
			e.log.Warn("release canvas", logging.KeyError, err.Error())
		}
		e.canvas = nil
	}
	e.region = image.Rectangle{}
	e.needRefresh = true
}

func (e *Engine) unavailable(err error) error {
	e.metrics.recordUnavailable()
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

package capture

import (
	"log/slog"

	"github.com/vinhtt98/bitblt-hdr/internal/logging"
)

// Registry owns the monitors of one canvas generation.
type Registry struct {
	monitors   []*Monitor
	generation uint64

	opts        Options
	whiteLevels WhiteLevelSource
	clock       clock
	log         *slog.Logger
}

func newRegistry(opts Options, wl WhiteLevelSource, clk clock) *Registry {
	return &Registry{
		opts:        opts,
		whiteLevels: wl,
		clock:       clk,
		log:         logging.L("registry"),
	}
}

// Refresh closes every monitor and enumerates the desktop outputs again. On
// failure the registry is left empty.
func (r *Registry) Refresh(dev Device) error {
	r.Close()

	outputs, err := dev.Outputs()
	if err != nil {
		return &EnumerationError{Err: err}
	}
	for _, out := range outputs {
		r.monitors = append(r.monitors, newMonitor(out, r.opts, r.whiteLevels, r.clock))
	}
	r.generation++
	r.log.Info("registry refreshed", "monitors", len(r.monitors), "generation", r.generation)
	return nil
}

// Monitors returns the monitors in enumeration order.
func (r *Registry) Monitors() []*Monitor { return r.monitors }

// Generation counts successful refreshes.
func (r *Registry) Generation() uint64 { return r.generation }

// Names returns the display identities of all monitors.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.monitors))
	for _, m := range r.monitors {
		names = append(names, m.Name())
	}
	return names
}

// Close releases every monitor.
func (r *Registry) Close() {
	for _, m := range r.monitors {
		if err := m.Close(); err != nil {
			r.log.Warn("close monitor", logging.KeyDisplay, m.Name(), logging.KeyError, err.Error())
		}
	}
	r.monitors = nil
}

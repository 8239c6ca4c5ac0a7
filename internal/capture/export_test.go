package capture

import "time"

// SetClock replaces the engine's time source for tests.
func (e *Engine) SetClock(now func() time.Time, sleep func(time.Duration)) {
	e.clock = clock{now: now, sleep: sleep}
	e.registry.clock = e.clock
	for _, m := range e.registry.monitors {
		m.clock = e.clock
	}
}

// Registry exposes the engine's registry for tests.
func (e *Engine) Registry() *Registry { return e.registry }

package health

import (
	"sort"
	"sync"
	"time"

	"github.com/vinhtt98/bitblt-hdr/internal/logging"
)

var log = logging.L("health")

// Status represents the health status of one display or of the engine.
type Status string

const (
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
	Unknown   Status = "unknown"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case Healthy, Degraded, Unhealthy, Unknown:
		return true
	}
	return false
}

// Check stores the latest result for a named component.
type Check struct {
	Name      string    `json:"name" yaml:"name"`
	Status    Status    `json:"status" yaml:"status"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Tracker records per-component capture health. The engine reports every
// display after each cycle, which is the observability hook for failures it
// contains instead of propagating.
type Tracker struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{checks: make(map[string]Check)}
}

// Update records the status for a named component. Unknown values are
// coerced to Unhealthy.
func (t *Tracker) Update(name string, status Status, message string) {
	if !status.IsValid() {
		status = Unhealthy
	}

	t.mu.Lock()
	prev, existed := t.checks[name]
	t.checks[name] = Check{
		Name:      name,
		Status:    status,
		Message:   message,
		UpdatedAt: time.Now(),
	}
	t.mu.Unlock()

	// Only log transitions; the engine reports every cycle.
	if status != Healthy && (!existed || prev.Status != status) {
		log.Warn("capture health changed", "target", name, "status", string(status), "message", message)
	}
}

// Forget drops every component not in keep. Used when the display set is
// rebuilt so vanished displays stop counting against the overall status.
func (t *Tracker) Forget(keep ...string) {
	wanted := make(map[string]bool, len(keep))
	for _, k := range keep {
		wanted[k] = true
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for name := range t.checks {
		if !wanted[name] {
			delete(t.checks, name)
		}
	}
}

// Get returns the check for a named component.
func (t *Tracker) Get(name string) (Check, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.checks[name]
	return c, ok
}

// Overall returns the worst status across all checks, Unknown when empty.
func (t *Tracker) Overall() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.overallLocked()
}

func (t *Tracker) overallLocked() Status {
	if len(t.checks) == 0 {
		return Unknown
	}
	worst := Healthy
	for _, c := range t.checks {
		if statusRank(c.Status) > statusRank(worst) {
			worst = c.Status
		}
	}
	return worst
}

// All returns a snapshot of all checks sorted by name.
func (t *Tracker) All() []Check {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Check, 0, len(t.checks))
	for _, c := range t.checks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Summary returns overall and per-component status taken under one lock.
func (t *Tracker) Summary() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	components := make(map[string]string, len(t.checks))
	for _, c := range t.checks {
		components[c.Name] = string(c.Status)
	}
	return map[string]any{
		"status":     string(t.overallLocked()),
		"components": components,
	}
}

func statusRank(s Status) int {
	switch s {
	case Healthy:
		return 0
	case Degraded:
		return 1
	case Unhealthy:
		return 2
	case Unknown:
		return 3
	default:
		return 0
	}
}

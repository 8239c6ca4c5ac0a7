package capture

import (
	"sync"
	"time"
)

// cycleMetrics tracks capture cycle counters for one engine.
type cycleMetrics struct {
	mu sync.RWMutex

	cycles        uint64
	unavailable   uint64
	acquired      uint64
	reused        uint64
	skipped       uint64
	compositeErrs uint64
	rebuilds      uint64
	refreshes     uint64
	deviceResets  uint64

	lastCycle    time.Duration
	lastReadback time.Duration
	startTime    time.Time
}

func newCycleMetrics() *cycleMetrics {
	return &cycleMetrics{startTime: time.Now()}
}

func (m *cycleMetrics) recordCycle(d, readback time.Duration) {
	m.mu.Lock()
	m.cycles++
	m.lastCycle = d
	m.lastReadback = readback
	m.mu.Unlock()
}

func (m *cycleMetrics) recordUnavailable() {
	m.mu.Lock()
	m.unavailable++
	m.mu.Unlock()
}

func (m *cycleMetrics) recordMonitor(acquired, reused, skipped, compositeErr bool) {
	m.mu.Lock()
	switch {
	case skipped:
		m.skipped++
	case reused:
		m.reused++
	case acquired:
		m.acquired++
	}
	if compositeErr {
		m.compositeErrs++
	}
	m.mu.Unlock()
}

func (m *cycleMetrics) recordRebuilds(n int) {
	if n == 0 {
		return
	}
	m.mu.Lock()
	m.rebuilds += uint64(n)
	m.mu.Unlock()
}

func (m *cycleMetrics) recordRefresh() {
	m.mu.Lock()
	m.refreshes++
	m.mu.Unlock()
}

func (m *cycleMetrics) recordDeviceReset() {
	m.mu.Lock()
	m.deviceResets++
	m.mu.Unlock()
}

// Stats is a point-in-time copy of the engine counters.
type Stats struct {
	Cycles          uint64        `json:"cycles" yaml:"cycles"`
	Unavailable     uint64        `json:"unavailable" yaml:"unavailable"`
	FramesAcquired  uint64        `json:"framesAcquired" yaml:"framesAcquired"`
	FramesReused    uint64        `json:"framesReused" yaml:"framesReused"`
	MonitorsSkipped uint64        `json:"monitorsSkipped" yaml:"monitorsSkipped"`
	CompositeErrors uint64        `json:"compositeErrors" yaml:"compositeErrors"`
	StreamRebuilds  uint64        `json:"streamRebuilds" yaml:"streamRebuilds"`
	RegistryRefresh uint64        `json:"registryRefresh" yaml:"registryRefresh"`
	DeviceResets    uint64        `json:"deviceResets" yaml:"deviceResets"`
	LastCycleMs     float64       `json:"lastCycleMs" yaml:"lastCycleMs"`
	LastReadbackMs  float64       `json:"lastReadbackMs" yaml:"lastReadbackMs"`
	Uptime          time.Duration `json:"uptime" yaml:"uptime"`
}

func (m *cycleMetrics) snapshot() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Stats{
		Cycles:          m.cycles,
		Unavailable:     m.unavailable,
		FramesAcquired:  m.acquired,
		FramesReused:    m.reused,
		MonitorsSkipped: m.skipped,
		CompositeErrors: m.compositeErrs,
		StreamRebuilds:  m.rebuilds,
		RegistryRefresh: m.refreshes,
		DeviceResets:    m.deviceResets,
		LastCycleMs:     float64(m.lastCycle.Microseconds()) / 1000.0,
		LastReadbackMs:  float64(m.lastReadback.Microseconds()) / 1000.0,
		Uptime:          time.Since(m.startTime),
	}
}

package maskcore

import (
	"sync"
	"time"
)

const (
	// DefaultFrameBudget is the per-frame processing allowance. At 30 fps a
	// frame arrives every 33ms; refinement that consistently takes longer
	// than that stalls the video path.
	DefaultFrameBudget = 33 * time.Millisecond

	// DefaultTripStreak is the number of consecutive over-budget frames
	// required before the monitor trips. A single slow frame (GC pause,
	// scheduler hiccup) must not disable refinement.
	DefaultTripStreak = 5

	// budgetSmoothingAlpha weights the newest sample in the running
	// average of frame times.
	budgetSmoothingAlpha = 0.1
)

// FrameBudgetConfig controls when sustained slow processing trips a track
// into bypass.
type FrameBudgetConfig struct {
	// Budget is the per-frame time allowance. Zero or negative selects
	// DefaultFrameBudget.
	Budget time.Duration

	// TripStreak is how many consecutive over-budget frames are required
	// to trip. Zero or negative selects DefaultTripStreak.
	TripStreak int
}

// DefaultFrameBudgetConfig returns the budget configuration for a 30 fps
// video path.
func DefaultFrameBudgetConfig() FrameBudgetConfig {
	return FrameBudgetConfig{
		Budget:     DefaultFrameBudget,
		TripStreak: DefaultTripStreak,
	}
}

// BudgetMetrics is a snapshot of a monitor's frame timing state.
type BudgetMetrics struct {
	// FrameCount is the number of observed frames since the last reset.
	FrameCount uint64

	// AverageFrameTime is the exponential moving average of frame times.
	AverageFrameTime time.Duration

	// PeakFrameTime is the slowest frame observed since the last reset.
	PeakFrameTime time.Duration

	// LastFrameTime is the most recent observation.
	LastFrameTime time.Duration

	// OverBudgetStreak counts consecutive frames over budget.
	OverBudgetStreak int

	// Tripped reports whether the monitor has latched into the tripped
	// state.
	Tripped bool
}

// FrameBudgetMonitor watches per-frame processing times and trips once
// processing is sustainably over budget. The trip decision requires both a
// streak of consecutive over-budget frames and an over-budget running
// average, so isolated spikes pass through without consequence.
//
// The monitor is safe for concurrent use, though each track drives its own
// instance from a single frame loop in practice.
type FrameBudgetMonitor struct {
	mu     sync.Mutex
	config FrameBudgetConfig

	frameCount uint64
	avg        time.Duration
	peak       time.Duration
	last       time.Duration
	streak     int
	tripped    bool
}

// NewFrameBudgetMonitor creates a monitor with the given configuration.
// Zero-valued fields fall back to the defaults.
func NewFrameBudgetMonitor(config FrameBudgetConfig) *FrameBudgetMonitor {
	if config.Budget <= 0 {
		config.Budget = DefaultFrameBudget
	}
	if config.TripStreak <= 0 {
		config.TripStreak = DefaultTripStreak
	}
	return &FrameBudgetMonitor{config: config}
}

// Observe records one frame's processing time and reports whether this
// observation tripped the monitor. The trip fires at most once; later
// observations keep updating the metrics but return false until Reset.
func (m *FrameBudgetMonitor) Observe(elapsed time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.frameCount++
	m.last = elapsed

	// Update average frame time using exponential moving average
	if m.avg == 0 {
		m.avg = elapsed
	} else {
		// EMA with alpha = 0.1 for smooth averaging
		m.avg = time.Duration(
			float64(m.avg)*(1-budgetSmoothingAlpha) + float64(elapsed)*budgetSmoothingAlpha,
		)
	}

	// Track peak frame time
	if elapsed > m.peak {
		m.peak = elapsed
	}

	if elapsed > m.config.Budget {
		m.streak++
	} else {
		m.streak = 0
	}

	if m.tripped {
		return false
	}
	if m.streak >= m.config.TripStreak && m.avg > m.config.Budget {
		m.tripped = true
		return true
	}

	return false
}

// Tripped reports whether the monitor is in the tripped state.
func (m *FrameBudgetMonitor) Tripped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tripped
}

// Metrics returns a snapshot of the current timing state.
func (m *FrameBudgetMonitor) Metrics() BudgetMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return BudgetMetrics{
		FrameCount:       m.frameCount,
		AverageFrameTime: m.avg,
		PeakFrameTime:    m.peak,
		LastFrameTime:    m.last,
		OverBudgetStreak: m.streak,
		Tripped:          m.tripped,
	}
}

// Reset clears all timing state, including the tripped latch. The next
// observation seeds the average again.
func (m *FrameBudgetMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.frameCount = 0
	m.avg = 0
	m.peak = 0
	m.last = 0
	m.streak = 0
	m.tripped = false
}

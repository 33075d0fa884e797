package maskcore

import (
	"sync"
	"time"

	"github.com/opd-ai/maskcore/preset"
	"github.com/opd-ai/maskcore/refine"
	"github.com/sirupsen/logrus"
)

// BudgetExceededCallback is invoked when a track trips its frame budget and
// switches to bypass. The average is the smoothed frame time at trip time.
type BudgetExceededCallback func(trackID string, average time.Duration)

// Track refines the segmentation masks of one video track. Each track owns
// its temporal state, its post-processing scratch buffers and its frame
// budget monitor, so tracks never interfere with each other.
//
// All methods are safe for concurrent use, though masks for a single track
// normally arrive from one decode loop.
type Track struct {
	id string

	mu       sync.Mutex
	config   preset.ResolvedConfig
	engine   *refine.Engine
	post     *refine.PostProcessor
	monitor  *FrameBudgetMonitor
	bypassed bool

	timeProvider TimeProvider
	notify       BudgetExceededCallback
}

// newTrack builds a track for the given resolved configuration. notify may
// be nil; it fires when the frame budget trips.
func newTrack(id string, config preset.ResolvedConfig, postEnabled bool, budgetConfig FrameBudgetConfig, tp TimeProvider, notify BudgetExceededCallback) *Track {
	t := &Track{
		id:           id,
		monitor:      NewFrameBudgetMonitor(budgetConfig),
		timeProvider: tp,
		notify:       notify,
	}
	t.apply(config, postEnabled)
	return t
}

// ID returns the track identifier.
func (t *Track) ID() string {
	return t.id
}

// Config returns the resolved configuration this track runs with.
func (t *Track) Config() preset.ResolvedConfig {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.config
}

// Refine processes one segmentation mask through detection cleanup and edge
// refinement, in that order. The returned mask is owned by the track and
// valid until the next Refine or Reset call.
//
// A bypassed track returns the input unchanged after validation. Processing
// time is charged against the frame budget; when the budget trips, the
// track switches to bypass and stays there until SetBypassed(false).
func (t *Track) Refine(m *refine.Mask) (*refine.Mask, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bypassed {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		return m, nil
	}

	start := t.timeProvider.Now()

	current := m
	var err error
	if t.post != nil {
		current, err = t.post.Apply(current)
		if err != nil {
			return nil, err
		}
	}
	current, err = t.engine.Refine(current)
	if err != nil {
		return nil, err
	}

	if t.monitor.Observe(t.timeProvider.Since(start)) {
		t.bypassed = true
		average := t.monitor.Metrics().AverageFrameTime

		logrus.WithFields(logrus.Fields{
			"function": "Refine",
			"track_id": t.id,
			"avg_ms":   float64(average.Microseconds()) / 1000.0,
		}).Warn("Frame budget exceeded, track switched to bypass")

		if t.notify != nil {
			// Invoke callback asynchronously to keep the frame path
			// non-blocking.
			go t.notify(t.id, average)
		}
	}

	return current, nil
}

// Reset discards the track's temporal state. Call it on camera switches or
// seeks, where blending against the previous content would smear frames.
func (t *Track) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.engine.Reset()
}

// SetBypassed forces the track into or out of bypass. Turning bypass off
// restarts the budget measurement from scratch, so the track gets a full
// streak of slow frames before it can trip again.
func (t *Track) SetBypassed(bypassed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bypassed == bypassed {
		return
	}

	t.bypassed = bypassed
	if !bypassed {
		t.monitor.Reset()
	}

	logrus.WithFields(logrus.Fields{
		"function": "SetBypassed",
		"track_id": t.id,
		"bypassed": bypassed,
	}).Info("Track bypass state changed")
}

// Bypassed reports whether the track is currently passing masks through
// unprocessed.
func (t *Track) Bypassed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bypassed
}

// BudgetMetrics returns a snapshot of the track's frame timing state.
func (t *Track) BudgetMetrics() BudgetMetrics {
	return t.monitor.Metrics()
}

// rebuild swaps in a new resolved configuration. Temporal state is
// discarded with the old engine, and the budget monitor restarts so the new
// configuration is measured from scratch.
func (t *Track) rebuild(config preset.ResolvedConfig, postEnabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.apply(config, postEnabled)
	t.bypassed = false
	t.monitor.Reset()
}

// apply installs the processing stages for config. Callers hold t.mu,
// except newTrack before the track is shared.
func (t *Track) apply(config preset.ResolvedConfig, postEnabled bool) {
	t.config = config
	t.engine = refine.NewEngine(config.EdgeRefinement)
	if postEnabled {
		t.post = refine.NewPostProcessor(config.EnhancedDetection)
	} else {
		t.post = nil
	}
}

package maskcore

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/maskcore/capability"
	"github.com/opd-ai/maskcore/preset"
	"github.com/opd-ai/maskcore/refine"
	"github.com/sirupsen/logrus"
)

// Options contains pipeline configuration.
type Options struct {
	// Overrides, when non-nil, replaces the tier preset wholesale. The
	// same rules apply as in preset.Resolve.
	Overrides *preset.UserOverrides

	// BudgetConfig controls the per-track frame budget. Zero-valued
	// fields fall back to the defaults.
	BudgetConfig FrameBudgetConfig

	// PostProcessing wires the detection cleanup stage into each track.
	// Edge refinement runs either way.
	PostProcessing bool

	// TimeProvider measures frame processing times. Nil selects
	// DefaultTimeProvider.
	TimeProvider TimeProvider
}

// NewOptions creates an Options with default settings.
func NewOptions() *Options {
	return &Options{
		BudgetConfig:   DefaultFrameBudgetConfig(),
		PostProcessing: true,
	}
}

// Pipeline ties device classification, preset resolution and per-track mask
// refinement together. A video call application creates one pipeline per
// device, adds a track per video stream, and feeds each track its raw
// segmentation masks.
type Pipeline struct {
	// Core components
	options      *Options
	caps         capability.DeviceCapabilities
	tier         capability.QualityTier
	timeProvider TimeProvider

	// State
	mu     sync.RWMutex
	config preset.ResolvedConfig
	tracks map[string]*Track
	closed bool

	// Callbacks
	callbackMu     sync.RWMutex
	budgetCallback BudgetExceededCallback
}

// NewPipeline classifies the device and creates a pipeline running the
// matching quality preset. Passing nil options uses NewOptions defaults.
func NewPipeline(caps capability.DeviceCapabilities, options *Options) *Pipeline {
	p := NewPipelineForTier(capability.Classify(caps), options)
	p.caps = caps
	return p
}

// NewPipelineForTier creates a pipeline for an already-known quality tier,
// skipping device classification. Capabilities report as zero values.
func NewPipelineForTier(tier capability.QualityTier, options *Options) *Pipeline {
	if options == nil {
		options = NewOptions()
	}

	tp := options.TimeProvider
	if tp == nil {
		tp = DefaultTimeProvider{}
	}

	p := &Pipeline{
		options:      options,
		tier:         tier,
		timeProvider: tp,
		config:       preset.Resolve(tier, options.Overrides),
		tracks:       make(map[string]*Track),
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewPipelineForTier",
		"tier":        tier.String(),
		"delegate":    p.config.Delegate.String(),
		"blur_radius": p.config.BlurRadius,
	}).Info("Mask refinement pipeline created")

	return p
}

// Tier returns the quality tier the pipeline was created for.
func (p *Pipeline) Tier() capability.QualityTier {
	return p.tier
}

// Capabilities returns the device capabilities the pipeline was created
// with. Pipelines created via NewPipelineForTier report zero values.
func (p *Pipeline) Capabilities() capability.DeviceCapabilities {
	return p.caps
}

// Config returns the currently active resolved configuration.
func (p *Pipeline) Config() preset.ResolvedConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config
}

// SetOverrides re-resolves the configuration with the given overrides and
// rebuilds every track. Rebuilt tracks lose their temporal state and budget
// history; passing nil returns the pipeline to the pure tier preset.
func (p *Pipeline) SetOverrides(overrides *preset.UserOverrides) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPipelineClosed
	}

	p.options.Overrides = overrides
	p.config = preset.Resolve(p.tier, overrides)

	config := p.config
	postEnabled := p.options.PostProcessing
	tracks := make([]*Track, 0, len(p.tracks))
	for _, track := range p.tracks {
		tracks = append(tracks, track)
	}
	p.mu.Unlock()

	for _, track := range tracks {
		track.rebuild(config, postEnabled)
	}

	logrus.WithFields(logrus.Fields{
		"function": "SetOverrides",
		"tier":     p.tier.String(),
		"delegate": config.Delegate.String(),
		"tracks":   len(tracks),
	}).Info("Pipeline configuration updated")

	return nil
}

// AddTrack registers a video track and returns its identifier. An empty id
// is replaced with a generated one.
func (p *Pipeline) AddTrack(id string) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return "", ErrPipelineClosed
	}
	if _, exists := p.tracks[id]; exists {
		return "", fmt.Errorf("track %q: %w", id, ErrTrackExists)
	}

	p.tracks[id] = newTrack(id, p.config, p.options.PostProcessing, p.options.BudgetConfig, p.timeProvider, p.fireBudgetCallback)

	logrus.WithFields(logrus.Fields{
		"function": "AddTrack",
		"track_id": id,
	}).Debug("Track added")

	return id, nil
}

// RemoveTrack unregisters a track and releases its buffers.
func (p *Pipeline) RemoveTrack(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPipelineClosed
	}
	if _, exists := p.tracks[id]; !exists {
		return fmt.Errorf("track %q: %w", id, ErrTrackNotFound)
	}

	delete(p.tracks, id)

	logrus.WithFields(logrus.Fields{
		"function": "RemoveTrack",
		"track_id": id,
	}).Debug("Track removed")

	return nil
}

// Track returns the track registered under id.
func (p *Pipeline) Track(id string) (*Track, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPipelineClosed
	}
	track, exists := p.tracks[id]
	if !exists {
		return nil, fmt.Errorf("track %q: %w", id, ErrTrackNotFound)
	}
	return track, nil
}

// TrackCount returns the number of registered tracks.
func (p *Pipeline) TrackCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tracks)
}

// RefineFrame processes one mask for the given track. It is shorthand for
// looking the track up and calling its Refine method.
func (p *Pipeline) RefineFrame(trackID string, m *refine.Mask) (*refine.Mask, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrPipelineClosed
	}
	track, exists := p.tracks[trackID]
	p.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("track %q: %w", trackID, ErrTrackNotFound)
	}

	return track.Refine(m)
}

// OnBudgetExceeded registers a callback fired whenever a track trips its
// frame budget and switches to bypass. The callback runs on its own
// goroutine; registering nil removes it.
func (p *Pipeline) OnBudgetExceeded(callback BudgetExceededCallback) {
	p.callbackMu.Lock()
	defer p.callbackMu.Unlock()
	p.budgetCallback = callback
}

// fireBudgetCallback dispatches a budget trip to the registered callback.
// Tracks call it on the goroutine they spawn at trip time, so it never
// blocks a frame.
func (p *Pipeline) fireBudgetCallback(trackID string, average time.Duration) {
	p.callbackMu.RLock()
	callback := p.budgetCallback
	p.callbackMu.RUnlock()

	if callback != nil {
		callback(trackID, average)
	}
}

// Close shuts the pipeline down and drops all tracks. Further calls on the
// pipeline return ErrPipelineClosed.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPipelineClosed
	}

	p.closed = true
	p.tracks = make(map[string]*Track)

	logrus.WithFields(logrus.Fields{
		"function": "Close",
	}).Info("Mask refinement pipeline closed")

	return nil
}

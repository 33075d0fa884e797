package maskcore

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/maskcore/capability"
	"github.com/opd-ai/maskcore/preset"
	"github.com/opd-ai/maskcore/refine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTimeProvider reports a fixed elapsed duration for every frame,
// making budget behavior deterministic in tests.
type mockTimeProvider struct {
	mu    sync.Mutex
	since time.Duration
}

func (m *mockTimeProvider) Now() time.Time {
	return time.Unix(0, 0)
}

func (m *mockTimeProvider) Since(time.Time) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.since
}

func (m *mockTimeProvider) setSince(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.since = d
}

// newFlatMask builds a mask with every pixel set to the same value.
func newFlatMask(t *testing.T, width, height int, value uint8) *refine.Mask {
	t.Helper()
	m, err := refine.NewMask(width, height)
	require.NoError(t, err)
	m.Fill(value)
	return m
}

// refinementOverrides enables edge refinement with temporal smoothing, the
// configuration most pipeline tests exercise.
func refinementOverrides() *preset.UserOverrides {
	return &preset.UserOverrides{
		BlurRadius:           15,
		EdgeFeather:          0.25,
		TemporalSmoothing:    true,
		UseGPU:               false,
		EnableEdgeRefinement: true,
	}
}

func TestNewOptions(t *testing.T) {
	options := NewOptions()

	assert.Nil(t, options.Overrides)
	assert.True(t, options.PostProcessing)
	assert.Equal(t, DefaultFrameBudgetConfig(), options.BudgetConfig)
	assert.Nil(t, options.TimeProvider)
}

func TestNewPipeline_ClassifiesDevice(t *testing.T) {
	probe := []byte(`{"powerLevel":"high","hasGPU":true,"cpuCores":16,"deviceMemoryGB":32}`)
	caps, err := capability.ParseDeviceCapabilities(probe)
	require.NoError(t, err)

	pipeline := NewPipeline(caps, nil)
	defer pipeline.Close()

	assert.Equal(t, capability.TierUltra, pipeline.Tier())
	assert.Equal(t, caps, pipeline.Capabilities())
	assert.Equal(t, preset.Resolve(capability.TierUltra, nil), pipeline.Config())
}

func TestNewPipelineForTier(t *testing.T) {
	pipeline := NewPipelineForTier(capability.TierMedium, nil)
	defer pipeline.Close()

	assert.Equal(t, capability.TierMedium, pipeline.Tier())
	assert.Equal(t, preset.Resolve(capability.TierMedium, nil), pipeline.Config())
	assert.Equal(t, capability.DeviceCapabilities{}, pipeline.Capabilities())
}

func TestNewPipelineForTier_OverridesApplied(t *testing.T) {
	options := NewOptions()
	options.Overrides = refinementOverrides()

	pipeline := NewPipelineForTier(capability.TierLow, options)
	defer pipeline.Close()

	config := pipeline.Config()
	assert.True(t, config.EdgeRefinement.Enabled)
	assert.True(t, config.EdgeRefinement.TemporalSmoothing)
	assert.Equal(t, preset.DelegateCPU, config.Delegate)
}

func TestPipeline_AddTrack(t *testing.T) {
	pipeline := NewPipelineForTier(capability.TierLow, nil)
	defer pipeline.Close()

	id, err := pipeline.AddTrack("camera-main")
	require.NoError(t, err)
	assert.Equal(t, "camera-main", id)
	assert.Equal(t, 1, pipeline.TrackCount())

	_, err = pipeline.AddTrack("camera-main")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTrackExists))
	assert.Equal(t, 1, pipeline.TrackCount())
}

func TestPipeline_AddTrack_GeneratesIDs(t *testing.T) {
	pipeline := NewPipelineForTier(capability.TierLow, nil)
	defer pipeline.Close()

	first, err := pipeline.AddTrack("")
	require.NoError(t, err)
	second, err := pipeline.AddTrack("")
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, pipeline.TrackCount())
}

func TestPipeline_RemoveTrack(t *testing.T) {
	pipeline := NewPipelineForTier(capability.TierLow, nil)
	defer pipeline.Close()

	id, err := pipeline.AddTrack("cam")
	require.NoError(t, err)

	require.NoError(t, pipeline.RemoveTrack(id))
	assert.Equal(t, 0, pipeline.TrackCount())

	err = pipeline.RemoveTrack(id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTrackNotFound))
}

func TestPipeline_TrackLookup(t *testing.T) {
	pipeline := NewPipelineForTier(capability.TierLow, nil)
	defer pipeline.Close()

	id, err := pipeline.AddTrack("cam")
	require.NoError(t, err)

	track, err := pipeline.Track(id)
	require.NoError(t, err)
	assert.Equal(t, id, track.ID())
	assert.Equal(t, pipeline.Config(), track.Config())

	_, err = pipeline.Track("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTrackNotFound))
}

func TestPipeline_RefineFrame_PresetIdentity(t *testing.T) {
	// Every built-in preset ships with edge refinement off, so a pipeline
	// without overrides passes masks through untouched.
	pipeline := NewPipelineForTier(capability.TierLow, nil)
	defer pipeline.Close()

	id, err := pipeline.AddTrack("cam")
	require.NoError(t, err)

	m := newFlatMask(t, 32, 32, 200)
	result, err := pipeline.RefineFrame(id, m)
	require.NoError(t, err)
	assert.Same(t, m, result)
}

func TestPipeline_RefineFrame_WithOverrides(t *testing.T) {
	options := NewOptions()
	options.Overrides = &preset.UserOverrides{
		BlurRadius:           15,
		EdgeFeather:          0.25,
		EnableEdgeRefinement: true,
	}

	pipeline := NewPipelineForTier(capability.TierLow, options)
	defer pipeline.Close()

	id, err := pipeline.AddTrack("cam")
	require.NoError(t, err)

	// A hard edge so refinement visibly changes the mask.
	m := newFlatMask(t, 40, 40, 0)
	for y := 0; y < 40; y++ {
		for x := 20; x < 40; x++ {
			m.Pix[y*40+x] = 255
		}
	}

	result, err := pipeline.RefineFrame(id, m)
	require.NoError(t, err)
	require.NotSame(t, m, result)

	// The pipeline output matches a standalone engine with the same
	// configuration: post-processing is disabled in this override, so the
	// engine is the only active stage.
	engine := refine.NewEngine(pipeline.Config().EdgeRefinement)
	want, err := engine.Refine(m)
	require.NoError(t, err)
	assert.Equal(t, want.Pix, result.Pix)
}

func TestPipeline_RefineFrame_UnknownTrack(t *testing.T) {
	pipeline := NewPipelineForTier(capability.TierLow, nil)
	defer pipeline.Close()

	_, err := pipeline.RefineFrame("missing", newFlatMask(t, 8, 8, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTrackNotFound))
}

func TestPipeline_RefineFrame_InvalidMask(t *testing.T) {
	pipeline := NewPipelineForTier(capability.TierLow, nil)
	defer pipeline.Close()

	id, err := pipeline.AddTrack("cam")
	require.NoError(t, err)

	result, err := pipeline.RefineFrame(id, nil)
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestPipeline_SetOverrides_RebuildsTracks(t *testing.T) {
	options := NewOptions()
	options.Overrides = refinementOverrides()

	pipeline := NewPipelineForTier(capability.TierLow, options)
	defer pipeline.Close()

	id, err := pipeline.AddTrack("cam")
	require.NoError(t, err)

	white := newFlatMask(t, 20, 20, 255)
	black := newFlatMask(t, 20, 20, 0)

	// Control: with temporal smoothing active, black after white blends
	// toward the previous frame instead of dropping straight to zero.
	_, err = pipeline.RefineFrame(id, white)
	require.NoError(t, err)
	result, err := pipeline.RefineFrame(id, black)
	require.NoError(t, err)
	require.Equal(t, uint8(77), result.Pix[0], "temporal blend active before rebuild")

	// Reapplying overrides rebuilds the track and discards its temporal
	// state; the next black frame has nothing to blend against.
	require.NoError(t, pipeline.SetOverrides(refinementOverrides()))

	result, err = pipeline.RefineFrame(id, black)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), result.Pix[0], "temporal state dropped by rebuild")
}

func TestPipeline_SetOverrides_NilRestoresPreset(t *testing.T) {
	options := NewOptions()
	options.Overrides = refinementOverrides()

	pipeline := NewPipelineForTier(capability.TierHigh, options)
	defer pipeline.Close()

	require.NoError(t, pipeline.SetOverrides(nil))
	assert.Equal(t, preset.Resolve(capability.TierHigh, nil), pipeline.Config())
}

func TestPipeline_BudgetTripBypassesTrack(t *testing.T) {
	tp := &mockTimeProvider{}
	tp.setSince(50 * time.Millisecond)

	options := NewOptions()
	options.TimeProvider = tp
	options.BudgetConfig = FrameBudgetConfig{
		Budget:     10 * time.Millisecond,
		TripStreak: 3,
	}

	pipeline := NewPipelineForTier(capability.TierLow, options)
	defer pipeline.Close()

	tripped := make(chan time.Duration, 1)
	var trippedID string
	var trippedMu sync.Mutex
	pipeline.OnBudgetExceeded(func(trackID string, average time.Duration) {
		trippedMu.Lock()
		trippedID = trackID
		trippedMu.Unlock()
		tripped <- average
	})

	id, err := pipeline.AddTrack("cam")
	require.NoError(t, err)

	m := newFlatMask(t, 16, 16, 128)
	for i := 0; i < 3; i++ {
		_, err = pipeline.RefineFrame(id, m)
		require.NoError(t, err)
	}

	select {
	case average := <-tripped:
		assert.Greater(t, average, 10*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("budget callback was not invoked")
	}

	trippedMu.Lock()
	assert.Equal(t, id, trippedID)
	trippedMu.Unlock()

	track, err := pipeline.Track(id)
	require.NoError(t, err)
	assert.True(t, track.Bypassed())

	// Bypassed frames pass through unprocessed and unmeasured.
	result, err := pipeline.RefineFrame(id, m)
	require.NoError(t, err)
	assert.Same(t, m, result)
	assert.Equal(t, uint64(3), track.BudgetMetrics().FrameCount)
}

func TestTrack_SetBypassed(t *testing.T) {
	tp := &mockTimeProvider{}
	tp.setSince(50 * time.Millisecond)

	options := NewOptions()
	options.TimeProvider = tp
	options.BudgetConfig = FrameBudgetConfig{
		Budget:     10 * time.Millisecond,
		TripStreak: 2,
	}

	pipeline := NewPipelineForTier(capability.TierLow, options)
	defer pipeline.Close()

	id, err := pipeline.AddTrack("cam")
	require.NoError(t, err)
	track, err := pipeline.Track(id)
	require.NoError(t, err)

	m := newFlatMask(t, 16, 16, 128)
	for i := 0; i < 2; i++ {
		_, err = pipeline.RefineFrame(id, m)
		require.NoError(t, err)
	}
	require.True(t, track.Bypassed())

	// Clearing bypass re-arms the monitor; cheaper frames then keep the
	// track in full processing.
	tp.setSince(time.Millisecond)
	track.SetBypassed(false)
	assert.False(t, track.Bypassed())

	for i := 0; i < 10; i++ {
		_, err = pipeline.RefineFrame(id, m)
		require.NoError(t, err)
	}
	assert.False(t, track.Bypassed())
	assert.Equal(t, uint64(10), track.BudgetMetrics().FrameCount)
}

func TestTrack_SetBypassed_Manual(t *testing.T) {
	options := NewOptions()
	options.Overrides = refinementOverrides()

	pipeline := NewPipelineForTier(capability.TierLow, options)
	defer pipeline.Close()

	id, err := pipeline.AddTrack("cam")
	require.NoError(t, err)
	track, err := pipeline.Track(id)
	require.NoError(t, err)

	// Forcing bypass turns the track into a pass-through.
	track.SetBypassed(true)
	m := newFlatMask(t, 16, 16, 128)
	result, err := pipeline.RefineFrame(id, m)
	require.NoError(t, err)
	assert.Same(t, m, result)

	// Bypassed tracks still reject invalid input.
	_, err = pipeline.RefineFrame(id, nil)
	assert.Error(t, err)
}

func TestTrack_Reset(t *testing.T) {
	options := NewOptions()
	options.Overrides = refinementOverrides()

	pipeline := NewPipelineForTier(capability.TierLow, options)
	defer pipeline.Close()

	id, err := pipeline.AddTrack("cam")
	require.NoError(t, err)
	track, err := pipeline.Track(id)
	require.NoError(t, err)

	white := newFlatMask(t, 20, 20, 255)
	black := newFlatMask(t, 20, 20, 0)

	_, err = track.Refine(white)
	require.NoError(t, err)

	track.Reset()

	result, err := track.Refine(black)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), result.Pix[0], "reset discarded the previous frame")
}

func TestPipeline_Close(t *testing.T) {
	pipeline := NewPipelineForTier(capability.TierLow, nil)

	id, err := pipeline.AddTrack("cam")
	require.NoError(t, err)

	require.NoError(t, pipeline.Close())
	assert.Equal(t, 0, pipeline.TrackCount())

	err = pipeline.Close()
	assert.True(t, errors.Is(err, ErrPipelineClosed))

	_, err = pipeline.AddTrack("other")
	assert.True(t, errors.Is(err, ErrPipelineClosed))

	err = pipeline.RemoveTrack(id)
	assert.True(t, errors.Is(err, ErrPipelineClosed))

	_, err = pipeline.Track(id)
	assert.True(t, errors.Is(err, ErrPipelineClosed))

	_, err = pipeline.RefineFrame(id, newFlatMask(t, 8, 8, 0))
	assert.True(t, errors.Is(err, ErrPipelineClosed))

	err = pipeline.SetOverrides(nil)
	assert.True(t, errors.Is(err, ErrPipelineClosed))
}

func TestPipeline_EndToEnd(t *testing.T) {
	// The full path: probe JSON to tier, tier to preset, user overrides on
	// top, then a mask through detection cleanup and edge refinement.
	probe := []byte(`{"powerLevel":"high","hasGPU":true,"cpuCores":8,"deviceMemoryGB":16}`)
	caps, err := capability.ParseDeviceCapabilities(probe)
	require.NoError(t, err)

	options := NewOptions()
	options.Overrides = &preset.UserOverrides{
		BlurRadius:             60,
		EdgeFeather:            0.25,
		TemporalSmoothing:      true,
		UseGPU:                 true,
		EnableEdgeRefinement:   true,
		UseEnhancedPersonModel: true,
	}

	pipeline := NewPipeline(caps, options)
	defer pipeline.Close()
	require.Equal(t, capability.TierHigh, pipeline.Tier())

	id, err := pipeline.AddTrack("")
	require.NoError(t, err)

	// A subject blob with a speckle; enhanced detection erases the
	// speckle, refinement feathers the blob.
	m := newFlatMask(t, 64, 64, 0)
	for y := 16; y < 48; y++ {
		for x := 16; x < 48; x++ {
			m.Pix[y*64+x] = 230
		}
	}
	m.Pix[4*64+4] = 255

	result, err := pipeline.RefineFrame(id, m)
	require.NoError(t, err)
	require.NotSame(t, m, result)

	assert.Equal(t, uint8(0), result.Pix[4*64+4], "speckle removed by cleanup")
	assert.Equal(t, uint8(230), result.Pix[32*64+32], "subject interior intact")
	assert.NoError(t, result.Validate())

	track, err := pipeline.Track(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), track.BudgetMetrics().FrameCount)
}

func TestPipeline_ConcurrentTracks(t *testing.T) {
	options := NewOptions()
	options.Overrides = refinementOverrides()

	pipeline := NewPipelineForTier(capability.TierLow, options)
	defer pipeline.Close()

	const trackCount = 4
	const framesPerTrack = 25

	ids := make([]string, trackCount)
	for i := range ids {
		id, err := pipeline.AddTrack("")
		require.NoError(t, err)
		ids[i] = id
	}

	var wg sync.WaitGroup
	errs := make(chan error, trackCount)
	for _, id := range ids {
		m := newFlatMask(t, 32, 32, 180)
		wg.Add(1)
		go func(trackID string, m *refine.Mask) {
			defer wg.Done()
			for i := 0; i < framesPerTrack; i++ {
				if _, err := pipeline.RefineFrame(trackID, m); err != nil {
					errs <- err
					return
				}
			}
		}(id, m)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

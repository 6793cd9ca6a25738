package ml

import (
	"context"
	"errors"
	"testing"
	"time"

	"exoplanet-classifier/internal/features"
	"exoplanet-classifier/internal/mission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_FallbackWithoutRuntime(t *testing.T) {
	m := &MockMetrics{}
	c := NewClassifier(nil, m, ClassifierConfig{})

	rec := keplerRecord()
	res, err := c.Classify(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, Fallback(features.Vectorize(rec), mission.Kepler), res)
	assert.Equal(t, 1, m.Predictions("kepler", "fallback"))
	assert.Equal(t, 1, m.FallbackUse("kepler"))
	assert.Zero(t, m.Failures("kepler", "load"))
	assert.Equal(t, 1, m.LatencyCount())
	assert.False(t, c.HasRuntime())
	assert.EqualValues(t, 1, c.FallbackUsage()[mission.Kepler])
}

func TestClassifier_UsesModel(t *testing.T) {
	m := &MockMetrics{}
	c := NewClassifier(&StubRuntime{}, m, ClassifierConfig{})

	res, err := c.Classify(context.Background(), keplerRecord())
	require.NoError(t, err)
	assert.Equal(t, SourceModel, res.Source)
	assert.Equal(t, mission.Confirmed, res.Class())
	assert.Equal(t, 1, m.Predictions("kepler", "model"))
	assert.Zero(t, m.FallbackUse("kepler"))
	assert.True(t, c.HasRuntime())
}

func TestClassifier_RuntimeFailureFallsBack(t *testing.T) {
	m := &MockMetrics{}
	rt := &StubRuntime{ScaleFunc: func(context.Context, mission.ID, features.Vector) ([]float64, error) {
		return nil, errors.New("scaler file corrupt")
	}}
	c := NewClassifier(rt, m, ClassifierConfig{})

	rec := keplerRecord()
	res, err := c.Classify(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, Fallback(features.Vectorize(rec), mission.Kepler), res)
	assert.Equal(t, 1, m.Failures("kepler", "scale"))
	assert.Equal(t, 1, m.Predictions("kepler", "fallback"))
}

func TestClassifier_RuntimeTimeoutCounted(t *testing.T) {
	m := &MockMetrics{}
	rt := &StubRuntime{ClassifyFunc: func(context.Context, mission.ID, []float64) (Inference, error) {
		return Inference{}, context.DeadlineExceeded
	}}
	c := NewClassifier(rt, m, ClassifierConfig{})

	res, err := c.Classify(context.Background(), keplerRecord())
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, 1, m.Timeouts())
	assert.Equal(t, 1, m.Failures("kepler", "classify"))
}

func TestClassifier_ClassifyRawValidation(t *testing.T) {
	c := NewClassifier(nil, nil, ClassifierConfig{})

	_, err := c.ClassifyRaw(context.Background(), mission.Kepler, mission.RawRecord{
		"orbital_period":   10,
		"transit_duration": 2,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, mission.ErrMissingField)

	var missing *mission.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "planet_radius", missing.Field)

	// validation happens before any prediction
	assert.Empty(t, c.FallbackUsage())
}

func TestClassifier_ClassifyRawMatchesClassify(t *testing.T) {
	c := NewClassifier(nil, nil, ClassifierConfig{})
	rec := keplerRecord()

	viaRaw, err := c.ClassifyRaw(context.Background(), mission.Kepler, mission.Raw(rec))
	require.NoError(t, err)
	direct, err := c.Classify(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, direct, viaRaw)
}

func TestClassifier_Delay(t *testing.T) {
	c := NewClassifier(nil, nil, ClassifierConfig{DelayMin: 20 * time.Millisecond, DelayMax: 30 * time.Millisecond})

	start := time.Now()
	_, err := c.Classify(context.Background(), keplerRecord())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestClassifier_DelayCancelled(t *testing.T) {
	m := &MockMetrics{}
	c := NewClassifier(nil, m, ClassifierConfig{DelayMin: time.Hour, DelayMax: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Classify(ctx, keplerRecord())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Zero(t, m.Predictions("kepler", "fallback"))
}

func TestClassifier_CancelledBeforeStart(t *testing.T) {
	c := NewClassifier(&StubRuntime{}, nil, ClassifierConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Classify(ctx, keplerRecord())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifier_ObservesInputs(t *testing.T) {
	monitor := NewInputMonitor(0, 0)
	c := NewClassifier(nil, nil, ClassifierConfig{Monitor: monitor})

	_, err := c.Classify(context.Background(), keplerRecord())
	require.NoError(t, err)

	report := monitor.Report(mission.Kepler)
	require.NotEmpty(t, report.Fields)
	assert.EqualValues(t, 1, report.Fields[0].SampleCount)
}

func TestClassifier_ConcurrentUse(t *testing.T) {
	c := NewClassifier(&StubRuntime{}, &MockMetrics{}, ClassifierConfig{})

	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			_, err := c.Classify(context.Background(), keplerRecord())
			errs <- err
		}()
	}
	for i := 0; i < 20; i++ {
		assert.NoError(t, <-errs)
	}
}

package ml

import (
	"context"
	"sync"

	"exoplanet-classifier/internal/features"
	"exoplanet-classifier/internal/mission"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu              sync.Mutex
	predictions     map[string]int
	failures        map[string]int
	fallbackUse     map[string]int
	timeouts        int
	latencySum      float64
	latencyCount    int
	confidenceCount int
}

func (m *MockMetrics) PredictionsInc(mission, source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.predictions == nil {
		m.predictions = make(map[string]int)
	}
	m.predictions[mission+"/"+source]++
}

func (m *MockMetrics) RuntimeFailuresInc(mission, stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = make(map[string]int)
	}
	m.failures[mission+"/"+stage]++
}

func (m *MockMetrics) FallbackUseInc(mission string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fallbackUse == nil {
		m.fallbackUse = make(map[string]int)
	}
	m.fallbackUse[mission]++
}

func (m *MockMetrics) RuntimeTimeoutsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts++
}

func (m *MockMetrics) LatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
	m.latencyCount++
}

func (m *MockMetrics) ConfidenceObserve(float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confidenceCount++
}

// Predictions returns the prediction count for mission and source.
func (m *MockMetrics) Predictions(mission, source string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictions[mission+"/"+source]
}

// Failures returns the runtime failure count for mission and stage.
func (m *MockMetrics) Failures(mission, stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[mission+"/"+stage]
}

// FallbackUse returns the fallback count for mission.
func (m *MockMetrics) FallbackUse(mission string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fallbackUse[mission]
}

// Timeouts returns the runtime timeout count.
func (m *MockMetrics) Timeouts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeouts
}

// LatencyCount returns how many latencies were observed.
func (m *MockMetrics) LatencyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latencyCount
}

// StubRuntime is a scriptable Runtime for tests.
type StubRuntime struct {
	ScaleFunc    func(ctx context.Context, id mission.ID, vec features.Vector) ([]float64, error)
	ClassifyFunc func(ctx context.Context, id mission.ID, scaled []float64) (Inference, error)

	mu       sync.Mutex
	scales   int
	classify int
}

// Scale implements Runtime. Without ScaleFunc it returns the input unchanged.
func (s *StubRuntime) Scale(ctx context.Context, id mission.ID, vec features.Vector) ([]float64, error) {
	s.mu.Lock()
	s.scales++
	s.mu.Unlock()
	if s.ScaleFunc != nil {
		return s.ScaleFunc(ctx, id, vec)
	}
	return append([]float64(nil), vec...), nil
}

// Classify implements Runtime. Without ClassifyFunc it answers Confirmed.
func (s *StubRuntime) Classify(ctx context.Context, id mission.ID, scaled []float64) (Inference, error) {
	s.mu.Lock()
	s.classify++
	s.mu.Unlock()
	if s.ClassifyFunc != nil {
		return s.ClassifyFunc(ctx, id, scaled)
	}
	return Inference{Prediction: 1, Probabilities: []float64{0.2, 0.7, 0.1}}, nil
}

// Calls returns how many times each step ran.
func (s *StubRuntime) Calls() (scale, classify int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scales, s.classify
}

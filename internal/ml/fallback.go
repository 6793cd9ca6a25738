package ml

import (
	"math"
	"sync"

	"exoplanet-classifier/internal/features"
	"exoplanet-classifier/internal/mission"
)

// Fallback derives a class distribution from the vector alone. The formula is a
// stand-in for a trained model: it is deterministic per input and varies across
// inputs, nothing more. It never fails.
func Fallback(vec features.Vector, id mission.ID) Result {
	p, err := mission.Lookup(id)
	if err != nil {
		// unknown missions carry no bias
		p = mission.Profile{ID: id, Bias: mission.Bias{Candidate: 1, Confirmed: 1, FalsePositive: 1}}
	}

	var inputSum, weighted float64
	for i, v := range vec {
		a := math.Abs(v)
		inputSum += a
		weighted += a * float64(i+1)
	}

	seed := math.Mod(inputSum, 1000) + p.FirstLetterCode()

	candidate := math.Abs(math.Sin(seed*0.01))*0.4 + 0.2
	confirmed := math.Abs(math.Cos(seed*0.02))*0.6 + 0.1
	falsePositive := math.Abs(math.Sin(seed*0.03))*0.5 + 0.1

	variance := math.Mod(weighted, 100)

	candidate *= p.Bias.Candidate
	confirmed *= p.Bias.Confirmed
	falsePositive *= p.Bias.FalsePositive

	switch {
	case variance < 25:
		falsePositive *= 1.8
		candidate *= 0.6
		confirmed *= 0.4
	case variance > 75:
		if math.Mod(seed, 4) == 0 {
			confirmed *= 2.0
		} else {
			candidate *= 1.5
		}
		falsePositive *= 0.3
	default:
		candidate *= 1.1
		confirmed *= 1.0
		falsePositive *= 0.8
	}

	total := candidate + confirmed + falsePositive
	probs := [3]float64{candidate / total, confirmed / total, falsePositive / total}
	return newResult(id, probs, SourceFallback)
}

// FallbackPredictor wraps Fallback with usage accounting.
type FallbackPredictor struct {
	mu      sync.RWMutex
	usage   map[mission.ID]int64
	metrics MetricsInterface
}

// NewFallbackPredictor creates a new fallback predictor
func NewFallbackPredictor(metrics MetricsInterface) *FallbackPredictor {
	return &FallbackPredictor{
		usage:   make(map[mission.ID]int64),
		metrics: metrics,
	}
}

// Predict runs the fallback heuristic and records its use.
func (p *FallbackPredictor) Predict(vec features.Vector, id mission.ID) Result {
	p.mu.Lock()
	p.usage[id]++
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.FallbackUseInc(string(id))
	}
	return Fallback(vec, id)
}

// Usage returns how often the fallback ran, per mission.
func (p *FallbackPredictor) Usage() map[mission.ID]int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[mission.ID]int64, len(p.usage))
	for k, v := range p.usage {
		out[k] = v
	}
	return out
}

// Reset clears the usage counters
func (p *FallbackPredictor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.usage = make(map[mission.ID]int64)
}

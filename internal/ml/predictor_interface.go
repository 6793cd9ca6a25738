// Package ml classifies transit signals into Candidate, Confirmed and
// False_Positive. It attempts inference through an external runtime (ONNX
// models run out of process, or a remote inference server) and falls back to a
// deterministic heuristic whenever that runtime is unavailable or fails.
//
// The package also owns the per-mission model registry and the training
// performance summary used by operators to compare exported models.
package ml

import (
	"context"

	"exoplanet-classifier/internal/features"
	"exoplanet-classifier/internal/mission"
)

// Runtime is the external inference collaborator. Both steps are addressed by
// mission and may fail independently.
type Runtime interface {
	// Scale applies the mission's fitted scaling transform to vec.
	Scale(ctx context.Context, id mission.ID, vec features.Vector) ([]float64, error)

	// Classify runs the mission's classification model on a scaled vector.
	Classify(ctx context.Context, id mission.ID, scaled []float64) (Inference, error)
}

// Inference is the raw answer of a runtime.
type Inference struct {
	Prediction    int       `json:"prediction"`
	Probabilities []float64 `json:"probabilities"`
}

// MetricsInterface defines metrics methods needed by the classifier
type MetricsInterface interface {
	PredictionsInc(mission, source string)
	RuntimeFailuresInc(mission, stage string)
	FallbackUseInc(mission string)
	RuntimeTimeoutsInc()
	LatencyObserve(seconds float64)
	ConfidenceObserve(confidence float64)
}

// Source tells which path produced a result.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Result is a classification outcome.
type Result struct {
	Mission       mission.ID `json:"mission"`
	ClassIndex    int        `json:"class_index"`
	Label         string     `json:"label"`
	Probabilities [3]float64 `json:"probabilities"`
	Confidence    float64    `json:"confidence"`
	Source        Source     `json:"source"`
}

// Class returns the predicted class.
func (r Result) Class() mission.Class { return mission.Class(r.ClassIndex) }

func newResult(id mission.ID, probs [3]float64, source Source) Result {
	idx := argmax(probs)
	return Result{
		Mission:       id,
		ClassIndex:    idx,
		Label:         mission.Class(idx).Label(),
		Probabilities: probs,
		Confidence:    probs[idx] * 100,
		Source:        source,
	}
}

// argmax returns the index of the largest value; the first wins ties.
func argmax(p [3]float64) int {
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[best] {
			best = i
		}
	}
	return best
}

package ml

import (
	"context"
	"errors"
	"fmt"
	"math"

	"exoplanet-classifier/internal/features"
	"exoplanet-classifier/internal/mission"

	"github.com/rs/zerolog/log"
)

// ErrInferenceUnavailable is matched by every error returned from Attempt.
var ErrInferenceUnavailable = errors.New("inference unavailable")

// ErrNoRuntime is the cause when no runtime is configured.
var ErrNoRuntime = errors.New("no inference runtime configured")

// Stage names the step of the external attempt that failed.
type Stage string

const (
	StageLoad     Stage = "load"
	StageScale    Stage = "scale"
	StageClassify Stage = "classify"
)

// UnavailableError reports why the external runtime could not produce a result.
type UnavailableError struct {
	Mission mission.ID
	Stage   Stage
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s inference unavailable at %s: %v", e.Mission, e.Stage, e.Err)
}

func (e *UnavailableError) Unwrap() []error { return []error{ErrInferenceUnavailable, e.Err} }

// Attempt runs the external scaling transform and classification model. On any
// failure the error is an *UnavailableError.
func Attempt(ctx context.Context, rt Runtime, id mission.ID, vec features.Vector) (Result, error) {
	if rt == nil {
		return Result{}, &UnavailableError{Mission: id, Stage: StageLoad, Err: ErrNoRuntime}
	}

	scaled, err := rt.Scale(ctx, id, vec)
	if err != nil {
		return Result{}, &UnavailableError{Mission: id, Stage: StageScale, Err: err}
	}
	if len(scaled) != len(vec) {
		return Result{}, &UnavailableError{Mission: id, Stage: StageScale,
			Err: fmt.Errorf("scaler returned %d values for %d inputs", len(scaled), len(vec))}
	}

	inf, err := rt.Classify(ctx, id, scaled)
	if err != nil {
		return Result{}, &UnavailableError{Mission: id, Stage: StageClassify, Err: err}
	}

	probs, err := validateInference(inf)
	if err != nil {
		return Result{}, &UnavailableError{Mission: id, Stage: StageClassify, Err: err}
	}
	res := newResult(id, probs, SourceModel)
	if res.ClassIndex != inf.Prediction {
		log.Debug().
			Str("mission", string(id)).
			Int("model_label", inf.Prediction).
			Int("argmax", res.ClassIndex).
			Msg("Model label disagrees with its probabilities, using argmax")
	}
	return res, nil
}

// validateInference checks the runtime answer and renormalizes the probabilities.
func validateInference(inf Inference) ([3]float64, error) {
	var probs [3]float64
	if inf.Prediction < 0 || inf.Prediction >= mission.NumClasses {
		return probs, fmt.Errorf("invalid class label %d", inf.Prediction)
	}
	if len(inf.Probabilities) != mission.NumClasses {
		return probs, fmt.Errorf("expected %d probabilities, got %d", mission.NumClasses, len(inf.Probabilities))
	}

	var sum float64
	for i, p := range inf.Probabilities {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return probs, fmt.Errorf("invalid probability %d: %f", i, p)
		}
		probs[i] = p
		sum += p
	}
	if sum == 0 {
		return probs, errors.New("probabilities sum to zero")
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

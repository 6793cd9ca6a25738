package main

import (
	"fmt"
	"time"

	"exoplanet-classifier/internal/cfg"
	"exoplanet-classifier/internal/common"
	"exoplanet-classifier/internal/ml"

	"github.com/rs/zerolog/log"
)

// buildRuntime creates the configured inference runtime. A nil runtime means
// every prediction is served by the fallback heuristic.
func buildRuntime(s cfg.Settings, registry *ml.Registry) (ml.Runtime, error) {
	switch s.Runtime {
	case common.RuntimeNone:
		log.Info().Msg("Inference runtime disabled, using fallback heuristics")
		return nil, nil
	case common.RuntimeONNX:
		rt := ml.NewONNXRuntime(registry, s.PythonPath, s.InferenceTimeout)
		if !rt.Available() {
			return nil, nil
		}
		return rt, nil
	case common.RuntimeRemote:
		rt, err := ml.NewRemoteRuntime(ml.RemoteConfig{
			BaseURL:           s.RemoteURL,
			Timeout:           s.InferenceTimeout,
			MaxRetries:        s.RemoteMaxRetries,
			RetryInterval:     200 * time.Millisecond,
			RequestsPerSecond: s.RemoteRPS,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("url", s.RemoteURL).Msg("Using remote inference runtime")
		return rt, nil
	default:
		return nil, fmt.Errorf("%s %q", common.ErrMsgUnknownRuntime, s.Runtime)
	}
}

// newClassifier wires registry, runtime and metrics into a classifier.
func newClassifier(s cfg.Settings, metrics ml.MetricsInterface, config ml.ClassifierConfig) (*ml.Classifier, *ml.Registry, error) {
	registry := ml.NewRegistry(s.ModelsDir)
	rt, err := buildRuntime(s, registry)
	if err != nil {
		return nil, nil, err
	}
	return ml.NewClassifier(rt, metrics, config), registry, nil
}

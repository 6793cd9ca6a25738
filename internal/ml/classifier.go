package ml

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"exoplanet-classifier/internal/features"
	"exoplanet-classifier/internal/mission"

	"github.com/rs/zerolog/log"
)

// ClassifierConfig contains configuration for the classifier
type ClassifierConfig struct {
	// DelayMin and DelayMax bound the artificial processing latency added
	// before a result is returned. Zero disables it.
	DelayMin time.Duration
	DelayMax time.Duration

	// Monitor, when set, observes every validated record.
	Monitor *InputMonitor
}

// Classifier is the two-step prediction pipeline: external attempt first,
// fallback heuristic on any unavailability. It holds no per-request state and
// is safe for concurrent use.
type Classifier struct {
	runtime  Runtime
	fallback *FallbackPredictor
	metrics  MetricsInterface
	delayMin time.Duration
	delayMax time.Duration
	monitor  *InputMonitor
}

// NewClassifier creates a classifier. runtime may be nil, in which case every
// prediction uses the fallback.
func NewClassifier(runtime Runtime, metrics MetricsInterface, config ClassifierConfig) *Classifier {
	if config.DelayMax < config.DelayMin {
		config.DelayMax = config.DelayMin
	}
	return &Classifier{
		runtime:  runtime,
		fallback: NewFallbackPredictor(metrics),
		metrics:  metrics,
		delayMin: config.DelayMin,
		delayMax: config.DelayMax,
		monitor:  config.Monitor,
	}
}

// ClassifyRaw validates a raw record and classifies it. Validation errors are
// returned before any vector is built.
func (c *Classifier) ClassifyRaw(ctx context.Context, id mission.ID, raw mission.RawRecord) (Result, error) {
	rec, err := mission.Parse(id, raw)
	if err != nil {
		return Result{}, err
	}
	return c.Classify(ctx, rec)
}

// Classify vectorizes rec and predicts its class.
func (c *Classifier) Classify(ctx context.Context, rec mission.Record) (Result, error) {
	if c.monitor != nil {
		c.monitor.Observe(rec)
	}
	return c.Predict(ctx, rec.Mission(), features.Vectorize(rec))
}

// Predict classifies a prepared vector. The only error it returns is the
// context's, when the caller gives up while waiting.
func (c *Classifier) Predict(ctx context.Context, id mission.ID, vec features.Vector) (Result, error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.LatencyObserve(time.Since(start).Seconds())
		}
	}()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res, err := Attempt(ctx, c.runtime, id, vec)
	if err != nil {
		c.recordUnavailable(err)
		res = c.fallback.Predict(vec, id)
	}

	if err := c.wait(ctx); err != nil {
		return Result{}, err
	}

	if c.metrics != nil {
		c.metrics.PredictionsInc(string(id), string(res.Source))
		c.metrics.ConfidenceObserve(res.Confidence)
	}
	return res, nil
}

// FallbackUsage returns per-mission fallback counts.
func (c *Classifier) FallbackUsage() map[mission.ID]int64 {
	return c.fallback.Usage()
}

// HasRuntime reports whether an external runtime is configured.
func (c *Classifier) HasRuntime() bool { return c.runtime != nil }

func (c *Classifier) recordUnavailable(err error) {
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		return
	}

	// a missing runtime is the expected state of fallback-only deployments
	if errors.Is(ue.Err, ErrNoRuntime) {
		log.Debug().Str("mission", string(ue.Mission)).Msg("No inference runtime, using fallback")
		return
	}

	log.Warn().
		Err(ue.Err).
		Str("mission", string(ue.Mission)).
		Str("stage", string(ue.Stage)).
		Msg("External inference failed, falling back to heuristics")

	if c.metrics != nil {
		c.metrics.RuntimeFailuresInc(string(ue.Mission), string(ue.Stage))
		if errors.Is(ue.Err, context.DeadlineExceeded) {
			c.metrics.RuntimeTimeoutsInc()
		}
	}
}

func (c *Classifier) wait(ctx context.Context) error {
	if c.delayMax <= 0 {
		return nil
	}
	d := c.delayMin
	if span := c.delayMax - c.delayMin; span > 0 {
		d += rand.N(span)
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

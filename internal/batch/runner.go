package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"exoplanet-classifier/internal/mission"
	"exoplanet-classifier/internal/ml"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Classifier is the part of ml.Classifier the runner needs.
type Classifier interface {
	ClassifyRaw(ctx context.Context, id mission.ID, raw mission.RawRecord) (ml.Result, error)
}

// Outcome is a classified row.
type Outcome struct {
	Row    int               `json:"row"`
	Record mission.RawRecord `json:"record"`
	Result ml.Result         `json:"result"`
}

// Rejection is a row that never reached the classifier.
type Rejection struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
	Field  string `json:"field,omitempty"`
}

// Results holds the outcome of one batch run.
type Results struct {
	Mission   mission.ID  `json:"mission"`
	Input     string      `json:"input"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
	Outcomes  []Outcome   `json:"outcomes"`
	Rejected  []Rejection `json:"rejected"`

	ByClass        map[string]int `json:"by_class"`
	MeanConfidence float64        `json:"mean_confidence"`
	FallbackShare  float64        `json:"fallback_share"`
}

// Total is the number of input rows.
func (r *Results) Total() int { return len(r.Outcomes) + len(r.Rejected) }

// Runner classifies rows with bounded concurrency.
type Runner struct {
	classifier Classifier
	workers    int
}

// NewRunner creates a runner. workers < 1 means sequential.
func NewRunner(classifier Classifier, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{classifier: classifier, workers: workers}
}

// Run classifies every decodable row for id. Rejected rows are recorded, not
// returned as errors; only context cancellation aborts the run.
func (r *Runner) Run(ctx context.Context, id mission.ID, input string, rows []Row) (*Results, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %q", mission.ErrUnknownMission, id)
	}

	results := &Results{
		Mission:   id,
		Input:     input,
		StartTime: time.Now(),
		ByClass:   make(map[string]int, mission.NumClasses),
	}
	for c := mission.Class(0); c < mission.NumClasses; c++ {
		results.ByClass[c.Label()] = 0
	}

	outcomes := make([]*Outcome, len(rows))
	rejects := make([]*Rejection, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, row := range rows {
		if row.Err != nil {
			rejects[i] = &Rejection{Row: row.Number, Reason: row.Err.Error()}
			continue
		}
		g.Go(func() error {
			res, err := r.classifier.ClassifyRaw(gctx, id, row.Raw)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				rejects[i] = rejection(row.Number, err)
				return nil
			}
			outcomes[i] = &Outcome{Row: row.Number, Record: row.Raw, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch run interrupted: %w", err)
	}

	var confidence float64
	var fallbacks int
	for i := range rows {
		switch {
		case outcomes[i] != nil:
			o := *outcomes[i]
			results.Outcomes = append(results.Outcomes, o)
			results.ByClass[o.Result.Label]++
			confidence += o.Result.Confidence
			if o.Result.Source == ml.SourceFallback {
				fallbacks++
			}
		case rejects[i] != nil:
			results.Rejected = append(results.Rejected, *rejects[i])
		}
	}
	if n := len(results.Outcomes); n > 0 {
		results.MeanConfidence = confidence / float64(n)
		results.FallbackShare = float64(fallbacks) / float64(n)
	}
	results.EndTime = time.Now()

	log.Info().
		Str("mission", string(id)).
		Int("classified", len(results.Outcomes)).
		Int("rejected", len(results.Rejected)).
		Dur("elapsed", results.EndTime.Sub(results.StartTime)).
		Msg("Batch run complete")

	return results, nil
}

func rejection(row int, err error) *Rejection {
	rej := &Rejection{Row: row, Reason: err.Error()}
	var missing *mission.MissingFieldError
	if errors.As(err, &missing) {
		rej.Field = missing.Field
	}
	var invalid *mission.InvalidValueError
	if errors.As(err, &invalid) {
		rej.Field = invalid.Field
	}
	return rej
}

package ml

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"exoplanet-classifier/internal/features"
	"exoplanet-classifier/internal/mission"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RemoteConfig configures RemoteRuntime.
type RemoteConfig struct {
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RetryInterval     time.Duration
	RequestsPerSecond float64
}

// RemoteRuntime calls an inference server over HTTP:
//
//	POST {base}/v1/{mission}/scale    {"features": [...]} -> {"scaled": [...]}
//	POST {base}/v1/{mission}/classify {"features": [...]} -> {"prediction": n, "probabilities": [...]}
type RemoteRuntime struct {
	base       string
	rest       *resty.Client
	limiter    *rate.Limiter
	maxRetries int
	interval   time.Duration
}

type remoteRequest struct {
	Features []float64 `json:"features"`
}

type remoteResponse struct {
	Scaled        []float64 `json:"scaled,omitempty"`
	Prediction    int       `json:"prediction"`
	Probabilities []float64 `json:"probabilities,omitempty"`
}

type remoteError struct {
	Error string `json:"error"`
}

// StatusError is a non-2xx answer from the inference server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("inference server: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("inference server: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// NewRemoteRuntime creates a client for the inference server at cfg.BaseURL.
func NewRemoteRuntime(cfg RemoteConfig) (*RemoteRuntime, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote runtime: base URL is required")
	}

	r := resty.New()
	if cfg.Timeout > 0 {
		r.SetTimeout(cfg.Timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	r.SetHeader("Content-Type", "application/json")

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	return &RemoteRuntime{
		base:       strings.TrimRight(cfg.BaseURL, "/"),
		rest:       r,
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: max(cfg.MaxRetries, 0),
		interval:   interval,
	}, nil
}

// Scale implements Runtime.
func (rt *RemoteRuntime) Scale(ctx context.Context, id mission.ID, vec features.Vector) ([]float64, error) {
	resp, err := rt.post(ctx, id, "scale", vec)
	if err != nil {
		return nil, err
	}
	return resp.Scaled, nil
}

// Classify implements Runtime.
func (rt *RemoteRuntime) Classify(ctx context.Context, id mission.ID, scaled []float64) (Inference, error) {
	resp, err := rt.post(ctx, id, "classify", scaled)
	if err != nil {
		return Inference{}, err
	}
	return Inference{Prediction: resp.Prediction, Probabilities: resp.Probabilities}, nil
}

func (rt *RemoteRuntime) post(ctx context.Context, id mission.ID, step string, input []float64) (*remoteResponse, error) {
	url := fmt.Sprintf("%s/v1/%s/%s", rt.base, id, step)

	var out *remoteResponse
	attempt := 0
	operation := func() error {
		attempt++
		if err := rt.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		result := &remoteResponse{}
		errBody := &remoteError{}
		resp, err := rt.rest.R().
			SetContext(ctx).
			SetBody(remoteRequest{Features: input}).
			SetResult(result).
			SetError(errBody).
			Post(url)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		if resp.IsError() {
			serr := &StatusError{StatusCode: resp.StatusCode(), Message: errBody.Error}
			// only server-side failures are worth retrying
			if resp.StatusCode() < http.StatusInternalServerError && resp.StatusCode() != http.StatusTooManyRequests {
				return backoff.Permanent(serr)
			}
			return serr
		}

		out = result
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = rt.interval
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(rt.maxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		log.Debug().Err(err).Str("url", url).Int("attempt", attempt).Dur("backoff", wait).Msg("Retrying inference request")
	}
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, fmt.Errorf("%s %s: %w", step, id, err)
	}
	return out, nil
}

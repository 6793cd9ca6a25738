package ml

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"exoplanet-classifier/internal/features"
	"exoplanet-classifier/internal/mission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRemoteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newRemote(t *testing.T, url string, retries int) *RemoteRuntime {
	t.Helper()
	rt, err := NewRemoteRuntime(RemoteConfig{
		BaseURL:       url + "/",
		Timeout:       time.Second,
		MaxRetries:    retries,
		RetryInterval: time.Millisecond,
	})
	require.NoError(t, err)
	return rt
}

func TestNewRemoteRuntime_RequiresURL(t *testing.T) {
	_, err := NewRemoteRuntime(RemoteConfig{})
	assert.Error(t, err)
}

func TestRemoteRuntime_ScaleAndClassify(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req remoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeRemoteJSON(w, http.StatusBadRequest, remoteError{Error: err.Error()})
			return
		}
		switch r.URL.Path {
		case "/v1/tess/scale":
			scaled := make([]float64, len(req.Features))
			for i, v := range req.Features {
				scaled[i] = v * 2
			}
			writeRemoteJSON(w, http.StatusOK, remoteResponse{Scaled: scaled})
		case "/v1/tess/classify":
			writeRemoteJSON(w, http.StatusOK, remoteResponse{Prediction: 2, Probabilities: []float64{0.1, 0.2, 0.7}})
		default:
			writeRemoteJSON(w, http.StatusNotFound, remoteError{Error: "no route " + r.URL.Path})
		}
	}))
	defer ts.Close()

	rt := newRemote(t, ts.URL, 0)
	vec := features.Vector{0.1, 0.2, 0.3}

	scaled, err := rt.Scale(context.Background(), mission.TESS, vec)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.2, 0.4, 0.6}, scaled, 1e-12)

	inf, err := rt.Classify(context.Background(), mission.TESS, scaled)
	require.NoError(t, err)
	assert.Equal(t, 2, inf.Prediction)
	assert.Equal(t, []float64{0.1, 0.2, 0.7}, inf.Probabilities)
}

func TestRemoteRuntime_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeRemoteJSON(w, http.StatusServiceUnavailable, remoteError{Error: "warming up"})
			return
		}
		writeRemoteJSON(w, http.StatusOK, remoteResponse{Scaled: []float64{1}})
	}))
	defer ts.Close()

	rt := newRemote(t, ts.URL, 3)
	scaled, err := rt.Scale(context.Background(), mission.Kepler, features.Vector{0.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, scaled)
	assert.EqualValues(t, 3, calls.Load())
}

func TestRemoteRuntime_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeRemoteJSON(w, http.StatusInternalServerError, remoteError{Error: "model crashed"})
	}))
	defer ts.Close()

	rt := newRemote(t, ts.URL, 2)
	_, err := rt.Classify(context.Background(), mission.K2, []float64{0.5})
	require.Error(t, err)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusInternalServerError, serr.StatusCode)
	assert.Equal(t, "model crashed", serr.Message)
	assert.EqualValues(t, 3, calls.Load())
}

func TestRemoteRuntime_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeRemoteJSON(w, http.StatusUnprocessableEntity, remoteError{Error: "wrong shape"})
	}))
	defer ts.Close()

	rt := newRemote(t, ts.URL, 5)
	_, err := rt.Scale(context.Background(), mission.Kepler, features.Vector{0.5})
	require.Error(t, err)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusUnprocessableEntity, serr.StatusCode)
	assert.Contains(t, err.Error(), "wrong shape")
	assert.EqualValues(t, 1, calls.Load())
}

func TestRemoteRuntime_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeRemoteJSON(w, http.StatusOK, remoteResponse{Scaled: []float64{1}})
	}))
	defer ts.Close()

	rt := newRemote(t, ts.URL, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rt.Scale(ctx, mission.Kepler, features.Vector{0.5})
	assert.Error(t, err)
}

func TestRemoteRuntime_ThroughClassifier(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeRemoteJSON(w, http.StatusBadGateway, remoteError{Error: "down"})
	}))
	defer ts.Close()

	m := &MockMetrics{}
	c := NewClassifier(newRemote(t, ts.URL, 0), m, ClassifierConfig{})

	res, err := c.Classify(context.Background(), keplerRecord())
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, 1, m.Failures("kepler", "scale"))
}

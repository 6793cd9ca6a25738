package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"exoplanet-classifier/internal/mission"
	"exoplanet-classifier/internal/ml"
	"exoplanet-classifier/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// PredictionRequest is the body of POST /v1/predict and of each stream frame.
type PredictionRequest struct {
	Mission   string            `json:"mission"`
	Record    mission.RawRecord `json:"record"`
	RequestID string            `json:"request_id,omitempty"`
}

// PredictionResponse represents the prediction result
type PredictionResponse struct {
	RequestID     string     `json:"request_id"`
	Mission       mission.ID `json:"mission"`
	ClassIndex    int        `json:"class_index"`
	Label         string     `json:"label"`
	Probabilities [3]float64 `json:"probabilities"`
	Confidence    float64    `json:"confidence"`
	Source        ml.Source  `json:"source"`
	Latency       float64    `json:"latency_ms"`
	Timestamp     time.Time  `json:"timestamp"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// predictError carries the HTTP status for a failed prediction.
type predictError struct {
	status int
	body   errorResponse
}

func (e *predictError) Error() string { return e.body.Error }

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if req.RequestID == "" {
		req.RequestID = r.Header.Get("X-Request-ID")
	}

	resp, err := s.predict(r.Context(), req)
	if err != nil {
		var pe *predictError
		if errors.As(err, &pe) {
			writeError(w, pe.status, pe.body)
			return
		}
		writeError(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), RequestID: req.RequestID})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// predict validates req, classifies it and records the result. Errors are
// always *predictError.
func (s *Server) predict(ctx context.Context, req PredictionRequest) (PredictionResponse, error) {
	start := time.Now()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	id, err := mission.ParseID(req.Mission)
	if err != nil {
		return PredictionResponse{}, &predictError{http.StatusBadRequest,
			errorResponse{Error: err.Error(), Field: "mission", RequestID: req.RequestID}}
	}
	if req.Record == nil {
		return PredictionResponse{}, &predictError{http.StatusBadRequest,
			errorResponse{Error: "record is required", Field: "record", RequestID: req.RequestID}}
	}

	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	res, err := s.classifier.ClassifyRaw(ctx, id, req.Record)
	if err != nil {
		return PredictionResponse{}, s.classifyError(id, req.RequestID, err)
	}

	resp := PredictionResponse{
		RequestID:     req.RequestID,
		Mission:       res.Mission,
		ClassIndex:    res.ClassIndex,
		Label:         res.Label,
		Probabilities: res.Probabilities,
		Confidence:    res.Confidence,
		Source:        res.Source,
		Latency:       float64(time.Since(start).Microseconds()) / 1000,
		Timestamp:     time.Now().UTC(),
	}
	s.record(req, resp)
	return resp, nil
}

func (s *Server) classifyError(id mission.ID, requestID string, err error) error {
	body := errorResponse{Error: err.Error(), RequestID: requestID}

	var missing *mission.MissingFieldError
	var invalid *mission.InvalidValueError
	switch {
	case errors.As(err, &missing):
		body.Field = missing.Field
	case errors.As(err, &invalid):
		body.Field = invalid.Field
	case errors.Is(err, context.DeadlineExceeded):
		return &predictError{http.StatusGatewayTimeout, body}
	case errors.Is(err, context.Canceled):
		return &predictError{http.StatusServiceUnavailable, body}
	default:
		if s.metrics != nil {
			s.metrics.ErrorsInc()
		}
		log.Error().Err(err).Str("mission", string(id)).Msg("Prediction failed")
		return &predictError{http.StatusInternalServerError, body}
	}

	if s.metrics != nil {
		s.metrics.ValidationErrorsInc(string(id))
	}
	return &predictError{http.StatusBadRequest, body}
}

// record writes the prediction to history. Failures are logged, not returned.
func (s *Server) record(req PredictionRequest, resp PredictionResponse) {
	if s.store == nil {
		return
	}
	rec := storage.PredictionRecord{
		ID:            uuid.NewString(),
		RequestID:     resp.RequestID,
		Mission:       string(resp.Mission),
		Timestamp:     resp.Timestamp,
		Record:        req.Record,
		ClassIndex:    resp.ClassIndex,
		Label:         resp.Label,
		Probabilities: resp.Probabilities,
		Confidence:    resp.Confidence,
		Source:        string(resp.Source),
	}
	if err := s.store.StorePrediction(rec); err != nil {
		log.Error().Err(err).Str("request_id", resp.RequestID).Msg("Failed to store prediction")
		if s.metrics != nil {
			s.metrics.ErrorsInc()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.StoredPredictionsInc()
	}
}

type missionInfo struct {
	mission.Profile
	ModelReady bool `json:"model_ready"`
}

func (s *Server) handleMissions(w http.ResponseWriter, r *http.Request) {
	ready := make(map[mission.ID]bool)
	for _, id := range s.readyMissions() {
		ready[id] = true
	}

	out := make([]missionInfo, 0, len(mission.All()))
	for _, id := range mission.All() {
		p := mission.MustLookup(id)
		out = append(out, missionInfo{Profile: p, ModelReady: ready[id]})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	id, err := mission.ParseID(chi.URLParam(r, "mission"))
	if err != nil {
		writeError(w, http.StatusNotFound, errorResponse{Error: err.Error(), Field: "mission"})
		return
	}
	if s.registry == nil {
		writeError(w, http.StatusNotFound, errorResponse{Error: "no model registry configured"})
		return
	}
	info, err := s.registry.Info(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDrift(w http.ResponseWriter, r *http.Request) {
	id, err := mission.ParseID(chi.URLParam(r, "mission"))
	if err != nil {
		writeError(w, http.StatusNotFound, errorResponse{Error: err.Error(), Field: "mission"})
		return
	}
	if s.monitor == nil {
		writeError(w, http.StatusNotFound, errorResponse{Error: "input monitoring disabled"})
		return
	}
	writeJSON(w, http.StatusOK, s.monitor.Report(id))
}

type healthResponse struct {
	Status         string               `json:"status"`
	Uptime         float64              `json:"uptime_seconds"`
	RuntimeEnabled bool                 `json:"runtime_enabled"`
	ReadyMissions  []mission.ID         `json:"ready_missions"`
	FallbackUsage  map[mission.ID]int64 `json:"fallback_usage"`
	Timestamp      time.Time            `json:"timestamp"`
}

// handleHealth always reports ok: without a runtime every mission is still
// served by the fallback.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ready := s.readyMissions()
	if ready == nil {
		ready = []mission.ID{}
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		Uptime:         time.Since(s.started).Seconds(),
		RuntimeEnabled: s.classifier.HasRuntime(),
		ReadyMissions:  ready,
		FallbackUsage:  s.classifier.FallbackUsage(),
		Timestamp:      time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, body errorResponse) {
	writeJSON(w, status, body)
}

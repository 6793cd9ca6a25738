package metrics

import "github.com/prometheus/client_golang/prometheus"

// MetricsGauge is the subset of a gauge other packages need.
type MetricsGauge interface {
	Inc()
	Dec()
}

// Wrapper adapts Metrics to the narrow interfaces of the ml and server packages
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) PredictionsInc(mission, source string) {
	w.m.Predictions.WithLabelValues(mission, source).Inc()
}

func (w *Wrapper) RuntimeFailuresInc(mission, stage string) {
	w.m.RuntimeFailures.WithLabelValues(mission, stage).Inc()
}

func (w *Wrapper) FallbackUseInc(mission string) {
	w.m.FallbackUse.WithLabelValues(mission).Inc()
}

func (w *Wrapper) RuntimeTimeoutsInc() {
	w.m.RuntimeTimeouts.Inc()
}

func (w *Wrapper) LatencyObserve(seconds float64) {
	w.m.Latency.Observe(seconds)
}

func (w *Wrapper) ConfidenceObserve(confidence float64) {
	w.m.Confidence.Observe(confidence)
}

func (w *Wrapper) ValidationErrorsInc(mission string) {
	w.m.ValidationErrors.WithLabelValues(mission).Inc()
}

func (w *Wrapper) RequestsInc(route string, code int) {
	w.m.Requests.WithLabelValues(route, codeLabel(code)).Inc()
}

func (w *Wrapper) RateLimitedInc() {
	w.m.RateLimited.Inc()
}

func (w *Wrapper) StoredPredictionsInc() {
	w.m.StoredPredictions.Inc()
}

func (w *Wrapper) ErrorsInc() {
	w.m.ErrorsTotal.Inc()
}

func (w *Wrapper) StreamClients() MetricsGauge {
	return &GaugeWrapper{w.m.StreamClients}
}

type GaugeWrapper struct {
	g prometheus.Gauge
}

func (gw *GaugeWrapper) Inc() {
	gw.g.Inc()
}

func (gw *GaugeWrapper) Dec() {
	gw.g.Dec()
}

func codeLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

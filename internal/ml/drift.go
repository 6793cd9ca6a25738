package ml

import (
	"math"
	"sort"
	"sync"
	"time"

	"exoplanet-classifier/internal/mission"
)

// Defaults for the input monitor.
const (
	DefaultDriftWindow    = 500
	DefaultDriftThreshold = 0.2
	minDriftSamples       = 30
)

// FieldDistribution contains running statistics for one core field, measured
// on the normalized value.
type FieldDistribution struct {
	Field       string    `json:"field"`
	Mean        float64   `json:"mean"`
	StandardDev float64   `json:"standard_dev"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	Percentiles []float64 `json:"percentiles"` // 25th, 50th, 75th of the window
	SampleCount int64     `json:"sample_count"`
	OutOfRange  int64     `json:"out_of_range"` // normalized value outside [0, 1]
	DriftScore  float64   `json:"drift_score"`  // out-of-range share of the window
	LastUpdated time.Time `json:"last_updated"`

	m2     float64
	recent []float64
}

// DriftAlert flags a field whose recent inputs fall outside the ranges the
// vectorizer normalizes against.
type DriftAlert struct {
	Mission    mission.ID `json:"mission"`
	Field      string     `json:"field"`
	DriftScore float64    `json:"drift_score"`
	Threshold  float64    `json:"threshold"`
	Severity   string     `json:"severity"`
}

// DriftReport is a snapshot for one mission.
type DriftReport struct {
	Mission mission.ID          `json:"mission"`
	Fields  []FieldDistribution `json:"fields"`
	Alerts  []DriftAlert        `json:"alerts"`
}

// InputMonitor tracks the distribution of submitted records per mission. It is
// safe for concurrent use.
type InputMonitor struct {
	mu        sync.RWMutex
	window    int
	threshold float64
	stats     map[mission.ID][]*FieldDistribution
}

// NewInputMonitor creates a monitor keeping window recent samples per field.
// Non-positive arguments select the defaults.
func NewInputMonitor(window int, threshold float64) *InputMonitor {
	if window <= 0 {
		window = DefaultDriftWindow
	}
	if threshold <= 0 {
		threshold = DefaultDriftThreshold
	}
	return &InputMonitor{
		window:    window,
		threshold: threshold,
		stats:     make(map[mission.ID][]*FieldDistribution),
	}
}

// Observe records the measurements of rec.
func (m *InputMonitor) Observe(rec mission.Record) {
	ms := rec.Measurements()
	id := rec.Mission()

	m.mu.Lock()
	defer m.mu.Unlock()

	dists, ok := m.stats[id]
	if !ok {
		dists = make([]*FieldDistribution, len(ms))
		for i, meas := range ms {
			dists[i] = &FieldDistribution{
				Field:       meas.Field,
				Min:         math.Inf(1),
				Max:         math.Inf(-1),
				Percentiles: make([]float64, 3),
			}
		}
		m.stats[id] = dists
	}

	now := time.Now()
	for i, meas := range ms {
		v := mission.Normalize(meas.Value, mission.RangeOf(meas.Quantity))
		m.update(dists[i], v, now)
	}
}

// update folds v into dist using Welford's online variance.
func (m *InputMonitor) update(dist *FieldDistribution, v float64, now time.Time) {
	dist.SampleCount++
	delta := v - dist.Mean
	dist.Mean += delta / float64(dist.SampleCount)
	dist.m2 += delta * (v - dist.Mean)
	if dist.SampleCount > 1 {
		dist.StandardDev = math.Sqrt(dist.m2 / float64(dist.SampleCount-1))
	}

	dist.Min = math.Min(dist.Min, v)
	dist.Max = math.Max(dist.Max, v)
	if v < 0 || v > 1 {
		dist.OutOfRange++
	}

	if len(dist.recent) >= m.window {
		dist.recent = dist.recent[1:]
	}
	dist.recent = append(dist.recent, v)
	dist.LastUpdated = now
}

// Report returns a snapshot of the statistics for id.
func (m *InputMonitor) Report(id mission.ID) DriftReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := DriftReport{Mission: id, Fields: []FieldDistribution{}, Alerts: []DriftAlert{}}
	for _, dist := range m.stats[id] {
		snap := *dist
		snap.recent = nil
		snap.Percentiles = percentiles(dist.recent)
		snap.DriftScore = outOfRangeShare(dist.recent)
		report.Fields = append(report.Fields, snap)

		if len(dist.recent) < minDriftSamples || snap.DriftScore <= m.threshold {
			continue
		}
		severity := "medium"
		if snap.DriftScore > 2*m.threshold {
			severity = "high"
		}
		report.Alerts = append(report.Alerts, DriftAlert{
			Mission:    id,
			Field:      dist.Field,
			DriftScore: snap.DriftScore,
			Threshold:  m.threshold,
			Severity:   severity,
		})
	}
	return report
}

// Reset clears all statistics.
func (m *InputMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = make(map[mission.ID][]*FieldDistribution)
}

func percentiles(samples []float64) []float64 {
	out := make([]float64, 3)
	if len(samples) == 0 {
		return out
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	n := len(sorted)
	out[0] = sorted[n/4]
	out[1] = sorted[n/2]
	out[2] = sorted[3*n/4]
	return out
}

func outOfRangeShare(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var n int
	for _, v := range samples {
		if v < 0 || v > 1 {
			n++
		}
	}
	return float64(n) / float64(len(samples))
}

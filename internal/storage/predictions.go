package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

// PredictionRecord is one served prediction.
type PredictionRecord struct {
	ID            string             `json:"id"`
	RequestID     string             `json:"request_id,omitempty"`
	Mission       string             `json:"mission"`
	Timestamp     time.Time          `json:"timestamp"`
	Record        map[string]float64 `json:"record"`
	ClassIndex    int                `json:"class_index"`
	Label         string             `json:"label"`
	Probabilities [3]float64         `json:"probabilities"`
	Confidence    float64            `json:"confidence"`
	Source        string             `json:"source"`
}

// StorePrediction stores a prediction in the predictions bucket.
func (s *Store) StorePrediction(rec PredictionRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("prediction record has no id")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal prediction: %w", err)
		}

		// the id suffix keeps same-nanosecond records apart
		key := append(timeKey(rec.Mission, rec.Timestamp), '_')
		key = append(key, rec.ID...)
		return b.Put(key, data)
	})
}

// GetPredictions returns the predictions for mission between start and end,
// inclusive, ordered by timestamp.
func (s *Store) GetPredictions(mission string, start, end time.Time) ([]PredictionRecord, error) {
	var out []PredictionRecord
	err := s.scanRange(predictionsBucket, mission, start, end, func(v []byte) error {
		var rec PredictionRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return nil // Skip malformed records
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// CountByLabel tallies stored predictions for mission by label.
func (s *Store) CountByLabel(mission string, start, end time.Time) (map[string]int, error) {
	recs, err := s.GetPredictions(mission, start, end)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, r := range recs {
		counts[r.Label]++
	}
	return counts, nil
}

// ExportPredictionsToCSV writes the predictions for mission to filename. Record
// fields become columns in sorted order after the fixed prediction columns.
func (s *Store) ExportPredictionsToCSV(filename, mission string, start, end time.Time) (int, error) {
	recs, err := s.GetPredictions(mission, start, end)
	if err != nil {
		return 0, err
	}

	fieldSet := make(map[string]struct{})
	for _, r := range recs {
		for k := range r.Record {
			fieldSet[k] = struct{}{}
		}
	}
	fields := make([]string, 0, len(fieldSet))
	for k := range fieldSet {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	file, err := os.Create(filename)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", filename, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{"id", "timestamp", "mission", "class_index", "label",
		"p_candidate", "p_confirmed", "p_false_positive", "confidence", "source"}
	if err := w.Write(append(header, fields...)); err != nil {
		return 0, err
	}

	for _, r := range recs {
		row := []string{
			r.ID,
			r.Timestamp.UTC().Format(time.RFC3339Nano),
			r.Mission,
			strconv.Itoa(r.ClassIndex),
			r.Label,
			formatFloat(r.Probabilities[0]),
			formatFloat(r.Probabilities[1]),
			formatFloat(r.Probabilities[2]),
			formatFloat(r.Confidence),
			r.Source,
		}
		for _, f := range fields {
			if v, ok := r.Record[f]; ok {
				row = append(row, formatFloat(v))
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return 0, err
		}
	}
	w.Flush()
	return len(recs), w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

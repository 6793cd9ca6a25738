package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.etcd.io/bbolt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func samplePrediction(id, mission string, ts time.Time) PredictionRecord {
	return PredictionRecord{
		ID:            id,
		Mission:       mission,
		Timestamp:     ts,
		Record:        map[string]float64{"orbital_period": 10, "planet_radius": 2.5},
		ClassIndex:    1,
		Label:         "Confirmed",
		Probabilities: [3]float64{0.2, 0.7, 0.1},
		Confidence:    70,
		Source:        "fallback",
	}
}

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store database is nil")
	}

	dbPath := filepath.Join(tempDir, dbFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	invalidPath := filepath.Join(t.TempDir(), "missing", "dir")

	_, err := New(invalidPath)
	if err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestStore_Close(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}

	// Test closing already closed store
	if err := store.Close(); err != nil {
		t.Errorf("Error closing already closed store: %v", err)
	}
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{db: nil}
	if err := store.Close(); err != nil {
		t.Errorf("Expected no error for nil db, got: %v", err)
	}
}

func TestStorePrediction(t *testing.T) {
	store := newTestStore(t)

	now := time.Now()
	rec := samplePrediction("abc", "kepler", now)
	rec.RequestID = "req-1"
	if err := store.StorePrediction(rec); err != nil {
		t.Fatalf("Failed to store prediction: %v", err)
	}

	got, err := store.GetPredictions("kepler", now.Add(-time.Second), now.Add(time.Second))
	if err != nil {
		t.Fatalf("Failed to get predictions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 prediction, got %d", len(got))
	}
	if got[0].ID != "abc" || got[0].RequestID != "req-1" {
		t.Errorf("Unexpected ids: %+v", got[0])
	}
	if got[0].Label != "Confirmed" || got[0].Probabilities[1] != 0.7 {
		t.Errorf("Unexpected prediction payload: %+v", got[0])
	}
	if got[0].Record["planet_radius"] != 2.5 {
		t.Errorf("Expected record to round trip, got %v", got[0].Record)
	}
}

func TestStorePrediction_MissingID(t *testing.T) {
	store := newTestStore(t)

	rec := samplePrediction("", "kepler", time.Now())
	if err := store.StorePrediction(rec); err == nil {
		t.Error("Expected error for record without id")
	}
}

func TestGetPredictions_EmptyResult(t *testing.T) {
	store := newTestStore(t)

	now := time.Now()
	got, err := store.GetPredictions("tess", now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("Failed to get predictions: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected 0 predictions, got %d", len(got))
	}
}

func TestGetPredictions_Range(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := samplePrediction(fmt.Sprintf("k-%d", i), "kepler", base.Add(time.Duration(i)*time.Minute))
		if err := store.StorePrediction(rec); err != nil {
			t.Fatalf("Failed to store prediction %d: %v", i, err)
		}
	}
	other := samplePrediction("t-0", "tess", base.Add(2*time.Minute))
	if err := store.StorePrediction(other); err != nil {
		t.Fatalf("Failed to store tess prediction: %v", err)
	}

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  []string
	}{
		{"all", base, base.Add(4 * time.Minute), []string{"k-0", "k-1", "k-2", "k-3", "k-4"}},
		{"inclusive bounds", base.Add(time.Minute), base.Add(3 * time.Minute), []string{"k-1", "k-2", "k-3"}},
		{"single instant", base.Add(2 * time.Minute), base.Add(2 * time.Minute), []string{"k-2"}},
		{"before any", base.Add(-time.Hour), base.Add(-time.Minute), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.GetPredictions("kepler", tt.start, tt.end)
			if err != nil {
				t.Fatalf("GetPredictions failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d predictions, got %d", len(tt.want), len(got))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
				}
				if got[i].Mission != "kepler" {
					t.Errorf("position %d: leaked mission %s", i, got[i].Mission)
				}
			}
		})
	}
}

func TestGetPredictions_SameTimestamp(t *testing.T) {
	store := newTestStore(t)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"a", "b"} {
		if err := store.StorePrediction(samplePrediction(id, "k2", ts)); err != nil {
			t.Fatalf("Failed to store prediction: %v", err)
		}
	}

	got, err := store.GetPredictions("k2", ts, ts)
	if err != nil {
		t.Fatalf("GetPredictions failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected both same-instant predictions, got %d", len(got))
	}
}

func TestGetPredictions_NoBucket(t *testing.T) {
	store := newTestStore(t)

	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket([]byte(predictionsBucket))
	})
	if err != nil {
		t.Fatalf("Failed to delete bucket: %v", err)
	}

	got, err := store.GetPredictions("kepler", time.Unix(0, 0), time.Now())
	if err != nil {
		t.Errorf("Expected no error for missing bucket, got: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected 0 predictions, got %d", len(got))
	}
}

func TestGetPredictions_SkipsMalformed(t *testing.T) {
	store := newTestStore(t)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.StorePrediction(samplePrediction("good", "tess", ts)); err != nil {
		t.Fatalf("Failed to store prediction: %v", err)
	}
	err := store.db.Update(func(tx *bbolt.Tx) error {
		key := append(timeKey("tess", ts.Add(time.Second)), []byte("_bad")...)
		return tx.Bucket([]byte(predictionsBucket)).Put(key, []byte("{not json"))
	})
	if err != nil {
		t.Fatalf("Failed to write malformed record: %v", err)
	}

	got, err := store.GetPredictions("tess", ts, ts.Add(time.Minute))
	if err != nil {
		t.Fatalf("GetPredictions failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "good" {
		t.Errorf("Expected only the well-formed record, got %+v", got)
	}
}

func TestCountByLabel(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	labels := []string{"Candidate", "Confirmed", "Candidate", "False_Positive"}
	for i, label := range labels {
		rec := samplePrediction(fmt.Sprintf("id-%d", i), "kepler", base.Add(time.Duration(i)*time.Second))
		rec.Label = label
		if err := store.StorePrediction(rec); err != nil {
			t.Fatalf("Failed to store prediction: %v", err)
		}
	}

	counts, err := store.CountByLabel("kepler", base, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("CountByLabel failed: %v", err)
	}
	if counts["Candidate"] != 2 || counts["Confirmed"] != 1 || counts["False_Positive"] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}

func TestTimeKey_Ordering(t *testing.T) {
	early := timeKey("kepler", time.Unix(9, 0))
	late := timeKey("kepler", time.Unix(10, 0))
	if string(early) >= string(late) {
		t.Errorf("Expected %s to sort before %s", early, late)
	}
}

func TestExportPredictionsToCSV(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := samplePrediction(fmt.Sprintf("id-%d", i), "kepler", base.Add(time.Duration(i)*time.Second))
		if err := store.StorePrediction(rec); err != nil {
			t.Fatalf("Failed to store prediction: %v", err)
		}
	}

	out := filepath.Join(t.TempDir(), "history.csv")
	n, err := store.ExportPredictionsToCSV(out, "kepler", base, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 exported rows, got %d", n)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("Failed to open export: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected header plus 3 rows, got %d", len(rows))
	}
	header := rows[0]
	if header[0] != "id" || header[len(header)-2] != "orbital_period" || header[len(header)-1] != "planet_radius" {
		t.Errorf("Unexpected header: %v", header)
	}
	if rows[1][0] != "id-0" || rows[1][len(header)-1] != "2.5" {
		t.Errorf("Unexpected first row: %v", rows[1])
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := newTestStore(t)

	base := time.Now()
	var wg sync.WaitGroup
	errs := make(chan error, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := samplePrediction(fmt.Sprintf("c-%d", i), "tess", base.Add(time.Duration(i)*time.Millisecond))
			if err := store.StorePrediction(rec); err != nil {
				errs <- err
				return
			}
			if _, err := store.GetPredictions("tess", base, base.Add(time.Second)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent operation failed: %v", err)
	}

	got, err := store.GetPredictions("tess", base, base.Add(time.Second))
	if err != nil {
		t.Fatalf("GetPredictions failed: %v", err)
	}
	if len(got) != 20 {
		t.Errorf("Expected 20 predictions, got %d", len(got))
	}
}

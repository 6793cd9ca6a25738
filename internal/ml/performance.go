package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"exoplanet-classifier/internal/common"
	"exoplanet-classifier/internal/mission"

	"github.com/rs/zerolog/log"
)

// ModelPerformance holds the evaluation metrics of one trained model.
type ModelPerformance struct {
	ModelName string  `json:"model_name"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1_score"`
	ROCAUC    float64 `json:"roc_auc"`
	CVMean    float64 `json:"cv_mean"`
	CVStd     float64 `json:"cv_std"`
}

// PerformanceReport is the best model per mission plus the files found for it.
type PerformanceReport struct {
	Best  map[mission.ID]ModelPerformance `json:"best"`
	Files map[mission.ID][]string         `json:"files"`
}

type scoredModel struct {
	Accuracy  float64  `json:"accuracy"`
	Precision float64  `json:"precision"`
	Recall    float64  `json:"recall"`
	F1Score   *float64 `json:"f1_score"`
	ROCAUC    float64  `json:"roc_auc"`
	CVMean    float64  `json:"cv_mean"`
	CVStd     float64  `json:"cv_std"`
}

// SummarizePerformance reads the training results exported for each mission
// under modelsDir and selects the model with the highest F1 score. Missions
// without a directory are skipped.
func SummarizePerformance(modelsDir string) (*PerformanceReport, error) {
	report := &PerformanceReport{
		Best:  make(map[mission.ID]ModelPerformance),
		Files: make(map[mission.ID][]string),
	}

	for _, id := range mission.All() {
		dir := filepath.Join(modelsDir, string(id))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", dir, err)
		}

		files := make([]string, 0, len(entries))
		for _, e := range entries {
			files = append(files, e.Name())
		}
		sort.Strings(files)
		report.Files[id] = files

		matches, _ := filepath.Glob(filepath.Join(dir, common.ResultsFilePattern))
		if len(matches) == 0 {
			continue
		}
		sort.Strings(matches)

		best, ok, err := bestModel(matches[0])
		if err != nil {
			log.Warn().Err(err).Str("file", matches[0]).Msg("Failed to load model results")
			continue
		}
		if ok {
			report.Best[id] = best
			log.Info().
				Str("mission", string(id)).
				Str("model", best.ModelName).
				Float64("f1", best.F1Score).
				Float64("accuracy", best.Accuracy).
				Msg("Best model selected")
		}
	}
	return report, nil
}

// bestModel picks the entry with the highest f1_score. Entries that are not
// metric objects are ignored.
func bestModel(path string) (ModelPerformance, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ModelPerformance{}, false, err
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return ModelPerformance{}, false, fmt.Errorf("decode %s: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var best ModelPerformance
	var bestF1 float64
	found := false
	for _, name := range names {
		var m scoredModel
		if err := json.Unmarshal(entries[name], &m); err != nil || m.F1Score == nil {
			continue
		}
		if *m.F1Score > bestF1 {
			bestF1 = *m.F1Score
			best = ModelPerformance{
				ModelName: name,
				Accuracy:  m.Accuracy,
				Precision: m.Precision,
				Recall:    m.Recall,
				F1Score:   *m.F1Score,
				ROCAUC:    m.ROCAUC,
				CVMean:    m.CVMean,
				CVStd:     m.CVStd,
			}
			found = true
		}
	}
	return best, found, nil
}

// WritePerformanceSummary writes the best model per mission as indented JSON.
func WritePerformanceSummary(path string, report *PerformanceReport) error {
	data, err := json.MarshalIndent(report.Best, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write performance summary: %w", err)
	}
	return nil
}

package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"exoplanet-classifier/internal/mission"

	"github.com/rs/zerolog/log"
)

// Report file names inside the output directory.
const (
	SummaryFile    = "batch_summary.txt"
	PredictionFile = "predictions.csv"
	ResultsFile    = "batch_results.json"
)

// Reporter generates batch reports
type Reporter struct {
	results    *Results
	outputPath string
}

// NewReporter creates a new reporter
func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
	}
}

// GenerateReport generates all report formats
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}
	if err := r.generatePredictionLog(); err != nil {
		return err
	}
	return r.generateJSONReport()
}

func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, SummaryFile)
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	r.writeSummary(file)

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

func (r *Reporter) writeSummary(w io.Writer) {
	res := r.results
	fmt.Fprintf(w, "BATCH CLASSIFICATION SUMMARY\n")
	fmt.Fprintf(w, "============================\n\n")

	fmt.Fprintf(w, "Mission: %s\n", res.Mission)
	fmt.Fprintf(w, "Input: %s\n", res.Input)
	fmt.Fprintf(w, "Started: %s\n", res.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Duration: %s\n\n", res.EndTime.Sub(res.StartTime).Round(time.Millisecond))

	fmt.Fprintf(w, "RECORDS\n")
	fmt.Fprintf(w, "-------\n")
	fmt.Fprintf(w, "Total Rows: %d\n", res.Total())
	fmt.Fprintf(w, "Classified: %d\n", len(res.Outcomes))
	fmt.Fprintf(w, "Rejected: %d\n\n", len(res.Rejected))

	fmt.Fprintf(w, "CLASSES\n")
	fmt.Fprintf(w, "-------\n")
	for c := mission.Class(0); c < mission.NumClasses; c++ {
		fmt.Fprintf(w, "%s: %d\n", c.Label(), res.ByClass[c.Label()])
	}
	fmt.Fprintf(w, "\nMean Confidence: %.2f%%\n", res.MeanConfidence)
	fmt.Fprintf(w, "Fallback Share: %.2f%%\n", res.FallbackShare*100)

	if len(res.Rejected) > 0 {
		fmt.Fprintf(w, "\nREJECTED ROWS\n")
		fmt.Fprintf(w, "-------------\n")
		for _, rej := range res.Rejected {
			fmt.Fprintf(w, "row %d: %s\n", rej.Row, rej.Reason)
		}
	}
}

// generatePredictionLog generates a CSV log of all classified rows
func (r *Reporter) generatePredictionLog() error {
	csvPath := filepath.Join(r.outputPath, PredictionFile)
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create prediction log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{
		"Row", "Class Index", "Label", "P Candidate", "P Confirmed",
		"P False Positive", "Confidence", "Source",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, o := range r.results.Outcomes {
		record := []string{
			strconv.Itoa(o.Row),
			strconv.Itoa(o.Result.ClassIndex),
			o.Result.Label,
			fmt.Sprintf("%.6f", o.Result.Probabilities[0]),
			fmt.Sprintf("%.6f", o.Result.Probabilities[1]),
			fmt.Sprintf("%.6f", o.Result.Probabilities[2]),
			fmt.Sprintf("%.2f", o.Result.Confidence),
			string(o.Result.Source),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write prediction log: %w", err)
	}

	log.Info().Str("file", csvPath).Msg("Prediction log generated")
	return nil
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, ResultsFile)

	res := r.results
	report := map[string]interface{}{
		"summary": map[string]interface{}{
			"mission":         res.Mission,
			"input":           res.Input,
			"start_time":      res.StartTime,
			"end_time":        res.EndTime,
			"total_rows":      res.Total(),
			"classified":      len(res.Outcomes),
			"rejected":        len(res.Rejected),
			"by_class":        res.ByClass,
			"mean_confidence": res.MeanConfidence,
			"fallback_share":  res.FallbackShare,
		},
		"outcomes":     res.Outcomes,
		"rejected":     res.Rejected,
		"generated_at": time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

// PrintSummary prints a summary to w
func (r *Reporter) PrintSummary(w io.Writer) {
	res := r.results
	fmt.Fprintln(w, "\n=== BATCH RESULTS ===")
	fmt.Fprintf(w, "Mission: %s\n", res.Mission)
	fmt.Fprintf(w, "Classified: %d of %d (%d rejected)\n", len(res.Outcomes), res.Total(), len(res.Rejected))
	for c := mission.Class(0); c < mission.NumClasses; c++ {
		fmt.Fprintf(w, "%s: %d\n", c.Label(), res.ByClass[c.Label()])
	}
	fmt.Fprintf(w, "Mean Confidence: %.2f%%\n", res.MeanConfidence)
	fmt.Fprintf(w, "Fallback Share: %.2f%%\n", res.FallbackShare*100)
	fmt.Fprintln(w, "=====================")
}

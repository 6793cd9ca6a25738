package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"exoplanet-classifier/internal/mission"
	"exoplanet-classifier/internal/ml"

	"github.com/spf13/cobra"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Classify a single candidate record",
	Example: `  exoclass predict --mission kepler --record candidate.json
  exoclass predict --mission tess --field orbital_period=3.2 --field transit_duration=2.1 ...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		missionFlag, _ := cmd.Flags().GetString("mission")
		recordPath, _ := cmd.Flags().GetString("record")
		fields, _ := cmd.Flags().GetStringArray("field")
		asJSON, _ := cmd.Flags().GetBool("json")

		id, err := mission.ParseID(missionFlag)
		if err != nil {
			return err
		}

		raw, err := loadRecord(recordPath, fields)
		if err != nil {
			return err
		}

		classifier, _, err := newClassifier(settings, nil, ml.ClassifierConfig{})
		if err != nil {
			return err
		}

		res, err := classifier.ClassifyRaw(cmd.Context(), id, raw)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	predictCmd.Flags().String("mission", "", "Mission: kepler, k2 or tess")
	predictCmd.Flags().String("record", "", "JSON file holding the record (field name to value)")
	predictCmd.Flags().StringArray("field", nil, "Record field as name=value, repeatable")
	predictCmd.Flags().Bool("json", false, "Print the result as JSON")
	_ = predictCmd.MarkFlagRequired("mission")
}

// loadRecord merges the record file (if any) with --field values, which win.
func loadRecord(path string, fields []string) (mission.RawRecord, error) {
	raw := make(mission.RawRecord)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", path, err)
		}
	}

	for _, f := range fields {
		name, value, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("field %q: want name=value", f)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not a number", name, value)
		}
		raw[strings.TrimSpace(name)] = v
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("no record given: use --record or --field")
	}
	return raw, nil
}

func printResult(w io.Writer, res ml.Result) {
	fmt.Fprintf(w, "Mission:    %s\n", res.Mission)
	fmt.Fprintf(w, "Prediction: %s (class %d)\n", res.Label, res.ClassIndex)
	fmt.Fprintf(w, "Confidence: %.2f%%\n", res.Confidence)
	fmt.Fprintf(w, "Source:     %s\n", res.Source)
	fmt.Fprintln(w, "Probabilities:")
	for c := mission.Class(0); c < mission.NumClasses; c++ {
		fmt.Fprintf(w, "  %-15s %.4f\n", c.Label(), res.Probabilities[c])
	}
}

package main

import (
	"exoplanet-classifier/internal/batch"
	"exoplanet-classifier/internal/mission"
	"exoplanet-classifier/internal/ml"

	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Classify every record of a CSV or JSON-lines file",
	RunE: func(cmd *cobra.Command, args []string) error {
		missionFlag, _ := cmd.Flags().GetString("mission")
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		workers, _ := cmd.Flags().GetInt("workers")

		id, err := mission.ParseID(missionFlag)
		if err != nil {
			return err
		}

		rows, err := batch.Load(input)
		if err != nil {
			return err
		}

		classifier, _, err := newClassifier(settings, nil, ml.ClassifierConfig{})
		if err != nil {
			return err
		}

		results, err := batch.NewRunner(classifier, workers).Run(cmd.Context(), id, input, rows)
		if err != nil {
			return err
		}

		reporter := batch.NewReporter(results, output)
		if err := reporter.GenerateReport(); err != nil {
			return err
		}
		reporter.PrintSummary(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	batchCmd.Flags().String("mission", "", "Mission: kepler, k2 or tess")
	batchCmd.Flags().String("input", "", "Input file (.csv or .jsonl)")
	batchCmd.Flags().String("output", "batch_results", "Output directory for reports")
	batchCmd.Flags().Int("workers", 4, "Concurrent classifications")
	_ = batchCmd.MarkFlagRequired("mission")
	_ = batchCmd.MarkFlagRequired("input")
}

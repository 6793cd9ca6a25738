package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"exoplanet-classifier/internal/common"
	"exoplanet-classifier/internal/mission"
	"exoplanet-classifier/internal/ml"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize trained model results and write the performance summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = filepath.Join(settings.ModelsDir, common.PerformanceSummary)
		}

		report, err := ml.SummarizePerformance(settings.ModelsDir)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "=== MODEL PERFORMANCE ===")
		for _, id := range mission.All() {
			files := report.Files[id]
			best, ok := report.Best[id]
			if !ok && len(files) == 0 {
				continue
			}
			fmt.Fprintf(w, "\n%s (%d files)\n", strings.ToUpper(string(id)), len(files))
			for _, f := range files {
				fmt.Fprintf(w, "  %s\n", f)
			}
			if ok {
				fmt.Fprintf(w, "  best: %s  accuracy %.4f  f1 %.4f  roc_auc %.4f\n",
					best.ModelName, best.Accuracy, best.F1Score, best.ROCAUC)
			}
		}

		if err := ml.WritePerformanceSummary(output, report); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		log.Info().Str("file", output).Msg("Performance summary written")
		return nil
	},
}

func init() {
	summaryCmd.Flags().String("output", "", "Summary file (default <models>/"+common.PerformanceSummary+")")
}

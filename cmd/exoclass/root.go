package main

import (
	"fmt"
	"strings"

	"exoplanet-classifier/internal/cfg"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// settings is loaded once before any subcommand runs.
var settings cfg.Settings

var rootCmd = &cobra.Command{
	Use:           "exoclass",
	Short:         "Classify exoplanet transit candidates from Kepler, K2 and TESS",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := cfg.Load()
		if err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}
		applyOverrides(cmd, &s)
		settings = s

		zerolog.SetGlobalLevel(settings.Level())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().String("models", "", "Models directory (overrides MODELS_DIR)")
	rootCmd.PersistentFlags().String("runtime", "", "Inference runtime: none, onnx, remote (overrides INFERENCE_RUNTIME)")
	rootCmd.PersistentFlags().String("data", "", "Prediction history directory (overrides DATA_PATH)")

	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(missionsCmd)
	rootCmd.AddCommand(sampleCmd)
}

// applyOverrides gives command line flags precedence over file and env values.
func applyOverrides(cmd *cobra.Command, s *cfg.Settings) {
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		s.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("models"); v != "" {
		s.ModelsDir = v
	}
	if v, _ := cmd.Flags().GetString("runtime"); v != "" {
		s.Runtime = strings.ToLower(v)
	}
	if v, _ := cmd.Flags().GetString("data"); v != "" {
		s.DataPath = v
	}
}

package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"exoplanet-classifier/internal/batch"
	"exoplanet-classifier/internal/mission"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate synthetic records for batch runs and load tests",
	RunE: func(cmd *cobra.Command, args []string) error {
		missionFlag, _ := cmd.Flags().GetString("mission")
		count, _ := cmd.Flags().GetInt("count")
		output, _ := cmd.Flags().GetString("output")
		format, _ := cmd.Flags().GetString("format")
		seed, _ := cmd.Flags().GetUint64("seed")
		optional, _ := cmd.Flags().GetFloat64("optional")

		id, err := mission.ParseID(missionFlag)
		if err != nil {
			return err
		}
		if count < 1 {
			return fmt.Errorf("count must be positive, got %d", count)
		}

		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		recs := generateRecords(id, count, optional, rng)

		var w io.Writer = cmd.OutOrStdout()
		if output != "" {
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer file.Close()
			w = file
		}

		if err := writeSamples(w, strings.ToLower(format), id, recs); err != nil {
			return err
		}
		if output != "" {
			log.Info().Str("mission", string(id)).Int("records", count).Str("file", output).Msg("Sample records written")
		}
		return nil
	},
}

func init() {
	sampleCmd.Flags().String("mission", "", "Mission: kepler, k2 or tess")
	sampleCmd.Flags().Int("count", 100, "Number of records")
	sampleCmd.Flags().String("output", "", "Output file (default stdout)")
	sampleCmd.Flags().String("format", "csv", "Output format: csv or jsonl")
	sampleCmd.Flags().Uint64("seed", 1, "Random seed")
	sampleCmd.Flags().Float64("optional", 0.5, "Share of optional fields to include")
	_ = sampleCmd.MarkFlagRequired("mission")
}

// generateRecords draws every value uniformly from its quantity's
// normalization range. Optional fields are included with probability optional.
func generateRecords(id mission.ID, n int, optional float64, rng *rand.Rand) []mission.RawRecord {
	p := mission.MustLookup(id)
	recs := make([]mission.RawRecord, n)
	for i := range recs {
		rec := make(mission.RawRecord, len(p.Fields))
		for _, f := range p.Fields {
			if !f.Required && rng.Float64() >= optional {
				continue
			}
			r := mission.RangeOf(f.Quantity)
			rec[f.Name] = r.Min + rng.Float64()*r.Span()
		}
		recs[i] = rec
	}
	return recs
}

func writeSamples(w io.Writer, format string, id mission.ID, recs []mission.RawRecord) error {
	switch format {
	case "csv":
		return batch.WriteCSV(w, id, recs)
	case "jsonl", "ndjson":
		return batch.WriteJSONLines(w, recs)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

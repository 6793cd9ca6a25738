package main

import (
	"errors"
	"fmt"
	"time"

	"exoplanet-classifier/internal/mission"
	"exoplanet-classifier/internal/storage"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or export stored predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		missionFlag, _ := cmd.Flags().GetString("mission")
		since, _ := cmd.Flags().GetDuration("since")
		export, _ := cmd.Flags().GetString("export")

		id, err := mission.ParseID(missionFlag)
		if err != nil {
			return err
		}
		if settings.DataPath == "" {
			return errors.New("no prediction history: set DATA_PATH or --data")
		}

		store, err := storage.New(settings.DataPath)
		if err != nil {
			return err
		}
		defer store.Close()

		end := time.Now()
		start := end.Add(-since)

		if export != "" {
			n, err := store.ExportPredictionsToCSV(export, string(id), start, end)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d predictions to %s\n", n, export)
			return nil
		}

		recs, err := store.GetPredictions(string(id), start, end)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintln(w, "No predictions found.")
			return nil
		}

		fmt.Fprintf(w, "%-19s  %-36s  %-15s  %-10s  %s\n", "Timestamp", "Request", "Label", "Confidence", "Source")
		counts := make(map[string]int)
		for _, r := range recs {
			fmt.Fprintf(w, "%-19s  %-36s  %-15s  %9.2f%%  %s\n",
				r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.RequestID, r.Label, r.Confidence, r.Source)
			counts[r.Label]++
		}
		fmt.Fprintf(w, "\n%d predictions:", len(recs))
		for c := mission.Class(0); c < mission.NumClasses; c++ {
			fmt.Fprintf(w, " %s %d", c.Label(), counts[c.Label()])
		}
		fmt.Fprintln(w)
		return nil
	},
}

func init() {
	historyCmd.Flags().String("mission", "", "Mission: kepler, k2 or tess")
	historyCmd.Flags().Duration("since", 24*time.Hour, "How far back to look")
	historyCmd.Flags().String("export", "", "Write the predictions to this CSV file instead of printing them")
	_ = historyCmd.MarkFlagRequired("mission")
}

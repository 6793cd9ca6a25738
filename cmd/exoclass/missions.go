package main

import (
	"fmt"

	"exoplanet-classifier/internal/mission"
	"exoplanet-classifier/internal/ml"

	"github.com/spf13/cobra"
)

var missionsCmd = &cobra.Command{
	Use:   "missions",
	Short: "List supported missions, their fields and model status",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := ml.NewRegistry(settings.ModelsDir)
		w := cmd.OutOrStdout()

		for _, id := range mission.All() {
			info, err := registry.Info(id)
			if err != nil {
				return err
			}
			p := mission.MustLookup(id)

			status := "fallback only"
			if info.Ready {
				status = "model " + info.Version
			}
			fmt.Fprintf(w, "%s (%s): %d features, %s\n", p.Name, p.ID, p.VectorLength, status)
			for _, f := range p.Fields {
				if f.Required {
					fmt.Fprintf(w, "  %-30s required\n", f.Name)
				} else {
					fmt.Fprintf(w, "  %-30s optional, default %g\n", f.Name, f.Default)
				}
			}
		}
		return nil
	},
}

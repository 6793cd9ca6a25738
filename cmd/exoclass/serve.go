package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"exoplanet-classifier/internal/metrics"
	"exoplanet-classifier/internal/ml"
	"exoplanet-classifier/internal/server"
	"exoplanet-classifier/internal/storage"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the prediction API over HTTP and WebSocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			settings.ListenPort = port
		}

		m := metrics.New()
		mw := metrics.NewWrapper(m)
		monitor := ml.NewInputMonitor(ml.DefaultDriftWindow, ml.DefaultDriftThreshold)

		classifier, registry, err := newClassifier(settings, mw, ml.ClassifierConfig{
			DelayMin: settings.DelayMin,
			DelayMax: settings.DelayMax,
			Monitor:  monitor,
		})
		if err != nil {
			return err
		}

		opts := server.Options{
			Classifier: classifier,
			Registry:   registry,
			Monitor:    monitor,
			Metrics:    mw,
		}
		if store := initializeStorage(settings.DataPath); store != nil {
			defer store.Close()
			opts.Store = store
		}

		srv := server.New(server.Config{
			Port:              settings.ListenPort,
			RequestsPerSecond: settings.RequestsPerSecond,
			Burst:             settings.RequestBurst,
			RequestTimeout:    settings.DelayMax + settings.InferenceTimeout*2,
		}, opts)

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			log.Info().Msg("shutting down gracefully...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "Listen port (overrides LISTEN_PORT)")
}

// initializeStorage opens prediction history if a data path is configured.
func initializeStorage(dataPath string) *storage.Store {
	if dataPath == "" {
		return nil
	}
	store, err := storage.New(dataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without persistence")
		return nil
	}
	return store
}

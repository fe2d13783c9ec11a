package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/morphcv/cvgen/internal/config"
	"github.com/morphcv/cvgen/internal/db"
	"github.com/morphcv/cvgen/internal/executor"
	"github.com/morphcv/cvgen/internal/llm"
	"github.com/morphcv/cvgen/internal/logging"
	"github.com/morphcv/cvgen/internal/queue"
	"github.com/morphcv/cvgen/internal/render"
	"github.com/morphcv/cvgen/internal/store"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the job worker pool",
	Long:  "Starts the worker pool that claims pending jobs and runs them through generation, rendering, and finalization until interrupted.",
	RunE:  runWorker,
}

var workerConfigFile string

func init() {
	workerCmd.Flags().StringVarP(&workerConfigFile, "config", "c", "", "Path to JSON config file (optional)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(workerConfigFile)
	if err != nil {
		return err
	}
	log := logging.New(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}

	files, err := store.New(cfg.StoragePath, log)
	if err != nil {
		return err
	}

	client, err := llm.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return err
	}
	defer client.Close()

	gen := llm.NewGenerator(client, cfg.GenTimeout(), log)
	renderer := render.NewRenderer(files, render.NewCompiler(cfg.PdflatexBinary), log)
	exec := executor.New(database, gen, renderer, log)
	dispatcher := queue.New(exec, database, cfg.Workers, log)

	// Requeue jobs that were still pending when the previous process
	// exited; the record store is the durable queue.
	pending, err := database.ListPendingJobs(ctx, 100)
	if err != nil {
		return err
	}
	for _, job := range pending {
		handle, err := dispatcher.Submit(job.ID, executor.Mode(job.Mode))
		if err != nil {
			log.Warn().Err(err).Int64("job_id", job.ID).Msg("failed to requeue pending job")
			continue
		}
		if err := database.SetTaskID(ctx, job.ID, handle.String()); err != nil {
			log.Warn().Err(err).Int64("job_id", job.ID).Msg("failed to stamp task id")
		}
	}
	if len(pending) > 0 {
		log.Info().Int("requeued", len(pending)).Msg("pending jobs requeued")
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics listener exited")
			}
		}()
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics endpoint started")
	}

	log.Info().Int("workers", cfg.Workers).Msg("worker running, press Ctrl+C to stop")
	<-ctx.Done()

	dispatcher.Stop()
	log.Info().Msg("worker shut down")
	return nil
}

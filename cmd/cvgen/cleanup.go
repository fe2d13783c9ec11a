package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/morphcv/cvgen/internal/config"
	"github.com/morphcv/cvgen/internal/db"
	"github.com/morphcv/cvgen/internal/logging"
	"github.com/morphcv/cvgen/internal/store"
	"github.com/morphcv/cvgen/internal/tokens"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired tokens and orphaned artifact directories",
	Long:  "Purges download tokens past their expiry and deletes artifact directories that no longer have a job record. Intended to run periodically from cron.",
	RunE:  runCleanup,
}

var (
	cleanupConfigFile string
	cleanupDryRun     bool
)

func init() {
	cleanupCmd.Flags().StringVarP(&cleanupConfigFile, "config", "c", "", "Path to JSON config file (optional)")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Report what would be removed without removing it")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cleanupConfigFile)
	if err != nil {
		return err
	}
	log := logging.New(cfg.AppEnv)
	ctx := context.Background()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	files, err := store.New(cfg.StoragePath, log)
	if err != nil {
		return err
	}

	if !cleanupDryRun {
		purged, err := tokens.New(database, log).PurgeExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d expired download tokens\n", purged)
	}

	known, err := database.ListJobUUIDs(ctx)
	if err != nil {
		return err
	}
	orphans, err := files.FindOrphans(known)
	if err != nil {
		return err
	}

	for _, dir := range orphans {
		if cleanupDryRun {
			fmt.Printf("Would remove %s\n", dir)
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to remove orphaned directory")
			continue
		}
		fmt.Printf("Removed %s\n", dir)
	}
	fmt.Printf("%d orphaned directories found\n", len(orphans))
	return nil
}

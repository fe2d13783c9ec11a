package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/morphcv/cvgen/internal/config"
	"github.com/morphcv/cvgen/internal/db"
	"github.com/morphcv/cvgen/internal/executor"
	"github.com/morphcv/cvgen/internal/llm"
	"github.com/morphcv/cvgen/internal/logging"
	"github.com/morphcv/cvgen/internal/render"
	"github.com/morphcv/cvgen/internal/store"
	"github.com/morphcv/cvgen/internal/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one CV synchronously",
	Long:  "Creates a job from a profile file and job description, runs the full pipeline in-process, and prints the resulting artifact paths.",
	RunE:  runGenerate,
}

var (
	generateConfigFile      string
	generateProfileFile     string
	generateDescriptionFile string
	generateTemplate        string
	generateTier            string
	generateTitle           string
	generateUserID          int64
)

func init() {
	generateCmd.Flags().StringVarP(&generateConfigFile, "config", "c", "", "Path to JSON config file (optional)")
	generateCmd.Flags().StringVarP(&generateProfileFile, "profile", "p", "", "Path to profile JSON file (required)")
	generateCmd.Flags().StringVarP(&generateDescriptionFile, "description", "d", "", "Path to job description text file (required)")
	generateCmd.Flags().StringVarP(&generateTemplate, "template", "t", "modern", "Template style name")
	generateCmd.Flags().StringVar(&generateTier, "tier", string(types.TierFree), "User tier (free, pro, enterprise)")
	generateCmd.Flags().StringVar(&generateTitle, "title", "", "Job title shown in listings")
	generateCmd.Flags().Int64VarP(&generateUserID, "user-id", "u", 1, "Owner user id")
	_ = generateCmd.MarkFlagRequired("profile")
	_ = generateCmd.MarkFlagRequired("description")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(generateConfigFile)
	if err != nil {
		return err
	}
	log := logging.New(cfg.AppEnv)
	ctx := context.Background()

	profileData, err := os.ReadFile(generateProfileFile)
	if err != nil {
		return fmt.Errorf("failed to read profile file: %w", err)
	}
	var profile types.Profile
	if err := json.Unmarshal(profileData, &profile); err != nil {
		return fmt.Errorf("failed to parse profile file: %w", err)
	}
	description, err := os.ReadFile(generateDescriptionFile)
	if err != nil {
		return fmt.Errorf("failed to read job description file: %w", err)
	}

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

	profileJSON, err := profile.Encode()
	if err != nil {
		return err
	}
	job, err := database.CreateJob(ctx, generateUserID, generateTitle, generateTemplate,
		types.UserTier(generateTier), profileJSON, string(description))
	if err != nil {
		return err
	}

	// Run in-process instead of through the dispatcher.
	handle := uuid.New()
	if _, err := database.ClaimJob(ctx, job.ID, types.StatusPending, handle.String()); err != nil {
		return err
	}
	if err := exec.Execute(ctx, job.ID, executor.ModeGenerate, func(progress int, message string) {
		fmt.Printf("  %3d%% %s\n", progress, message)
	}); err != nil {
		return err
	}

	job, err = database.GetJob(ctx, job.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Job %s finished: %s\n", job.UUID, job.Status)
	fmt.Printf("  PDF: %s (%d bytes)\n", job.PDFPath, job.PDFSize)
	if job.PreviewPath != "" {
		fmt.Printf("  Preview: %s\n", job.PreviewPath)
	}
	return nil
}

// Package main provides the cvgen CLI: the background worker, a one-shot
// generation command, and maintenance tasks.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cvgen",
	Short: "MorphCV document-generation pipeline",
	Long:  "cvgen runs the asynchronous CV generation pipeline: Gemini-backed LaTeX generation, the three-tier PDF rendering chain, and artifact lifecycle maintenance.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Package main provides the design-review CLI: it converts technical
// specification documents into formal policies and checks vendor proposals
// against them.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "design_review",
	Short: "GenAI-assisted design reviews with automated reasoning checks",
	Long: "design_review converts technical specification PDFs into formally verifiable " +
		"policies and evaluates vendor proposals against them, producing per-policy " +
		"compliance findings and an HTML report.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

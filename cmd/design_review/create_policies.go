package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/observability"
)

var createPoliciesCmd = &cobra.Command{
	Use:   "create-policies",
	Short: "Build a formal policy for every specification section",
	Long: "Create one formal policy on the reasoning service per extracted section " +
		"and wait for each build workflow to complete. Sections and chapters that " +
		"already completed on a previous run are skipped.",
	RunE: runCreatePolicies,
}

var createSpecFile string

func init() {
	createPoliciesCmd.Flags().StringVar(&createSpecFile, "spec", "", "Path to the technical specification PDF (required)")
	_ = createPoliciesCmd.MarkFlagRequired("spec")
	addCommonFlags(createPoliciesCmd)

	rootCmd.AddCommand(createPoliciesCmd)
}

func runCreatePolicies(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	doc, client, err := openDocument(ctx, cfg, createSpecFile, true)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := doc.CreatePolicies(ctx); err != nil {
		return err
	}

	if cfg.Verbose {
		printer := observability.NewPrinter(os.Stdout)
		for _, chapter := range doc.Chapters() {
			policies, err := doc.PoliciesForChapter(ctx, chapter.Number)
			if err != nil {
				return err
			}
			for i := range policies {
				printer.PrintPolicy(&policies[i])
			}
		}
	}

	fmt.Fprintf(os.Stdout, "Policy creation complete for %s\n", createSpecFile)
	return nil
}

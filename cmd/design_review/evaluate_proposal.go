package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/config"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/db"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/document"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/findings"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/observability"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/report"
)

// maxProposalFlags bounds the --proposal flag; the final document count
// including split archives is checked again by the pipeline.
const maxProposalFlags = 4

var evaluateProposalCmd = &cobra.Command{
	Use:   "evaluate-proposal",
	Short: "Check a vendor proposal against every built policy",
	Long: "Resolve each policy's variables from the proposal documents, evaluate the " +
		"assignments with the reasoning service, and write an HTML compliance report. " +
		"Unchanged proposal and policy combinations are answered from the cache.",
	RunE: runEvaluateProposal,
}

var (
	evalSpecFile    string
	evalProposals   []string
	evalReportFile  string
	evalDatabaseURL string
)

func init() {
	evaluateProposalCmd.Flags().StringVar(&evalSpecFile, "spec", "", "Path to the technical specification PDF (required)")
	evaluateProposalCmd.Flags().StringArrayVarP(&evalProposals, "proposal", "p", nil, "Path to a proposal PDF (repeatable, required)")
	evaluateProposalCmd.Flags().StringVar(&evalReportFile, "report", "", "Path for the HTML compliance report (default: <output>/report.html)")
	evaluateProposalCmd.Flags().StringVar(&evalDatabaseURL, "db-url", "", "Postgres URL for mirroring evaluation artifacts (overrides DATABASE_URL env var)")
	_ = evaluateProposalCmd.MarkFlagRequired("spec")
	_ = evaluateProposalCmd.MarkFlagRequired("proposal")
	addCommonFlags(evaluateProposalCmd)

	rootCmd.AddCommand(evaluateProposalCmd)
}

func runEvaluateProposal(_ *cobra.Command, _ []string) error {
	if len(evalProposals) > maxProposalFlags {
		return fmt.Errorf("at most %d proposal documents are supported", maxProposalFlags)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if evalDatabaseURL != "" {
		cfg.DatabaseURL = evalDatabaseURL
	}

	ctx := context.Background()
	doc, client, err := openDocument(ctx, cfg, evalSpecFile, true)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := doc.EnsureMetadata(ctx); err != nil {
		return err
	}

	results, err := doc.CheckCompliance(ctx, evalProposals)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		printResults(results)
	}

	mirrorResults(ctx, cfg, doc, results)

	reportPath := evalReportFile
	if reportPath == "" {
		reportPath = filepath.Join(cfg.OutputDir, "report.html")
	}
	chapters := make([]report.Chapter, 0, len(results))
	for _, cc := range results {
		chapters = append(chapters, report.Chapter{Title: cc.Title, Policies: cc.Policies})
	}
	if err := report.WriteFile(reportPath, doc.Ledger().Title, evalSpecFile, evalProposals, chapters); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Compliance report written to %s\n", reportPath)
	return nil
}

func printResults(results []document.ChapterCompliance) {
	printer := observability.NewPrinter(os.Stdout)
	for _, cc := range results {
		for _, rp := range cc.Policies {
			printer.PrintResolvedPolicy(rp)
			printer.PrintFindingSummary(rp.Name, findings.FromAssessment(rp.Assessment, nil))
		}
	}
}

// mirrorResults copies the resolved policies into Postgres when a database is
// configured. Mirroring is best-effort: failures are reported but never abort
// the evaluation.
func mirrorResults(ctx context.Context, cfg *config.Config, doc *document.Document, results []document.ChapterCompliance) {
	if cfg.DatabaseURL == "" {
		return
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot mirror results to database: %v\n", err)
		return
	}
	defer database.Close()

	evaluationID, err := database.CreateEvaluation(ctx, doc.Ledger().DocumentUUID, doc.Ledger().Title, evalProposals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot record evaluation: %v\n", err)
		return
	}

	status := db.StatusCompleted
	for _, cc := range results {
		for _, rp := range cc.Policies {
			if err := database.SaveResolvedPolicy(ctx, evaluationID, rp); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: cannot mirror policy %s: %v\n", rp.Name, err)
				status = db.StatusFailed
			}
		}
	}
	if err := database.CompleteEvaluation(ctx, evaluationID, status); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot finalize evaluation record: %v\n", err)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/cache"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/config"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/document"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/llm"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/reasoning"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/transcribe"
)

// Flags shared by every subcommand.
var (
	flagOutputDir string
	flagCacheDir  string
	flagAPIKey    string
	flagModel     string
	flagEndpoint  string
	flagToken     string
	flagVerbose   bool
)

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagOutputDir, "output", "o", "", "Directory for transcription artifacts and processing metadata (default: artifacts)")
	cmd.Flags().StringVar(&flagCacheDir, "cache-dir", "", "Directory for the content-addressed cache (default: data/cache)")
	cmd.Flags().StringVar(&flagAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Model override for every extraction tier")
	cmd.Flags().StringVar(&flagEndpoint, "endpoint", "", "Formal-policy service endpoint (overrides REASONING_ENDPOINT env var)")
	cmd.Flags().StringVar(&flagToken, "token", "", "Formal-policy service auth token (overrides REASONING_TOKEN env var)")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print detailed progress boxes")
}

// loadConfig merges flag overrides over the environment-derived configuration
// and validates it.
func loadConfig() (*config.Config, error) {
	cfg := config.FromEnv()
	if flagOutputDir != "" {
		cfg.OutputDir = flagOutputDir
	}
	if flagCacheDir != "" {
		cfg.CacheDir = flagCacheDir
	}
	if flagAPIKey != "" {
		cfg.APIKey = flagAPIKey
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flagEndpoint != "" {
		cfg.ServiceEndpoint = flagEndpoint
	}
	if flagToken != "" {
		cfg.ServiceToken = flagToken
	}
	cfg.Verbose = flagVerbose

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required (set GEMINI_API_KEY environment variable or use --api-key flag)")
	}
	return cfg, nil
}

// openDocument wires the real collaborators and opens the specification
// document. needsService controls whether a formal-policy service endpoint is
// mandatory; section extraction works without one.
func openDocument(ctx context.Context, cfg *config.Config, specPath string, needsService bool) (*document.Document, *llm.GeminiClient, error) {
	llmConfig := llm.DefaultGeminiConfig()
	if cfg.Model != "" {
		for _, tier := range []llm.ModelTier{llm.TierLite, llm.TierStandard, llm.TierAdvanced} {
			llmConfig = llmConfig.WithModel(tier, cfg.Model)
		}
	}

	client, err := llm.NewGeminiClient(ctx, llmConfig, cfg.APIKey)
	if err != nil {
		return nil, nil, err
	}

	var service reasoning.Client
	if cfg.ServiceEndpoint != "" {
		service = reasoning.NewHTTPClient(cfg.ServiceEndpoint, cfg.ServiceToken)
	} else if needsService {
		client.Close()
		return nil, nil, fmt.Errorf("a formal-policy service endpoint is required (set REASONING_ENDPOINT or use --endpoint)")
	}

	store, err := cache.NewStore(cfg.CacheDir)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	specData, err := os.ReadFile(specPath)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("cannot read specification %s: %w", specPath, err)
	}

	doc, err := document.Open(document.Deps{
		Config:      cfg,
		Transcriber: transcribe.NewGeminiTranscriber(client, filepath.Base(specPath), specData),
		LLM:         client,
		Reasoning:   service,
		Store:       store,
	}, specPath)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return doc, client, nil
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mikeboe/company-researcher/pkg/clients"
	"github.com/mikeboe/company-researcher/pkg/config"
	"github.com/mikeboe/company-researcher/pkg/embeddings"
	"github.com/mikeboe/company-researcher/pkg/nodes"
	"github.com/mikeboe/company-researcher/pkg/search"
	"github.com/mikeboe/company-researcher/pkg/state"
	"github.com/spf13/cobra"
)

var (
	company    string
	companyURL string
	hqLocation string
	industry   string
	outputDir  string
)

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "company-researcher",
		Short: "A terminal-based company research agent",
		Long:  `company-researcher runs a research pipeline for a target company: parallel web research across company, industry, financial and news angles, followed by curation, per-category briefings and an edited final report.`,
		Run: func(cmd *cobra.Command, args []string) {

			// Check if company provided via flags
			companyFlagChanged := cmd.Flags().Changed("company")

			if !companyFlagChanged {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)

				fmt.Print("Enter company name: ")
				input, _ := reader.ReadString('\n')
				company = strings.TrimSpace(input)
				if company == "" {
					slog.Error("Company name cannot be empty")
					os.Exit(1)
				}

				fmt.Print("Enter company URL (optional): ")
				input, _ = reader.ReadString('\n')
				companyURL = strings.TrimSpace(input)
			} else if company == "" {
				slog.Error("--company flag provided but empty")
				os.Exit(1)
			}

			slog.Info("Starting research", "company", company, "url", companyURL)

			deps, err := buildDeps(cfg)
			if err != nil {
				slog.Error("Failed to init backends", "error", err)
				os.Exit(1)
			}

			pipeline, err := nodes.NewPipeline(deps, outputDir, slog.Default())
			if err != nil {
				slog.Error("Invalid pipeline", "error", err)
				os.Exit(1)
			}

			st := state.New(state.Params{
				Company:    company,
				CompanyURL: companyURL,
				HQLocation: hqLocation,
				Industry:   industry,
			}, uuid.New().String(), nil)

			var final *state.State
			for snap := range pipeline.Run(context.Background(), st) {
				final = snap
			}

			if final == nil {
				slog.Error("Pipeline produced no result")
				os.Exit(1)
			}

			fmt.Println()
			for _, msg := range final.Messages {
				fmt.Println("  " + msg)
			}
			fmt.Println()

			if final.Report == nil {
				slog.Warn("No report could be generated", "company", company)
				os.Exit(1)
			}
			slog.Info("Research complete", "company", company, "output_dir", outputDir)
		},
	}

	rootCmd.Flags().StringVarP(&company, "company", "c", "", "The target company name")
	rootCmd.Flags().StringVar(&companyURL, "url", "", "The company's website URL")
	rootCmd.Flags().StringVar(&hqLocation, "hq", "", "The company's headquarters location")
	rootCmd.Flags().StringVar(&industry, "industry", "", "The company's industry")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory to write the report to")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildDeps(cfg *config.Config) (nodes.Deps, error) {
	llm, err := clients.GoogleAi(clients.ModelType(cfg.FastModel))
	if err != nil {
		return nodes.Deps{}, fmt.Errorf("failed to init LLM: %w", err)
	}

	tavily := search.NewTavilyClient(cfg.TavilyApiKey)

	deps := nodes.Deps{
		Generator: clients.NewLLMGenerator(llm).WithModels(cfg.ReasoningModel, cfg.FastModel),
		Searcher:  tavily,
		Extractor: tavily,
		Logger:    slog.Default(),
	}

	if cfg.GoogleApiKey != "" {
		embedder, err := embeddings.NewGoogleEmbedder(context.Background(), cfg.EmbeddingModel, cfg.GoogleApiKey)
		if err != nil {
			slog.Warn("Embedder unavailable, curator will use retrieval scores", "error", err)
		} else {
			deps.Embedder = embedder
		}
	}

	return deps, nil
}

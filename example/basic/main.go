package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/siherrmann/graphrag"
	"github.com/siherrmann/graphrag/config"
	"github.com/siherrmann/graphrag/corpus"
	"github.com/siherrmann/graphrag/helper"
)

var sampleReports = map[string]string{
	"talan_strategy_2024.txt": `Talan is a French consulting group focused on data, cloud and artificial intelligence.
In 2024 Talan expanded its cloud migration offer for banks and insurers and opened a data center of excellence in Lisbon.`,
	"wavestone_results_2024.txt": `Wavestone advises large companies on cybersecurity, digital transformation and risk management.
The merger with Q_PERIOR strengthened its presence in Germany and Switzerland.`,
	"devoteam_outlook.txt": `Devoteam is a partner of the large cloud hyperscalers and builds managed cloud platforms.
Its growth plan targets generative AI services for public sector clients.`,
}

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container for the index store
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}
	db := helper.NewDatabase("graphrag", dbConfig, helper.NewLogger(os.Stdout, helper.ParseLevel("info")))
	defer db.Close()

	dir, err := os.MkdirTemp("", "graphrag-reports")
	if err != nil {
		log.Fatalf("Failed to create report directory: %v", err)
	}
	defer os.RemoveAll(dir)
	for name, content := range sampleReports {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
	}

	// Load configuration from GRAPHRAG_* variables, embed locally
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.Corpus.PDFDir = dir
	cfg.LLM.EmbeddingProvider = "hash"

	a, err := graphrag.NewAnalyzer(ctx, cfg,
		graphrag.WithDatabase(db),
		graphrag.WithExtractor(".txt", corpus.TextExtractor{}),
	)
	if err != nil {
		log.Fatalf("Failed to create analyzer: %v", err)
	}
	defer a.Close()

	fmt.Println("Ingesting reports...")
	report, err := a.IngestDocuments(ctx, false)
	if err != nil {
		log.Fatalf("Failed to ingest documents: %v", err)
	}
	fmt.Printf("Ingested %d documents of %v into %d chunks\n", report.Documents, report.Companies, report.Chunks)

	// A second ingestion reuses the stored index
	report, err = a.IngestDocuments(ctx, false)
	if err != nil {
		log.Fatalf("Failed to ingest documents: %v", err)
	}
	fmt.Printf("Restored stored index: %t\n", report.Restored)

	if !a.AIEnabled() {
		fmt.Println("\nSet GEMINI_API_KEY or GRAPHRAG_LLM_PROVIDER=ollama to run the analysis.")
		return
	}

	query := "Which cloud services does Talan offer?"
	fmt.Printf("\nAnalyzing: %s\n", query)
	result, err := a.AnalyzeDocuments(ctx, query)
	if err != nil {
		log.Fatalf("Failed to analyze: %v", err)
	}

	fmt.Printf("\n%s\n", result.Answer)
	for i, item := range result.Trace.Items {
		fmt.Printf("\n--- Evidence %d ---\n", i+1)
		fmt.Printf("Source: %s\n", item.Source)
		fmt.Printf("Score: %.4f, confidence: %.2f\n", item.Score, item.Confidence)
	}
	fmt.Printf("\nCompanies analyzed: %v\n", result.Metrics.CompaniesAnalyzed)
}

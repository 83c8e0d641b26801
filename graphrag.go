// Package graphrag answers analytical questions over a corpus of company
// documents and a knowledge graph. Evidence is retrieved by embedding
// similarity, judged for relevance by a generative model, optionally expanded
// over the graph and synthesized into a grounded, traceable answer.
package graphrag

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/siherrmann/graphrag/config"
	"github.com/siherrmann/graphrag/core/graph"
	"github.com/siherrmann/graphrag/core/index"
	"github.com/siherrmann/graphrag/core/judge"
	"github.com/siherrmann/graphrag/core/orchestrator"
	"github.com/siherrmann/graphrag/core/pipeline"
	"github.com/siherrmann/graphrag/core/retrieval"
	"github.com/siherrmann/graphrag/core/synthesis"
	"github.com/siherrmann/graphrag/corpus"
	"github.com/siherrmann/graphrag/database"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/llm"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
)

const (
	DocumentsIndex = "documents"
	GraphIndex     = "graph"
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Option customizes an Analyzer.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	embedder   *pipeline.Embedder
	judge      Generator
	synthesis  Generator
	extractors map[string]corpus.Extractor
	db         *helper.Database
}

// WithLogger replaces the default pretty logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithEmbedder replaces the configured embedding model.
func WithEmbedder(embedder pipeline.Embedder) Option {
	return func(o *options) { o.embedder = &embedder }
}

// WithGenerator uses generator for judging and synthesis.
func WithGenerator(generator Generator) Option {
	return WithGenerators(generator, generator)
}

// WithGenerators uses separate models for judging and synthesis.
func WithGenerators(judgeGenerator Generator, synthesisGenerator Generator) Option {
	return func(o *options) {
		o.judge = judgeGenerator
		o.synthesis = synthesisGenerator
	}
}

// WithExtractor registers an extractor for a file extension like ".txt".
func WithExtractor(ext string, extractor corpus.Extractor) Option {
	return func(o *options) {
		if o.extractors == nil {
			o.extractors = map[string]corpus.Extractor{}
		}
		o.extractors[ext] = extractor
	}
}

// WithDatabase persists indexes and documents in db instead of connecting
// through the GRAPHRAG_DB_* variables. It enables the store.
func WithDatabase(db *helper.Database) Option {
	return func(o *options) { o.db = db }
}

// Analyzer wires corpus, knowledge graph, indexes and models into the analysis pipeline.
type Analyzer struct {
	config   *config.Config
	log      *slog.Logger
	embedder *pipeline.Embedder
	pipeline *pipeline.Pipeline
	ingester *corpus.Ingester

	documents    *index.Index
	nodes        *index.Index
	graph        *graphHolder
	orchestrator *orchestrator.Orchestrator
	aiEnabled    bool

	mu     sync.RWMutex
	corpus *corpus.Corpus

	// Optional persistence
	db          *helper.Database
	ownDB       bool
	indexStore  *database.IndexesDBHandler
	chunkStore  *database.ChunksDBHandler
	documentsDB *database.DocumentsDBHandler
}

// NewAnalyzer creates an analyzer for the configuration.
// Without a reachable model the corpus can still be ingested and browsed,
// analyses then fail with a model error.
func NewAnalyzer(ctx context.Context, cfg *config.Config, opts ...Option) (*Analyzer, error) {
	if cfg == nil {
		return nil, model.NewEmptyInputError("configuration")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = helper.NewLogger(os.Stdout, cfg.LogLevel())
	}

	modelConfig, err := cfg.ModelConfig()
	if err != nil {
		return nil, helper.NewError("model config", err)
	}

	embedder := o.embedder
	if embedder == nil {
		e, err := llm.NewEmbedder(ctx, modelConfig)
		if err != nil {
			if cfg.AIEnabled() {
				return nil, helper.NewError("create embedder", err)
			}
			logger.Warn("No embedding model available, analysis is disabled", slog.String("error", err.Error()))
		} else {
			embedder = &e
		}
	}

	judgeGenerator, synthesisGenerator := o.judge, o.synthesis
	if synthesisGenerator == nil && cfg.AIEnabled() {
		chat, err := llm.NewGenerator(ctx, modelConfig)
		if err != nil {
			return nil, helper.NewError("create generator", err)
		}
		logger.Info("Using chat model", slog.String("model", chat.Name()))
		judgeGenerator, synthesisGenerator = chat, chat
	}

	metric, err := index.ParseMetric(cfg.Retrieval.Metric)
	if err != nil {
		return nil, err
	}
	modelName := ""
	if embedder != nil {
		modelName = embedder.Model
	}
	documents, err := index.New(DocumentsIndex, modelName, metric, logger)
	if err != nil {
		return nil, helper.NewError("create documents index", err)
	}
	nodes, err := index.New(GraphIndex, modelName, metric, logger)
	if err != nil {
		return nil, helper.NewError("create graph index", err)
	}

	a := &Analyzer{
		config:    cfg,
		log:       logger,
		embedder:  embedder,
		ingester:  corpus.NewIngester(cfg.Corpus.Workers, logger),
		documents: documents,
		nodes:     nodes,
		graph:     &graphHolder{log: logger},
		aiEnabled: embedder != nil && synthesisGenerator != nil,
	}
	for ext, extractor := range o.extractors {
		a.ingester.SetExtractor(ext, extractor)
	}

	if embedder != nil {
		a.pipeline = pipeline.NewPipeline(pipeline.BoundaryChunker(cfg.Corpus.ChunkMaxTokens, cfg.Corpus.ChunkOverlap), *embedder)
		if cfg.Corpus.ExtractEntities {
			extractor, err := pipeline.DefaultOrganizationExtractor()
			if err != nil {
				return nil, helper.NewError("create entity extractor", err)
			}
			a.pipeline.SetEntityExtractor(extractor)
		}
	}

	a.orchestrator = a.newOrchestrator(judgeGenerator, synthesisGenerator)

	if o.db != nil || cfg.Store.Enabled {
		err = a.openStore(o.db)
		if err != nil {
			return nil, helper.NewError("open store", err)
		}
	}

	logger.Info("Initialized analyzer", slog.Bool("ai_enabled", a.aiEnabled), slog.String("embedding_model", modelName), slog.Bool("store", a.db != nil))

	return a, nil
}

func (a *Analyzer) newOrchestrator(judgeGenerator Generator, synthesisGenerator Generator) *orchestrator.Orchestrator {
	policy := a.config.RetryPolicy()
	policy.Retryable = llm.IsTransient

	components := orchestrator.Components{Expander: a.graph}
	if a.embedder != nil {
		components.Sources = []retrieval.Retrievable{
			retrieval.NewDocumentSource(retrieval.NewRetriever(a.documents, *a.embedder, a.config.Limits.MaxTopK, policy, a.log)),
			retrieval.NewGraphSource(retrieval.NewRetriever(a.nodes, *a.embedder, a.config.Limits.MaxTopK, policy, a.log)),
		}
	}
	if a.config.Judge.Enabled && judgeGenerator != nil {
		components.Judge = judge.New(judgeGenerator, judge.Config{
			BatchSize:        a.config.Judge.BatchSize,
			Concurrency:      a.config.Judge.Concurrency,
			FailOpen:         a.config.Judge.FailOpen,
			MinConfidence:    a.config.Judge.MinConfidence,
			Criteria:         a.config.Judge.Criteria,
			MaxEvidenceChars: a.config.Judge.MaxEvidenceChars,
			Retry:            policy,
		}, a.log)
	}
	if synthesisGenerator != nil {
		components.Synthesizer = synthesis.New(synthesisGenerator, synthesis.Config{
			ContextTokenBudget: a.config.Synthesis.ContextTokenBudget,
			Retry:              policy,
		}, a.log)
	}

	return orchestrator.New(components, model.DefaultQueryConfig(), a.config.RequestLimits(), a.log)
}

func (a *Analyzer) openStore(db *helper.Database) error {
	if db == nil {
		dbConfig, err := helper.NewDatabaseConfiguration()
		if err != nil {
			return helper.NewError("database configuration", err)
		}
		db = helper.NewDatabase("graphrag", dbConfig, a.log)
		a.ownDB = true
	}

	err := loadSql.Init(db.Instance)
	if err != nil {
		return helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	a.indexStore, err = database.NewIndexesDBHandler(db, false)
	if err != nil {
		return helper.NewError("create indexes handler", err)
	}
	a.chunkStore, err = database.NewChunksDBHandler(db, a.indexStore, false)
	if err != nil {
		return helper.NewError("create chunks handler", err)
	}
	a.documentsDB, err = database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return helper.NewError("create documents handler", err)
	}

	a.db = db
	return nil
}

// Close closes the database connection if the analyzer opened it.
func (a *Analyzer) Close() error {
	if a.ownDB {
		return a.db.Close()
	}
	return nil
}

// AIEnabled reports if analyses can run.
func (a *Analyzer) AIEnabled() bool {
	return a.aiEnabled
}

// Corpus returns the last ingested corpus or nil.
func (a *Analyzer) Corpus() *corpus.Corpus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.corpus
}

// Graph returns the loaded knowledge graph or nil.
func (a *Analyzer) Graph() *graph.KnowledgeGraph {
	return a.graph.get()
}

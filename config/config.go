// Package config loads the application configuration from defaults, an
// optional YAML file, a .env file and GRAPHRAG_ environment variables.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/llm"
	"github.com/siherrmann/graphrag/model"
	"github.com/spf13/viper"
)

const envPrefix = "GRAPHRAG"

// Config is the complete application configuration
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm" validate:"required"`
	Corpus    CorpusConfig    `mapstructure:"corpus" validate:"required"`
	Graph     GraphConfig     `mapstructure:"graph" validate:"required"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" validate:"required"`
	Judge     JudgeConfig     `mapstructure:"judge" validate:"required"`
	Synthesis SynthesisConfig `mapstructure:"synthesis" validate:"required"`
	Limits    LimitsConfig    `mapstructure:"limits" validate:"required"`
	Store     StoreConfig     `mapstructure:"store"`
	Log       LogConfig       `mapstructure:"log" validate:"required"`
}

// LLMConfig holds the model provider settings
type LLMConfig struct {
	Provider          string `mapstructure:"provider" validate:"required,oneof=gemini openai ollama anthropic claude"`
	EmbeddingProvider string `mapstructure:"embeddingProvider" validate:"omitempty,oneof=gemini openai ollama hugot hash"`
	ChatModel         string `mapstructure:"chatModel"`
	EmbeddingModel    string `mapstructure:"embeddingModel"`
	APIKey            string `mapstructure:"apiKey"`
	BaseURL           string `mapstructure:"baseURL" validate:"omitempty,url"`
	// RequestTimeoutSeconds bounds every single model call
	RequestTimeoutSeconds int `mapstructure:"requestTimeoutSeconds" validate:"min=1,max=600"`
	// MaxRetries is the number of additional attempts on transient failures
	MaxRetries    int `mapstructure:"maxRetries" validate:"min=0,max=10"`
	HashDimension int `mapstructure:"hashDimension" validate:"min=8,max=8192"`
}

// CorpusConfig holds the document corpus settings
type CorpusConfig struct {
	PDFDir         string `mapstructure:"pdfDir" validate:"required"`
	ChunkMaxTokens int    `mapstructure:"chunkMaxTokens" validate:"min=16"`
	ChunkOverlap   int    `mapstructure:"chunkOverlap" validate:"min=0,ltfield=ChunkMaxTokens"`
	Workers        int    `mapstructure:"workers" validate:"min=1,max=64"`
	// ExtractEntities tags chunks with organizations found by a local NER model
	ExtractEntities bool `mapstructure:"extractEntities"`
}

// GraphConfig holds the knowledge graph settings
type GraphConfig struct {
	// Path of the graph JSON file, empty disables graph analysis
	Path     string `mapstructure:"path"`
	Directed bool   `mapstructure:"directed"`
	TopK     int    `mapstructure:"topK" validate:"min=1"`
	MaxDepth int    `mapstructure:"maxDepth" validate:"min=0,max=10"`
	MaxNodes int    `mapstructure:"maxNodes" validate:"min=1"`
	MaxEdges int    `mapstructure:"maxEdges" validate:"min=1"`
}

// RetrievalConfig holds the document retrieval settings
type RetrievalConfig struct {
	TopK   int    `mapstructure:"topK" validate:"min=1"`
	Metric string `mapstructure:"metric" validate:"oneof=cosine l2"`
}

// JudgeConfig holds the relevance judge settings
type JudgeConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	BatchSize        int     `mapstructure:"batchSize" validate:"min=1,max=50"`
	Concurrency      int     `mapstructure:"concurrency" validate:"min=1,max=16"`
	FailOpen         bool    `mapstructure:"failOpen"`
	MinConfidence    float64 `mapstructure:"minConfidence" validate:"min=0,max=1"`
	MaxEvidenceChars int     `mapstructure:"maxEvidenceChars" validate:"min=100"`
	// Criteria replaces the default relevance criteria of the judge prompt
	Criteria string `mapstructure:"criteria"`
}

// SynthesisConfig holds the answer synthesis settings
type SynthesisConfig struct {
	ContextTokenBudget int `mapstructure:"contextTokenBudget" validate:"min=1"`
	MaxOutputTokens    int `mapstructure:"maxOutputTokens" validate:"min=1"`
}

// LimitsConfig holds the global per request bounds
type LimitsConfig struct {
	MaxTopK          int `mapstructure:"maxTopK" validate:"min=1"`
	MaxEvidence      int `mapstructure:"maxEvidence" validate:"min=1"`
	MaxSubgraphNodes int `mapstructure:"maxSubgraphNodes" validate:"min=1"`
	MaxSubgraphEdges int `mapstructure:"maxSubgraphEdges" validate:"min=1"`
}

// StoreConfig enables persistence of built indexes in Postgres.
// Connection settings come from the GRAPHRAG_DB_* variables.
type StoreConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LogConfig holds the logging settings
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", string(llm.ProviderGemini))
	v.SetDefault("llm.embeddingProvider", "")
	v.SetDefault("llm.chatModel", "")
	v.SetDefault("llm.embeddingModel", "")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.baseURL", "")
	v.SetDefault("llm.requestTimeoutSeconds", 60)
	v.SetDefault("llm.maxRetries", 2)
	v.SetDefault("llm.hashDimension", 256)

	v.SetDefault("corpus.pdfDir", "pdfs")
	v.SetDefault("corpus.chunkMaxTokens", 200)
	v.SetDefault("corpus.chunkOverlap", 20)
	v.SetDefault("corpus.workers", 4)
	v.SetDefault("corpus.extractEntities", false)

	defaults := model.DefaultQueryConfig()
	v.SetDefault("graph.path", "")
	v.SetDefault("graph.directed", false)
	v.SetDefault("graph.topK", defaults.TopK)
	v.SetDefault("graph.maxDepth", defaults.Depth())
	v.SetDefault("graph.maxNodes", defaults.MaxNodes)
	v.SetDefault("graph.maxEdges", defaults.MaxEdges)

	v.SetDefault("retrieval.topK", 10)
	v.SetDefault("retrieval.metric", "cosine")

	v.SetDefault("judge.enabled", true)
	v.SetDefault("judge.batchSize", 5)
	v.SetDefault("judge.concurrency", 2)
	v.SetDefault("judge.failOpen", false)
	v.SetDefault("judge.minConfidence", 0.5)
	v.SetDefault("judge.maxEvidenceChars", 2000)
	v.SetDefault("judge.criteria", "")

	v.SetDefault("synthesis.contextTokenBudget", 3000)
	v.SetDefault("synthesis.maxOutputTokens", llm.DefaultMaxOutputTokens)

	limits := model.DefaultLimits()
	v.SetDefault("limits.maxTopK", limits.MaxTopK)
	v.SetDefault("limits.maxEvidence", limits.MaxEvidence)
	v.SetDefault("limits.maxSubgraphNodes", limits.MaxSubgraphNodes)
	v.SetDefault("limits.maxSubgraphEdges", limits.MaxSubgraphEdges)

	v.SetDefault("store.enabled", false)
	v.SetDefault("log.level", "info")
}

// Load reads the configuration. A .env file in the working directory is
// loaded first, then defaults, the optional YAML file at path and GRAPHRAG_
// environment variables (llm.apiKey is GRAPHRAG_LLM_APIKEY) are merged.
// The result is validated.
func Load(path string) (*Config, error) {
	// a missing .env file is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		err := v.ReadInConfig()
		if err != nil {
			return nil, model.NewInputError("read config file %s: %v", path, err)
		}
	}

	config := &Config{}
	err := v.Unmarshal(config)
	if err != nil {
		return nil, helper.NewError("unmarshal config", err)
	}

	if config.LLM.APIKey == "" {
		config.LLM.APIKey = providerAPIKey(config.LLM.Provider)
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

// providerAPIKey falls back to the well known key variable of the provider.
func providerAPIKey(provider string) string {
	var names []string
	switch strings.ToLower(provider) {
	case string(llm.ProviderGemini):
		names = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case string(llm.ProviderOpenAI):
		names = []string{"OPENAI_API_KEY"}
	case string(llm.ProviderAnthropic), "claude":
		names = []string{"ANTHROPIC_API_KEY"}
	}
	for _, name := range names {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}
	return ""
}

// Validate checks the struct tags of the configuration.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make([]string, 0, len(validationErrors))
		for _, fe := range validationErrors {
			fields = append(fields, fe.Namespace()+" ("+fe.Tag()+")")
		}
		return model.NewInputError("invalid configuration: %s", strings.Join(fields, ", "))
	}
	return model.NewInputError("invalid configuration: %v", err)
}

// AIEnabled reports if a chat model can be reached with the configuration.
// Ollama runs locally and needs no key.
func (c *Config) AIEnabled() bool {
	provider, err := llm.ParseProvider(c.LLM.Provider)
	if err != nil {
		return false
	}
	return provider == llm.ProviderOllama || c.LLM.APIKey != ""
}

// ModelConfig returns the settings of the model clients.
func (c *Config) ModelConfig() (llm.Config, error) {
	provider, err := llm.ParseProvider(c.LLM.Provider)
	if err != nil {
		return llm.Config{}, model.NewInputError("%v", err)
	}

	var embeddingProvider llm.Provider
	if c.LLM.EmbeddingProvider != "" {
		embeddingProvider, err = llm.ParseProvider(c.LLM.EmbeddingProvider)
		if err != nil {
			return llm.Config{}, model.NewInputError("%v", err)
		}
	}

	return llm.Config{
		Provider:          provider,
		EmbeddingProvider: embeddingProvider,
		ChatModel:         c.LLM.ChatModel,
		EmbeddingModel:    c.LLM.EmbeddingModel,
		APIKey:            c.LLM.APIKey,
		BaseURL:           c.LLM.BaseURL,
		MaxOutputTokens:   c.Synthesis.MaxOutputTokens,
		Timeout:           c.RequestTimeout(),
		HashDimension:     c.LLM.HashDimension,
	}, nil
}

// RequestTimeout is the per call timeout of model requests.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.LLM.RequestTimeoutSeconds) * time.Second
}

// RetryPolicy returns the bounded retry policy of model calls.
// The caller decides which errors are retryable.
func (c *Config) RetryPolicy() helper.RetryPolicy {
	policy := helper.DefaultRetryPolicy()
	policy.MaxAttempts = c.LLM.MaxRetries + 1
	policy.Timeout = c.RequestTimeout()
	return policy
}

// DocumentQuery returns the per request defaults of document analysis.
func (c *Config) DocumentQuery() model.QueryConfig {
	return model.QueryConfig{
		TopK:     c.Retrieval.TopK,
		MaxDepth: model.Depth(c.Graph.MaxDepth),
		MaxNodes: c.Graph.MaxNodes,
		MaxEdges: c.Graph.MaxEdges,
	}
}

// GraphQuery returns the per request defaults of graph analysis.
func (c *Config) GraphQuery() model.QueryConfig {
	return model.QueryConfig{
		TopK:     c.Graph.TopK,
		MaxDepth: model.Depth(c.Graph.MaxDepth),
		MaxNodes: c.Graph.MaxNodes,
		MaxEdges: c.Graph.MaxEdges,
	}
}

// RequestLimits returns the global per request bounds.
func (c *Config) RequestLimits() model.Limits {
	return model.Limits{
		MaxTopK:          c.Limits.MaxTopK,
		MaxEvidence:      c.Limits.MaxEvidence,
		MaxSubgraphNodes: c.Limits.MaxSubgraphNodes,
		MaxSubgraphEdges: c.Limits.MaxSubgraphEdges,
	}
}

// LogLevel returns the slog level of the configuration.
func (c *Config) LogLevel() slog.Level {
	return helper.ParseLevel(c.Log.Level)
}

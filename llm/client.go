// Package llm creates the chat and embedding models of the analysis pipeline using CloudWeGo Eino.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	geminiEmbed "github.com/cloudwego/eino-ext/components/embedding/gemini"
	ollamaEmbed "github.com/cloudwego/eino-ext/components/embedding/ollama"
	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/siherrmann/graphrag/helper"
	"google.golang.org/genai"
)

// Provider identifies a model provider.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
	// ProviderHugot runs a local ONNX embedding model, embeddings only.
	ProviderHugot Provider = "hugot"
	// ProviderHash is the offline bag of words embedder, embeddings only.
	ProviderHash Provider = "hash"
)

const (
	DefaultGeminiChatModel      = "gemini-2.0-flash"
	DefaultGeminiEmbeddingModel = "text-embedding-004"
	DefaultOpenAIChatModel      = "gpt-4o-mini"
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
	DefaultOllamaChatModel      = "llama3.2"
	DefaultOllamaEmbeddingModel = "nomic-embed-text"
	DefaultAnthropicChatModel   = "claude-3-5-haiku-latest"
	DefaultOllamaURL            = "http://localhost:11434"
	DefaultMaxOutputTokens      = 2048
)

// Config holds the configuration of the model clients.
type Config struct {
	Provider Provider
	// EmbeddingProvider defaults to Provider.
	EmbeddingProvider Provider
	ChatModel         string
	EmbeddingModel    string
	APIKey            string
	// BaseURL is used by ollama and openai compatible endpoints.
	BaseURL         string
	MaxOutputTokens int
	Timeout         time.Duration
	// HashDimension is the vector size of the hash embedder.
	HashDimension int
}

// ParseProvider validates a provider name.
func ParseProvider(p string) (Provider, error) {
	switch provider := Provider(strings.ToLower(strings.TrimSpace(p))); provider {
	case ProviderGemini, ProviderOpenAI, ProviderOllama, ProviderAnthropic, ProviderHugot, ProviderHash:
		return provider, nil
	case "claude":
		return ProviderAnthropic, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", p)
	}
}

func (c Config) embeddingProvider() Provider {
	if c.EmbeddingProvider != "" {
		return c.EmbeddingProvider
	}
	return c.Provider
}

func (c Config) maxOutputTokens() int {
	if c.MaxOutputTokens > 0 {
		return c.MaxOutputTokens
	}
	return DefaultMaxOutputTokens
}

func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return DefaultOllamaURL
}

func orDefault(value string, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// ChatModelName returns the chat model used for the provider.
func (c Config) ChatModelName() string {
	switch c.Provider {
	case ProviderGemini:
		return orDefault(c.ChatModel, DefaultGeminiChatModel)
	case ProviderOpenAI:
		return orDefault(c.ChatModel, DefaultOpenAIChatModel)
	case ProviderOllama:
		return orDefault(c.ChatModel, DefaultOllamaChatModel)
	case ProviderAnthropic:
		return orDefault(c.ChatModel, DefaultAnthropicChatModel)
	default:
		return c.ChatModel
	}
}

// EmbeddingModelName returns the embedding model used for the embedding provider.
func (c Config) EmbeddingModelName() string {
	switch c.embeddingProvider() {
	case ProviderGemini:
		return orDefault(c.EmbeddingModel, DefaultGeminiEmbeddingModel)
	case ProviderOpenAI:
		return orDefault(c.EmbeddingModel, DefaultOpenAIEmbeddingModel)
	case ProviderOllama:
		return orDefault(c.EmbeddingModel, DefaultOllamaEmbeddingModel)
	default:
		return c.EmbeddingModel
	}
}

func newGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, helper.NewError("create gemini client", err)
	}
	return client, nil
}

// NewChatModel creates an Eino chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	maxTokens := cfg.maxOutputTokens()
	modelName := cfg.ChatModelName()

	switch cfg.Provider {
	case ProviderGemini:
		client, err := newGeminiClient(ctx, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client:    client,
			Model:     modelName,
			MaxTokens: &maxTokens,
		})

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     modelName,
			Timeout:   cfg.Timeout,
			MaxTokens: &maxTokens,
		})

	case ProviderOllama:
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: cfg.baseURL(),
			Model:   modelName,
			Timeout: cfg.Timeout,
		})

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required")
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     modelName,
			MaxTokens: maxTokens,
		})

	default:
		return nil, fmt.Errorf("unsupported chat provider: %s (supported: gemini, openai, ollama, anthropic)", cfg.Provider)
	}
}

// NewEmbeddingModel creates an Eino embedding model for the configured embedding provider.
func NewEmbeddingModel(ctx context.Context, cfg Config) (embedding.Embedder, error) {
	modelName := cfg.EmbeddingModelName()

	switch cfg.embeddingProvider() {
	case ProviderGemini:
		client, err := newGeminiClient(ctx, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return geminiEmbed.NewEmbedder(ctx, &geminiEmbed.EmbeddingConfig{
			Client: client,
			Model:  modelName,
		})

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   modelName,
			Timeout: cfg.Timeout,
		})

	case ProviderOllama:
		return ollamaEmbed.NewEmbedder(ctx, &ollamaEmbed.EmbeddingConfig{
			BaseURL: cfg.baseURL(),
			Model:   modelName,
			Timeout: cfg.Timeout,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: gemini, openai, ollama)", cfg.embeddingProvider())
	}
}

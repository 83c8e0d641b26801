package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/siherrmann/graphrag/core/pipeline"
)

// ChatGenerator sends single shot prompts to a chat model.
type ChatGenerator struct {
	model model.BaseChatModel
	name  string
}

// NewChatGenerator wraps a chat model, name is used in error messages.
func NewChatGenerator(chatModel model.BaseChatModel, name string) *ChatGenerator {
	return &ChatGenerator{model: chatModel, name: name}
}

// NewGenerator creates the chat model of cfg and wraps it.
func NewGenerator(ctx context.Context, cfg Config) (*ChatGenerator, error) {
	chatModel, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewChatGenerator(chatModel, fmt.Sprintf("%s/%s", cfg.Provider, cfg.ChatModelName())), nil
}

// Name returns the provider and model of the generator.
func (g *ChatGenerator) Name() string {
	return g.name
}

// Generate sends the prompt as a single user message and returns the answer text.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", ClassifyError("generate with "+g.name, err)
	}
	if resp == nil {
		return "", ClassifyError("generate with "+g.name, fmt.Errorf("empty response"))
	}
	return resp.Content, nil
}

// EmbedderFromModel adapts an Eino embedding model to the pipeline embedder.
// name identifies the embedding space and must be stable for an index lifetime.
func EmbedderFromModel(embedder embedding.Embedder, name string) pipeline.Embedder {
	return pipeline.NewEmbedder(name, func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := embedder.EmbedStrings(ctx, []string{text})
		if err != nil {
			return nil, ClassifyError("embed with "+name, err)
		}
		if len(vectors) != 1 || len(vectors[0]) == 0 {
			return nil, ClassifyError("embed with "+name, fmt.Errorf("expected 1 embedding, got %d", len(vectors)))
		}

		vector := make([]float32, len(vectors[0]))
		for i, v := range vectors[0] {
			vector[i] = float32(v)
		}
		return vector, nil
	})
}

// NewEmbedder creates the embedder of the configured embedding provider.
// Remote providers go through Eino, hugot and hash run locally.
func NewEmbedder(ctx context.Context, cfg Config) (pipeline.Embedder, error) {
	switch cfg.embeddingProvider() {
	case ProviderHugot:
		return pipeline.HugotEmbedder(orDefault(cfg.EmbeddingModel, pipeline.DefaultEmbeddingModel))
	case ProviderHash:
		return pipeline.HashEmbedder(cfg.HashDimension), nil
	}

	embedder, err := NewEmbeddingModel(ctx, cfg)
	if err != nil {
		return pipeline.Embedder{}, err
	}
	name := strings.ToLower(fmt.Sprintf("%s/%s", cfg.embeddingProvider(), cfg.EmbeddingModelName()))
	return EmbedderFromModel(embedder, name), nil
}

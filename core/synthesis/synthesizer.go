package synthesis

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// NoEvidenceAnswer is returned without a model call when nothing relevant was found.
const NoEvidenceAnswer = "No relevant evidence was found to answer this question."

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config configures the synthesizer.
type Config struct {
	// ContextTokenBudget bounds the serialized evidence in words, zero disables the bound.
	ContextTokenBudget int
	Retry              helper.RetryPolicy
}

// DefaultConfig returns the default synthesizer configuration.
func DefaultConfig() Config {
	return Config{
		ContextTokenBudget: 3000,
		Retry:              helper.DefaultRetryPolicy(),
	}
}

// Input is the evidence of one analysis.
type Input struct {
	Mode model.AnalysisMode
	// Evidence is the judged evidence in judge order.
	Evidence []*model.JudgedEvidence
	// Subgraph is the expanded neighborhood in graph mode.
	Subgraph *model.Subgraph
}

// Synthesis is a grounded answer with the evidence it was built from.
type Synthesis struct {
	Answer string
	Trace  model.EvidenceTrace
	// Nodes and Edges are the parts of the subgraph that fit into the prompt.
	Nodes   []*model.GraphNode
	Edges   []*model.GraphEdge
	Dropped int
	// ModelCalled is false if the answer was produced without evidence.
	ModelCalled bool
}

// Synthesizer composes evidence into a prompt and asks a generative model for the answer.
type Synthesizer struct {
	generator Generator
	config    Config
	log       *slog.Logger
}

// New creates a new synthesizer.
func New(generator Generator, config Config, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = DefaultConfig().Retry
	}
	if config.Retry.Retryable == nil {
		config.Retry.Retryable = func(err error) bool { return !model.IsQuotaError(err) }
	}

	return &Synthesizer{
		generator: generator,
		config:    config,
		log:       logger,
	}
}

// Synthesize builds a bounded prompt from the input and calls the model once.
// Evidence exceeding the context budget is dropped lowest score or most distant first.
// A failing model returns a synthesis error, never a partial answer.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, input Input) (*Synthesis, error) {
	if strings.TrimSpace(query) == "" {
		return nil, model.NewEmptyInputError("query")
	}

	b := &budget{limit: s.config.ContextTokenBudget}
	var items, edges []*item
	total := 0
	switch input.Mode {
	case model.AnalysisModeGraph:
		if input.Subgraph != nil {
			nodes := nodeItems(input.Subgraph)
			items = b.fit(nodes)
			kept := map[string]bool{}
			for _, it := range items {
				kept[it.node.ID] = true
			}
			edges = b.fit(edgeItems(input.Subgraph, kept))
			total = len(input.Subgraph.Nodes) + len(input.Subgraph.Edges)
		}
	default:
		evidence := evidenceItems(input.Evidence)
		items = b.fit(evidence)
		total = len(evidence)
	}

	synthesis := &Synthesis{
		Dropped: total - len(items) - len(edges),
	}
	if synthesis.Dropped > 0 {
		s.log.Warn("Dropped evidence exceeding the context budget", slog.Int("dropped", synthesis.Dropped), slog.Int("budget", s.config.ContextTokenBudget))
	}
	for _, e := range edges {
		synthesis.Edges = append(synthesis.Edges, e.edge)
	}
	for _, it := range items {
		if it.node != nil {
			synthesis.Nodes = append(synthesis.Nodes, it.node)
		}
	}
	synthesis.Trace = buildTrace(input, items, edges)

	if len(items) == 0 {
		synthesis.Answer = NoEvidenceAnswer
		return synthesis, nil
	}

	prompt, err := buildPrompt(input.Mode, query, items, edges)
	if err != nil {
		return nil, model.NewSynthesisError(err)
	}

	answer, err := helper.Retry(ctx, s.config.Retry, func(ctx context.Context) (string, error) {
		return s.generator.Generate(ctx, prompt)
	})
	if err != nil {
		return nil, model.NewSynthesisError(err)
	}
	if strings.TrimSpace(answer) == "" {
		return nil, model.NewSynthesisError(errors.New("model returned an empty answer"))
	}

	synthesis.Answer = strings.TrimSpace(answer)
	synthesis.ModelCalled = true
	s.log.Debug("Synthesized answer", slog.Int("items", len(items)), slog.Int("edges", len(edges)), slog.Int("words", b.used))
	return synthesis, nil
}

// buildTrace lists the kept evidence. It only depends on the input, never on the model.
func buildTrace(input Input, items []*item, edges []*item) model.EvidenceTrace {
	trace := model.EvidenceTrace{Items: []model.TraceItem{}}

	var evidence []*model.JudgedEvidence
	if input.Mode == model.AnalysisModeGraph {
		kept := map[string]bool{}
		for _, it := range items {
			kept[it.node.ID] = true
			trace.Nodes = append(trace.Nodes, it.node.ID)
		}
		for _, e := range edges {
			trace.Edges = append(trace.Edges, e.edge.Key())
		}
		for _, e := range input.Evidence {
			if kept[e.Hit.Chunk.Source.NodeID] {
				evidence = append(evidence, e)
			}
		}
	} else {
		for _, it := range items {
			evidence = append(evidence, it.evidence)
		}
	}

	documents := map[string]bool{}
	companies := map[string]bool{}
	for _, e := range evidence {
		source := e.Hit.Chunk.Source
		trace.Items = append(trace.Items, model.TraceItem{
			ChunkID:    e.Hit.Chunk.ID,
			Source:     source,
			Score:      e.Hit.Score,
			Confidence: e.Confidence,
			Unjudged:   e.Unjudged,
		})
		if source.Document != "" {
			documents[source.Document] = true
		}
		if source.Company != "" {
			companies[source.Company] = true
		}
	}
	trace.Documents = sortedKeys(documents)
	trace.Companies = sortedKeys(companies)
	return trace
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

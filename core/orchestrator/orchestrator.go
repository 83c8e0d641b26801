package orchestrator

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/graphrag/core/judge"
	"github.com/siherrmann/graphrag/core/retrieval"
	"github.com/siherrmann/graphrag/core/synthesis"
	"github.com/siherrmann/graphrag/model"
)

// Expander builds a bounded subgraph around seed nodes.
type Expander interface {
	Expand(ctx context.Context, seeds []string, maxDepth int, maxNodes int, maxEdges int) (*model.Subgraph, error)
}

// Synthesizer turns evidence into a grounded answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, input synthesis.Input) (*synthesis.Synthesis, error)
}

// Components are the pipeline steps. Sources are looked up by their mode,
// the graph mode additionally needs an expander.
type Components struct {
	Sources     []retrieval.Retrievable
	Judge       judge.Judger
	Expander    Expander
	Synthesizer Synthesizer
}

// Request is a single analysis. Zero values in Config use the orchestrator defaults.
type Request struct {
	Query  string
	Mode   model.AnalysisMode
	Config model.QueryConfig
}

// Orchestrator runs the retrieve, judge, expand and synthesize steps of an analysis
// and is the single place where global limits are enforced.
type Orchestrator struct {
	sources     map[model.AnalysisMode]retrieval.Retrievable
	judge       judge.Judger
	expander    Expander
	synthesizer Synthesizer
	defaults    model.QueryConfig
	limits      model.Limits
	log         *slog.Logger
}

// New creates a new orchestrator.
func New(components Components, defaults model.QueryConfig, limits model.Limits, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	sources := map[model.AnalysisMode]retrieval.Retrievable{}
	for _, s := range components.Sources {
		sources[s.Mode()] = s
	}

	judger := components.Judge
	if judger == nil {
		judger = judge.PassThrough{}
	}

	return &Orchestrator{
		sources:     sources,
		judge:       judger,
		expander:    components.Expander,
		synthesizer: components.Synthesizer,
		defaults:    defaults,
		limits:      limits,
		log:         logger,
	}
}

// run is the state of one request.
type run struct {
	id    string
	state model.PipelineState
	start time.Time
	log   *slog.Logger
}

func (r *run) transition(state model.PipelineState) {
	r.log.Debug("Analysis state changed", slog.String("from", string(r.state)), slog.String("to", string(state)))
	r.state = state
}

func (r *run) fail(err error) error {
	pipelineErr := &model.PipelineError{State: r.state, RequestID: r.id, Err: err}
	r.log.Error("Analysis failed", slog.String("state", string(r.state)), slog.String("code", pipelineErr.Code()), slog.String("error", err.Error()))
	r.state = model.StateFailed
	return pipelineErr
}

// Run processes one request. Any step failing aborts the request with a
// *model.PipelineError carrying the last reached state and the originating error.
func (o *Orchestrator) Run(ctx context.Context, request Request) (*model.AnalysisResult, error) {
	r := &run{
		id:    uuid.NewString(),
		state: model.StateReceived,
		start: time.Now(),
	}
	r.log = o.log.With(slog.String("request_id", r.id), slog.String("mode", string(request.Mode)))

	if strings.TrimSpace(request.Query) == "" {
		return nil, r.fail(model.NewEmptyInputError("query"))
	}
	source, ok := o.sources[request.Mode]
	if !ok {
		return nil, r.fail(model.NewInputError("analysis mode %q is not available", request.Mode))
	}
	if request.Mode == model.AnalysisModeGraph && o.expander == nil {
		return nil, r.fail(model.NewIndexError("no knowledge graph loaded", nil))
	}
	if o.synthesizer == nil {
		return nil, r.fail(model.NewModelCallError("no synthesizer configured", nil))
	}

	requested := o.withDefaults(request.Config)
	config, clamped := o.limits.Apply(requested)
	var warnings []model.Warning
	if clamped {
		for _, err := range limitErrors(requested, config) {
			r.log.Warn("Request exceeds configured limits", slog.String("code", model.CodeOf(err)), slog.String("error", err.Error()))
			warnings = append(warnings, model.NewWarning(err))
		}
	}

	hits, err := source.Retrieve(ctx, request.Query, config.TopK)
	if err != nil {
		return nil, r.fail(err)
	}
	r.transition(model.StateRetrieved)

	judged, err := o.judge.Judge(ctx, request.Query, hits)
	if err != nil {
		return nil, r.fail(err)
	}
	evidence := judged.Evidence
	capped := 0
	if o.limits.MaxEvidence > 0 && len(evidence) > o.limits.MaxEvidence {
		capped = len(evidence) - o.limits.MaxEvidence
		evidence = evidence[:o.limits.MaxEvidence]
		r.log.Warn("Evidence capped", slog.Int("dropped", capped), slog.Int("max_evidence", o.limits.MaxEvidence))
		warnings = append(warnings, model.NewWarning(model.NewLimitExceededError("evidence %d capped to %d", len(judged.Evidence), o.limits.MaxEvidence)))
	}
	r.transition(model.StateJudged)

	input := synthesis.Input{Mode: request.Mode, Evidence: evidence}
	if request.Mode == model.AnalysisModeGraph {
		seeds := retrieval.SeedNodes(hitsOf(evidence))
		sub, err := o.expander.Expand(ctx, seeds, config.Depth(), config.MaxNodes, config.MaxEdges)
		if err != nil {
			return nil, r.fail(err)
		}
		if sub.Truncated {
			r.log.Warn("Subgraph truncated", slog.Int("nodes", len(sub.Nodes)), slog.Int("edges", len(sub.Edges)))
		}
		input.Subgraph = sub
		r.transition(model.StateExpanded)
	}

	syn, err := o.synthesizer.Synthesize(ctx, request.Query, input)
	if err != nil {
		return nil, r.fail(err)
	}
	r.transition(model.StateSynthesized)

	result := buildResult(r.id, request, len(hits), judged, input, syn, clamped || capped > 0, capped)
	result.Warnings = warnings
	r.transition(model.StateDone)
	r.log.Info("Analysis done", slog.Int("evidence", len(result.Trace.Items)), slog.Int("documents", result.Metrics.DocumentsCount), slog.Int("nodes", result.Metrics.NodesCount), slog.Duration("duration", time.Since(r.start)))
	return result, nil
}

func (o *Orchestrator) withDefaults(c model.QueryConfig) model.QueryConfig {
	if c.TopK <= 0 {
		c.TopK = o.defaults.TopK
	}
	if c.MaxDepth == nil {
		c.MaxDepth = o.defaults.MaxDepth
	}
	if c.MaxNodes <= 0 {
		c.MaxNodes = o.defaults.MaxNodes
	}
	if c.MaxEdges <= 0 {
		c.MaxEdges = o.defaults.MaxEdges
	}
	return c
}

// limitErrors names every request value the limits lowered.
func limitErrors(requested model.QueryConfig, applied model.QueryConfig) []error {
	var errs []error
	check := func(name string, from int, to int) {
		if from != to {
			errs = append(errs, model.NewLimitExceededError("%s %d lowered to %d", name, from, to))
		}
	}
	check("top_k", requested.TopK, applied.TopK)
	check("max_nodes", requested.MaxNodes, applied.MaxNodes)
	check("max_edges", requested.MaxEdges, applied.MaxEdges)
	return errs
}

func hitsOf(evidence []*model.JudgedEvidence) []*model.RetrievalHit {
	hits := make([]*model.RetrievalHit, 0, len(evidence))
	for _, e := range evidence {
		hits = append(hits, e.Hit)
	}
	return hits
}

func buildResult(id string, request Request, retrieved int, judged *model.JudgeResult, input synthesis.Input, syn *synthesis.Synthesis, limited bool, capped int) *model.AnalysisResult {
	metrics := model.Metrics{
		DocumentsCount:    len(syn.Trace.Documents),
		CompaniesAnalyzed: []string{},
		RetrievedCount:    retrieved,
		JudgedRelevant:    len(judged.Evidence),
		JudgeDegraded:     judged.Degraded,
		Truncated:         limited,
		EvidenceDropped:   syn.Dropped + capped,
	}

	var graphContext *model.GraphContext
	if request.Mode == model.AnalysisModeGraph {
		kept := &model.Subgraph{Nodes: syn.Nodes, Edges: syn.Edges}
		summary := kept.Summary()
		metrics.NodesCount = summary.TotalNodes
		metrics.EdgesCount = summary.TotalEdges
		metrics.NodeTypes = summary.NodeTypes
		metrics.Truncated = metrics.Truncated || input.Subgraph.Truncated

		var companies, entities []string
		for _, n := range syn.Nodes {
			entities = append(entities, n.Name)
			if strings.EqualFold(n.Type, "company") {
				companies = append(companies, n.Name)
			}
		}
		metrics.CompaniesAnalyzed = append(metrics.CompaniesAnalyzed, sortedUnique(companies)...)
		metrics.EntitiesIdentified = sortedUnique(entities)

		graphContext = &model.GraphContext{
			Nodes:   nonNil(syn.Nodes),
			Edges:   nonNilEdges(syn.Edges),
			Summary: summary,
		}
	} else {
		metrics.CompaniesAnalyzed = append(metrics.CompaniesAnalyzed, syn.Trace.Companies...)
		var entities []string
		for _, item := range syn.Trace.Items {
			entities = append(entities, entitiesOf(input.Evidence, item.ChunkID)...)
		}
		metrics.EntitiesIdentified = sortedUnique(entities)
	}

	return &model.AnalysisResult{
		RequestID: id,
		Query:     request.Query,
		Mode:      request.Mode,
		Answer:    syn.Answer,
		Trace:     syn.Trace,
		Metrics:   metrics,
		Graph:     graphContext,
	}
}

// entitiesOf returns the entity names the ingestion pipeline attached to a chunk.
func entitiesOf(evidence []*model.JudgedEvidence, id uuid.UUID) []string {
	for _, e := range evidence {
		if e.Hit.Chunk.ID != id {
			continue
		}
		switch v := e.Hit.Chunk.Metadata["entities"].(type) {
		case []string:
			return v
		case []interface{}:
			names := make([]string, 0, len(v))
			for _, n := range v {
				if s, ok := n.(string); ok {
					names = append(names, s)
				}
			}
			return names
		}
	}
	return nil
}

func sortedUnique(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := map[string]bool{}
	unique := []string{}
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		unique = append(unique, v)
	}
	sort.Strings(unique)
	return unique
}

func nonNil(nodes []*model.GraphNode) []*model.GraphNode {
	if nodes == nil {
		return []*model.GraphNode{}
	}
	return nodes
}

func nonNilEdges(edges []*model.GraphEdge) []*model.GraphEdge {
	if edges == nil {
		return []*model.GraphEdge{}
	}
	return edges
}

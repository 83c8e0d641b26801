package graphrag

import (
	"context"
	"strings"

	"github.com/siherrmann/graphrag/core/orchestrator"
	"github.com/siherrmann/graphrag/model"
)

// AnalyzeDocuments answers the query from the document corpus.
func (a *Analyzer) AnalyzeDocuments(ctx context.Context, query string) (*model.AnalysisResult, error) {
	return a.Analyze(ctx, orchestrator.Request{Query: query, Mode: model.AnalysisModeDocuments})
}

// AnalyzeGraph answers the query from the knowledge graph neighborhood of the best matching nodes.
func (a *Analyzer) AnalyzeGraph(ctx context.Context, query string) (*model.AnalysisResult, error) {
	return a.Analyze(ctx, orchestrator.Request{Query: query, Mode: model.AnalysisModeGraph})
}

// Analyze runs a single analysis. Zero values in the request config use the
// configured defaults of the mode.
func (a *Analyzer) Analyze(ctx context.Context, request orchestrator.Request) (*model.AnalysisResult, error) {
	if !a.aiEnabled && strings.TrimSpace(request.Query) != "" {
		return nil, model.NewModelCallError("analysis is disabled, configure llm.apiKey or the ollama provider", nil)
	}

	defaults := a.config.DocumentQuery()
	if request.Mode == model.AnalysisModeGraph {
		defaults = a.config.GraphQuery()
	}
	if request.Config.TopK <= 0 {
		request.Config.TopK = defaults.TopK
	}
	if request.Config.MaxDepth == nil {
		request.Config.MaxDepth = defaults.MaxDepth
	}
	if request.Config.MaxNodes <= 0 {
		request.Config.MaxNodes = defaults.MaxNodes
	}
	if request.Config.MaxEdges <= 0 {
		request.Config.MaxEdges = defaults.MaxEdges
	}

	return a.orchestrator.Run(ctx, request)
}

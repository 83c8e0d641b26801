package model

import (
	"strings"

	"github.com/google/uuid"
)

// AnalysisMode selects the knowledge source of an analysis.
type AnalysisMode string

const (
	AnalysisModeDocuments AnalysisMode = "documents"
	AnalysisModeGraph     AnalysisMode = "graph"
)

// ParseAnalysisMode maps a name like "Graph" to its mode.
func ParseAnalysisMode(value string) (AnalysisMode, error) {
	switch mode := AnalysisMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case AnalysisModeDocuments, AnalysisModeGraph:
		return mode, nil
	default:
		return "", NewInputError("unknown analysis mode %q (use documents or graph)", value)
	}
}

// PipelineState is a state of the per request state machine.
type PipelineState string

const (
	StateReceived    PipelineState = "RECEIVED"
	StateRetrieved   PipelineState = "RETRIEVED"
	StateJudged      PipelineState = "JUDGED"
	StateExpanded    PipelineState = "EXPANDED"
	StateSynthesized PipelineState = "SYNTHESIZED"
	StateDone        PipelineState = "DONE"
	StateFailed      PipelineState = "FAILED"
)

// RetrievalHit is a chunk returned by a similarity search
type RetrievalHit struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
	// Position is the insertion position of the chunk in the searched snapshot.
	Position int `json:"position"`
}

// JudgedEvidence is a retrieval hit with the judge verdict attached.
type JudgedEvidence struct {
	Hit        *RetrievalHit `json:"hit"`
	Relevant   bool          `json:"relevant"`
	Confidence float64       `json:"confidence"`
	Rationale  string        `json:"rationale,omitempty"`
	// Unjudged marks evidence passed through because the judge model was unavailable.
	Unjudged bool `json:"unjudged,omitempty"`
}

// JudgeResult splits the judged hits into kept and rejected evidence.
// Both keep the relative order of the input hits.
type JudgeResult struct {
	Evidence []*JudgedEvidence `json:"evidence"`
	Rejected []*JudgedEvidence `json:"rejected,omitempty"`
	Degraded bool              `json:"degraded"`
	Errors   []error           `json:"-"`
}

// Hits returns the kept hits in order.
func (r *JudgeResult) Hits() []*RetrievalHit {
	hits := make([]*RetrievalHit, 0, len(r.Evidence))
	for _, e := range r.Evidence {
		hits = append(hits, e.Hit)
	}
	return hits
}

// TraceItem links one piece of evidence used for an answer to its source.
type TraceItem struct {
	ChunkID    uuid.UUID `json:"chunk_id"`
	Source     SourceRef `json:"source"`
	Score      float64   `json:"score"`
	Confidence float64   `json:"confidence"`
	Unjudged   bool      `json:"unjudged,omitempty"`
}

// EvidenceTrace lists everything an answer is grounded on.
// It is deterministic for an unchanged index and graph.
type EvidenceTrace struct {
	Items     []TraceItem `json:"items"`
	Documents []string    `json:"documents,omitempty"`
	Companies []string    `json:"companies,omitempty"`
	Nodes     []string    `json:"nodes,omitempty"`
	Edges     []string    `json:"edges,omitempty"`
}

// Metrics are the counters of one analysis.
type Metrics struct {
	DocumentsCount     int            `json:"documents_count"`
	CompaniesAnalyzed  []string       `json:"companies_analyzed"`
	NodesCount         int            `json:"nodes_count"`
	EdgesCount         int            `json:"edges_count"`
	EntitiesIdentified []string       `json:"entities_identified,omitempty"`
	NodeTypes          map[string]int `json:"node_types,omitempty"`
	RetrievedCount     int            `json:"retrieved_count"`
	JudgedRelevant     int            `json:"judged_relevant"`
	JudgeDegraded      bool           `json:"judge_degraded"`
	Truncated          bool           `json:"truncated"`
	EvidenceDropped    int            `json:"evidence_dropped"`
}

// GraphContext is the subgraph an answer was built from.
type GraphContext struct {
	Nodes   []*GraphNode `json:"nodes"`
	Edges   []*GraphEdge `json:"edges"`
	Summary GraphSummary `json:"summary"`
}

// AnalysisResult is the terminal artifact of an analysis.
// It is never mutated after construction.
type AnalysisResult struct {
	RequestID string        `json:"request_id"`
	Query     string        `json:"query"`
	Mode      AnalysisMode  `json:"mode"`
	Answer    string        `json:"answer_text"`
	Trace     EvidenceTrace `json:"evidence_trace"`
	Metrics   Metrics       `json:"metrics"`
	Graph     *GraphContext `json:"graph_context,omitempty"`
	// Warnings lists the recoverable errors the analysis continued past.
	Warnings []Warning `json:"warnings,omitempty"`
}

// Warning is a recoverable error reported with a result.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewWarning reports err with its stable error code.
func NewWarning(err error) Warning {
	return Warning{Code: CodeOf(err), Message: err.Error()}
}

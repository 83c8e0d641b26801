package index

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/siherrmann/graphrag/model"
)

// Metric is the distance function used for similarity search
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

// ParseMetric maps a configuration value to a metric, empty means cosine.
func ParseMetric(value string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(value))) {
	case "", MetricCosine:
		return MetricCosine, nil
	case MetricL2:
		return MetricL2, nil
	default:
		return "", model.NewInputError("unsupported metric %q (use cosine or l2)", value)
	}
}

// Snapshot is an immutable set of embedded chunks.
// Readers keep using the snapshot they obtained while a new one is built.
type Snapshot struct {
	version   uint64
	modelName string
	dimension int
	metric    Metric
	chunks    []*model.Chunk
	norms     []float64
	builtAt   time.Time
}

// NewSnapshot validates the chunks and builds a snapshot.
// All chunks must carry embeddings of the same dimension.
func NewSnapshot(modelName string, metric Metric, chunks []*model.Chunk) (*Snapshot, error) {
	if metric == "" {
		metric = MetricCosine
	}
	if metric != MetricCosine && metric != MetricL2 {
		return nil, model.NewInputError("unsupported metric %q", metric)
	}

	s := &Snapshot{
		modelName: modelName,
		metric:    metric,
		chunks:    make([]*model.Chunk, 0, len(chunks)),
		norms:     make([]float64, 0, len(chunks)),
		builtAt:   time.Now(),
	}
	if err := s.append(chunks); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Snapshot) append(chunks []*model.Chunk) error {
	for _, c := range chunks {
		if c == nil {
			return model.NewIndexError("add chunk", model.NewEmptyInputError("chunk"))
		}
		if len(c.Embedding) == 0 {
			return model.NewIndexError("add chunk "+c.ID.String(), model.NewEmptyInputError("embedding"))
		}
		if s.dimension == 0 {
			s.dimension = len(c.Embedding)
		} else if len(c.Embedding) != s.dimension {
			return model.NewEmbeddingMismatchError("chunk %s has %d dimensions, index has %d", c.ID, len(c.Embedding), s.dimension)
		}
		s.chunks = append(s.chunks, c)
		s.norms = append(s.norms, norm(c.Embedding))
	}
	return nil
}

// with returns a new snapshot holding the chunks of s followed by chunks.
func (s *Snapshot) with(chunks []*model.Chunk) (*Snapshot, error) {
	next := &Snapshot{
		modelName: s.modelName,
		dimension: s.dimension,
		metric:    s.metric,
		chunks:    make([]*model.Chunk, len(s.chunks), len(s.chunks)+len(chunks)),
		norms:     make([]float64, len(s.norms), len(s.norms)+len(chunks)),
		builtAt:   time.Now(),
	}
	copy(next.chunks, s.chunks)
	copy(next.norms, s.norms)
	if err := next.append(chunks); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Snapshot) Version() uint64    { return s.version }
func (s *Snapshot) Model() string      { return s.modelName }
func (s *Snapshot) Dimension() int     { return s.dimension }
func (s *Snapshot) Metric() Metric     { return s.metric }
func (s *Snapshot) Len() int           { return len(s.chunks) }
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Chunks returns the chunks in insertion order.
func (s *Snapshot) Chunks() []*model.Chunk {
	chunks := make([]*model.Chunk, len(s.chunks))
	copy(chunks, s.chunks)
	return chunks
}

// Search returns up to k hits ordered by descending score.
// Equal scores keep insertion order. For l2 the score is the negated distance.
func (s *Snapshot) Search(query []float32, k int) ([]*model.RetrievalHit, error) {
	if len(s.chunks) == 0 || k <= 0 {
		return []*model.RetrievalHit{}, nil
	}
	if len(query) != s.dimension {
		return nil, model.NewEmbeddingMismatchError("query has %d dimensions, index has %d", len(query), s.dimension)
	}

	queryNorm := norm(query)
	hits := make([]*model.RetrievalHit, len(s.chunks))
	for i, c := range s.chunks {
		var score float64
		switch s.metric {
		case MetricL2:
			score = -l2(query, c.Embedding)
		default:
			score = cosine(query, c.Embedding, queryNorm, s.norms[i])
		}
		hits[i] = &model.RetrievalHit{Chunk: c, Score: score, Position: i}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

package judge

import (
	"context"
	"log/slog"
	"strings"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	"golang.org/x/sync/errgroup"
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Judger filters retrieval hits for relevance to a query.
type Judger interface {
	Judge(ctx context.Context, query string, hits []*model.RetrievalHit) (*model.JudgeResult, error)
}

// Config configures the judge.
type Config struct {
	// BatchSize is the number of hits judged by one model call.
	BatchSize int
	// Concurrency bounds the number of batches judged at the same time.
	Concurrency int
	// FailOpen keeps evidence with a missing or unparseable verdict.
	// The default drops it.
	FailOpen bool
	// MinConfidence is the lowest confidence of a relevant verdict that keeps the evidence.
	MinConfidence float64
	Criteria      string
	// MaxEvidenceChars truncates every evidence text in the prompt, zero disables truncation.
	MaxEvidenceChars int
	Retry            helper.RetryPolicy
}

// DefaultConfig returns the default judge configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:        5,
		Concurrency:      2,
		MinConfidence:    0.5,
		Criteria:         DefaultCriteria,
		MaxEvidenceChars: 2000,
		Retry:            helper.DefaultRetryPolicy(),
	}
}

// Judge asks a generative model which retrieval hits are relevant to a query.
type Judge struct {
	generator Generator
	config    Config
	log       *slog.Logger
}

// New creates a new judge. Zero values in config fall back to the defaults.
func New(generator Generator, config Config, logger *slog.Logger) *Judge {
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if strings.TrimSpace(config.Criteria) == "" {
		config.Criteria = defaults.Criteria
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = defaults.Retry
	}
	if config.Retry.Retryable == nil {
		// Quota and credential failures do not heal by waiting.
		config.Retry.Retryable = func(err error) bool { return !model.IsQuotaError(err) }
	}

	return &Judge{
		generator: generator,
		config:    config,
		log:       logger,
	}
}

type batchVerdicts struct {
	evidence []*model.JudgedEvidence
	err      error
}

// Judge returns the hits the model considers relevant in their input order.
// Failing model calls degrade the affected batch to unjudged pass-through evidence
// instead of failing, only an empty query or a cancelled ctx return an error.
func (j *Judge) Judge(ctx context.Context, query string, hits []*model.RetrievalHit) (*model.JudgeResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, model.NewEmptyInputError("query")
	}

	result := &model.JudgeResult{
		Evidence: []*model.JudgedEvidence{},
	}
	if len(hits) == 0 {
		return result, nil
	}

	var batches [][]*model.RetrievalHit
	for start := 0; start < len(hits); start += j.config.BatchSize {
		end := min(start+j.config.BatchSize, len(hits))
		batches = append(batches, hits[start:end])
	}

	// Every batch writes to its own slot so the output keeps the input order.
	slots := make([]batchVerdicts, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.config.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			evidence, err := j.judgeBatch(gctx, query, batch)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			slots[i] = batchVerdicts{evidence: evidence, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, helper.NewError("judge batches", err)
	}

	for i, slot := range slots {
		if slot.err != nil {
			result.Degraded = true
			result.Errors = append(result.Errors, slot.err)
			j.log.Warn("Judge batch degraded to unjudged evidence", slog.Int("batch", i), slog.Int("hits", len(batches[i])), slog.String("error", slot.err.Error()))
		}
		for _, e := range slot.evidence {
			if e.Relevant {
				result.Evidence = append(result.Evidence, e)
			} else {
				result.Rejected = append(result.Rejected, e)
			}
		}
	}

	j.log.Debug("Judged evidence", slog.Int("hits", len(hits)), slog.Int("relevant", len(result.Evidence)), slog.Bool("degraded", result.Degraded))
	return result, nil
}

// judgeBatch returns one judged evidence per hit. A non nil error means the
// model could not be called and the evidence was passed through unjudged.
func (j *Judge) judgeBatch(ctx context.Context, query string, batch []*model.RetrievalHit) ([]*model.JudgedEvidence, error) {
	prompt, err := buildPrompt(query, j.config.Criteria, batch, j.config.MaxEvidenceChars)
	if err != nil {
		return passThrough(batch), model.NewJudgeError(err)
	}

	response, err := helper.Retry(ctx, j.config.Retry, func(ctx context.Context) (string, error) {
		return j.generator.Generate(ctx, prompt)
	})
	if err != nil {
		return passThrough(batch), model.NewJudgeError(err)
	}

	verdicts, err := parseVerdicts(response, len(batch))
	if err != nil {
		j.log.Warn("Unparseable judge verdict", slog.String("error", err.Error()), slog.Bool("fail_open", j.config.FailOpen))
		verdicts = map[int]verdict{}
	}

	evidence := make([]*model.JudgedEvidence, 0, len(batch))
	for i, hit := range batch {
		v, ok := verdicts[i+1]
		if !ok {
			evidence = append(evidence, &model.JudgedEvidence{
				Hit:       hit,
				Relevant:  j.config.FailOpen,
				Rationale: "missing or unparseable verdict",
				Unjudged:  j.config.FailOpen,
			})
			continue
		}

		evidence = append(evidence, &model.JudgedEvidence{
			Hit:        hit,
			Relevant:   v.Relevant && v.Confidence >= j.config.MinConfidence,
			Confidence: v.Confidence,
			Rationale:  v.Rationale,
		})
	}
	return evidence, nil
}

func passThrough(batch []*model.RetrievalHit) []*model.JudgedEvidence {
	evidence := make([]*model.JudgedEvidence, 0, len(batch))
	for _, hit := range batch {
		evidence = append(evidence, &model.JudgedEvidence{
			Hit:       hit,
			Relevant:  true,
			Rationale: "judge unavailable",
			Unjudged:  true,
		})
	}
	return evidence
}

// PassThrough keeps every hit without asking a model.
type PassThrough struct{}

// Judge marks every hit as relevant and unjudged.
func (PassThrough) Judge(ctx context.Context, query string, hits []*model.RetrievalHit) (*model.JudgeResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, model.NewEmptyInputError("query")
	}
	return &model.JudgeResult{Evidence: passThrough(hits)}, nil
}

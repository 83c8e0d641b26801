package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// DefaultOrganizationExtractor creates an extractor for organization names
// using the distilbert-NER model. Competitor reports name partners, clients
// and rivals, these become the entities of a document analysis.
func DefaultOrganizationExtractor() (EntityExtractFunc, error) {
	modelName := "KnightsAnalytics/distilbert-NER"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	var mu sync.Mutex
	return func(ctx context.Context, text string) ([]*model.Entity, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mu.Lock()
		result, err := nerPipeline.RunPipeline([]string{text})
		mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}

		if len(result.Entities) == 0 {
			return nil, nil
		}

		var entities []*model.Entity
		for _, entity := range result.Entities[0] {
			if normalizeEntityType(entity.Entity) != "ORG" {
				continue
			}
			entities = append(entities, &model.Entity{
				Name:  strings.TrimSpace(entity.Word),
				Type:  "ORG",
				Score: entity.Score,
			})
		}

		return DedupeEntities(entities), nil
	}, nil
}

// normalizeEntityType removes B- and I- prefixes from NER labels
func normalizeEntityType(label string) string {
	if strings.HasPrefix(label, "B-") || strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}

// DedupeEntities keeps the highest scored entity per case-insensitive name,
// sorted by name. Sub-word fragments starting with ## are dropped.
func DedupeEntities(entities []*model.Entity) []*model.Entity {
	best := map[string]*model.Entity{}
	for _, e := range entities {
		if e == nil || len(e.Name) < 2 || strings.HasPrefix(e.Name, "##") {
			continue
		}
		key := strings.ToLower(e.Name)
		if current, ok := best[key]; !ok || e.Score > current.Score {
			best[key] = e
		}
	}

	result := make([]*model.Entity, 0, len(best))
	for _, e := range best {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result
}

package pipeline

import (
	"context"
	"testing"

	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEntityType(t *testing.T) {
	assert.Equal(t, "ORG", normalizeEntityType("B-ORG"))
	assert.Equal(t, "ORG", normalizeEntityType("I-ORG"))
	assert.Equal(t, "PER", normalizeEntityType("PER"))
}

func TestDedupeEntities(t *testing.T) {
	t.Run("Highest score wins per name", func(t *testing.T) {
		entities := DedupeEntities([]*model.Entity{
			{Name: "Wavestone", Score: 0.7},
			{Name: "wavestone", Score: 0.9},
			{Name: "Accenture", Score: 0.8},
			{Name: "##ne", Score: 0.99},
			nil,
		})

		require.Len(t, entities, 2)
		assert.Equal(t, "Accenture", entities[0].Name, "Expected entities sorted by name")
		assert.Equal(t, "wavestone", entities[1].Name)
		assert.Equal(t, float32(0.9), entities[1].Score)
	})
}

func TestDefaultOrganizationExtractor(t *testing.T) {
	// Note: DefaultOrganizationExtractor downloads the distilbert-NER model if not already present
	if testing.Short() {
		t.Skip("Skipping organization extractor test in short mode (requires model download)")
	}

	extractor, err := DefaultOrganizationExtractor()
	require.NoError(t, err)

	t.Run("Only organizations are returned", func(t *testing.T) {
		entities, err := extractor(context.Background(), "Satya Nadella said Microsoft partners with Capgemini in Paris.")

		require.NoError(t, err)
		for _, e := range entities {
			assert.Equal(t, "ORG", e.Type, "Expected only organizations, got %s", e.Name)
		}
	})
}

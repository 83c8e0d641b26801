package judge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/siherrmann/graphrag/helper"
	"github.com/xeipuuv/gojsonschema"
)

const verdictSchemaJSON = `{
	"type": "object",
	"required": ["verdicts"],
	"properties": {
		"verdicts": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["index", "relevant", "confidence"],
				"properties": {
					"index": {"type": "integer", "minimum": 1},
					"relevant": {"type": "boolean"},
					"confidence": {"type": "number", "minimum": 0, "maximum": 1},
					"rationale": {"type": "string"}
				}
			}
		}
	}
}`

var verdictSchema = mustSchema(verdictSchemaJSON)

func mustSchema(definition string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid verdict schema: %v", err))
	}
	return schema
}

type verdict struct {
	Index      int     `json:"index"`
	Relevant   bool    `json:"relevant"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

type verdictResponse struct {
	Verdicts []verdict `json:"verdicts"`
}

// parseVerdicts extracts and validates the verdicts of a response for a batch of n items.
// It maps evidence numbers to verdicts, the first verdict per number wins and
// numbers outside the batch are dropped.
func parseVerdicts(response string, n int) (map[int]verdict, error) {
	raw, err := helper.ExtractJSON(response)
	if err != nil {
		return nil, err
	}

	result, err := verdictSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, helper.NewError("schema validation", err)
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("verdicts failed validation: %s", strings.Join(details, "; "))
	}

	var parsed verdictResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, helper.NewError("unmarshal verdicts", err)
	}

	verdicts := make(map[int]verdict, len(parsed.Verdicts))
	for _, v := range parsed.Verdicts {
		if v.Index < 1 || v.Index > n {
			continue
		}
		if _, ok := verdicts[v.Index]; !ok {
			verdicts[v.Index] = v
		}
	}
	return verdicts, nil
}

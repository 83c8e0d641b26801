package helper

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON returns the first JSON object or array of a model response.
// Markdown code fences and any text around the value are ignored.
func ExtractJSON(response string) (json.RawMessage, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	idx := strings.IndexAny(cleaned, "{[")
	if idx == -1 {
		// Maybe it's a quoted string containing JSON?
		var asString string
		if err := json.Unmarshal([]byte(cleaned), &asString); err == nil && asString != cleaned {
			return ExtractJSON(asString)
		}
		return nil, fmt.Errorf("no JSON start ({ or [) found")
	}

	// Decode a single value and ignore trailing text.
	var raw json.RawMessage
	decoder := json.NewDecoder(strings.NewReader(cleaned[idx:]))
	if err := decoder.Decode(&raw); err != nil {
		return nil, NewError("parse JSON", err)
	}
	return raw, nil
}

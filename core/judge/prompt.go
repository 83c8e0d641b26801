package judge

import (
	"bytes"
	"text/template"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// DefaultCriteria decides what counts as relevant evidence.
const DefaultCriteria = `Evidence is relevant if it states facts that answer the question or directly support answering it.
Evidence that only mentions the same company, market or topic without information useful for the question is not relevant.`

var promptTemplate = template.Must(template.New("judge").Parse(`You are a strict relevance judge for a competitive intelligence analysis.

QUESTION:
{{.Query}}

CRITERIA:
{{.Criteria}}

{{range .Items}}### Evidence {{.Number}}
Source: {{.Source}}
{{.Text}}

{{end}}Respond with JSON only, matching this format:
{"verdicts":[{"index":<evidence number>,"relevant":true|false,"confidence":<number between 0 and 1>,"rationale":"<one sentence>"}]}
Give exactly one verdict per evidence number.
`))

type promptItem struct {
	Number int
	Source string
	Text   string
}

type promptInput struct {
	Query    string
	Criteria string
	Items    []promptItem
}

func buildPrompt(query string, criteria string, hits []*model.RetrievalHit, maxChars int) (string, error) {
	input := promptInput{Query: query, Criteria: criteria}
	for i, h := range hits {
		input.Items = append(input.Items, promptItem{
			Number: i + 1,
			Source: h.Chunk.Source.String(),
			Text:   truncateRunes(h.Chunk.Text, maxChars),
		})
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, input); err != nil {
		return "", helper.NewError("execute template", err)
	}
	return buf.String(), nil
}

func truncateRunes(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + " [...]"
}

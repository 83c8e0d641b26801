package synthesis

import (
	"bytes"
	"text/template"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

var documentsTemplate = template.Must(template.New("documents").Parse(`You are a competitor intelligence expert. Answer the question using only the evidence below.
Cite the evidence numbers you rely on in brackets, for example [2].
If the evidence does not answer the question, say what is missing.

QUESTION:
{{.Query}}

EVIDENCE:
{{range .Items}}[{{.Number}}] {{.Label}}
{{.Text}}

{{end}}Provide a clear, structured analysis per company with actionable insights.
`))

var graphTemplate = template.Must(template.New("graph").Parse(`You are a pattern analysis expert. Analyze the given query in the context of the provided graph data.
Focus on identifying patterns, relationships, and insights that could be valuable for business analysis.

QUERY:
{{.Query}}

NODES:
{{range .Items}}[{{.Number}}] {{.Label}}
{{.Text}}

{{end}}RELATIONSHIPS:
{{range .Edges}}- {{.}}
{{else}}none
{{end}}
Provide a clear, structured analysis with actionable insights.
`))

type promptItem struct {
	Number int
	Label  string
	Text   string
}

type promptInput struct {
	Query string
	Items []promptItem
	Edges []string
}

func buildPrompt(mode model.AnalysisMode, query string, items []*item, edges []*item) (string, error) {
	input := promptInput{Query: query}
	for i, it := range items {
		input.Items = append(input.Items, promptItem{Number: i + 1, Label: it.label, Text: it.text})
	}
	for _, e := range edges {
		input.Edges = append(input.Edges, e.label)
	}

	tmpl := documentsTemplate
	if mode == model.AnalysisModeGraph {
		tmpl = graphTemplate
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, input); err != nil {
		return "", helper.NewError("execute template", err)
	}
	return buf.String(), nil
}

package model

// Entity is a named entity found in document text, for example an organization.
type Entity struct {
	Name   string    `json:"name"`
	Type   string    `json:"entity_type"`
	Score  float32   `json:"score"`
	Source SourceRef `json:"source"`
}

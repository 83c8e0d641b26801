package model

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Page is one extracted page of a document, numbered from 1.
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"text"`
}

// Document represents a source document of the corpus
type Document struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Source    string    `json:"source,omitempty"`
	Company   string    `json:"company,omitempty"`
	FileType  string    `json:"file_type,omitempty"`
	Pages     []Page    `json:"-"` // Extracted text, not stored in DB
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDocumentID derives a stable id from the document path.
func NewDocumentID(source string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("graphrag:document:"+filepath.ToSlash(source)))
}

// NewDocument creates a document for a file path.
// The title defaults to the filename without extension.
func NewDocument(filePath string, company string, metadata Metadata) *Document {
	filename := filepath.Base(filePath)
	ext := filepath.Ext(filename)
	title := strings.TrimSuffix(filename, ext)
	if title == "" {
		title = filename
	}

	return &Document{
		ID:       NewDocumentID(filePath),
		Title:    title,
		Source:   filePath,
		Company:  company,
		FileType: strings.TrimPrefix(strings.ToLower(ext), "."),
		Metadata: metadata,
	}
}

// NewDocumentFromFile reads a plain text file into a single page document.
func NewDocumentFromFile(filePath string, metadata Metadata) (*Document, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	doc := NewDocument(filePath, "", metadata)
	doc.Pages = []Page{{Number: 1, Text: string(content)}}
	return doc, nil
}

// Text joins all page texts separated by blank lines.
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

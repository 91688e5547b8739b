// Package mcp exposes document search and question answering as MCP tools.
package mcp

import "time"

// SearchDocumentsInput defines the input parameters for the search_documents tool.
type SearchDocumentsInput struct {
	Query string `json:"query" jsonschema:"The question or phrase to match against uploaded documents"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"Number of fragments to return (default 3)"`
}

// SearchDocumentsOutput contains the ranked fragments.
type SearchDocumentsOutput struct {
	Results []Fragment `json:"results"`
	// Message explains an empty result.
	Message string `json:"message,omitempty"`
}

// Fragment is one ranked chunk.
type Fragment struct {
	Text       string  `json:"text"`
	Filename   string  `json:"filename"`
	Similarity float64 `json:"similarity"`
}

// AskDocumentsInput defines the input parameters for the ask_documents tool.
type AskDocumentsInput struct {
	Question string `json:"question" jsonschema:"The question to answer from the uploaded documents"`
}

// AskDocumentsOutput contains the generated answer and where it came from.
type AskDocumentsOutput struct {
	Answer    string     `json:"answer"`
	Sources   []string   `json:"sources"`
	Fragments []Fragment `json:"fragments"`
}

// ListDocumentsInput takes no parameters.
type ListDocumentsInput struct{}

// ListDocumentsOutput lists every stored document.
type ListDocumentsOutput struct {
	Documents []DocumentInfo `json:"documents"`
	Count     int            `json:"count"`
}

// DocumentInfo describes one stored document.
type DocumentInfo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Title      string    `json:"title,omitempty"`
	Chunks     int       `json:"chunks"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// StatusInput takes no parameters.
type StatusInput struct{}

// StatusOutput summarises the index.
type StatusOutput struct {
	Healthy     bool   `json:"healthy"`
	TotalDocs   int    `json:"total_docs"`
	TotalChunks int    `json:"total_chunks"`
	LastUpload  string `json:"last_upload,omitempty"`
	Error       string `json:"error,omitempty"`
}

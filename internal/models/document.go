// Package models defines the request and response types shared by the
// knowledge base, the HTTP API, and the CLI.
package models

import "time"

// DocumentInfo summarizes one ingested document.
type DocumentInfo struct {
	DocID     string    `json:"doc_id"`
	Filename  string    `json:"filename"`
	Chunks    int       `json:"chunks"`
	CreatedAt time.Time `json:"created_at"`
}

// IngestResult is returned by a successful ingestion.
type IngestResult struct {
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
}

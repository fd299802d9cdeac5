package models

// RAGContext is the retrieval result. The three slices are index-aligned.
type RAGContext struct {
	Chunks  []string  `json:"chunks"`
	Sources []string  `json:"sources"`
	Scores  []float64 `json:"scores"`
}

// EmptyContext returns a context with non-nil empty slices, so it encodes as
// empty JSON arrays.
func EmptyContext() *RAGContext {
	return &RAGContext{Chunks: []string{}, Sources: []string{}, Scores: []float64{}}
}

// Len returns the number of retrieved chunks.
func (c *RAGContext) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Chunks)
}

// AgentResponse is the answer to an AgentQueryRequest.
type AgentResponse struct {
	Response  string   `json:"response"`
	Sources   []string `json:"sources"`
	Chunks    []string `json:"chunks"`
	Query     string   `json:"query"`
	RequestID string   `json:"request_id"`
}

// StatusResponse reports knowledge base health.
type StatusResponse struct {
	Status     string `json:"status"`
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
	Dimensions int    `json:"dimensions"`
	IndexType  string `json:"index_type"`
	Embedder   string `json:"embedder"`
	Recovered  string `json:"recovered_from,omitempty"`
	DiskBytes  int64  `json:"disk_bytes"`
	Uploads    int    `json:"uploads"`
}

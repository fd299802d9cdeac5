package models

import (
	"fmt"
	"strings"
)

// MaxTopK caps the number of chunks a single retrieval may return.
const MaxTopK = 100

// RetrieveRequest asks for the chunks most relevant to Query.
type RetrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate trims the query and clamps TopK. A TopK of zero is left for the
// engine to replace with its configured default.
func (r *RetrieveRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.TopK < 0 {
		r.TopK = 0
	}
	if r.TopK > MaxTopK {
		r.TopK = MaxTopK
	}
	return nil
}

// Turn is one message of a conversation.
type Turn struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// AgentQueryRequest asks the agent to answer Query from the knowledge base.
type AgentQueryRequest struct {
	Query    string `json:"query"`
	RoomName string `json:"room_name,omitempty"`
	History  []Turn `json:"history,omitempty"`
}

// Validate trims the query and rejects empty ones.
func (r *AgentQueryRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return fmt.Errorf("query is required")
	}
	if r.RoomName == "" {
		r.RoomName = "default"
	}
	return nil
}

// PromptUpdate replaces the agent system prompt.
type PromptUpdate struct {
	Prompt string `json:"prompt"`
}

// Validate rejects blank prompts.
func (p *PromptUpdate) Validate() error {
	if strings.TrimSpace(p.Prompt) == "" {
		return fmt.Errorf("prompt cannot be empty")
	}
	return nil
}

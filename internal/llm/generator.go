// Package llm builds retrieval-augmented prompts and sends them to a
// language model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/config"
)

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// ErrNoAnswer is returned when the model produced no text.
var ErrNoAnswer = errors.New("model returned no text")

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// New returns the configured generator.
func New(cfg *config.LLMConfig, logger *zap.Logger) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini:
		return NewGeminiGenerator(GeminiConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey(),
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger)
	case "", ProviderNone:
		return NullGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// Apology is the answer given to the user when generation fails.
func Apology(err error) string {
	return fmt.Sprintf("I apologize, but I encountered an error: %v", err)
}

// NullGenerator answers with the retrieved context itself, so agent queries
// work without a model.
type NullGenerator struct{}

// Generate returns the "Relevant Context" section of prompt, or a fixed
// message when there is none.
func (NullGenerator) Generate(_ context.Context, prompt string) (string, error) {
	_, rest, found := strings.Cut(prompt, contextHeader)
	if !found {
		return "No language model is configured and no relevant context was found.", nil
	}
	if i := strings.Index(rest, "\n\n"+historyHeader); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.Index(rest, "\n\n"+questionPrefix); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest), nil
}

// Name returns "none".
func (NullGenerator) Name() string { return ProviderNone }

// SystemPrompt is the mutable agent system prompt.
type SystemPrompt struct {
	mu     sync.RWMutex
	prompt string
}

// NewSystemPrompt returns a SystemPrompt seeded with initial.
func NewSystemPrompt(initial string) *SystemPrompt {
	if strings.TrimSpace(initial) == "" {
		initial = config.DefaultSystemPrompt
	}
	return &SystemPrompt{prompt: initial}
}

// Get returns the current prompt.
func (p *SystemPrompt) Get() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prompt
}

// Set replaces the prompt.
func (p *SystemPrompt) Set(prompt string) {
	p.mu.Lock()
	p.prompt = prompt
	p.mu.Unlock()
}

package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/models"
)

// Retriever supplies context chunks for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (*models.RAGContext, error)
}

// Agent answers questions from the knowledge base.
type Agent struct {
	retriever    Retriever
	generator    Generator
	prompt       *SystemPrompt
	topK         int
	historyTurns int
	logger       *zap.Logger
}

// NewAgent returns an agent that retrieves topK chunks per question and keeps
// historyTurns turns of conversation in the prompt. logger may be nil.
func NewAgent(r Retriever, g Generator, prompt *SystemPrompt, topK, historyTurns int, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		retriever:    r,
		generator:    g,
		prompt:       prompt,
		topK:         topK,
		historyTurns: historyTurns,
		logger:       logger,
	}
}

// Prompt returns the agent's system prompt holder.
func (a *Agent) Prompt() *SystemPrompt { return a.prompt }

// Answer retrieves context for req and generates a response. Retrieval errors
// are returned; generation errors become an apology in the response.
func (a *Agent) Answer(ctx context.Context, req *models.AgentQueryRequest, requestID string) (*models.AgentResponse, error) {
	logger := a.logger.With(zap.String("request_id", requestID), zap.String("room", req.RoomName))

	rag, err := a.retriever.Retrieve(ctx, req.Query, a.topK)
	if err != nil {
		return nil, err
	}
	if rag == nil {
		rag = models.EmptyContext()
	}

	prompt := BuildPrompt(a.prompt.Get(), req.Query, rag, req.History, a.historyTurns)
	start := time.Now()
	answer, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		logger.Warn("generation failed", zap.String("model", a.generator.Name()), zap.Error(err))
		answer = Apology(err)
	} else {
		logger.Debug("agent answered", zap.Int("chunks", rag.Len()), zap.Duration("took", time.Since(start)))
	}

	return &models.AgentResponse{
		Response:  answer,
		Sources:   rag.Sources,
		Chunks:    rag.Chunks,
		Query:     req.Query,
		RequestID: requestID,
	}, nil
}

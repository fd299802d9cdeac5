// Package server provides the voxkb HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/config"
	"github.com/hyperjump/voxkb/internal/indexer"
	"github.com/hyperjump/voxkb/internal/llm"
	"github.com/hyperjump/voxkb/internal/search"
	"github.com/hyperjump/voxkb/internal/voice"
)

// Server is the HTTP server for the voxkb API.
type Server struct {
	engine    *search.Engine
	indexer   *indexer.Indexer
	generator llm.Generator
	agent     *llm.Agent
	stt       voice.SpeechToText
	tts       voice.TextToSpeech
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// Option configures optional collaborators.
type Option func(*Server)

// WithGenerator sets the answer generator used by agent queries.
func WithGenerator(g llm.Generator) Option {
	return func(s *Server) { s.generator = g }
}

// WithVoice sets the speech adapters.
func WithVoice(stt voice.SpeechToText, tts voice.TextToSpeech) Option {
	return func(s *Server) {
		s.stt = stt
		s.tts = tts
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:    engine,
		indexer:   idx,
		generator: llm.NullGenerator{},
		stt:       voice.Null{},
		tts:       voice.Null{},
		config:    cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.agent = llm.NewAgent(engine, s.generator, llm.NewSystemPrompt(cfg.LLM.SystemPrompt),
		cfg.KnowledgeBase.AgentTopK, cfg.LLM.HistoryTurns, logger)
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	timeout := s.config.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/config", s.handleConfig)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Delete("/", s.handleDeleteAll)
			r.Post("/upload", s.handleUpload)
			r.Delete("/{id}", s.handleDeleteDocument)
		})

		r.Post("/retrieve", s.handleRetrieve)

		r.Route("/agent", func(r chi.Router) {
			r.Post("/query", s.handleAgentQuery)
			r.Get("/prompt", s.handleGetPrompt)
			r.Post("/prompt", s.handleSetPrompt)
			r.Put("/prompt", s.handleSetPrompt)
		})

		r.Route("/voice", func(r chi.Router) {
			r.Post("/transcribe", s.handleTranscribe)
			r.Post("/synthesize", s.handleSynthesize)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

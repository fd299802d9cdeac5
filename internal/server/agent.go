package server

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/models"
)

func (s *Server) handleAgentQuery(w http.ResponseWriter, r *http.Request) {
	var req models.AgentQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	requestID := middleware.GetReqID(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}
	resp, err := s.agent.Answer(r.Context(), &req, requestID)
	if err != nil {
		s.respondErr(w, r, "agent query", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"prompt": s.agent.Prompt().Get()})
}

func (s *Server) handleSetPrompt(w http.ResponseWriter, r *http.Request) {
	var req models.PromptUpdate
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.agent.Prompt().Set(req.Prompt)
	s.logger.Info("agent prompt updated", zap.Int("chars", len(req.Prompt)))
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Prompt updated successfully",
		"prompt":  req.Prompt,
	})
}

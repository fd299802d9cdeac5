package server

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/models"
)

const multipartMemory = 8 << 20

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "voxkb is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			s.respondErr(w, r, "upload", err)
			return
		}
		s.respondError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	s.logger.Debug("upload request", zap.String("filename", header.Filename), zap.Int64("size", header.Size))
	result, err := s.indexer.IngestUpload(r.Context(), file, header.Filename)
	if err != nil {
		s.respondErr(w, r, "upload", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"message":  "Document uploaded and processed successfully",
		"filename": result.Filename,
		"chunks":   result.Chunks,
		"doc_id":   result.DocID,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"documents": s.indexer.ListDocuments()})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("doc_id", id))
	if err := s.indexer.DeleteDocument(r.Context(), id); err != nil {
		s.respondErr(w, r, "delete", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Document deleted successfully",
		"doc_id":  id,
	})
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.indexer.ClearAll(r.Context())
	if err != nil {
		s.respondErr(w, r, "clear", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"message":       "All documents deleted successfully",
		"files_deleted": len(deleted),
		"deleted_files": deleted,
	})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("retrieve request", zap.String("query", req.Query), zap.Int("top_k", req.TopK))
	result, err := s.engine.Retrieve(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.respondErr(w, r, "retrieve", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.indexer.Status(r.Context(), s.config.Storage.DataDir, s.config.Storage.UploadsDir))
}

// handleConfig reports the effective configuration without secrets. Each
// enabled provider contributes the environment variable it needs; unset ones
// are listed in missing_keys.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	c := s.config
	required := map[string]string{}
	if c.Embedding.Provider == "http" && c.Embedding.APIKeyEnv != "" {
		required[c.Embedding.APIKeyEnv] = c.Embedding.APIKey()
	}
	if c.LLM.Provider != "none" {
		required[c.LLM.APIKeyEnv] = c.LLM.APIKey()
	}
	if c.Voice.STT.Provider != "none" {
		required[c.Voice.STT.APIKeyEnv] = c.Voice.STT.APIKey()
	}
	if c.Voice.TTS.Provider != "none" {
		required[c.Voice.TTS.APIKeyEnv] = c.Voice.TTS.APIKey()
	}
	missing := []string{}
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)

	s.respondJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"config": map[string]any{
			"server": map[string]any{
				"host":          c.Server.Host,
				"port":          c.Server.Port,
				"max_upload_mb": c.Server.MaxUploadMB,
			},
			"embedding": map[string]any{
				"provider":   c.Embedding.Provider,
				"model":      s.indexer.EmbedderModel(),
				"dimensions": c.Embedding.Dimensions,
			},
			"knowledge_base": map[string]any{
				"index_type":      c.KnowledgeBase.IndexType,
				"chunk_size":      c.KnowledgeBase.ChunkSize,
				"chunk_overlap":   c.KnowledgeBase.ChunkOverlap,
				"score_threshold": c.KnowledgeBase.ScoreThreshold,
				"mmr_lambda":      c.KnowledgeBase.MMRLambda,
				"default_top_k":   c.KnowledgeBase.DefaultTopK,
				"agent_top_k":     c.KnowledgeBase.AgentTopK,
			},
			"llm": map[string]any{
				"provider":      c.LLM.Provider,
				"model":         c.LLM.Model,
				"history_turns": c.LLM.HistoryTurns,
			},
			"voice": map[string]any{
				"stt": c.Voice.STT.Provider,
				"tts": c.Voice.TTS.Provider,
			},
			"watch": map[string]any{
				"enabled":   c.Watch.Enabled,
				"directory": c.Watch.Directory,
			},
			"supported_formats": s.indexer.Supported(),
		},
		"configured":   len(missing) == 0,
		"missing_keys": missing,
	})
}

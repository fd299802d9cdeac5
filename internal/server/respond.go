package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/kb"
	"github.com/hyperjump/voxkb/internal/storage"
	"github.com/hyperjump/voxkb/internal/voice"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps err onto a status code and logs server-side failures.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, kb.ErrNotFound), errors.Is(err, storage.ErrUploadNotFound):
		return http.StatusNotFound
	case errors.Is(err, kb.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, kb.ErrEmbeddingFailure):
		return http.StatusBadGateway
	case errors.Is(err, voice.ErrUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, kb.ErrLocked):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

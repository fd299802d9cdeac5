package server

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/voice"
)

const maxSynthesizeChars = 5000

// handleTranscribe accepts the raw audio as the request body.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if !voice.IsAvailable(s.stt) {
		s.respondErr(w, r, "transcribe", voice.ErrUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadMB<<20)
	transcript, err := s.stt.Transcribe(r.Context(), r.Body, r.Header.Get("Content-Type"))
	if err != nil {
		s.respondErr(w, r, "transcribe", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"transcript": transcript})
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if !voice.IsAvailable(s.tts) {
		s.respondErr(w, r, "synthesize", voice.ErrUnavailable)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if len(req.Text) > maxSynthesizeChars {
		s.respondError(w, http.StatusBadRequest, "text is too long")
		return
	}
	audio, err := s.tts.Synthesize(r.Context(), req.Text)
	if err != nil {
		s.respondErr(w, r, "synthesize", err)
		return
	}
	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio.Data); err != nil {
		s.logger.Debug("write audio", zap.Error(err))
	}
}

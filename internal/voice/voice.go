// Package voice adapts hosted speech-to-text and text-to-speech services.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/config"
	"github.com/hyperjump/voxkb/pkg/utils"
)

// Provider names.
const (
	ProviderDeepgram = "deepgram"
	ProviderGoogle   = "google"
	ProviderNone     = "none"
)

// ErrUnavailable is returned by adapters that are not configured.
var ErrUnavailable = errors.New("speech provider not configured")

// SpeechToText transcribes audio.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error)
}

// Audio is synthesized speech.
type Audio struct {
	Data        []byte
	ContentType string
}

// TextToSpeech synthesizes speech.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

// NewSpeechToText returns the configured transcriber.
func NewSpeechToText(cfg *config.SpeechConfig, logger *zap.Logger) (SpeechToText, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderDeepgram:
		return NewDeepgram(*cfg, logger)
	case "", ProviderNone:
		return Null{}, nil
	default:
		return nil, fmt.Errorf("unknown stt provider %q", cfg.Provider)
	}
}

// NewTextToSpeech returns the configured synthesizer.
func NewTextToSpeech(cfg *config.SpeechConfig, logger *zap.Logger) (TextToSpeech, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderGoogle:
		return NewGoogleTTS(*cfg, logger)
	case "", ProviderNone:
		return Null{}, nil
	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.Provider)
	}
}

// Null implements both interfaces and always fails with ErrUnavailable.
type Null struct{}

func (Null) Transcribe(context.Context, io.Reader, string) (string, error) {
	return "", ErrUnavailable
}

func (Null) Synthesize(context.Context, string) (*Audio, error) {
	return nil, ErrUnavailable
}

// IsAvailable reports whether v is backed by a real provider.
func IsAvailable(v any) bool {
	_, null := v.(Null)
	return v != nil && !null
}

func statusError(service string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%s %s: %s", service, resp.Status, utils.Truncate(strings.TrimSpace(string(body)), 200))
}

package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/config"
)

const (
	defaultGoogleTTSBaseURL = "https://texttospeech.googleapis.com"
	defaultLanguage         = "en-US"
)

// GoogleTTS synthesizes MP3 audio with the Cloud Text-to-Speech REST API.
type GoogleTTS struct {
	endpoint string
	apiKey   string
	language string
	voice    string
	client   *http.Client
	logger   *zap.Logger
}

// NewGoogleTTS builds a Google TTS client from cfg.
func NewGoogleTTS(cfg config.SpeechConfig, logger *zap.Logger) (*GoogleTTS, error) {
	key := cfg.APIKey()
	if key == "" {
		return nil, fmt.Errorf("google tts: %s is not set", cfg.APIKeyEnv)
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultGoogleTTSBaseURL
	}
	lang := cfg.Language
	if lang == "" {
		lang = defaultLanguage
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleTTS{
		endpoint: strings.TrimRight(base, "/") + "/v1/text:synthesize",
		apiKey:   key,
		language: lang,
		voice:    cfg.Voice,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}, nil
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name,omitempty"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize returns MP3 audio for text.
func (g *GoogleTTS) Synthesize(ctx context.Context, text string) (*Audio, error) {
	var body synthesizeRequest
	body.Input.Text = text
	body.Voice.LanguageCode = g.language
	body.Voice.Name = g.voice
	body.AudioConfig.AudioEncoding = "MP3"
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google tts request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("google tts", resp)
	}

	var out synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode google tts response: %w", err)
	}
	if out.AudioContent == "" {
		return nil, errors.New("google tts returned no audio")
	}
	data, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	g.logger.Debug("synthesized speech", zap.Int("chars", len(text)), zap.Int("bytes", len(data)))
	return &Audio{Data: data, ContentType: "audio/mpeg"}, nil
}

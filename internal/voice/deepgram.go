package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/config"
)

const defaultDeepgramBaseURL = "https://api.deepgram.com"

// Deepgram transcribes prerecorded audio with the /v1/listen endpoint.
type Deepgram struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

// NewDeepgram builds a Deepgram client from cfg.
func NewDeepgram(cfg config.SpeechConfig, logger *zap.Logger) (*Deepgram, error) {
	key := cfg.APIKey()
	if key == "" {
		return nil, fmt.Errorf("deepgram: %s is not set", cfg.APIKeyEnv)
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultDeepgramBaseURL
	}
	q := url.Values{}
	q.Set("smart_format", "true")
	if cfg.Model != "" {
		q.Set("model", cfg.Model)
	}
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deepgram{
		endpoint: strings.TrimRight(base, "/") + "/v1/listen?" + q.Encode(),
		apiKey:   key,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}, nil
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe posts the raw audio and returns the best transcript.
func (d *Deepgram) Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, audio)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Token "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", statusError("deepgram", resp)
	}

	var out deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode deepgram response: %w", err)
	}
	if len(out.Results.Channels) == 0 || len(out.Results.Channels[0].Alternatives) == 0 {
		return "", errors.New("deepgram returned no transcript")
	}
	alt := out.Results.Channels[0].Alternatives[0]
	d.logger.Debug("transcribed audio", zap.Float64("confidence", alt.Confidence), zap.Int("chars", len(alt.Transcript)))
	return strings.TrimSpace(alt.Transcript), nil
}

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/voxkb/pkg/utils"
)

// HTTPConfig configures an HTTPEmbedder.
type HTTPConfig struct {
	BaseURL     string // e.g. https://api.openai.com/v1 or http://localhost:11434/v1
	APIKey      string // optional; sent as a Bearer token
	Model       string
	Dimensions  int
	Timeout     time.Duration
	BatchSize   int // texts per request
	Concurrency int // requests in flight
	MaxRetries  int
}

// HTTPEmbedder calls an OpenAI-compatible /embeddings endpoint. Ollama's native
// response shapes are accepted as well.
type HTTPEmbedder struct {
	cfg    HTTPConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPEmbedder validates cfg and returns an embedder. logger may be nil.
func NewHTTPEmbedder(cfg HTTPConfig, logger *zap.Logger) (*HTTPEmbedder, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("embedding base_url is required for the http provider")
	}
	if cfg.Model == "" {
		return nil, errors.New("embedding model is required for the http provider")
	}
	if cfg.Dimensions <= 0 {
		return nil, errors.New("embedding dimensions must be positive")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HTTPEmbedder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Embed embeds a single text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embedRequest(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch splits texts into BatchSize requests and runs up to Concurrency
// of them at once. Output order matches input order.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(texts))
		g.Go(func() error {
			vecs, err := e.embedRequest(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	// OpenAI
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	// Ollama /api/embed
	Embeddings [][]float32 `json:"embeddings"`
	// Ollama /api/embeddings (single prompt)
	Embedding []float32 `json:"embedding"`
}

func (e *HTTPEmbedder) embedRequest(ctx context.Context, inputs []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Model: e.cfg.Model, Input: inputs})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	url := e.cfg.BaseURL + "/embeddings"

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			e.logger.Debug("retrying embeddings request",
				zap.Int("attempt", attempt), zap.Error(lastErr))
		}
		payload, retryAfter, err := e.post(ctx, url, body)
		if err == nil {
			vecs, decodeErr := e.decode(payload, len(inputs))
			if decodeErr == nil {
				return vecs, nil
			}
			return nil, decodeErr
		}
		lastErr = err
		var perm *permanentError
		if errors.As(err, &perm) || attempt == e.cfg.MaxRetries {
			break
		}
		delay := retryDelay(attempt)
		if retryAfter > 0 {
			delay = retryAfter
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// post returns the response body on 2xx. 429 and 5xx are retryable and may
// carry a Retry-After delay; other statuses are permanent.
func (e *HTTPEmbedder) post(ctx context.Context, url string, body []byte) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, &permanentError{fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, &permanentError{ctx.Err()}
		}
		return nil, 0, fmt.Errorf("embeddings request: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read embeddings response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		var wait time.Duration
		if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
		return nil, wait, fmt.Errorf("embeddings request failed: %s", resp.Status)
	case resp.StatusCode >= 300:
		return nil, 0, &permanentError{fmt.Errorf("embeddings request failed: %s: %s", resp.Status, utils.Truncate(string(payload), 200))}
	}
	return payload, 0, nil
}

func (e *HTTPEmbedder) decode(payload []byte, want int) ([][]float32, error) {
	var out embeddingsResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	var vecs [][]float32
	switch {
	case len(out.Data) > 0:
		sort.SliceStable(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
		for _, d := range out.Data {
			vecs = append(vecs, d.Embedding)
		}
	case len(out.Embeddings) > 0:
		vecs = out.Embeddings
	case len(out.Embedding) > 0:
		vecs = [][]float32{out.Embedding}
	}
	if len(vecs) != want {
		return nil, fmt.Errorf("embeddings response has %d vectors, expected %d", len(vecs), want)
	}
	for i, v := range vecs {
		if len(v) != e.cfg.Dimensions {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(v), e.cfg.Dimensions)
		}
		utils.NormalizeL2(v)
	}
	return vecs, nil
}

// retryDelay is exponential from 200ms, capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second || d <= 0 {
		d = 5 * time.Second
	}
	return d
}

// Dimensions returns the configured embedding dimension.
func (e *HTTPEmbedder) Dimensions() int {
	return e.cfg.Dimensions
}

// ModelName returns the remote model name.
func (e *HTTPEmbedder) ModelName() string {
	return e.cfg.Model
}

// Close releases idle connections.
func (e *HTTPEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports configuration values that would make the knowledge base
// misbehave. All problems are returned together.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Embedding.Provider {
	case "hash", "onnx", "http":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q: want hash, onnx or http", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, errors.New("embedding.dimensions must be positive"))
	}
	if c.Embedding.Provider == "http" && (c.Embedding.BaseURL == "" || c.Embedding.Model == "") {
		errs = append(errs, errors.New("embedding.base_url and embedding.model are required for the http provider"))
	}
	kb := c.KnowledgeBase
	switch kb.IndexType {
	case "memory", "faiss":
	default:
		errs = append(errs, fmt.Errorf("knowledge_base.index_type %q: want memory or faiss", kb.IndexType))
	}
	if kb.ChunkSize <= 0 {
		errs = append(errs, errors.New("knowledge_base.chunk_size must be positive"))
	}
	if kb.ChunkOverlap < 0 || kb.ChunkOverlap >= kb.ChunkSize {
		errs = append(errs, fmt.Errorf("knowledge_base.chunk_overlap %d must be in [0, chunk_size)", kb.ChunkOverlap))
	}
	if kb.MMRLambda < 0 || kb.MMRLambda > 1 {
		errs = append(errs, fmt.Errorf("knowledge_base.mmr_lambda %v must be in [0,1]", kb.MMRLambda))
	}
	if kb.ScoreThreshold < -1 || kb.ScoreThreshold > 1 {
		errs = append(errs, fmt.Errorf("knowledge_base.score_threshold %v must be in [-1,1]", kb.ScoreThreshold))
	}
	if kb.FetchMultiplier < 1 {
		errs = append(errs, errors.New("knowledge_base.fetch_multiplier must be at least 1"))
	}
	for _, ext := range kb.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("knowledge_base.extensions: %q must start with a dot", ext))
		}
	}
	switch c.LLM.Provider {
	case "gemini", "none":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q: want gemini or none", c.LLM.Provider))
	}
	switch c.Voice.STT.Provider {
	case "deepgram", "none":
	default:
		errs = append(errs, fmt.Errorf("voice.stt.provider %q: want deepgram or none", c.Voice.STT.Provider))
	}
	switch c.Voice.TTS.Provider {
	case "google", "none":
	default:
		errs = append(errs, fmt.Errorf("voice.tts.provider %q: want google or none", c.Voice.TTS.Provider))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

package config

import "time"

// DefaultSystemPrompt seeds the agent prompt when none is configured.
const DefaultSystemPrompt = "You are a helpful voice assistant. Answer using the provided context. " +
	"If the context does not contain the answer, say so briefly."

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 50
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}

	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "./data"
	}
	if cfg.Storage.IndexFile == "" {
		cfg.Storage.IndexFile = "faiss_index.index"
	}
	if cfg.Storage.LedgerFile == "" {
		cfg.Storage.LedgerFile = "metadata.json"
	}
	if cfg.Storage.UploadsDir == "" {
		cfg.Storage.UploadsDir = "./uploads"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/uploads.db"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "hash"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Embedding.Concurrency == 0 {
		cfg.Embedding.Concurrency = 2
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 3
	}

	kb := &cfg.KnowledgeBase
	if kb.IndexType == "" {
		kb.IndexType = "memory"
	}
	if kb.ChunkSize == 0 {
		kb.ChunkSize = 500
	}
	if kb.ChunkOverlap == 0 {
		kb.ChunkOverlap = 50
	}
	if kb.ScoreThreshold == 0 {
		kb.ScoreThreshold = 0.30
	}
	if kb.MMRLambda == 0 {
		kb.MMRLambda = 0.7
	}
	if kb.FetchMultiplier == 0 {
		kb.FetchMultiplier = 4
	}
	if kb.DefaultTopK == 0 {
		kb.DefaultTopK = 5
	}
	if kb.AgentTopK == 0 {
		kb.AgentTopK = 3
	}
	if kb.Extensions == nil {
		kb.Extensions = []string{".pdf", ".docx", ".txt", ".md", ".xlsx", ".pptx", ".odt", ".rtf"}
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "none"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemini-2.5-flash"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.LLM.SystemPrompt == "" {
		cfg.LLM.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.LLM.HistoryTurns == 0 {
		cfg.LLM.HistoryTurns = 5
	}

	if cfg.Voice.STT.Provider == "" {
		cfg.Voice.STT.Provider = "none"
	}
	if cfg.Voice.STT.APIKeyEnv == "" {
		cfg.Voice.STT.APIKeyEnv = "DEEPGRAM_API_KEY"
	}
	if cfg.Voice.TTS.Provider == "" {
		cfg.Voice.TTS.Provider = "none"
	}
	if cfg.Voice.TTS.APIKeyEnv == "" {
		cfg.Voice.TTS.APIKeyEnv = "GOOGLE_TTS_API_KEY"
	}

	if cfg.Watch.Directory == "" {
		cfg.Watch.Directory = "./inbox"
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}

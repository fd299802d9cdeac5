package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

func TestLoad(t *testing.T) {
	_, path := writeConfig(t, `
server:
  host: "0.0.0.0"
  port: 9000
knowledge_base:
  chunk_size: 800
  chunk_overlap: 100
embedding:
  timeout: 5s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.KnowledgeBase.ChunkSize != 800 || cfg.KnowledgeBase.ChunkOverlap != 100 {
		t.Errorf("unexpected kb config: %+v", cfg.KnowledgeBase)
	}
	if cfg.Embedding.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Embedding.Timeout)
	}
	if cfg.KnowledgeBase.ScoreThreshold != 0.30 || cfg.KnowledgeBase.MMRLambda != 0.7 {
		t.Errorf("retrieval defaults not applied: %+v", cfg.KnowledgeBase)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_ExplicitZerosKept(t *testing.T) {
	_, path := writeConfig(t, `
knowledge_base:
  chunk_overlap: 0
  mmr_lambda: 0
  score_threshold: 0
embedding:
  max_retries: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	kb := cfg.KnowledgeBase
	if kb.ChunkOverlap != 0 || kb.MMRLambda != 0 || kb.ScoreThreshold != 0 {
		t.Errorf("explicit zeros replaced: overlap=%d lambda=%v threshold=%v",
			kb.ChunkOverlap, kb.MMRLambda, kb.ScoreThreshold)
	}
	if cfg.Embedding.MaxRetries != 0 {
		t.Errorf("max_retries = %d, want 0", cfg.Embedding.MaxRetries)
	}
	if kb.ChunkSize != 500 || kb.DefaultTopK != 5 || cfg.Embedding.Dimensions != 384 {
		t.Errorf("absent keys should keep defaults: %+v", kb)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir, path := writeConfig(t, `
storage:
  data_dir: "./state"
watch:
  directory: "./dev/inbox"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "state"); cfg.Storage.DataDir != want {
		t.Errorf("data_dir = %s, want %s", cfg.Storage.DataDir, want)
	}
	if want := filepath.Join(dir, "state", "faiss_index.index"); cfg.Storage.IndexPath() != want {
		t.Errorf("IndexPath = %s, want %s", cfg.Storage.IndexPath(), want)
	}
	if want := filepath.Join(dir, "state", "metadata.json"); cfg.Storage.LedgerPath() != want {
		t.Errorf("LedgerPath = %s, want %s", cfg.Storage.LedgerPath(), want)
	}
	if want := filepath.Join(dir, "dev", "inbox"); cfg.Watch.Directory != want {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directory, want)
	}
	if want := filepath.Join(dir, "uploads"); cfg.Storage.UploadsDir != want {
		t.Errorf("uploads_dir default = %s, want %s", cfg.Storage.UploadsDir, want)
	}
}

func TestLoad_Invalid(t *testing.T) {
	_, path := writeConfig(t, `
knowledge_base:
  chunk_size: 100
  chunk_overlap: 100
  mmr_lambda: 1.5
embedding:
  provider: word2vec
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"chunk_overlap", "mmr_lambda", "embedding.provider"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Port != 8000 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	kb := cfg.KnowledgeBase
	if kb.ChunkSize != 500 || kb.ChunkOverlap != 50 {
		t.Errorf("chunk defaults: %d/%d", kb.ChunkSize, kb.ChunkOverlap)
	}
	if kb.FetchMultiplier != 4 || kb.DefaultTopK != 5 || kb.AgentTopK != 3 {
		t.Errorf("retrieval defaults: %+v", kb)
	}
	if cfg.Embedding.Provider != "hash" || cfg.Embedding.Dimensions != 384 {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.LLM.Provider != "none" || cfg.Voice.STT.Provider != "none" || cfg.Voice.TTS.Provider != "none" {
		t.Error("external adapters should default to none")
	}
	if len(kb.Extensions) == 0 || kb.Extensions[0] != ".pdf" {
		t.Errorf("extensions: %v", kb.Extensions)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if !filepath.IsAbs(cfg.Storage.DataDir) {
		t.Errorf("data dir should be absolute, got %s", cfg.Storage.DataDir)
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("VOXKB_TEST_KEY", "secret")
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.LLM.APIKeyEnv = "VOXKB_TEST_KEY"
	if cfg.LLM.APIKey() != "secret" {
		t.Errorf("APIKey = %q", cfg.LLM.APIKey())
	}
	cfg.Embedding.APIKeyEnv = ""
	if cfg.Embedding.APIKey() != "" {
		t.Error("empty env name should yield empty key")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Server.Host, cfg.Server.Port = "localhost", 9090
	cfg.Storage.DataDir = "/tmp/voxkb"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Storage.DataDir != "/tmp/voxkb" {
		t.Errorf("loaded data dir: got %s", loaded.Storage.DataDir)
	}
}

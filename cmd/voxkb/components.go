package main

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/config"
	"github.com/hyperjump/voxkb/internal/embedding"
	"github.com/hyperjump/voxkb/internal/extract"
	"github.com/hyperjump/voxkb/internal/indexer"
	"github.com/hyperjump/voxkb/internal/kb"
	"github.com/hyperjump/voxkb/internal/search"
	"github.com/hyperjump/voxkb/internal/storage"
	"github.com/hyperjump/voxkb/internal/vector"
	"github.com/hyperjump/voxkb/pkg/utils"
)

// components holds the initialized services shared by every command.
type components struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *kb.Store
	registry *storage.SQLiteStorage
	embedder embedding.Embedder
	engine   *search.Engine
	indexer  *indexer.Indexer
}

func (c *components) Close() error {
	var errs []error
	if c.embedder != nil {
		errs = append(errs, c.embedder.Close())
	}
	if c.registry != nil {
		errs = append(errs, c.registry.Close())
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	_ = c.logger.Sync()
	return errors.Join(errs...)
}

// newLogger uses the configured level for the server and keeps one-shot
// commands quiet unless debugging.
func newLogger(cfg *config.Config, debug, serving bool) (*zap.Logger, error) {
	level := cfg.LogLevel
	if !serving && level == "" {
		level = "warn"
	}
	return utils.NewLogger(cfg.Debug || debug, level)
}

func openComponents(opts *rootOptions, serving bool) (*components, error) {
	cfg, path, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(cfg, opts.debug, serving)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", path), zap.String("data_dir", cfg.Storage.DataDir))

	c := &components{cfg: cfg, logger: logger}
	fail := func(err error) (*components, error) {
		_ = c.Close()
		return nil, err
	}

	indexType := cfg.KnowledgeBase.IndexType
	if indexType == string(vector.IndexTypeFAISS) && !vector.IsFAISSAvailable() {
		logger.Warn("faiss not compiled in, falling back to memory index")
		indexType = string(vector.IndexTypeMemory)
	}

	c.embedder, err = embedding.NewFromConfig(&cfg.Embedding, logger)
	if err != nil {
		return fail(fmt.Errorf("initialize embedder: %w", err))
	}
	c.store, err = kb.Open(kb.Options{
		IndexPath:  cfg.Storage.IndexPath(),
		LedgerPath: cfg.Storage.LedgerPath(),
		LockPath:   cfg.Storage.LockPath(),
		IndexType:  indexType,
		Dimensions: c.embedder.Dimensions(),
		Logger:     logger,
	})
	if err != nil {
		return fail(fmt.Errorf("open knowledge base: %w", err))
	}
	c.registry, err = storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return fail(fmt.Errorf("open upload registry: %w", err))
	}

	c.engine = search.NewEngine(c.store, c.embedder, &cfg.KnowledgeBase, search.WithLogger(logger))
	c.indexer = indexer.NewIndexer(c.store, c.embedder,
		extract.NewExtractor(cfg.KnowledgeBase.Extensions...), &cfg.KnowledgeBase,
		indexer.WithLogger(logger),
		indexer.WithUploads(c.registry, cfg.Storage.UploadsDir))
	return c, nil
}

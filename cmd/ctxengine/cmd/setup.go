package cmd

import (
	"fmt"

	"github.com/ctxengine/ctxengine/internal/config"
	"github.com/ctxengine/ctxengine/internal/encode"
	"github.com/ctxengine/ctxengine/internal/indexer"
	"github.com/ctxengine/ctxengine/internal/logging"
	"github.com/ctxengine/ctxengine/internal/manager"
	"github.com/ctxengine/ctxengine/internal/storage"
)

// buildManager wires a Manager from resolved configuration: a
// filesystem storage backend rooted at cfg.Storage.IndexPath (or
// storage.DefaultBasePath), the encoder cfg.Embedding selects, and an
// Indexer over both.
func buildManager(cfg *config.Config) (*manager.Manager, error) {
	basePath := cfg.Storage.IndexPath
	if basePath == "" {
		var err error
		basePath, err = storage.DefaultBasePath()
		if err != nil {
			return nil, err
		}
	}

	backend, err := storage.NewFilesystemStorage(basePath)
	if err != nil {
		return nil, fmt.Errorf("open storage at %s: %w", basePath, err)
	}

	enc, err := encode.Get(encode.Config{
		ModelID:    cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Endpoint:   cfg.Embedding.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("build encoder: %w", err)
	}

	ix := indexer.New(backend, enc)
	return manager.New(backend, ix, enc, cfg.Search.SemanticWeight), nil
}

// loadConfigAndLogger resolves configuration for the project at root
// and installs the process-wide structured logger it describes. It is
// shared by every subcommand so each one sees identical config/log
// setup regardless of entry point.
func loadConfigAndLogger(root string) (*config.Config, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

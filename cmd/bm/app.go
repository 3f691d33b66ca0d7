package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/nikbrunner/bmtree/internal/history"
	"github.com/nikbrunner/bmtree/internal/storage"
	"github.com/nikbrunner/bmtree/internal/tree"
)

// app holds what every command needs once the data is open.
type app struct {
	configPath string
	verbose    bool

	logger  *slog.Logger
	cfg     *storage.Config
	backend storage.Storage
	store   *tree.Store
	editor  *history.Editor
}

// open loads config, storage, tree and undo history. It is a no-op when
// already open.
func (a *app) open() error {
	if a.store != nil {
		return nil
	}

	// A missing .env is fine.
	_ = godotenv.Load()

	path := a.configPath
	if path == "" {
		var err error
		path, err = storage.DefaultConfigFilePath()
		if err != nil {
			return fmt.Errorf("config path: %w", err)
		}
	}

	cfg, err := storage.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}

	backend, err := storage.Open(cfg)
	if err != nil {
		return err
	}

	store, err := tree.Open(tree.Params{
		Storage:     backend,
		Logger:      a.logger,
		RebalanceAt: cfg.RebalanceKeyLength,
	})
	if err != nil {
		return errors.Join(fmt.Errorf("open bookmarks: %w", err), closeBackend(backend))
	}

	st, err := history.ReadFile(cfg.HistoryPath())
	if err != nil {
		// Undo history is optional.
		a.logger.Warn("Ignoring unreadable undo history", "path", cfg.HistoryPath(), "error", err)
	}
	ctrl := history.NewController(store, cfg.HistoryDepth)
	ctrl.Load(st)

	a.cfg = cfg
	a.backend = backend
	a.store = store
	a.editor = history.NewEditor(store, ctrl)

	a.logger.Debug("Opened bookmarks", "backend", cfg.Backend, "path", cfg.DataPath, "nodes", store.Len())
	return nil
}

// close saves undo history and releases the backend.
func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := history.WriteFile(a.cfg.HistoryPath(), a.editor.History().State())
	return errors.Join(err, closeBackend(a.backend))
}

func closeBackend(s storage.Storage) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

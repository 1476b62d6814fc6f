package repository

import (
	"fmt"
	"log/slog"

	"github.com/ivanoskov/finance_tracker/internal/config"
)

// Backend - хранилище и аутентификация выбранного бэкенда.
type Backend struct {
	Store Repository
	Auth  Auth
	// Sessions задан только для локального бэкенда, где сессии нужно чистить самим
	Sessions *LocalAuth
}

func (b *Backend) Close() error {
	return b.Store.Close()
}

// Open создает бэкенд по конфигурации.
func Open(cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case config.BackendSupabase:
		client, err := NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, err
		}
		logger.Info("initialized supabase backend", "url", cfg.SupabaseURL)
		return &Backend{
			Store: NewSupabaseRepository(client, cfg.RequestTimeout, logger),
			Auth:  NewSupabaseAuth(client.Auth, cfg.RequestTimeout),
		}, nil

	case config.BackendSQLite:
		repo, err := NewSQLiteRepository(cfg.SQLitePath, cfg.RequestTimeout, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite repository: %w", err)
		}
		auth := NewLocalAuth(repo.DB(), cfg.SessionTTL, cfg.RequestTimeout)
		logger.Info("initialized sqlite backend", "db_path", cfg.SQLitePath)
		return &Backend{Store: repo, Auth: auth, Sessions: auth}, nil
	}
	return nil, fmt.Errorf("unsupported backend type: %s", cfg.Backend)
}

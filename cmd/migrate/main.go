package main

import (
	"log"
	"os"

	"github.com/ivanoskov/finance_tracker/internal/config"
	"github.com/ivanoskov/finance_tracker/internal/logging"
	"github.com/ivanoskov/finance_tracker/internal/repository"
)

// Применяет миграции выбранного бэкенда. Для Supabase нужен SUPABASE_DB_URL.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	switch cfg.Backend {
	case config.BackendSupabase:
		if cfg.SupabaseDBURL == "" {
			log.Fatal("SUPABASE_DB_URL is required to migrate the supabase database")
		}
		err = repository.RunPostgresMigrations(cfg.SupabaseDBURL)
	case config.BackendSQLite:
		err = repository.RunSQLiteMigrations(repository.SQLiteDSN(cfg.SQLitePath))
	}
	if err != nil {
		logger.Error("migrations failed", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}
	logger.Info("migrations applied", "backend", cfg.Backend)
}

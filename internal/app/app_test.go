package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ivanoskov/finance_tracker/internal/config"
	"github.com/ivanoskov/finance_tracker/internal/events"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Backend = config.BackendSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "app.db")
	return cfg
}

func TestNewSQLite(t *testing.T) {
	a, err := New(context.Background(), sqliteConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := a.Events.(events.Nop); !ok {
		t.Errorf("events = %T, want events.Nop without AMQP_URL", a.Events)
	}
	if a.Backend.Sessions == nil {
		t.Error("sqlite backend must expose local sessions")
	}
	if err := a.StartSessionSweeper(); err != nil {
		t.Fatalf("StartSessionSweeper: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewRejectsUnknownPolicy(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.RecurringCheckPolicy = "retry"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown check policy")
	}
}

func TestSessionSweeperInvalidSchedule(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.SessionSweepSchedule = "every tuesday"
	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if err := a.StartSessionSweeper(); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

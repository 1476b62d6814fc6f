package config

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/finance-test.db")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("RECURRING_CHECK_POLICY", "abort")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Backend != BackendSQLite || cfg.SQLitePath != "/tmp/finance-test.db" {
		t.Errorf("unexpected backend config: %+v", cfg)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Errorf("RequestTimeout = %v, want 3s", cfg.RequestTimeout)
	}
	if cfg.RecurringCheckPolicy != CheckPolicyAbort {
		t.Errorf("RecurringCheckPolicy = %q", cfg.RecurringCheckPolicy)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("default HTTPAddr = %q", cfg.HTTPAddr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"supabase ok", func(c *Config) { c.SupabaseURL, c.SupabaseKey = "https://x.supabase.co", "key" }, false},
		{"supabase missing key", func(c *Config) { c.SupabaseURL = "https://x.supabase.co" }, true},
		{"sqlite ok", func(c *Config) { c.Backend = BackendSQLite }, false},
		{"unknown backend", func(c *Config) { c.Backend = "mysql" }, true},
		{"bad policy", func(c *Config) { c.Backend = BackendSQLite; c.RecurringCheckPolicy = "ignore" }, true},
		{"zero timeout", func(c *Config) { c.Backend = BackendSQLite; c.RequestTimeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

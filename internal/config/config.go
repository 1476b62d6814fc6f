package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Бэкенды хранения и аутентификации.
const (
	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
)

// Политики обработки ошибок проверки существования при материализации.
const (
	CheckPolicySkip   = "skip"
	CheckPolicyReport = "report"
	CheckPolicyAbort  = "abort"
)

type Config struct {
	Backend string `koanf:"BACKEND"`

	SupabaseURL string `koanf:"SUPABASE_URL"`
	SupabaseKey string `koanf:"SUPABASE_KEY"`
	// SupabaseDBURL - прямое подключение к Postgres проекта, нужно только для миграций
	SupabaseDBURL string `koanf:"SUPABASE_DB_URL"`

	SQLitePath string `koanf:"SQLITE_PATH"`

	TelegramToken string `koanf:"TELEGRAM_TOKEN"`
	HTTPAddr      string `koanf:"HTTP_ADDR"`

	RequestTimeout       time.Duration `koanf:"REQUEST_TIMEOUT"`
	RecurringCheckPolicy string        `koanf:"RECURRING_CHECK_POLICY"`

	AMQPURL      string `koanf:"AMQP_URL"`
	AMQPExchange string `koanf:"AMQP_EXCHANGE"`
	AMQPQueue    string `koanf:"AMQP_QUEUE"`

	SessionTTL           time.Duration `koanf:"SESSION_TTL"`
	SessionSweepSchedule string        `koanf:"SESSION_SWEEP_SCHEDULE"`

	LogLevel  string `koanf:"LOG_LEVEL"`
	LogFormat string `koanf:"LOG_FORMAT"`
}

// LoadConfig читает .env (если есть) и переменные окружения.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default возвращает конфигурацию со значениями по умолчанию.
func Default() *Config {
	return &Config{
		Backend:              BackendSupabase,
		SQLitePath:           "data/finance.db",
		HTTPAddr:             ":8080",
		RequestTimeout:       10 * time.Second,
		RecurringCheckPolicy: CheckPolicyReport,
		AMQPExchange:         "finance",
		AMQPQueue:            "finance.transactions",
		SessionTTL:           7 * 24 * time.Hour,
		SessionSweepSchedule: "@hourly",
		LogLevel:             "INFO",
		LogFormat:            "text",
	}
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required for the supabase backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown BACKEND %q (want %s or %s)", c.Backend, BackendSupabase, BackendSQLite)
	}

	switch c.RecurringCheckPolicy {
	case CheckPolicySkip, CheckPolicyReport, CheckPolicyAbort:
	default:
		return fmt.Errorf("unknown RECURRING_CHECK_POLICY %q", c.RecurringCheckPolicy)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

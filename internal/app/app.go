// Package app собирает сервисы трекера из конфигурации.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/ivanoskov/finance_tracker/internal/config"
	"github.com/ivanoskov/finance_tracker/internal/events"
	"github.com/ivanoskov/finance_tracker/internal/repository"
	"github.com/ivanoskov/finance_tracker/internal/service"
)

type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Backend *repository.Backend
	Events  events.Publisher
	Tracker *service.Tracker
	Auth    *service.AuthService

	cron *cron.Cron
}

// New открывает хранилище и брокер событий и создает сервисы
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	policy, err := service.ParseCheckPolicy(cfg.RecurringCheckPolicy)
	if err != nil {
		return nil, err
	}

	backend, err := repository.Open(cfg, logger)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		p, err := events.Dial(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			backend.Close()
			return nil, fmt.Errorf("failed to connect to event broker: %w", err)
		}
		publisher = p
	}

	materializer := service.NewMaterializer(backend.Store, publisher, policy, logger)
	return &App{
		Config:  cfg,
		Logger:  logger,
		Backend: backend,
		Events:  publisher,
		Tracker: service.NewTracker(backend.Store, materializer, publisher, logger),
		Auth:    service.NewAuthService(backend.Auth, logger),
	}, nil
}

// StartSessionSweeper по расписанию удаляет просроченные локальные сессии.
// Для Supabase сессиями управляет GoTrue, и планировщик не запускается.
func (a *App) StartSessionSweeper() error {
	if a.Backend.Sessions == nil {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(a.Config.SessionSweepSchedule, func() {
		n, err := a.Backend.Sessions.PurgeExpiredSessions(context.Background())
		if err != nil {
			a.Logger.Error("failed to purge expired sessions", "error", err)
			return
		}
		if n > 0 {
			a.Logger.Info("expired sessions purged", "count", n)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid SESSION_SWEEP_SCHEDULE %q: %w", a.Config.SessionSweepSchedule, err)
	}
	c.Start()
	a.cron = c
	return nil
}

func (a *App) Close() error {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	return errors.Join(a.Events.Close(), a.Backend.Close())
}

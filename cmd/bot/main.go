package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/finance_tracker/internal/app"
	"github.com/ivanoskov/finance_tracker/internal/bot"
	"github.com/ivanoskov/finance_tracker/internal/config"
	"github.com/ivanoskov/finance_tracker/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	if err := a.StartSessionSweeper(); err != nil {
		log.Fatal(err)
	}

	api, err := bot.Connect(ctx, cfg.TelegramToken, logger)
	if err != nil {
		log.Fatal(err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()

	b := bot.NewBot(api, a.Tracker, a.Auth, logger)
	if err := b.Run(ctx, updates); err != nil {
		logger.Error("bot stopped", "error", err)
	}
	logger.Info("shutting down")
}

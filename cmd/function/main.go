package main

import (
	"context"
	"os"
	"sync"

	"github.com/ivanoskov/finance_tracker/internal/app"
	"github.com/ivanoskov/finance_tracker/internal/bot"
	"github.com/ivanoskov/finance_tracker/internal/config"
	"github.com/ivanoskov/finance_tracker/internal/logging"
)

// Request структура входящего запроса от API Gateway
type Request struct {
	Body string `json:"body"`
}

// Response структура ответа для API Gateway
type Response struct {
	StatusCode int               `json:"statusCode"`
	Body       string            `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Бот создается один раз на экземпляр функции: теплые вызовы
// разделяют состояние чатов и подключение к хранилищу.
// После ошибки инициализация повторяется при следующем вызове.
var (
	mu       sync.Mutex
	instance *bot.Bot
)

func setup(ctx context.Context) (*bot.Bot, error) {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		return instance, nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	api, err := bot.Connect(ctx, cfg.TelegramToken, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	instance = bot.NewBot(api, a.Tracker, a.Auth, logger)
	return instance, nil
}

func Handler(ctx context.Context, request Request) (*Response, error) {
	b, err := setup(ctx)
	if err != nil {
		return errorResponse(err)
	}

	// Обработка webhook-обновления
	if err := b.HandleWebhook(ctx, []byte(request.Body)); err != nil {
		return errorResponse(err)
	}

	return &Response{
		StatusCode: 200,
		Body:       "",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func errorResponse(err error) (*Response, error) {
	return &Response{
		StatusCode: 500,
		Body:       err.Error(),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func main() {
	// Точка входа для локального тестирования
}

package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/finance_tracker/internal/charts"
	"github.com/ivanoskov/finance_tracker/internal/model"
	"github.com/ivanoskov/finance_tracker/internal/service"
)

// API - методы tgbotapi.BotAPI, которыми пользуется бот
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// chatState хранит сессию и дашборд одного чата
type chatState struct {
	mu        sync.Mutex
	session   *model.Session
	dashboard service.Dashboard
}

func (s *chatState) loggedIn() bool {
	return s.session != nil
}

func (s *chatState) reset() {
	s.session = nil
	s.dashboard = service.Dashboard{}
}

type Bot struct {
	api     API
	tracker *service.Tracker
	auth    *service.AuthService
	charts  *charts.ChartGenerator
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	chats map[int64]*chatState // состояния по ID чата
}

func NewBot(api API, tracker *service.Tracker, auth *service.AuthService, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		api:     api,
		tracker: tracker,
		auth:    auth,
		charts:  charts.NewChartGenerator(),
		logger:  logger,
		now:     time.Now,
		chats:   make(map[int64]*chatState),
	}
}

// Connect создает клиент Telegram, повторяя попытки при сетевых ошибках.
// Неверный токен не повторяется.
func Connect(ctx context.Context, token string, logger *slog.Logger) (*tgbotapi.BotAPI, error) {
	var api *tgbotapi.BotAPI
	err := retry.Do(
		func() error {
			var err error
			api, err = tgbotapi.NewBotAPI(token)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var apiErr *tgbotapi.Error
			return !errors.As(err, &apiErr) || apiErr.Code != 401
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("telegram connection failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	logger.Info("authorized on telegram", "account", api.Self.UserName)
	return api, nil
}

// Run обрабатывает обновления long polling до закрытия канала или отмены контекста
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// HandleWebhook - точка входа для обработки входящих webhook-обновлений
func (b *Bot) HandleWebhook(ctx context.Context, body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("failed to decode update: %w", err)
	}
	b.handleUpdate(ctx, update)
	return nil
}

func (b *Bot) state(chatID int64) *chatState {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.chats[chatID]
	if !ok {
		st = &chatState{}
		b.chats[chatID] = st
	}
	return st
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		st := b.state(update.Message.Chat.ID)
		st.mu.Lock()
		defer st.mu.Unlock()
		if update.Message.IsCommand() {
			b.handleCommand(ctx, st, update.Message)
			return
		}
		b.handleMessage(ctx, st, update.Message)

	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		st := b.state(update.CallbackQuery.Message.Chat.ID)
		st.mu.Lock()
		defer st.mu.Unlock()
		b.handleCallback(ctx, st, update.CallbackQuery)
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Error("failed to send message", "error", err)
	}
}

func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.api.Request(c); err != nil {
		b.logger.Warn("telegram request failed", "error", err)
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendSuccess(chatID int64, text string) {
	b.sendText(chatID, "✓ "+text)
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	b.sendText(chatID, "✕ "+text)
}

func (b *Bot) sendPhoto(chatID int64, name string, png []byte) {
	b.send(tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: png}))
}

func (b *Bot) today() model.Date {
	return model.DateOf(b.now())
}

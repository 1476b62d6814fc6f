package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ivanoskov/finance_tracker/internal/model"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("record already exists")
	ErrUnauthorized = errors.New("not authenticated")
)

// Таблицы внешнего хранилища.
const (
	tableTransactions = "transactions"
	tableBudgets      = "budgets"
	tableRules        = "recurring_rules"
)

// TransactionStore - операции над транзакциями владельца.
type TransactionStore interface {
	// ListTransactions возвращает транзакции, отсортированные по дате (сначала новые)
	ListTransactions(ctx context.Context, userID uuid.UUID, filter model.TransactionFilter) ([]model.Transaction, error)
	// ExistsForRule проверяет, есть ли транзакция правила в полуинтервале [start, end)
	ExistsForRule(ctx context.Context, userID uuid.UUID, ruleID string, start, end model.Date) (bool, error)
	CreateTransaction(ctx context.Context, transaction *model.Transaction) error
	UpdateTransaction(ctx context.Context, transaction *model.Transaction) error
	DeleteTransaction(ctx context.Context, id string, userID uuid.UUID) error
	DeleteAllTransactions(ctx context.Context, userID uuid.UUID) error
}

// BudgetStore - бюджеты по категориям, upsert по (user_id, category).
type BudgetStore interface {
	ListBudgets(ctx context.Context, userID uuid.UUID) ([]model.Budget, error)
	UpsertBudget(ctx context.Context, budget *model.Budget) error
	DeleteBudget(ctx context.Context, id string, userID uuid.UUID) error
}

// RuleStore - повторяющиеся правила. Обновления нет: только создание и удаление.
type RuleStore interface {
	ListRules(ctx context.Context, userID uuid.UUID) ([]model.RecurringRule, error)
	CreateRule(ctx context.Context, rule *model.RecurringRule) error
	DeleteRule(ctx context.Context, id string, userID uuid.UUID) error
}

type Repository interface {
	TransactionStore
	BudgetStore
	RuleStore
	Close() error
}

// SignupResult - результат регистрации. Created=false, если адрес уже был зарегистрирован.
type SignupResult struct {
	UserID  uuid.UUID
	Email   string
	Created bool
	// Session пустая, если сервис требует подтверждения почты
	Session *model.Session
}

// Auth - контракт внешнего сервиса аутентификации.
type Auth interface {
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	SignUp(ctx context.Context, email, password string) (*SignupResult, error)
	SignOut(ctx context.Context, accessToken string) error
	// User возвращает сессию по токену доступа или ErrUnauthorized
	User(ctx context.Context, accessToken string) (*model.Session, error)
}

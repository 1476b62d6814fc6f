package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/ivanoskov/finance_tracker/internal/model"
)

// SupabaseRepository хранит данные в таблицах Supabase через PostgREST.
// Ключ клиента должен позволять работать с данными любого пользователя,
// поэтому каждый запрос явно ограничен по user_id.
type SupabaseRepository struct {
	client  *supabase.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewSupabaseClient(url, key string) (*supabase.Client, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return client, nil
}

func NewSupabaseRepository(client *supabase.Client, timeout time.Duration, logger *slog.Logger) *SupabaseRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SupabaseRepository{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

func (r *SupabaseRepository) Close() error {
	return nil
}

// execute выполняет запрос с таймаутом и приводит ошибки PostgREST к ошибкам пакета.
func (r *SupabaseRepository) execute(ctx context.Context, query *postgrest.FilterBuilder) ([]byte, error) {
	data, err := await(ctx, r.timeout, func() ([]byte, error) {
		data, _, err := query.Execute()
		return data, err
	})
	if err != nil {
		return nil, classifyPostgrestError(err)
	}
	return data, nil
}

// classifyPostgrestError распознает ошибки вида "(23505) duplicate key ...".
func classifyPostgrestError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "(23505)"), strings.Contains(msg, "duplicate key"):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case strings.Contains(msg, "(PGRST116)"):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case strings.Contains(msg, "(PGRST301)"), strings.Contains(msg, "(42501)"):
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return err
}

func (r *SupabaseRepository) ListTransactions(ctx context.Context, userID uuid.UUID, filter model.TransactionFilter) ([]model.Transaction, error) {
	query := r.client.From(tableTransactions).
		Select("*", "", false).
		Eq("user_id", userID.String())

	if filter.Start != nil {
		query = query.Gte("date", filter.Start.String())
	}
	if filter.End != nil {
		query = query.Lt("date", filter.End.String())
	}

	// Сначала новые; при равных датах - по времени создания
	query = query.Order("date", &postgrest.OrderOpts{Ascending: false}).
		Order("created_at", &postgrest.OrderOpts{Ascending: false})

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit, "")
	}

	data, err := r.execute(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	var transactions []model.Transaction
	if err := json.Unmarshal(data, &transactions); err != nil {
		return nil, fmt.Errorf("failed to parse transactions: %w", err)
	}
	return transactions, nil
}

func (r *SupabaseRepository) ExistsForRule(ctx context.Context, userID uuid.UUID, ruleID string, start, end model.Date) (bool, error) {
	query := r.client.From(tableTransactions).
		Select("id", "", false).
		Eq("user_id", userID.String()).
		Eq("recurring_id", ruleID).
		Gte("date", start.String()).
		Lt("date", end.String()).
		Limit(1, "")

	data, err := r.execute(ctx, query)
	if err != nil {
		return false, fmt.Errorf("failed to check transactions of rule %s: %w", ruleID, err)
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return false, fmt.Errorf("failed to parse transactions: %w", err)
	}
	return len(rows) > 0, nil
}

func (r *SupabaseRepository) CreateTransaction(ctx context.Context, transaction *model.Transaction) error {
	transaction.GenerateID()

	data, err := r.execute(ctx, r.client.From(tableTransactions).Insert(transaction, false, "", "representation", ""))
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	r.logger.DebugContext(ctx, "transaction created", "id", transaction.ID, "recurring", transaction.IsRecurring())

	// Парсим ответ, чтобы получить время создания
	var created []model.Transaction
	if err := json.Unmarshal(data, &created); err != nil {
		return fmt.Errorf("failed to parse created transaction: %w", err)
	}
	if len(created) > 0 {
		transaction.CreatedAt = created[0].CreatedAt
	}
	return nil
}

func (r *SupabaseRepository) UpdateTransaction(ctx context.Context, transaction *model.Transaction) error {
	// recurring_id и владелец не меняются при редактировании
	payload := map[string]any{
		"type":        transaction.Kind,
		"amount":      transaction.Amount,
		"category":    transaction.Category,
		"date":        transaction.Date,
		"description": transaction.Description,
	}
	query := r.client.From(tableTransactions).
		Update(payload, "representation", "").
		Eq("id", transaction.ID).
		Eq("user_id", transaction.UserID.String())

	data, err := r.execute(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", transaction.ID, err)
	}
	return expectRows(data, "transaction", transaction.ID)
}

func (r *SupabaseRepository) DeleteTransaction(ctx context.Context, id string, userID uuid.UUID) error {
	query := r.client.From(tableTransactions).
		Delete("representation", "").
		Eq("id", id).
		Eq("user_id", userID.String())

	data, err := r.execute(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	return expectRows(data, "transaction", id)
}

func (r *SupabaseRepository) DeleteAllTransactions(ctx context.Context, userID uuid.UUID) error {
	query := r.client.From(tableTransactions).
		Delete("minimal", "").
		Eq("user_id", userID.String())

	if _, err := r.execute(ctx, query); err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	return nil
}

func (r *SupabaseRepository) ListBudgets(ctx context.Context, userID uuid.UUID) ([]model.Budget, error) {
	query := r.client.From(tableBudgets).
		Select("*", "", false).
		Eq("user_id", userID.String()).
		Order("category", &postgrest.OrderOpts{Ascending: true})

	data, err := r.execute(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get budgets: %w", err)
	}

	var budgets []model.Budget
	if err := json.Unmarshal(data, &budgets); err != nil {
		return nil, fmt.Errorf("failed to parse budgets: %w", err)
	}
	return budgets, nil
}

func (r *SupabaseRepository) UpsertBudget(ctx context.Context, budget *model.Budget) error {
	// id не передаем: при конфликте строка сохраняет свой идентификатор
	payload := map[string]any{
		"user_id":        budget.UserID,
		"category":       budget.Category,
		"monthly_amount": budget.MonthlyAmount,
	}
	data, err := r.execute(ctx, r.client.From(tableBudgets).Upsert(payload, "user_id,category", "representation", ""))
	if err != nil {
		return fmt.Errorf("failed to save budget for %s: %w", budget.Category, err)
	}

	var saved []model.Budget
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("failed to parse saved budget: %w", err)
	}
	if len(saved) > 0 {
		budget.ID = saved[0].ID
	}
	return nil
}

func (r *SupabaseRepository) DeleteBudget(ctx context.Context, id string, userID uuid.UUID) error {
	query := r.client.From(tableBudgets).
		Delete("representation", "").
		Eq("id", id).
		Eq("user_id", userID.String())

	data, err := r.execute(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to delete budget %s: %w", id, err)
	}
	return expectRows(data, "budget", id)
}

func (r *SupabaseRepository) ListRules(ctx context.Context, userID uuid.UUID) ([]model.RecurringRule, error) {
	query := r.client.From(tableRules).
		Select("*", "", false).
		Eq("user_id", userID.String()).
		Order("day", &postgrest.OrderOpts{Ascending: true})

	data, err := r.execute(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring rules: %w", err)
	}

	var rules []model.RecurringRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse recurring rules: %w", err)
	}
	return rules, nil
}

func (r *SupabaseRepository) CreateRule(ctx context.Context, rule *model.RecurringRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.Frequency == "" {
		rule.Frequency = model.FrequencyMonthly
	}

	data, err := r.execute(ctx, r.client.From(tableRules).Insert(rule, false, "", "representation", ""))
	if err != nil {
		return fmt.Errorf("failed to create recurring rule: %w", err)
	}

	var created []model.RecurringRule
	if err := json.Unmarshal(data, &created); err != nil {
		return fmt.Errorf("failed to parse created rule: %w", err)
	}
	if len(created) > 0 {
		rule.CreatedAt = created[0].CreatedAt
	}
	return nil
}

func (r *SupabaseRepository) DeleteRule(ctx context.Context, id string, userID uuid.UUID) error {
	query := r.client.From(tableRules).
		Delete("representation", "").
		Eq("id", id).
		Eq("user_id", userID.String())

	data, err := r.execute(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to delete recurring rule %s: %w", id, err)
	}
	return expectRows(data, "recurring rule", id)
}

// expectRows возвращает ErrNotFound, если запрос с return=representation не затронул ни одной строки.
func expectRows(data []byte, entity, id string) error {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return nil
}

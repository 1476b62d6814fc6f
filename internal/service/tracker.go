package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ivanoskov/finance_tracker/internal/events"
	"github.com/ivanoskov/finance_tracker/internal/model"
	"github.com/ivanoskov/finance_tracker/internal/repository"
)

// Tracker предоставляет методы для работы с финансовыми данными владельца
type Tracker struct {
	store        repository.Repository
	materializer *Materializer
	events       events.Publisher
	logger       *slog.Logger
}

func NewTracker(store repository.Repository, materializer *Materializer, publisher events.Publisher, logger *slog.Logger) *Tracker {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:        store,
		materializer: materializer,
		events:       publisher,
		logger:       logger,
	}
}

// TransactionInput - данные формы транзакции.
type TransactionInput struct {
	Kind        model.Kind      `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        model.Date      `json:"date"`
	Description string          `json:"description"`
}

// RuleInput - данные формы повторяющегося правила.
type RuleInput struct {
	Name     string          `json:"name"`
	Kind     model.Kind      `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Day      int             `json:"day"`
}

// Load открывает месяц для владельца.
func (t *Tracker) Load(ctx context.Context, owner uuid.UUID, month model.Month) (Dashboard, error) {
	return t.Reload(ctx, Dashboard{Owner: owner, Month: month}, month)
}

// Reload перечитывает данные месяца: бюджеты, правила, материализация, транзакции.
// При ошибке чтения или прерванной материализации возвращается prev без изменений.
// Частичная ошибка материализации возвращается вместе со свежими данными.
func (t *Tracker) Reload(ctx context.Context, prev Dashboard, month model.Month) (Dashboard, error) {
	next := Dashboard{Owner: prev.Owner, Month: month, Edit: prev.Edit}
	if month != prev.Month {
		next.Edit = Idle()
	}

	budgets, err := t.store.ListBudgets(ctx, prev.Owner)
	if err != nil {
		return prev, fmt.Errorf("failed to load budgets: %w", err)
	}
	rules, err := t.store.ListRules(ctx, prev.Owner)
	if err != nil {
		return prev, fmt.Errorf("failed to load recurring rules: %w", err)
	}

	result, materializeErr := t.materializer.Materialize(ctx, prev.Owner, month, rules)
	var partial *MaterializeError
	if materializeErr != nil && (!errors.As(materializeErr, &partial) || partial.Aborted) {
		return prev, materializeErr
	}

	transactions, err := t.store.ListTransactions(ctx, prev.Owner, model.MonthFilter(month))
	if err != nil {
		return prev, fmt.Errorf("failed to load transactions: %w", err)
	}

	next.Budgets = budgets
	next.Rules = rules
	next.Transactions = transactions
	next.Materialized = result
	next.Loaded = true
	next.derive()

	if _, ok := next.Transaction(next.Edit.TransactionID); next.Edit.IsEditing() && !ok {
		next.Edit = Idle()
	}

	t.logger.DebugContext(ctx, "dashboard loaded",
		"user_id", prev.Owner, "month", month.String(),
		"transactions", len(transactions), "budgets", len(budgets), "rules", len(rules))

	if materializeErr != nil {
		return next, materializeErr
	}
	return next, nil
}

// BeginEdit переводит форму в режим редактирования транзакции текущего месяца.
func (t *Tracker) BeginEdit(d Dashboard, id string) (Dashboard, error) {
	if _, ok := d.Transaction(id); !ok {
		return d, fmt.Errorf("transaction %s: %w", id, repository.ErrNotFound)
	}
	d.Edit = Editing(id)
	return d, nil
}

func (t *Tracker) CancelEdit(d Dashboard) Dashboard {
	d.Edit = Idle()
	return d
}

// SaveTransaction создает транзакцию в режиме добавления и обновляет редактируемую в режиме редактирования.
func (t *Tracker) SaveTransaction(ctx context.Context, d Dashboard, in TransactionInput) (Dashboard, error) {
	tx := model.Transaction{
		ID:          d.Edit.TransactionID,
		UserID:      d.Owner,
		Kind:        in.Kind,
		Amount:      in.Amount,
		Category:    in.Category,
		Date:        in.Date,
		Description: in.Description,
	}
	tx.Normalize()
	if err := tx.Validate(); err != nil {
		return d, err
	}

	if d.Edit.IsEditing() {
		if err := t.store.UpdateTransaction(ctx, &tx); err != nil {
			return d, err
		}
		t.publish(ctx, events.TransactionUpdated, d.Owner, tx.ID)
		d.Edit = Idle()
	} else {
		if err := t.store.CreateTransaction(ctx, &tx); err != nil {
			return d, err
		}
		t.publish(ctx, events.TransactionCreated, d.Owner, tx.ID)
	}
	return t.Reload(ctx, d, d.Month)
}

func (t *Tracker) DeleteTransaction(ctx context.Context, d Dashboard, id string) (Dashboard, error) {
	if err := t.store.DeleteTransaction(ctx, id, d.Owner); err != nil {
		return d, err
	}
	t.publish(ctx, events.TransactionDeleted, d.Owner, id)
	if d.Edit.TransactionID == id {
		d.Edit = Idle()
	}
	return t.Reload(ctx, d, d.Month)
}

// ClearTransactions удаляет все транзакции владельца за все месяцы.
func (t *Tracker) ClearTransactions(ctx context.Context, d Dashboard) (Dashboard, error) {
	if err := t.store.DeleteAllTransactions(ctx, d.Owner); err != nil {
		return d, err
	}
	t.publish(ctx, events.TransactionsCleared, d.Owner, "")
	d.Edit = Idle()
	return t.Reload(ctx, d, d.Month)
}

// SaveBudget задает лимит категории, заменяя существующий.
func (t *Tracker) SaveBudget(ctx context.Context, d Dashboard, category string, amount decimal.Decimal) (Dashboard, error) {
	budget := model.Budget{UserID: d.Owner, Category: strings.TrimSpace(category), MonthlyAmount: amount}
	if err := budget.Validate(); err != nil {
		return d, err
	}
	if err := t.store.UpsertBudget(ctx, &budget); err != nil {
		return d, err
	}
	t.publish(ctx, events.BudgetSaved, d.Owner, budget.ID)
	return t.Reload(ctx, d, d.Month)
}

func (t *Tracker) DeleteBudget(ctx context.Context, d Dashboard, id string) (Dashboard, error) {
	if err := t.store.DeleteBudget(ctx, id, d.Owner); err != nil {
		return d, err
	}
	t.publish(ctx, events.BudgetDeleted, d.Owner, id)
	return t.Reload(ctx, d, d.Month)
}

func (t *Tracker) CreateRule(ctx context.Context, d Dashboard, in RuleInput) (Dashboard, error) {
	rule := model.RecurringRule{
		UserID:    d.Owner,
		Name:      strings.TrimSpace(in.Name),
		Kind:      in.Kind,
		Amount:    in.Amount,
		Category:  strings.TrimSpace(in.Category),
		Day:       in.Day,
		Frequency: model.FrequencyMonthly,
	}
	if err := rule.Validate(); err != nil {
		return d, err
	}
	if err := t.store.CreateRule(ctx, &rule); err != nil {
		return d, err
	}
	t.publish(ctx, events.RuleCreated, d.Owner, rule.ID)
	return t.Reload(ctx, d, d.Month)
}

func (t *Tracker) DeleteRule(ctx context.Context, d Dashboard, id string) (Dashboard, error) {
	if err := t.store.DeleteRule(ctx, id, d.Owner); err != nil {
		return d, err
	}
	t.publish(ctx, events.RuleDeleted, d.Owner, id)
	return t.Reload(ctx, d, d.Month)
}

func (t *Tracker) publish(ctx context.Context, typ events.Type, owner uuid.UUID, id string) {
	if err := t.events.Publish(ctx, events.New(typ, owner, id)); err != nil {
		t.logger.WarnContext(ctx, "failed to publish event", "type", typ, "error", err)
	}
}

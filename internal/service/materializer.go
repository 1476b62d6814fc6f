package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/ivanoskov/finance_tracker/internal/events"
	"github.com/ivanoskov/finance_tracker/internal/model"
	"github.com/ivanoskov/finance_tracker/internal/repository"
)

// CheckPolicy определяет, что делать, если не удалось проверить,
// создана ли уже транзакция правила за месяц.
type CheckPolicy string

const (
	// CheckSkip - пропустить правило и продолжить
	CheckSkip CheckPolicy = "skip"
	// CheckReport - продолжить, а после прохода вернуть все ошибки
	CheckReport CheckPolicy = "report"
	// CheckAbort - остановить проход на первой ошибке
	CheckAbort CheckPolicy = "abort"
)

func ParseCheckPolicy(s string) (CheckPolicy, error) {
	switch p := CheckPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case CheckSkip, CheckReport, CheckAbort:
		return p, nil
	case "":
		return CheckReport, nil
	}
	return "", fmt.Errorf("unknown check policy %q", s)
}

// SkippedRule - правило, для которого не удалось выполнить проверку.
type SkippedRule struct {
	Rule model.RecurringRule
	Err  error
}

// MaterializeResult - итог одного прохода материализации.
type MaterializeResult struct {
	Created  []model.Transaction
	Existing int
	Skipped  []SkippedRule
}

// MaterializeError собирает ошибки отдельных правил.
type MaterializeError struct {
	Month model.Month
	Errs  []error
	// Aborted=true, если проход остановлен политикой CheckAbort
	Aborted bool
}

func (e *MaterializeError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("recurring transactions for %s: %d failed: %s", e.Month, len(e.Errs), strings.Join(msgs, "; "))
}

func (e *MaterializeError) Unwrap() []error {
	return e.Errs
}

// RuleError - ошибка обработки конкретного правила.
type RuleError struct {
	RuleID string
	Name   string
	// Check=true, если упала проверка существования, а не создание
	Check bool
	Err   error
}

func (e *RuleError) Error() string {
	op := "create"
	if e.Check {
		op = "check"
	}
	return fmt.Sprintf("%s rule %q: %v", op, e.Name, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// Materializer превращает повторяющиеся правила в транзакции конкретного месяца.
type Materializer struct {
	store  repository.TransactionStore
	events events.Publisher
	policy CheckPolicy
	logger *slog.Logger

	// одна пара проверка+создание на ключ (владелец, правило, месяц)
	group singleflight.Group
}

func NewMaterializer(store repository.TransactionStore, publisher events.Publisher, policy CheckPolicy, logger *slog.Logger) *Materializer {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if policy == "" {
		policy = CheckReport
	}
	return &Materializer{store: store, events: publisher, policy: policy, logger: logger}
}

func (m *Materializer) Policy() CheckPolicy {
	return m.policy
}

type ruleOutcome struct {
	created *model.Transaction
}

// Materialize создает недостающие транзакции правил за месяц. Правила обрабатываются
// по одному; ошибки создания собираются и возвращаются после прохода как *MaterializeError.
func (m *Materializer) Materialize(ctx context.Context, owner uuid.UUID, month model.Month, rules []model.RecurringRule) (MaterializeResult, error) {
	var (
		result MaterializeResult
		errs   []error
	)
	start, end := month.Range()

	for _, rule := range rules {
		key := fmt.Sprintf("%s/%s/%s", owner, rule.ID, month)
		v, err, _ := m.group.Do(key, func() (any, error) {
			return m.materializeRule(ctx, owner, month, start, end, rule)
		})

		var ruleErr *RuleError
		if errors.As(err, &ruleErr) && ruleErr.Check {
			switch m.policy {
			case CheckSkip:
				m.logger.WarnContext(ctx, "recurring rule check failed, skipping",
					"rule_id", rule.ID, "month", month.String(), "error", ruleErr.Err)
				result.Skipped = append(result.Skipped, SkippedRule{Rule: rule, Err: ruleErr.Err})
				continue
			case CheckAbort:
				errs = append(errs, err)
				return result, &MaterializeError{Month: month, Errs: errs, Aborted: true}
			default:
				result.Skipped = append(result.Skipped, SkippedRule{Rule: rule, Err: ruleErr.Err})
				errs = append(errs, err)
				continue
			}
		}
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to materialize recurring rule",
				"rule_id", rule.ID, "month", month.String(), "error", err)
			errs = append(errs, err)
			continue
		}

		outcome := v.(ruleOutcome)
		if outcome.created == nil {
			result.Existing++
			continue
		}
		result.Created = append(result.Created, *outcome.created)
	}

	if len(result.Created) > 0 {
		m.logger.InfoContext(ctx, "recurring transactions created",
			"user_id", owner, "month", month.String(), "count", len(result.Created))
	}
	if len(errs) > 0 {
		return result, &MaterializeError{Month: month, Errs: errs}
	}
	return result, nil
}

func (m *Materializer) materializeRule(ctx context.Context, owner uuid.UUID, month model.Month, start, end model.Date, rule model.RecurringRule) (ruleOutcome, error) {
	exists, err := m.store.ExistsForRule(ctx, owner, rule.ID, start, end)
	if err != nil {
		return ruleOutcome{}, &RuleError{RuleID: rule.ID, Name: rule.Name, Check: true, Err: err}
	}
	if exists {
		return ruleOutcome{}, nil
	}

	ruleID := rule.ID
	tx := &model.Transaction{
		UserID:      owner,
		Kind:        rule.Kind,
		Amount:      rule.Amount,
		Category:    rule.Category,
		Date:        month.DateOn(rule.Day),
		Description: rule.AutoDescription(),
		RecurringID: &ruleID,
	}
	if err := m.store.CreateTransaction(ctx, tx); err != nil {
		// транзакцию успел создать другой процесс
		if errors.Is(err, repository.ErrConflict) {
			m.logger.DebugContext(ctx, "recurring transaction already exists", "rule_id", rule.ID, "month", month.String())
			return ruleOutcome{}, nil
		}
		return ruleOutcome{}, &RuleError{RuleID: rule.ID, Name: rule.Name, Err: err}
	}

	event := events.New(events.TransactionCreated, owner, tx.ID)
	event.Source = "recurring"
	if err := m.events.Publish(ctx, event); err != nil {
		m.logger.WarnContext(ctx, "failed to publish event", "type", event.Type, "error", err)
	}
	return ruleOutcome{created: tx}, nil
}

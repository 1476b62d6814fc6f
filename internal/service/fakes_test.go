package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ivanoskov/finance_tracker/internal/events"
	"github.com/ivanoskov/finance_tracker/internal/model"
	"github.com/ivanoskov/finance_tracker/internal/repository"
)

// memoryStore - хранилище в памяти с той же уникальностью (правило, месяц), что и в базе.
type memoryStore struct {
	mu           sync.Mutex
	transactions []model.Transaction
	budgets      []model.Budget
	rules        []model.RecurringRule

	// хуки для имитации сбоев
	existsErr   func(ruleID string) error
	createErr   func(tx *model.Transaction) error
	listBudgets error
	listTxErr   error
	// existsDelay растягивает окно между проверкой и созданием
	existsDelay time.Duration

	existsCalls int
	createCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{}
}

func (s *memoryStore) ListTransactions(_ context.Context, userID uuid.UUID, f model.TransactionFilter) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listTxErr != nil {
		return nil, s.listTxErr
	}
	var out []model.Transaction
	for _, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}
		if f.Start != nil && tx.Date.Before(*f.Start) {
			continue
		}
		if f.End != nil && !tx.Date.Before(*f.End) {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[j].Date.Before(out[i].Date) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *memoryStore) ExistsForRule(_ context.Context, userID uuid.UUID, ruleID string, start, end model.Date) (bool, error) {
	s.mu.Lock()
	s.existsCalls++
	hook, delay := s.existsErr, s.existsDelay
	s.mu.Unlock()

	if hook != nil {
		if err := hook(ruleID); err != nil {
			return false, err
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.transactions {
		if tx.UserID == userID && tx.RecurringID != nil && *tx.RecurringID == ruleID &&
			!tx.Date.Before(start) && tx.Date.Before(end) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) CreateTransaction(_ context.Context, tx *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		if err := s.createErr(tx); err != nil {
			return err
		}
	}
	if tx.IsRecurring() {
		month := model.MonthOf(tx.Date)
		for _, existing := range s.transactions {
			if existing.IsRecurring() && *existing.RecurringID == *tx.RecurringID && model.MonthOf(existing.Date) == month {
				return repository.ErrConflict
			}
		}
	}
	tx.GenerateID()
	now := time.Now()
	tx.CreatedAt = &now
	s.transactions = append(s.transactions, *tx)
	return nil
}

func (s *memoryStore) UpdateTransaction(_ context.Context, tx *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.transactions {
		if existing.ID == tx.ID && existing.UserID == tx.UserID {
			tx.RecurringID = existing.RecurringID
			tx.CreatedAt = existing.CreatedAt
			s.transactions[i] = *tx
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memoryStore) DeleteTransaction(_ context.Context, id string, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.transactions {
		if tx.ID == id && tx.UserID == userID {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memoryStore) DeleteAllTransactions(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.transactions[:0]
	for _, tx := range s.transactions {
		if tx.UserID != userID {
			kept = append(kept, tx)
		}
	}
	s.transactions = kept
	return nil
}

func (s *memoryStore) ListBudgets(_ context.Context, userID uuid.UUID) ([]model.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listBudgets != nil {
		return nil, s.listBudgets
	}
	var out []model.Budget
	for _, b := range s.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *memoryStore) UpsertBudget(_ context.Context, b *model.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.budgets {
		if existing.UserID == b.UserID && existing.Category == b.Category {
			s.budgets[i].MonthlyAmount = b.MonthlyAmount
			b.ID = existing.ID
			return nil
		}
	}
	b.ID = uuid.NewString()
	s.budgets = append(s.budgets, *b)
	return nil
}

func (s *memoryStore) DeleteBudget(_ context.Context, id string, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.budgets {
		if b.ID == id && b.UserID == userID {
			s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memoryStore) ListRules(_ context.Context, userID uuid.UUID) ([]model.RecurringRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RecurringRule
	for _, r := range s.rules {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (s *memoryStore) CreateRule(_ context.Context, r *model.RecurringRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.rules = append(s.rules, *r)
	return nil
}

func (s *memoryStore) DeleteRule(_ context.Context, id string, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rules {
		if r.ID == id && r.UserID == userID {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memoryStore) Close() error { return nil }

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactions)
}

// recorder запоминает опубликованные события.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

var errStoreDown = errors.New("store unavailable")

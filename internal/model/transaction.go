package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID          string          `json:"id,omitempty"`
	UserID      uuid.UUID       `json:"user_id"`
	Kind        Kind            `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        Date            `json:"date"`
	Description string          `json:"description"`
	// RecurringID задан, если транзакция создана из повторяющегося правила
	RecurringID *string    `json:"recurring_id"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// GenerateID генерирует новый UUID для транзакции, если он еще не установлен
func (t *Transaction) GenerateID() {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
}

// Normalize убирает лишние пробелы в текстовых полях.
func (t *Transaction) Normalize() {
	t.Category = strings.TrimSpace(t.Category)
	t.Description = strings.TrimSpace(t.Description)
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// IsRecurring сообщает, создана ли транзакция автоматически.
func (t Transaction) IsRecurring() bool {
	return t.RecurringID != nil && *t.RecurringID != ""
}

// TransactionFilter задает выборку транзакций владельца.
type TransactionFilter struct {
	// Start включительно, End исключительно
	Start *Date
	End   *Date
	Limit int
}

// MonthFilter возвращает фильтр по полуинтервалу месяца.
func MonthFilter(m Month) TransactionFilter {
	start, end := m.Range()
	return TransactionFilter{Start: &start, End: &end}
}

package model

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Budget - месячный лимит расходов по категории. Пара (UserID, Category) уникальна.
type Budget struct {
	ID            string          `json:"id,omitempty"`
	UserID        uuid.UUID       `json:"user_id"`
	Category      string          `json:"category"`
	MonthlyAmount decimal.Decimal `json:"monthly_amount"`
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if !b.MonthlyAmount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FrequencyMonthly - единственная поддерживаемая периодичность.
const FrequencyMonthly = "monthly"

// RecurringRule описывает ежемесячную операцию. Правила не редактируются,
// только создаются и удаляются.
type RecurringRule struct {
	ID        string          `json:"id,omitempty"`
	UserID    uuid.UUID       `json:"user_id"`
	Name      string          `json:"name"`
	Kind      Kind            `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
	Day       int             `json:"day"`
	Frequency string          `json:"frequency"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

func (r RecurringRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if r.Day < MinRuleDay || r.Day > MaxRuleDay {
		return ErrInvalidDay
	}
	return nil
}

// AutoDescription - описание транзакций, созданных из правила.
func (r RecurringRule) AutoDescription() string {
	return r.Name + " (Auto)"
}

package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		Kind:     KindExpense,
		Amount:   decimal.NewFromInt(50),
		Category: "food",
		Date:     NewDate(2025, 3, 2),
	}

	tests := []struct {
		name   string
		modify func(*Transaction)
		want   error
	}{
		{"valid", func(*Transaction) {}, nil},
		{"bad kind", func(tx *Transaction) { tx.Kind = "transfer" }, ErrInvalidKind},
		{"zero amount", func(tx *Transaction) { tx.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-3) }, ErrInvalidAmount},
		{"blank category", func(tx *Transaction) { tx.Category = "   " }, ErrEmptyCategory},
		{"no date", func(tx *Transaction) { tx.Date = Date{} }, ErrMissingDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.modify(&tx)
			if err := tx.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRecurringRuleValidateDayBounds(t *testing.T) {
	rule := RecurringRule{
		Name:     "Rent",
		Kind:     KindExpense,
		Amount:   decimal.NewFromInt(1200),
		Category: "Housing",
	}
	for day, want := range map[int]error{0: ErrInvalidDay, 1: nil, 28: nil, 29: ErrInvalidDay, 31: ErrInvalidDay} {
		rule.Day = day
		if err := rule.Validate(); !errors.Is(err, want) {
			t.Errorf("day %d: Validate() = %v, want %v", day, err, want)
		}
	}
	if got := rule.AutoDescription(); got != "Rent (Auto)" {
		t.Errorf("AutoDescription() = %q", got)
	}
}

func TestBudgetValidate(t *testing.T) {
	if err := (Budget{Category: "food", MonthlyAmount: decimal.NewFromInt(60)}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Budget{Category: "", MonthlyAmount: decimal.NewFromInt(60)}).Validate(); !errors.Is(err, ErrEmptyCategory) {
		t.Errorf("want ErrEmptyCategory, got %v", err)
	}
	if err := (Budget{Category: "food"}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("want ErrInvalidAmount, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" Income "); err != nil || k != KindIncome {
		t.Errorf("ParseKind(Income) = %q, %v", k, err)
	}
	if _, err := ParseKind("refund"); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("ParseKind(refund) error = %v", err)
	}
}

func TestTransactionDecodesStoreRow(t *testing.T) {
	row := `{"id":"abc","user_id":"8d1b7c1e-6f0e-4a57-9a3e-2b0c1d8f4e11","type":"expense",
		"amount":1200.50,"category":"Housing","date":"2025-03-01","description":"Rent (Auto)",
		"recurring_id":"rule-1","created_at":"2025-03-01T10:00:00+00:00"}`

	var tx Transaction
	if err := json.Unmarshal([]byte(row), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("1200.5")) {
		t.Errorf("amount = %s", tx.Amount)
	}
	if tx.Date.String() != "2025-03-01" {
		t.Errorf("date = %s", tx.Date)
	}
	if !tx.IsRecurring() || *tx.RecurringID != "rule-1" {
		t.Errorf("recurring id = %v", tx.RecurringID)
	}
}

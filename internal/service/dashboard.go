package service

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ivanoskov/finance_tracker/internal/model"
)

// EditState - состояние формы транзакции: пустой TransactionID означает режим добавления.
type EditState struct {
	TransactionID string `json:"transaction_id,omitempty"`
}

func Idle() EditState {
	return EditState{}
}

func Editing(id string) EditState {
	return EditState{TransactionID: id}
}

func (e EditState) IsEditing() bool {
	return e.TransactionID != ""
}

// Dashboard - полное состояние экрана владельца за месяц. Каждая операция трекера
// возвращает новое значение; после любого изменения данные перечитываются целиком.
type Dashboard struct {
	Owner uuid.UUID   `json:"owner"`
	Month model.Month `json:"month"`

	Transactions []model.Transaction   `json:"transactions"`
	Budgets      []model.Budget        `json:"budgets"`
	Rules        []model.RecurringRule `json:"rules"`

	Totals     Totals                     `json:"totals"`
	Spend      map[string]decimal.Decimal `json:"spend"`
	Overages   []Overage                  `json:"overages"`
	Progress   []BudgetStatus             `json:"progress"`
	Breakdown  []CategoryAmount           `json:"breakdown"`
	Categories []string                   `json:"categories"`

	Materialized MaterializeResult `json:"-"`
	Edit         EditState         `json:"edit"`
	// Loaded=false, пока не было ни одной успешной загрузки
	Loaded bool `json:"loaded"`
}

// Transaction ищет транзакцию текущего месяца по id.
func (d Dashboard) Transaction(id string) (model.Transaction, bool) {
	for _, tx := range d.Transactions {
		if tx.ID == id {
			return tx, true
		}
	}
	return model.Transaction{}, false
}

// Budget ищет бюджет по категории.
func (d Dashboard) Budget(category string) (model.Budget, bool) {
	for _, b := range d.Budgets {
		if b.Category == category {
			return b, true
		}
	}
	return model.Budget{}, false
}

// derive пересчитывает производные поля после загрузки.
func (d *Dashboard) derive() {
	d.Totals = Summarize(d.Transactions)
	d.Spend = CategorySpend(d.Transactions)
	d.Overages = Overages(d.Budgets, d.Spend)
	d.Progress = BudgetProgress(d.Budgets, d.Spend)
	d.Breakdown = ExpenseBreakdown(d.Transactions)
	d.Categories = Categories(d.Transactions, d.Budgets, d.Rules)
}

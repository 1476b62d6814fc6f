package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/finance_tracker/internal/model"
)

// Totals - доходы, расходы и баланс за период.
type Totals struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

// Summarize считает итоги по списку транзакций. Порядок транзакций не важен.
func Summarize(transactions []model.Transaction) Totals {
	var t Totals
	for _, tx := range transactions {
		switch tx.Kind {
		case model.KindIncome:
			t.Income = t.Income.Add(tx.Amount)
		case model.KindExpense:
			t.Expenses = t.Expenses.Add(tx.Amount)
		}
	}
	t.Net = t.Income.Sub(t.Expenses)
	return t
}

// CategorySpend возвращает сумму расходов по каждой категории.
func CategorySpend(transactions []model.Transaction) map[string]decimal.Decimal {
	spend := make(map[string]decimal.Decimal)
	for _, tx := range transactions {
		if tx.Kind != model.KindExpense {
			continue
		}
		spend[tx.Category] = spend[tx.Category].Add(tx.Amount)
	}
	return spend
}

// Overage - превышение бюджета категории.
type Overage struct {
	Category string          `json:"category"`
	Budget   decimal.Decimal `json:"budget"`
	Spent    decimal.Decimal `json:"spent"`
	Over     decimal.Decimal `json:"over"`
}

// Overages возвращает только бюджеты с положительным превышением, в порядке бюджетов.
func Overages(budgets []model.Budget, spend map[string]decimal.Decimal) []Overage {
	var result []Overage
	for _, b := range budgets {
		spent := spend[b.Category]
		over := spent.Sub(b.MonthlyAmount)
		if !over.IsPositive() {
			continue
		}
		result = append(result, Overage{
			Category: b.Category,
			Budget:   b.MonthlyAmount,
			Spent:    spent,
			Over:     over,
		})
	}
	return result
}

// BudgetStatus - строка таблицы бюджетов.
type BudgetStatus struct {
	Budget  model.Budget    `json:"budget"`
	Spent   decimal.Decimal `json:"spent"`
	Percent decimal.Decimal `json:"percent"`
	Over    bool            `json:"over"`
}

func BudgetProgress(budgets []model.Budget, spend map[string]decimal.Decimal) []BudgetStatus {
	result := make([]BudgetStatus, 0, len(budgets))
	hundred := decimal.NewFromInt(100)
	for _, b := range budgets {
		spent := spend[b.Category]
		status := BudgetStatus{
			Budget:  b,
			Spent:   spent,
			Percent: decimal.Zero,
			Over:    spent.GreaterThan(b.MonthlyAmount),
		}
		if b.MonthlyAmount.IsPositive() {
			status.Percent = spent.Div(b.MonthlyAmount).Mul(hundred).Round(0)
		}
		result = append(result, status)
	}
	return result
}

// CategoryAmount - доля категории в расходах.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// ExpenseBreakdown сортирует категории расходов по убыванию суммы, при равенстве - по имени.
func ExpenseBreakdown(transactions []model.Transaction) []CategoryAmount {
	spend := CategorySpend(transactions)
	result := make([]CategoryAmount, 0, len(spend))
	for category, amount := range spend {
		result = append(result, CategoryAmount{Category: category, Amount: amount})
	}
	sort.Slice(result, func(i, j int) bool {
		if c := result[i].Amount.Cmp(result[j].Amount); c != 0 {
			return c > 0
		}
		return result[i].Category < result[j].Category
	})
	return result
}

// Categories - отсортированное объединение категорий транзакций, бюджетов и правил.
func Categories(transactions []model.Transaction, budgets []model.Budget, rules []model.RecurringRule) []string {
	seen := make(map[string]struct{})
	add := func(c string) {
		if c != "" {
			seen[c] = struct{}{}
		}
	}
	for _, tx := range transactions {
		add(tx.Category)
	}
	for _, b := range budgets {
		add(b.Category)
	}
	for _, r := range rules {
		add(r.Category)
	}

	result := make([]string, 0, len(seen))
	for c := range seen {
		result = append(result, c)
	}
	sort.Strings(result)
	return result
}

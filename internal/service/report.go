package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/finance_tracker/internal/model"
)

// maxChangePercent ограничивает отображаемое изменение
var maxChangePercent = decimal.NewFromInt(1000)

// PeriodStats содержит статистику за месяц
type PeriodStats struct {
	Month           model.Month     `json:"month"`
	Totals          Totals          `json:"totals"`
	AvgDailyIncome  decimal.Decimal `json:"avg_daily_income"`
	AvgDailyExpense decimal.Decimal `json:"avg_daily_expense"`
	// SavingsRate - доля сбереженного дохода в процентах, 0 без дохода
	SavingsRate decimal.Decimal `json:"savings_rate"`
}

// CategoryChange - расходы категории в сравнении с прошлым месяцем
type CategoryChange struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Previous decimal.Decimal `json:"previous"`
	// Share - доля в расходах месяца, %
	Share decimal.Decimal `json:"share"`
	// Change - изменение к прошлому месяцу, %; nil, если в прошлом месяце расходов не было
	Change *decimal.Decimal `json:"change,omitempty"`
}

// MonthReport - сравнение месяца дашборда с предыдущим.
type MonthReport struct {
	Current    PeriodStats      `json:"current"`
	Previous   PeriodStats      `json:"previous"`
	Categories []CategoryChange `json:"categories"`
}

// IncomeChange, ExpenseChange и BalanceChange возвращают изменение к прошлому месяцу в процентах.
func (r MonthReport) IncomeChange() *decimal.Decimal {
	return ChangePercent(r.Current.Totals.Income, r.Previous.Totals.Income)
}

func (r MonthReport) ExpenseChange() *decimal.Decimal {
	return ChangePercent(r.Current.Totals.Expenses, r.Previous.Totals.Expenses)
}

func (r MonthReport) BalanceChange() *decimal.Decimal {
	return ChangePercent(r.Current.Totals.Net, r.Previous.Totals.Net)
}

// Report строит отчет по месяцу дашборда. Предыдущий месяц только читается:
// правила за него не материализуются.
func (t *Tracker) Report(ctx context.Context, d Dashboard) (MonthReport, error) {
	prevMonth := d.Month.Prev()
	prevTransactions, err := t.store.ListTransactions(ctx, d.Owner, model.MonthFilter(prevMonth))
	if err != nil {
		return MonthReport{}, fmt.Errorf("failed to get previous month transactions: %w", err)
	}
	return BuildReport(d.Month, d.Transactions, prevMonth, prevTransactions), nil
}

// BuildReport сравнивает транзакции двух месяцев.
func BuildReport(month model.Month, current []model.Transaction, prevMonth model.Month, previous []model.Transaction) MonthReport {
	report := MonthReport{
		Current:  analyzePeriod(month, current),
		Previous: analyzePeriod(prevMonth, previous),
	}

	spend := CategorySpend(current)
	prevSpend := CategorySpend(previous)
	total := report.Current.Totals.Expenses
	hundred := decimal.NewFromInt(100)

	for category, amount := range spend {
		change := CategoryChange{
			Category: category,
			Amount:   amount,
			Previous: prevSpend[category],
			Share:    decimal.Zero,
			Change:   ChangePercent(amount, prevSpend[category]),
		}
		if total.IsPositive() {
			change.Share = amount.Div(total).Mul(hundred).Round(1)
		}
		report.Categories = append(report.Categories, change)
	}

	// Сортируем по убыванию суммы
	sort.Slice(report.Categories, func(i, j int) bool {
		if c := report.Categories[i].Amount.Cmp(report.Categories[j].Amount); c != 0 {
			return c > 0
		}
		return report.Categories[i].Category < report.Categories[j].Category
	})
	return report
}

// analyzePeriod анализирует транзакции за месяц
func analyzePeriod(month model.Month, transactions []model.Transaction) PeriodStats {
	start, end := month.Range()
	days := decimal.NewFromInt(int64(end.Sub(start.Time).Hours() / 24))

	stats := PeriodStats{
		Month:       month,
		Totals:      Summarize(transactions),
		SavingsRate: decimal.Zero,
	}
	stats.AvgDailyIncome = stats.Totals.Income.Div(days).Round(2)
	stats.AvgDailyExpense = stats.Totals.Expenses.Div(days).Round(2)
	if stats.Totals.Income.IsPositive() {
		stats.SavingsRate = stats.Totals.Net.Div(stats.Totals.Income).Mul(decimal.NewFromInt(100)).Round(1)
	}
	return stats
}

// ChangePercent вычисляет изменение current относительно previous в процентах,
// ограниченное ±1000%. Без базы для сравнения возвращает nil.
func ChangePercent(current, previous decimal.Decimal) *decimal.Decimal {
	if previous.IsZero() {
		return nil
	}
	change := current.Sub(previous).Div(previous.Abs()).Mul(decimal.NewFromInt(100)).Round(1)
	if change.GreaterThan(maxChangePercent) {
		change = maxChangePercent
	} else if change.LessThan(maxChangePercent.Neg()) {
		change = maxChangePercent.Neg()
	}
	return &change
}

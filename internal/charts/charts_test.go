package charts

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ivanoskov/finance_tracker/internal/model"
	"github.com/ivanoskov/finance_tracker/internal/service"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func dashboard(t *testing.T) service.Dashboard {
	t.Helper()
	month, err := model.ParseMonth("2025-03")
	if err != nil {
		t.Fatal(err)
	}
	newTx := func(kind model.Kind, amount int64, category string, day int) model.Transaction {
		return model.Transaction{
			ID:       uuid.NewString(),
			Kind:     kind,
			Amount:   decimal.NewFromInt(amount),
			Category: category,
			Date:     month.DateOn(day),
		}
	}
	txs := []model.Transaction{
		newTx(model.KindIncome, 3000, "Salary", 1),
		newTx(model.KindExpense, 1200, "Housing", 1),
		newTx(model.KindExpense, 80, "Food", 5),
		newTx(model.KindExpense, 2, "Coffee", 6),
	}
	budgets := []model.Budget{
		{ID: "b1", Category: "Food", MonthlyAmount: decimal.NewFromInt(60)},
		{ID: "b2", Category: "Housing", MonthlyAmount: decimal.NewFromInt(1500)},
	}
	spend := service.CategorySpend(txs)
	return service.Dashboard{
		Month:        month,
		Transactions: txs,
		Budgets:      budgets,
		Totals:       service.Summarize(txs),
		Spend:        spend,
		Progress:     service.BudgetProgress(budgets, spend),
		Breakdown:    service.ExpenseBreakdown(txs),
		Loaded:       true,
	}
}

func TestChartsRenderPNG(t *testing.T) {
	g := NewChartGenerator()
	d := dashboard(t)
	report := service.BuildReport(d.Month, d.Transactions, d.Month.Prev(), nil)

	tests := []struct {
		name   string
		render func() ([]byte, error)
	}{
		{"expense breakdown", func() ([]byte, error) { return g.ExpenseBreakdown(d) }},
		{"budget progress", func() ([]byte, error) { return g.BudgetProgress(d) }},
		{"daily flow", func() ([]byte, error) { return g.DailyFlow(d) }},
		{"month comparison", func() ([]byte, error) { return g.MonthComparison(report) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			png, err := tt.render()
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if !bytes.HasPrefix(png, pngMagic) {
				t.Errorf("output is not a PNG (%d bytes)", len(png))
			}
		})
	}
}

func TestChartsEmptyDashboard(t *testing.T) {
	g := NewChartGenerator()
	d := service.Dashboard{Month: model.CurrentMonth(model.NewDate(2025, 1, 1).Time)}

	if png, err := g.ExpenseBreakdown(d); png != nil || err != nil {
		t.Errorf("ExpenseBreakdown = %d bytes, %v", len(png), err)
	}
	if png, err := g.BudgetProgress(d); png != nil || err != nil {
		t.Errorf("BudgetProgress = %d bytes, %v", len(png), err)
	}
	if png, err := g.DailyFlow(d); png != nil || err != nil {
		t.Errorf("DailyFlow = %d bytes, %v", len(png), err)
	}
	if png, err := g.MonthComparison(service.MonthReport{}); png != nil || err != nil {
		t.Errorf("MonthComparison = %d bytes, %v", len(png), err)
	}
}

func TestFormatMoney(t *testing.T) {
	tests := map[string]string{
		"0":       "$0.00",
		"12.5":    "$12.50",
		"1234.56": "$1,234.56",
		"1000000": "$1,000,000.00",
		"-2500.1": "-$2,500.10",
	}
	for in, want := range tests {
		if got := FormatMoney(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatMoney(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestCalculateMovingAverage(t *testing.T) {
	got := calculateMovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("moving average = %v, want %v", got, want)
		}
	}
}

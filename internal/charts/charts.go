package charts

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ivanoskov/finance_tracker/internal/model"
	"github.com/ivanoskov/finance_tracker/internal/service"
)

// minShare - категории с меньшей долей не подписываются на круговой диаграмме
const minShare = 1.0

var printer = message.NewPrinter(language.English)

// FormatMoney форматирует сумму с разделителями разрядов: 1,234.50
func FormatMoney(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-" + FormatMoney(amount.Neg())
	}
	return printer.Sprintf("$%.2f", amount.InexactFloat64())
}

// ChartGenerator генерирует графики дашборда
type ChartGenerator struct{}

// NewChartGenerator создает новый генератор графиков
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{}
}

func background() chart.Style {
	return chart.Style{
		Padding: chart.Box{
			Top:    50,
			Left:   50,
			Right:  50,
			Bottom: 50,
		},
		FillColor: chart.ColorWhite,
	}
}

func axisStyle() chart.Style {
	return chart.Style{
		FontSize:  12,
		FontColor: chart.ColorBlack,
	}
}

func moneyFormatter(v interface{}) string {
	return printer.Sprintf("$%.0f", v.(float64))
}

// calculateMovingAverage вычисляет скользящее среднее
func calculateMovingAverage(values []float64, window int) []float64 {
	result := make([]float64, len(values))
	for i := range values {
		count := 0
		sum := 0.0
		for j := max(0, i-window+1); j <= i; j++ {
			sum += values[j]
			count++
		}
		result[i] = sum / float64(count)
	}
	return result
}

// ExpenseBreakdown создает круговую диаграмму расходов по категориям.
// Без расходов возвращает nil.
func (g *ChartGenerator) ExpenseBreakdown(d service.Dashboard) ([]byte, error) {
	total := d.Totals.Expenses
	if !total.IsPositive() || len(d.Breakdown) == 0 {
		return nil, nil
	}

	values := make([]chart.Value, 0, len(d.Breakdown))
	for _, cat := range d.Breakdown {
		share := cat.Amount.Div(total).InexactFloat64() * 100
		label := ""
		if share >= minShare {
			label = fmt.Sprintf("%s: %s (%.1f%%)", cat.Category, FormatMoney(cat.Amount), share)
		}
		values = append(values, chart.Value{
			Label: label,
			Value: cat.Amount.InexactFloat64(),
			Style: axisStyle(),
		})
	}

	pie := chart.PieChart{
		Title:      "Expenses " + d.Month.String(),
		Width:      800,
		Height:     800,
		Values:     values,
		Background: background(),
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render expense breakdown: %w", err)
	}
	return buffer.Bytes(), nil
}

// BudgetProgress создает столбчатую диаграмму расходов по бюджетам:
// превышенные бюджеты выделяются красным. Без бюджетов возвращает nil.
func (g *ChartGenerator) BudgetProgress(d service.Dashboard) ([]byte, error) {
	if len(d.Progress) == 0 {
		return nil, nil
	}

	bars := make([]chart.Value, 0, len(d.Progress))
	for _, status := range d.Progress {
		color := chart.ColorGreen
		if status.Over {
			color = chart.ColorRed
		}
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s %s%%", status.Budget.Category, status.Percent.String()),
			Value: status.Percent.InexactFloat64(),
			Style: chart.Style{
				StrokeColor: color,
				FillColor:   color.WithAlpha(180),
				FontSize:    12,
				FontColor:   chart.ColorBlack,
			},
		})
	}

	graph := chart.BarChart{
		Title:      "Budgets " + d.Month.String(),
		TitleStyle: axisStyle(),
		Width:      1200,
		Height:     600,
		BarWidth:   60,
		Background: background(),
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: budgetAxisMax(d.Progress)},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f%%", v.(float64))
			},
			Style: axisStyle(),
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render budget progress: %w", err)
	}
	return buffer.Bytes(), nil
}

// budgetAxisMax - верх шкалы: не меньше 100%, чтобы лимит был виден
func budgetAxisMax(progress []service.BudgetStatus) float64 {
	top := 100.0
	for _, status := range progress {
		top = max(top, status.Percent.InexactFloat64())
	}
	return top * 1.1
}

// DailyFlow создает график доходов и расходов по дням месяца с накопительным балансом
// и 7-дневным трендом расходов. Без транзакций возвращает nil.
func (g *ChartGenerator) DailyFlow(d service.Dashboard) ([]byte, error) {
	if len(d.Transactions) == 0 {
		return nil, nil
	}

	start, end := d.Month.Range()
	days := int(end.Sub(start.Time).Hours() / 24)
	xValues := make([]time.Time, days)
	expenseValues := make([]float64, days)
	incomeValues := make([]float64, days)
	balanceValues := make([]float64, days)

	for i := range xValues {
		xValues[i] = start.AddDate(0, 0, i)
	}
	for _, tx := range d.Transactions {
		i := tx.Date.Day() - 1
		if i < 0 || i >= days {
			continue
		}
		if tx.Kind == model.KindIncome {
			incomeValues[i] += tx.Amount.InexactFloat64()
		} else {
			expenseValues[i] += tx.Amount.InexactFloat64()
		}
	}

	// Рассчитываем накопительный баланс
	runningBalance := 0.0
	for i := range balanceValues {
		runningBalance += incomeValues[i] - expenseValues[i]
		balanceValues[i] = runningBalance
	}
	maExpenses := calculateMovingAverage(expenseValues, 7)

	graph := chart.Chart{
		Title:      "Cash flow " + d.Month.String(),
		Width:      1200,
		Height:     600,
		Background: background(),
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("02.01"),
			Style:          axisStyle(),
		},
		YAxis: chart.YAxis{
			ValueFormatter: moneyFormatter,
			Style:          axisStyle(),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Expenses",
				XValues: xValues,
				YValues: expenseValues,
				Style: chart.Style{
					StrokeColor: chart.ColorRed,
					StrokeWidth: 2,
				},
			},
			chart.TimeSeries{
				Name:    "Income",
				XValues: xValues,
				YValues: incomeValues,
				Style: chart.Style{
					StrokeColor: chart.ColorGreen,
					StrokeWidth: 2,
				},
			},
			chart.TimeSeries{
				Name:    "Balance",
				XValues: xValues,
				YValues: balanceValues,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 3,
				},
			},
			chart.TimeSeries{
				Name:    "Expense trend (7 days)",
				XValues: xValues,
				YValues: maExpenses,
				Style: chart.Style{
					StrokeColor:     chart.ColorRed.WithAlpha(100),
					StrokeWidth:     2,
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
		},
	}

	// Добавляем легенду
	graph.Elements = []chart.Renderable{
		chart.Legend(&graph, axisStyle()),
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render daily flow: %w", err)
	}
	return buffer.Bytes(), nil
}

// MonthComparison создает график сравнения месяца с предыдущим.
func (g *ChartGenerator) MonthComparison(report service.MonthReport) ([]byte, error) {
	cur, prev := report.Current.Totals, report.Previous.Totals
	if cur.Income.IsZero() && cur.Expenses.IsZero() && prev.Income.IsZero() && prev.Expenses.IsZero() {
		return nil, nil
	}

	bar := func(label string, amount decimal.Decimal, color drawing.Color, alpha uint8) chart.Value {
		return chart.Value{
			Label: fmt.Sprintf("%s: %s", label, FormatMoney(amount)),
			Value: amount.InexactFloat64(),
			Style: chart.Style{
				StrokeColor: color,
				FillColor:   color.WithAlpha(alpha),
				FontSize:    12,
				FontColor:   chart.ColorBlack,
			},
		}
	}
	prevName, curName := report.Previous.Month.String(), report.Current.Month.String()
	bars := []chart.Value{
		bar("Income "+prevName, prev.Income, chart.ColorGreen, 100),
		bar("Income "+curName, cur.Income, chart.ColorGreen, 255),
		bar("Expenses "+prevName, prev.Expenses, chart.ColorRed, 100),
		bar("Expenses "+curName, cur.Expenses, chart.ColorRed, 255),
		bar("Net "+prevName, prev.Net, chart.ColorBlue, 100),
		bar("Net "+curName, cur.Net, chart.ColorBlue, 255),
	}

	graph := chart.BarChart{
		Title:      "Month over month",
		TitleStyle: axisStyle(),
		Width:      1200,
		Height:     600,
		BarWidth:   60,
		Background: background(),
		YAxis: chart.YAxis{
			ValueFormatter: moneyFormatter,
			Style:          axisStyle(),
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render month comparison: %w", err)
	}
	return buffer.Bytes(), nil
}

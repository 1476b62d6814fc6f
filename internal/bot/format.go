package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/finance_tracker/internal/charts"
	"github.com/ivanoskov/finance_tracker/internal/model"
	"github.com/ivanoskov/finance_tracker/internal/repository"
	"github.com/ivanoskov/finance_tracker/internal/service"
)

// maxListed ограничивает длину списка транзакций в сообщении
const maxListed = 40

func monthTitle(m model.Month) string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

func signedAmount(kind model.Kind, amount decimal.Decimal) string {
	if kind == model.KindIncome {
		return "+" + charts.FormatMoney(amount)
	}
	return "-" + charts.FormatMoney(amount)
}

func transactionLine(tx model.Transaction) string {
	line := fmt.Sprintf("%s %s %s", tx.Date.Format("02.01"), signedAmount(tx.Kind, tx.Amount), tx.Category)
	if tx.Description != "" {
		line += " · " + tx.Description
	}
	if tx.IsRecurring() {
		line += " 🔁"
	}
	return line
}

func ruleLine(r model.RecurringRule) string {
	return fmt.Sprintf("%s: %s %s, day %d", r.Name, signedAmount(r.Kind, r.Amount), r.Category, r.Day)
}

// renderDashboard формирует текст дашборда за месяц
func renderDashboard(d service.Dashboard) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "📅 %s\n\n", monthTitle(d.Month))
	fmt.Fprintf(&sb, "💰 Income: %s\n", charts.FormatMoney(d.Totals.Income))
	fmt.Fprintf(&sb, "💸 Expenses: %s\n", charts.FormatMoney(d.Totals.Expenses))
	fmt.Fprintf(&sb, "📊 Net: %s\n", charts.FormatMoney(d.Totals.Net))

	if len(d.Overages) > 0 {
		sb.WriteString("\n⚠️ Over budget:\n")
		for _, o := range d.Overages {
			fmt.Fprintf(&sb, "• %s: %s of %s (+%s)\n", o.Category,
				charts.FormatMoney(o.Spent), charts.FormatMoney(o.Budget), charts.FormatMoney(o.Over))
		}
	}

	sb.WriteString("\nTransactions:\n")
	if len(d.Transactions) == 0 {
		sb.WriteString("No transactions this month.\n")
	}
	for i, tx := range d.Transactions {
		if i == maxListed {
			fmt.Fprintf(&sb, "…and %d more\n", len(d.Transactions)-maxListed)
			break
		}
		marker := ""
		if d.Edit.TransactionID == tx.ID {
			marker = " ✏️"
		}
		fmt.Fprintf(&sb, "%d. %s%s\n", i+1, transactionLine(tx), marker)
	}

	if len(d.Progress) > 0 {
		sb.WriteString("\nBudgets:\n")
		for _, p := range d.Progress {
			mark := ""
			if p.Over {
				mark = " ❗"
			}
			fmt.Fprintf(&sb, "• %s: %s / %s (%s%%)%s\n", p.Budget.Category,
				charts.FormatMoney(p.Spent), charts.FormatMoney(p.Budget.MonthlyAmount), p.Percent.String(), mark)
		}
	}

	if len(d.Rules) > 0 {
		sb.WriteString("\nRecurring:\n")
		for i, r := range d.Rules {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, ruleLine(r))
		}
	}
	return sb.String()
}

func formatChange(change *decimal.Decimal) string {
	if change == nil {
		return ""
	}
	if change.IsZero() {
		return " (0%)"
	}
	if change.IsPositive() {
		return fmt.Sprintf(" (+%s%%⬆️)", change.String())
	}
	return fmt.Sprintf(" (%s%%⬇️)", change.String())
}

// renderReport формирует текст сравнения с прошлым месяцем
func renderReport(r service.MonthReport) string {
	var sb strings.Builder
	cur := r.Current
	fmt.Fprintf(&sb, "📊 Summary %s vs %s\n\n", monthTitle(cur.Month), monthTitle(r.Previous.Month))
	fmt.Fprintf(&sb, "💰 Income: %s%s\n", charts.FormatMoney(cur.Totals.Income), formatChange(r.IncomeChange()))
	fmt.Fprintf(&sb, "💸 Expenses: %s%s\n", charts.FormatMoney(cur.Totals.Expenses), formatChange(r.ExpenseChange()))
	fmt.Fprintf(&sb, "📊 Net: %s%s\n", charts.FormatMoney(cur.Totals.Net), formatChange(r.BalanceChange()))
	fmt.Fprintf(&sb, "📈 Avg income per day: %s\n", charts.FormatMoney(cur.AvgDailyIncome))
	fmt.Fprintf(&sb, "📉 Avg expense per day: %s\n", charts.FormatMoney(cur.AvgDailyExpense))
	fmt.Fprintf(&sb, "💹 Savings rate: %s%%\n", cur.SavingsRate.String())

	if len(r.Categories) > 0 {
		sb.WriteString("\nBy category:\n")
		for _, c := range r.Categories {
			fmt.Fprintf(&sb, "• %s: %s (%s%%)%s\n", c.Category, charts.FormatMoney(c.Amount), c.Share.String(), formatChange(c.Change))
		}
	}
	return sb.String()
}

// userMessage превращает ошибку в короткое сообщение для пользователя
func userMessage(err error) string {
	var (
		authErr     *service.AuthError
		usageErr    *usageError
		materialize *service.MaterializeError
	)
	switch {
	case errors.As(err, &authErr):
		return authErr.Message
	case errors.As(err, &usageErr):
		return usageErr.Error()
	case errors.As(err, &materialize):
		return fmt.Sprintf("Some recurring transactions for %s were not created: %d failed.", monthTitle(materialize.Month), len(materialize.Errs))
	case errors.Is(err, repository.ErrUnauthorized):
		return "Session expired. Please log in again: " + usageLogin
	case errors.Is(err, repository.ErrNotFound):
		return "Not found. It may have been deleted already."
	case errors.Is(err, repository.ErrConflict):
		return "It already exists."
	}
	return err.Error()
}

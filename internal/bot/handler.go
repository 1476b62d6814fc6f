package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/finance_tracker/internal/model"
	"github.com/ivanoskov/finance_tracker/internal/service"
)

const helpText = "Commands:\n" +
	usageLogin + "\n" +
	usageRegister + "\n" +
	"/logout\n\n" +
	usageMonth + " - open a month\n" +
	usageAdd + "\n" +
	"/edit <n> - edit transaction n, then send /add with new values\n" +
	"/cancel - stop editing\n" +
	"/delete <n> - delete transaction n\n" +
	"/clear - delete ALL transactions\n" +
	usageBudget + "\n" +
	usageUnbudget + "\n" +
	usageRule + "\n" +
	"/unrule <n> - delete recurring rule n\n" +
	"/chart - charts for the month\n" +
	"/summary - compare with the previous month"

// commandHandler обрабатывает команду авторизованного пользователя
type commandHandler func(b *Bot, ctx context.Context, st *chatState, chatID int64, args string)

var commands = map[string]commandHandler{
	"month":    (*Bot).handleMonth,
	"add":      (*Bot).handleAdd,
	"edit":     (*Bot).handleEdit,
	"cancel":   (*Bot).handleCancel,
	"delete":   (*Bot).handleDelete,
	"clear":    (*Bot).handleClear,
	"budget":   (*Bot).handleBudget,
	"unbudget": (*Bot).handleUnbudget,
	"rule":     (*Bot).handleRule,
	"unrule":   (*Bot).handleUnrule,
	"chart":    (*Bot).handleChart,
	"summary":  (*Bot).handleSummary,
	"logout":   (*Bot).handleLogout,
}

func (b *Bot) handleCommand(ctx context.Context, st *chatState, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	cmd, args := message.Command(), message.CommandArguments()

	switch cmd {
	case "start", "help":
		b.handleStart(chatID)
		return
	case "login":
		b.deleteMessage(message)
		b.handleLogin(ctx, st, chatID, args)
		return
	case "register":
		b.deleteMessage(message)
		b.handleRegister(ctx, chatID, args)
		return
	}

	handler, ok := commands[cmd]
	if !ok {
		b.sendErrorMessage(chatID, "Unknown command. Send /help for the list.")
		return
	}
	if !b.authorize(st, chatID) {
		return
	}
	handler(b, ctx, st, chatID, args)
}

func (b *Bot) handleMessage(ctx context.Context, st *chatState, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	switch message.Text {
	case buttonHelp:
		b.handleStart(chatID)
		return
	case buttonDashboard, buttonCharts, buttonSummary:
	default:
		msg := tgbotapi.NewMessage(chatID, "Send /help to see what I can do.")
		msg.ReplyMarkup = b.getMainKeyboard()
		b.send(msg)
		return
	}

	if !b.authorize(st, chatID) {
		return
	}
	switch message.Text {
	case buttonDashboard:
		month := ""
		if st.dashboard.Loaded {
			month = st.dashboard.Month.String()
		}
		b.handleMonth(ctx, st, chatID, month)
	case buttonCharts:
		b.handleChart(ctx, st, chatID, "")
	case buttonSummary:
		b.handleSummary(ctx, st, chatID, "")
	}
}

func (b *Bot) handleCallback(ctx context.Context, st *chatState, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	// Отвечаем на callback, чтобы убрать loading indicator
	defer b.request(tgbotapi.NewCallback(callback.ID, ""))

	if !b.authorize(st, chatID) {
		return
	}

	data := callback.Data
	switch {
	case strings.HasPrefix(data, callbackMonth):
		b.handleMonth(ctx, st, chatID, strings.TrimPrefix(data, callbackMonth))
	case strings.HasPrefix(data, callbackConfirm):
		b.handleConfirmed(ctx, st, chatID, strings.TrimPrefix(data, callbackConfirm))
	case data == callbackCancel:
		b.sendText(chatID, "Cancelled.")
	}
}

// authorize проверяет, что в чате есть действующая сессия
func (b *Bot) authorize(st *chatState, chatID int64) bool {
	if !st.loggedIn() {
		b.sendErrorMessage(chatID, "Please log in first: "+usageLogin)
		return false
	}
	if st.session.Expired(b.now()) {
		st.reset()
		b.sendErrorMessage(chatID, "Session expired. Please log in again: "+usageLogin)
		return false
	}
	return true
}

// deleteMessage убирает сообщение с паролем из истории чата
func (b *Bot) deleteMessage(message *tgbotapi.Message) {
	b.request(tgbotapi.NewDeleteMessage(message.Chat.ID, message.MessageID))
}

func (b *Bot) handleStart(chatID int64) {
	msg := tgbotapi.NewMessage(chatID,
		"Welcome to the finance tracker! 💰\n\n"+
			"Track income and expenses by month, set category budgets and "+
			"recurring transactions that are added automatically.\n\n"+helpText)
	msg.ReplyMarkup = b.getMainKeyboard()
	b.send(msg)
}

func (b *Bot) handleLogin(ctx context.Context, st *chatState, chatID int64, args string) {
	email, password, _, err := parseCredentials(args, false)
	if err != nil {
		b.sendErrorMessage(chatID, userMessage(err))
		return
	}

	session, err := b.auth.SignIn(ctx, email, password)
	if err != nil {
		b.sendErrorMessage(chatID, userMessage(err))
		return
	}
	st.session = session
	b.logger.InfoContext(ctx, "chat logged in", "chat_id", chatID, "user_id", session.UserID)

	b.sendSuccess(chatID, "Welcome back!")
	d, err := b.tracker.Load(ctx, session.UserID, model.CurrentMonth(b.now()))
	b.applyResult(chatID, st, d, err, "")
}

func (b *Bot) handleRegister(ctx context.Context, chatID int64, args string) {
	email, password, confirm, err := parseCredentials(args, true)
	if err != nil {
		b.sendErrorMessage(chatID, userMessage(err))
		return
	}
	if _, err := b.auth.SignUp(ctx, email, password, confirm); err != nil {
		b.sendErrorMessage(chatID, userMessage(err))
		return
	}
	b.sendSuccess(chatID, "Account created! Now log in: "+usageLogin)
}

func (b *Bot) handleLogout(ctx context.Context, st *chatState, chatID int64, _ string) {
	if err := b.auth.SignOut(ctx, st.session.AccessToken); err != nil {
		b.logger.WarnContext(ctx, "sign out failed", "chat_id", chatID, "error", err)
	}
	st.reset()
	b.sendSuccess(chatID, "Logged out.")
}

func (b *Bot) handleMonth(ctx context.Context, st *chatState, chatID int64, args string) {
	current := model.CurrentMonth(b.now())
	month, err := parseMonthArg(args, current)
	if err != nil {
		b.sendErrorMessage(chatID, userMessage(err))
		return
	}
	prev := st.dashboard
	if !prev.Loaded {
		prev.Owner = st.session.UserID
		prev.Month = month
	}
	d, err := b.tracker.Reload(ctx, prev, month)
	b.applyResult(chatID, st, d, err, "")
}

func (b *Bot) handleAdd(ctx context.Context, st *chatState, chatID int64, args string) {
	in, err := parseTransaction(args, b.today())
	if err != nil {
		b.sendErrorMessage(chatID, userMessage(err))
		return
	}
	success := "Added!"
	if st.dashboard.Edit.IsEditing() {
		success = "Updated!"
	}
	d, err := b.tracker.SaveTransaction(ctx, st.dashboard, in)
	b.applyResult(chatID, st, d, err, success)
}

func (b *Bot) handleEdit(_ context.Context, st *chatState, chatID int64, args string) {
	i, err := parseIndex(args, len(st.dashboard.Transactions), "/edit <n>")
	if err != nil {
		b.sendErrorMessage(chatID, userMessage(err))
		return
	}
	tx := st.dashboard.Transactions[i]
	d, err := b.tracker.BeginEdit(st.dashboard, tx.ID)
	if err != nil {
		b.sendErrorMessage(chatID, userMessage(err))
		return
	}
	st.dashboard = d
	b.sendText(chatID, fmt.Sprintf("✏️ Editing #%d: %s\nSend %s with the new values or /cancel.", i+1, transactionLine(tx), usageAdd))
}

func (b *Bot) handleCancel(_ context.Context, st *chatState, chatID int64, _ string) {
	if !st.dashboard.Edit.IsEditing() {
		b.sendText(chatID, "Nothing to cancel.")
		return
	}
	st.dashboard = b.tracker.CancelEdit(st.dashboard)
	b.sendText(chatID, "Editing cancelled.")
}

func (b *Bot) handleDelete(_ context.Context, st *chatState, chatID int64, args string) {
	i, err := parseIndex(args, len(st.dashboard.Transactions), "/delete <n>")
	if err != nil {
		b.sendErrorMessage(chatID, userMessage(err))
		return
	}
	tx := st.dashboard.Transactions[i]
	b.askConfirmation(chatID, "Delete this transaction?\n"+transactionLine(tx), actionTransaction+tx.ID)
}

func (b *Bot) handleClear(_ context.Context, _ *chatState, chatID int64, _ string) {
	b.askConfirmation(chatID, "Delete ALL transactions? This affects every month.", actionClear)
}

func (b *Bot) handleBudget(ctx context.Context, st *chatState, chatID int64, args string) {
	category, amount, err := parseBudget(args)
	if err != nil {
		b.sendErrorMessage(chatID, userMessage(err))
		return
	}
	d, err := b.tracker.SaveBudget(ctx, st.dashboard, category, amount)
	b.applyResult(chatID, st, d, err, "Budget saved!")
}

func (b *Bot) handleUnbudget(_ context.Context, st *chatState, chatID int64, args string) {
	category := strings.TrimSpace(args)
	if category == "" {
		b.sendErrorMessage(chatID, userMessage(usage(usageUnbudget)))
		return
	}
	budget, ok := st.dashboard.Budget(category)
	if !ok {
		b.sendErrorMessage(chatID, fmt.Sprintf("No budget for %q.", category))
		return
	}
	b.askConfirmation(chatID, fmt.Sprintf("Delete budget %s?", budget.Category), actionBudget+budget.ID)
}

func (b *Bot) handleRule(ctx context.Context, st *chatState, chatID int64, args string) {
	in, err := parseRule(args)
	if err != nil {
		b.sendErrorMessage(chatID, userMessage(err))
		return
	}
	d, err := b.tracker.CreateRule(ctx, st.dashboard, in)
	b.applyResult(chatID, st, d, err, "Rule saved!")
}

func (b *Bot) handleUnrule(_ context.Context, st *chatState, chatID int64, args string) {
	i, err := parseIndex(args, len(st.dashboard.Rules), "/unrule <n>")
	if err != nil {
		b.sendErrorMessage(chatID, userMessage(err))
		return
	}
	rule := st.dashboard.Rules[i]
	b.askConfirmation(chatID, "Delete rule?\n"+ruleLine(rule), actionRule+rule.ID)
}

func (b *Bot) askConfirmation(chatID int64, text, action string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = b.getConfirmKeyboard(action)
	b.send(msg)
}

// handleConfirmed выполняет подтвержденное удаление
func (b *Bot) handleConfirmed(ctx context.Context, st *chatState, chatID int64, action string) {
	var (
		d       service.Dashboard
		err     error
		success = "Deleted"
	)
	switch {
	case strings.HasPrefix(action, actionTransaction):
		d, err = b.tracker.DeleteTransaction(ctx, st.dashboard, strings.TrimPrefix(action, actionTransaction))
	case action == actionClear:
		d, err = b.tracker.ClearTransactions(ctx, st.dashboard)
		success = "Cleared"
	case strings.HasPrefix(action, actionBudget):
		d, err = b.tracker.DeleteBudget(ctx, st.dashboard, strings.TrimPrefix(action, actionBudget))
	case strings.HasPrefix(action, actionRule):
		d, err = b.tracker.DeleteRule(ctx, st.dashboard, strings.TrimPrefix(action, actionRule))
	default:
		b.logger.WarnContext(ctx, "unknown confirmation", "chat_id", chatID, "action", action)
		return
	}
	b.applyResult(chatID, st, d, err, success)
}

func (b *Bot) handleChart(ctx context.Context, st *chatState, chatID int64, _ string) {
	d := st.dashboard
	sent := 0
	for _, c := range []struct {
		name   string
		render func(service.Dashboard) ([]byte, error)
	}{
		{"expenses.png", b.charts.ExpenseBreakdown},
		{"budgets.png", b.charts.BudgetProgress},
		{"flow.png", b.charts.DailyFlow},
	} {
		png, err := c.render(d)
		if err != nil {
			b.logger.ErrorContext(ctx, "failed to render chart", "chart", c.name, "error", err)
			continue
		}
		if png == nil {
			continue
		}
		b.sendPhoto(chatID, c.name, png)
		sent++
	}
	if sent == 0 {
		b.sendText(chatID, "Nothing to chart for "+monthTitle(d.Month)+" yet.")
	}
}

func (b *Bot) handleSummary(ctx context.Context, st *chatState, chatID int64, _ string) {
	report, err := b.tracker.Report(ctx, st.dashboard)
	if err != nil {
		b.sendErrorMessage(chatID, userMessage(err))
		return
	}
	b.sendText(chatID, renderReport(report))

	png, err := b.charts.MonthComparison(report)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to render chart", "chart", "comparison", "error", err)
		return
	}
	if png != nil {
		b.sendPhoto(chatID, "summary.png", png)
	}
}

// applyResult сохраняет новый дашборд и сообщает пользователю результат.
// При ошибке трекер возвращает прежний дашборд, поэтому он сохраняется всегда.
func (b *Bot) applyResult(chatID int64, st *chatState, d service.Dashboard, err error, success string) {
	st.dashboard = d

	var materialize *service.MaterializeError
	partial := errors.As(err, &materialize) && !materialize.Aborted && d.Loaded
	if err != nil {
		b.logger.Warn("dashboard action failed", "chat_id", chatID, "error", err)
		b.sendErrorMessage(chatID, userMessage(err))
		if !partial {
			return
		}
	} else if success != "" {
		b.sendSuccess(chatID, success)
	}

	if !d.Loaded {
		return
	}
	msg := tgbotapi.NewMessage(chatID, renderDashboard(d))
	msg.ReplyMarkup = b.getMonthKeyboard(d.Month)
	b.send(msg)
}

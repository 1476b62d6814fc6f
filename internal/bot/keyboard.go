package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/finance_tracker/internal/model"
)

// Кнопки основной клавиатуры.
const (
	buttonDashboard = "📊 Dashboard"
	buttonCharts    = "📈 Charts"
	buttonSummary   = "🧾 Summary"
	buttonHelp      = "❓ Help"
)

// Префиксы данных inline-кнопок.
const (
	callbackMonth   = "month:"
	callbackConfirm = "yes:"
	callbackCancel  = "no"

	actionTransaction = "tx:"
	actionClear       = "clear"
	actionBudget      = "budget:"
	actionRule        = "rule:"
)

func (b *Bot) getMainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonDashboard),
			tgbotapi.NewKeyboardButton(buttonCharts),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonSummary),
			tgbotapi.NewKeyboardButton(buttonHelp),
		),
	)
}

// getMonthKeyboard - переход к соседним месяцам
func (b *Bot) getMonthKeyboard(m model.Month) tgbotapi.InlineKeyboardMarkup {
	prev, next := m.Prev(), m.Next()
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀ "+monthTitle(prev), callbackMonth+prev.String()),
			tgbotapi.NewInlineKeyboardButtonData(monthTitle(next)+" ▶", callbackMonth+next.String()),
		),
	)
}

// getConfirmKeyboard запрашивает подтверждение удаления
func (b *Bot) getConfirmKeyboard(action string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", callbackConfirm+action),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", callbackCancel),
		),
	)
}

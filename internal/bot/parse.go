package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/finance_tracker/internal/model"
	"github.com/ivanoskov/finance_tracker/internal/service"
)

// Подсказки по формату команд.
const (
	usageLogin    = "/login <email> <password>"
	usageRegister = "/register <email> <password> <confirm password>"
	usageAdd      = "/add <income|expense> <amount> <category> [YYYY-MM-DD] [description]"
	usageBudget   = "/budget <category> <amount>"
	usageUnbudget = "/unbudget <category>"
	usageRule     = "/rule <day 1-28> <income|expense> <amount> <category> <name>"
	usageMonth    = "/month [YYYY-MM]"
)

// usageError - команда вызвана с неверными аргументами
type usageError struct {
	usage string
	err   error
}

func (e *usageError) Error() string {
	if e.err != nil {
		return e.err.Error() + "\nUsage: " + e.usage
	}
	return "Usage: " + e.usage
}

func (e *usageError) Unwrap() error {
	return e.err
}

func usage(u string) error {
	return &usageError{usage: u}
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	// запятая как десятичный разделитель
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount must be a number: %q", s)
	}
	return amount, nil
}

// parseCredentials разбирает "<email> <password> [confirm]"
func parseCredentials(args string, withConfirm bool) (email, password, confirm string, err error) {
	fields := strings.Fields(args)
	want, u := 2, usageLogin
	if withConfirm {
		want, u = 3, usageRegister
	}
	if len(fields) != want {
		return "", "", "", usage(u)
	}
	email, password = fields[0], fields[1]
	if withConfirm {
		confirm = fields[2]
	}
	return email, password, confirm, nil
}

// parseTransaction разбирает аргументы /add. Дата по умолчанию - today.
func parseTransaction(args string, today model.Date) (service.TransactionInput, error) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return service.TransactionInput{}, usage(usageAdd)
	}

	kind, err := model.ParseKind(fields[0])
	if err != nil {
		return service.TransactionInput{}, &usageError{usage: usageAdd, err: err}
	}
	amount, err := parseAmount(fields[1])
	if err != nil {
		return service.TransactionInput{}, &usageError{usage: usageAdd, err: err}
	}

	in := service.TransactionInput{
		Kind:     kind,
		Amount:   amount,
		Category: fields[2],
		Date:     today,
	}
	rest := fields[3:]
	if len(rest) > 0 {
		if date, err := model.ParseDate(rest[0]); err == nil && len(rest[0]) == len(model.DateLayout) {
			in.Date = date
			rest = rest[1:]
		}
	}
	in.Description = strings.Join(rest, " ")
	return in, nil
}

// parseBudget разбирает "<category...> <amount>": категория может состоять из нескольких слов
func parseBudget(args string) (string, decimal.Decimal, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", decimal.Zero, usage(usageBudget)
	}
	amount, err := parseAmount(fields[len(fields)-1])
	if err != nil {
		return "", decimal.Zero, &usageError{usage: usageBudget, err: err}
	}
	return strings.Join(fields[:len(fields)-1], " "), amount, nil
}

func parseRule(args string) (service.RuleInput, error) {
	fields := strings.Fields(args)
	if len(fields) < 5 {
		return service.RuleInput{}, usage(usageRule)
	}
	day, err := strconv.Atoi(fields[0])
	if err != nil {
		return service.RuleInput{}, &usageError{usage: usageRule, err: model.ErrInvalidDay}
	}
	kind, err := model.ParseKind(fields[1])
	if err != nil {
		return service.RuleInput{}, &usageError{usage: usageRule, err: err}
	}
	amount, err := parseAmount(fields[2])
	if err != nil {
		return service.RuleInput{}, &usageError{usage: usageRule, err: err}
	}
	return service.RuleInput{
		Name:     strings.Join(fields[4:], " "),
		Kind:     kind,
		Amount:   amount,
		Category: fields[3],
		Day:      day,
	}, nil
}

// parseIndex разбирает номер строки списка (с 1) и возвращает индекс (с 0)
func parseIndex(args string, n int, u string) (int, error) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return 0, usage(u)
	}
	i, err := strconv.Atoi(strings.TrimPrefix(fields[0], "#"))
	if err != nil || i < 1 || i > n {
		if n == 0 {
			return 0, fmt.Errorf("the list is empty")
		}
		return 0, fmt.Errorf("pick a number from 1 to %d", n)
	}
	return i - 1, nil
}

// parseMonthArg возвращает месяц из аргумента или текущий, если аргумента нет
func parseMonthArg(args string, current model.Month) (model.Month, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return current, nil
	}
	m, err := model.ParseMonth(args)
	if err != nil {
		return model.Month{}, &usageError{usage: usageMonth, err: err}
	}
	return m, nil
}

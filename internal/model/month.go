package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Границы дня месяца для повторяющихся правил: дни 29-31 есть не в каждом месяце.
const (
	MinRuleDay = 1
	MaxRuleDay = 28
)

// Month - календарный месяц в формате "YYYY-MM".
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth разбирает "YYYY-MM": год из четырех цифр, месяц 1-12.
func ParseMonth(s string) (Month, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) == 0 || len(parts[1]) > 2 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	mon, err := strconv.Atoi(parts[1])
	if err != nil || mon < 1 || mon > 12 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: year, Month: time.Month(mon)}, nil
}

// CurrentMonth возвращает месяц, в который попадает now.
func CurrentMonth(now time.Time) Month {
	return Month{Year: now.Year(), Month: now.Month()}
}

// MonthOf возвращает месяц даты.
func MonthOf(d Date) Month {
	return Month{Year: d.Year(), Month: d.Time.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Range возвращает полуинтервал [start, end): первое число месяца и первое число следующего.
func (m Month) Range() (start, end Date) {
	start = NewDate(m.Year, m.Month, 1)
	endYear, endMonth := m.Year, m.Month+1
	if m.Month == time.December {
		endYear, endMonth = m.Year+1, time.January
	}
	end = NewDate(endYear, endMonth, 1)
	return start, end
}

// Contains сообщает, попадает ли дата в месяц.
func (m Month) Contains(d Date) bool {
	start, end := m.Range()
	return !d.Before(start) && d.Before(end)
}

// DateOn возвращает дату месяца с днем, зажатым в [MinRuleDay, MaxRuleDay].
func (m Month) DateOn(day int) Date {
	return NewDate(m.Year, m.Month, ClampDay(day))
}

// Next возвращает следующий месяц.
func (m Month) Next() Month {
	_, end := m.Range()
	return MonthOf(end)
}

// Prev возвращает предыдущий месяц.
func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

// ClampDay зажимает день в [MinRuleDay, MaxRuleDay].
func ClampDay(day int) int {
	return min(MaxRuleDay, max(MinRuleDay, day))
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(data []byte) error {
	parsed, err := ParseMonth(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

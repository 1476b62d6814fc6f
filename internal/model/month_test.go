package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMonthRange(t *testing.T) {
	tests := []struct {
		month     string
		wantStart string
		wantEnd   string
	}{
		{"2024-01", "2024-01-01", "2024-02-01"},
		{"2024-02", "2024-02-01", "2024-03-01"},
		{"2024-03", "2024-03-01", "2024-04-01"},
		{"2024-04", "2024-04-01", "2024-05-01"},
		{"2024-05", "2024-05-01", "2024-06-01"},
		{"2024-06", "2024-06-01", "2024-07-01"},
		{"2024-07", "2024-07-01", "2024-08-01"},
		{"2024-08", "2024-08-01", "2024-09-01"},
		{"2024-09", "2024-09-01", "2024-10-01"},
		{"2024-10", "2024-10-01", "2024-11-01"},
		{"2024-11", "2024-11-01", "2024-12-01"},
		{"2024-12", "2024-12-01", "2025-01-01"},
		{"1999-12", "1999-12-01", "2000-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.month, func(t *testing.T) {
			m, err := ParseMonth(tt.month)
			if err != nil {
				t.Fatalf("ParseMonth(%q) error: %v", tt.month, err)
			}
			start, end := m.Range()
			if start.String() != tt.wantStart || end.String() != tt.wantEnd {
				t.Errorf("Range() = [%s, %s), want [%s, %s)", start, end, tt.wantStart, tt.wantEnd)
			}
			if m.String() != tt.month {
				t.Errorf("String() = %q, want %q", m.String(), tt.month)
			}
		})
	}
}

func TestParseMonthRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "2024", "24-01", "2024-00", "2024-13", "2024-1a", "2024-01-01", "abcd-01", "2024-123"} {
		if _, err := ParseMonth(in); !errors.Is(err, ErrInvalidMonth) {
			t.Errorf("ParseMonth(%q) error = %v, want ErrInvalidMonth", in, err)
		}
	}
}

func TestParseMonthSingleDigit(t *testing.T) {
	m, err := ParseMonth("2025-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.String() != "2025-03" {
		t.Errorf("String() = %q, want 2025-03", m.String())
	}
}

func TestMonthDateOnClamps(t *testing.T) {
	m := Month{Year: 2025, Month: time.February}
	tests := []struct {
		day  int
		want string
	}{
		{1, "2025-02-01"},
		{15, "2025-02-15"},
		{28, "2025-02-28"},
		{31, "2025-02-28"},
		{0, "2025-02-01"},
		{-4, "2025-02-01"},
	}
	for _, tt := range tests {
		if got := m.DateOn(tt.day).String(); got != tt.want {
			t.Errorf("DateOn(%d) = %s, want %s", tt.day, got, tt.want)
		}
	}
}

func TestMonthNavigation(t *testing.T) {
	dec := Month{Year: 2024, Month: time.December}
	if got := dec.Next().String(); got != "2025-01" {
		t.Errorf("Next() = %s, want 2025-01", got)
	}
	jan := Month{Year: 2025, Month: time.January}
	if got := jan.Prev().String(); got != "2024-12" {
		t.Errorf("Prev() = %s, want 2024-12", got)
	}
	if !dec.Contains(NewDate(2024, 12, 31)) {
		t.Error("December should contain the 31st")
	}
	if dec.Contains(NewDate(2025, 1, 1)) {
		t.Error("December should not contain January 1st")
	}
}

func TestCurrentMonth(t *testing.T) {
	now := time.Date(2026, 10, 16, 23, 59, 0, 0, time.UTC)
	if got := CurrentMonth(now).String(); got != "2026-10" {
		t.Errorf("CurrentMonth() = %s, want 2026-10", got)
	}
}

func TestMonthJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Month Month `json:"month"`
	}{Month{Year: 2025, Month: time.March}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"month":"2025-03"}` {
		t.Errorf("marshal = %s", data)
	}

	var out struct {
		Month Month `json:"month"`
	}
	if err := json.Unmarshal([]byte(`{"month":"2024-12"}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Month != (Month{Year: 2024, Month: time.December}) {
		t.Errorf("unmarshal = %+v", out.Month)
	}
}

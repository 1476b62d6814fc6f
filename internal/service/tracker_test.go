package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ivanoskov/finance_tracker/internal/events"
	"github.com/ivanoskov/finance_tracker/internal/model"
	"github.com/ivanoskov/finance_tracker/internal/repository"
)

type trackerFixture struct {
	store   *memoryStore
	events  *recorder
	tracker *Tracker
	owner   uuid.UUID
}

func newTrackerFixture(policy CheckPolicy) *trackerFixture {
	store := newMemoryStore()
	rec := &recorder{}
	return &trackerFixture{
		store:   store,
		events:  rec,
		tracker: NewTracker(store, NewMaterializer(store, rec, policy, nil), rec, nil),
		owner:   uuid.New(),
	}
}

func (f *trackerFixture) load(t *testing.T, month string) Dashboard {
	t.Helper()
	d, err := f.tracker.Load(context.Background(), f.owner, mustMonth(t, month))
	if err != nil {
		t.Fatalf("Load(%s): %v", month, err)
	}
	return d
}

func expense(amount int64, category string, date model.Date) TransactionInput {
	return TransactionInput{Kind: model.KindExpense, Amount: decimal.NewFromInt(amount), Category: category, Date: date}
}

func TestTrackerRentScenario(t *testing.T) {
	f := newTrackerFixture(CheckReport)
	ctx := context.Background()
	d := f.load(t, "2025-02")

	d, err := f.tracker.CreateRule(ctx, d, RuleInput{
		Name: "Rent", Kind: model.KindExpense, Amount: decimal.NewFromInt(1200), Category: "Housing", Day: 1,
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	d, err = f.tracker.Reload(ctx, d, mustMonth(t, "2025-03"))
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if len(d.Transactions) != 1 {
		t.Fatalf("march has %d transactions, want 1", len(d.Transactions))
	}
	got := d.Transactions[0]
	if got.Date.String() != "2025-03-01" || got.Category != "Housing" || !got.Amount.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("transaction = %+v", got)
	}
	if got.RecurringID == nil || *got.RecurringID != d.Rules[0].ID {
		t.Errorf("transaction is not linked to the rule")
	}
	if !d.Totals.Expenses.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("expenses = %s", d.Totals.Expenses)
	}

	d, err = f.tracker.Reload(ctx, d, d.Month)
	if err != nil {
		t.Fatalf("second Reload: %v", err)
	}
	if len(d.Transactions) != 1 || len(d.Materialized.Created) != 0 {
		t.Errorf("second reload: %d transactions, %d created", len(d.Transactions), len(d.Materialized.Created))
	}
}

func TestTrackerReloadKeepsPreviousOnFetchError(t *testing.T) {
	f := newTrackerFixture(CheckReport)
	ctx := context.Background()
	d := f.load(t, "2025-03")
	d, err := f.tracker.SaveTransaction(ctx, d, expense(50, "Food", model.NewDate(2025, 3, 5)))
	if err != nil {
		t.Fatalf("SaveTransaction: %v", err)
	}

	f.store.listBudgets = errStoreDown
	next, err := f.tracker.Reload(ctx, d, mustMonth(t, "2025-04"))
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("err = %v, want store failure", err)
	}
	if next.Month != d.Month || len(next.Transactions) != 1 {
		t.Errorf("dashboard changed after failed reload: %+v", next)
	}

	f.store.listBudgets = nil
	f.store.listTxErr = errStoreDown
	if _, err := f.tracker.Reload(ctx, d, d.Month); !errors.Is(err, errStoreDown) {
		t.Errorf("err = %v, want transactions failure", err)
	}
}

func TestTrackerReloadReportsMaterializeErrors(t *testing.T) {
	f := newTrackerFixture(CheckReport)
	ctx := context.Background()
	d := f.load(t, "2025-03")
	d, err := f.tracker.CreateRule(ctx, d, RuleInput{
		Name: "Gym", Kind: model.KindExpense, Amount: decimal.NewFromInt(30), Category: "Health", Day: 3,
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	d, err = f.tracker.SaveTransaction(ctx, d, expense(10, "Food", model.NewDate(2025, 4, 2)))
	if err != nil {
		t.Fatalf("SaveTransaction: %v", err)
	}

	f.store.existsErr = func(string) error { return errStoreDown }
	next, err := f.tracker.Reload(ctx, d, mustMonth(t, "2025-04"))
	var merr *MaterializeError
	if !errors.As(err, &merr) {
		t.Fatalf("err = %v, want *MaterializeError", err)
	}
	if next.Month.String() != "2025-04" || !next.Loaded || len(next.Transactions) != 1 {
		t.Errorf("fresh data was discarded: %+v", next)
	}
	if len(next.Materialized.Skipped) != 1 {
		t.Errorf("skipped = %d, want 1", len(next.Materialized.Skipped))
	}
}

func TestTrackerReloadAbortKeepsPrevious(t *testing.T) {
	f := newTrackerFixture(CheckAbort)
	ctx := context.Background()
	d := f.load(t, "2025-03")
	d, err := f.tracker.CreateRule(ctx, d, RuleInput{
		Name: "Gym", Kind: model.KindExpense, Amount: decimal.NewFromInt(30), Category: "Health", Day: 3,
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	f.store.existsErr = func(string) error { return errStoreDown }
	next, err := f.tracker.Reload(ctx, d, mustMonth(t, "2025-04"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if next.Month != d.Month {
		t.Errorf("month = %s, want %s", next.Month, d.Month)
	}
}

func TestTrackerEditState(t *testing.T) {
	f := newTrackerFixture(CheckReport)
	ctx := context.Background()
	d := f.load(t, "2025-03")

	d, err := f.tracker.SaveTransaction(ctx, d, expense(50, "Food", model.NewDate(2025, 3, 5)))
	if err != nil {
		t.Fatalf("SaveTransaction: %v", err)
	}
	if d.Edit.IsEditing() {
		t.Fatal("create must leave the form idle")
	}
	id := d.Transactions[0].ID

	if _, err := f.tracker.BeginEdit(d, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("BeginEdit(missing) err = %v", err)
	}

	d, err = f.tracker.BeginEdit(d, id)
	if err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	if d.Edit != Editing(id) {
		t.Fatalf("edit = %+v", d.Edit)
	}
	if got := f.tracker.CancelEdit(d); got.Edit.IsEditing() {
		t.Error("CancelEdit must return to idle")
	}

	d, err = f.tracker.SaveTransaction(ctx, d, expense(75, "Groceries", model.NewDate(2025, 3, 6)))
	if err != nil {
		t.Fatalf("SaveTransaction (update): %v", err)
	}
	if d.Edit.IsEditing() {
		t.Error("update must return to idle")
	}
	if len(d.Transactions) != 1 || d.Transactions[0].ID != id || d.Transactions[0].Category != "Groceries" {
		t.Errorf("transactions after update = %+v", d.Transactions)
	}

	d, _ = f.tracker.BeginEdit(d, id)
	d, err = f.tracker.DeleteTransaction(ctx, d, id)
	if err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if d.Edit.IsEditing() || len(d.Transactions) != 0 {
		t.Errorf("after delete: edit=%+v transactions=%d", d.Edit, len(d.Transactions))
	}

	want := []events.Type{events.TransactionCreated, events.TransactionUpdated, events.TransactionDeleted}
	if got := f.events.types(); len(got) != len(want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestTrackerMonthChangeResetsEdit(t *testing.T) {
	f := newTrackerFixture(CheckReport)
	ctx := context.Background()
	d := f.load(t, "2025-03")
	d, _ = f.tracker.SaveTransaction(ctx, d, expense(50, "Food", model.NewDate(2025, 3, 5)))
	d, err := f.tracker.BeginEdit(d, d.Transactions[0].ID)
	if err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}

	same, err := f.tracker.Reload(ctx, d, d.Month)
	if err != nil || !same.Edit.IsEditing() {
		t.Errorf("reload of the same month must keep editing: %+v, %v", same.Edit, err)
	}

	next, err := f.tracker.Reload(ctx, d, d.Month.Next())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if next.Edit.IsEditing() {
		t.Error("month change must return to idle")
	}
}

func TestTrackerClearTransactions(t *testing.T) {
	f := newTrackerFixture(CheckReport)
	ctx := context.Background()
	d := f.load(t, "2025-03")
	d, _ = f.tracker.SaveTransaction(ctx, d, expense(50, "Food", model.NewDate(2025, 3, 5)))
	d, _ = f.tracker.SaveTransaction(ctx, d, expense(20, "Food", model.NewDate(2025, 1, 5)))
	d, _ = f.tracker.BeginEdit(d, d.Transactions[0].ID)

	d, err := f.tracker.ClearTransactions(ctx, d)
	if err != nil {
		t.Fatalf("ClearTransactions: %v", err)
	}
	if f.store.count() != 0 || d.Edit.IsEditing() {
		t.Errorf("after clear: %d stored, edit=%+v", f.store.count(), d.Edit)
	}
}

func TestTrackerSaveBudgetReplaces(t *testing.T) {
	f := newTrackerFixture(CheckReport)
	ctx := context.Background()
	d := f.load(t, "2025-03")

	d, err := f.tracker.SaveBudget(ctx, d, "Food", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("SaveBudget: %v", err)
	}
	d, err = f.tracker.SaveBudget(ctx, d, " Food ", decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("SaveBudget: %v", err)
	}
	if len(d.Budgets) != 1 || !d.Budgets[0].MonthlyAmount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("budgets = %+v, want one Food budget of 200", d.Budgets)
	}

	d, err = f.tracker.SaveTransaction(ctx, d, expense(250, "Food", model.NewDate(2025, 3, 9)))
	if err != nil {
		t.Fatalf("SaveTransaction: %v", err)
	}
	if len(d.Overages) != 1 || !d.Overages[0].Over.Equal(decimal.NewFromInt(50)) {
		t.Errorf("overages = %+v", d.Overages)
	}

	d, err = f.tracker.DeleteBudget(ctx, d, d.Budgets[0].ID)
	if err != nil || len(d.Budgets) != 0 {
		t.Errorf("DeleteBudget: %v, budgets=%d", err, len(d.Budgets))
	}
}

func TestTrackerValidatesBeforeStore(t *testing.T) {
	f := newTrackerFixture(CheckReport)
	ctx := context.Background()
	d := f.load(t, "2025-03")

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"zero amount", func() error {
			_, err := f.tracker.SaveTransaction(ctx, d, expense(0, "Food", model.NewDate(2025, 3, 1)))
			return err
		}, model.ErrInvalidAmount},
		{"blank category", func() error {
			_, err := f.tracker.SaveTransaction(ctx, d, expense(5, "  ", model.NewDate(2025, 3, 1)))
			return err
		}, model.ErrEmptyCategory},
		{"bad kind", func() error {
			_, err := f.tracker.SaveTransaction(ctx, d, TransactionInput{Kind: "gift", Amount: decimal.NewFromInt(1), Category: "x", Date: model.NewDate(2025, 3, 1)})
			return err
		}, model.ErrInvalidKind},
		{"negative budget", func() error {
			_, err := f.tracker.SaveBudget(ctx, d, "Food", decimal.NewFromInt(-5))
			return err
		}, model.ErrInvalidAmount},
		{"rule day", func() error {
			_, err := f.tracker.CreateRule(ctx, d, RuleInput{Name: "x", Kind: model.KindIncome, Amount: decimal.NewFromInt(1), Category: "x", Day: 29})
			return err
		}, model.ErrInvalidDay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if f.store.createCalls != 0 || len(f.store.budgets) != 0 || len(f.store.rules) != 0 {
		t.Error("invalid input reached the store")
	}
}

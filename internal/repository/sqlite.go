package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ivanoskov/finance_tracker/internal/model"
)

// SQLiteRepository - локальное хранилище для разработки и самостоятельного запуска.
type SQLiteRepository struct {
	db      *sql.DB
	timeout time.Duration
	logger  *slog.Logger
}

// SQLiteDSN добавляет к пути файла нужные прагмы.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(path string, timeout time.Duration, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := SQLiteDSN(path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunSQLiteMigrations(dsn); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db, timeout: timeout, logger: logger}, nil
}

// DB отдает соединение для локальной аутентификации, которая живет в той же базе.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// classifySQLiteError переводит нарушение уникальности в ErrConflict.
func classifySQLiteError(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}

const transactionColumns = `id, user_id, type, amount, category, date, description, recurring_id, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (model.Transaction, error) {
	var (
		tx          model.Transaction
		recurringID sql.NullString
		createdAt   sql.NullString
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Kind, &tx.Amount, &tx.Category, &tx.Date, &tx.Description, &recurringID, &createdAt)
	if err != nil {
		return tx, err
	}
	if recurringID.Valid {
		id := recurringID.String
		tx.RecurringID = &id
	}
	tx.CreatedAt = parseTimestamp(createdAt)
	return tx, nil
}

func parseTimestamp(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, value.String)
	if err != nil {
		return nil
	}
	return &t
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID uuid.UUID, filter model.TransactionFilter) ([]model.Transaction, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{userID}
	if filter.Start != nil {
		query += ` AND date >= ?`
		args = append(args, filter.Start.String())
	}
	if filter.End != nil {
		query += ` AND date < ?`
		args = append(args, filter.End.String())
	}
	query += ` ORDER BY date DESC, created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return transactions, nil
}

func (r *SQLiteRepository) ExistsForRule(ctx context.Context, userID uuid.UUID, ruleID string, start, end model.Date) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE user_id = ? AND recurring_id = ? AND date >= ? AND date < ?)`,
		userID, ruleID, start.String(), end.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check transactions of rule %s: %w", ruleID, err)
	}
	return exists, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, transaction *model.Transaction) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	transaction.GenerateID()
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO transactions (id, user_id, type, amount, category, date, description, recurring_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING created_at`,
		transaction.ID, transaction.UserID, transaction.Kind, transaction.Amount, transaction.Category,
		transaction.Date.String(), transaction.Description, transaction.RecurringID,
	)
	var createdAt sql.NullString
	if err := row.Scan(&createdAt); err != nil {
		return fmt.Errorf("failed to create transaction: %w", classifySQLiteError(err))
	}
	transaction.CreatedAt = parseTimestamp(createdAt)
	return nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, transaction *model.Transaction) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET type = ?, amount = ?, category = ?, date = ?, description = ?
		 WHERE id = ? AND user_id = ?`,
		transaction.Kind, transaction.Amount, transaction.Category, transaction.Date.String(), transaction.Description,
		transaction.ID, transaction.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", transaction.ID, classifySQLiteError(err))
	}
	return expectAffected(res, "transaction", transaction.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string, userID uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	return expectAffected(res, "transaction", id)
}

func (r *SQLiteRepository) DeleteAllTransactions(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	n, _ := res.RowsAffected()
	r.logger.InfoContext(ctx, "transactions cleared", "user_id", userID, "count", n)
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID uuid.UUID) ([]model.Budget, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, category, monthly_amount FROM budgets WHERE user_id = ? ORDER BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get budgets: %w", err)
	}
	defer rows.Close()

	var budgets []model.Budget
	for rows.Next() {
		var b model.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &b.MonthlyAmount); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get budgets: %w", err)
	}
	return budgets, nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, budget *model.Budget) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO budgets (id, user_id, category, monthly_amount) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, category) DO UPDATE SET monthly_amount = excluded.monthly_amount
		 RETURNING id`,
		uuid.NewString(), budget.UserID, budget.Category, budget.MonthlyAmount,
	).Scan(&budget.ID)
	if err != nil {
		return fmt.Errorf("failed to save budget for %s: %w", budget.Category, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string, userID uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete budget %s: %w", id, err)
	}
	return expectAffected(res, "budget", id)
}

func (r *SQLiteRepository) ListRules(ctx context.Context, userID uuid.UUID) ([]model.RecurringRule, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, amount, category, day, frequency, created_at
		 FROM recurring_rules WHERE user_id = ? ORDER BY day, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring rules: %w", err)
	}
	defer rows.Close()

	var rules []model.RecurringRule
	for rows.Next() {
		var (
			rule      model.RecurringRule
			createdAt sql.NullString
		)
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.Name, &rule.Kind, &rule.Amount,
			&rule.Category, &rule.Day, &rule.Frequency, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan recurring rule: %w", err)
		}
		rule.CreatedAt = parseTimestamp(createdAt)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get recurring rules: %w", err)
	}
	return rules, nil
}

func (r *SQLiteRepository) CreateRule(ctx context.Context, rule *model.RecurringRule) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.Frequency == "" {
		rule.Frequency = model.FrequencyMonthly
	}

	var createdAt sql.NullString
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO recurring_rules (id, user_id, name, type, amount, category, day, frequency)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING created_at`,
		rule.ID, rule.UserID, rule.Name, rule.Kind, rule.Amount, rule.Category, rule.Day, rule.Frequency,
	).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("failed to create recurring rule: %w", classifySQLiteError(err))
	}
	rule.CreatedAt = parseTimestamp(createdAt)
	return nil
}

func (r *SQLiteRepository) DeleteRule(ctx context.Context, id string, userID uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_rules WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete recurring rule %s: %w", id, err)
	}
	return expectAffected(res, "recurring rule", id)
}

func expectAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return nil
}

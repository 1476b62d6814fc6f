package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ivanoskov/finance_tracker/internal/model"
)

const minPasswordLength = 6

// LocalAuth - аутентификация по email и паролю без внешнего сервиса.
// Пользователи и сессии хранятся в той же базе SQLite; ошибки повторяют коды GoTrue.
type LocalAuth struct {
	db      *sql.DB
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

func NewLocalAuth(db *sql.DB, ttl, timeout time.Duration) *LocalAuth {
	return &LocalAuth{db: db, ttl: ttl, timeout: timeout, now: time.Now}
}

func (a *LocalAuth) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *LocalAuth) SignUp(ctx context.Context, email, password string) (*SignupResult, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < minPasswordLength {
		return nil, &AuthFailure{Status: 422, Code: CodeWeakPassword,
			Message: fmt.Sprintf("Password should be at least %d characters.", minPasswordLength)}
	}

	var existing string
	err := a.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&existing)
	switch {
	case err == nil:
		// Как и GoTrue, не раскрываем ошибкой, что адрес занят
		id, _ := uuid.Parse(existing)
		return &SignupResult{UserID: id, Email: email, Created: false}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.New()
	_, err = a.db.ExecContext(ctx, `INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)`, id, email, string(hash))
	if err != nil {
		if errors.Is(classifySQLiteError(err), ErrConflict) {
			return &SignupResult{Email: email, Created: false}, nil
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &SignupResult{UserID: id, Email: email, Created: true}, nil
}

func (a *LocalAuth) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	email = strings.ToLower(strings.TrimSpace(email))
	var (
		id   uuid.UUID
		hash string
	)
	err := a.db.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email = ?`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, invalidCredentials()
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	expires := a.now().Add(a.ttl).UTC()
	_, err = a.db.ExecContext(ctx, `INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, id, expires.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &model.Session{
		UserID:      id,
		Email:       email,
		AccessToken: token,
		ExpiresAt:   expires,
	}, nil
}

func (a *LocalAuth) SignOut(ctx context.Context, accessToken string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if _, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, accessToken); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (a *LocalAuth) User(ctx context.Context, accessToken string) (*model.Session, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var (
		session model.Session
		expires string
	)
	err := a.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, s.expires_at FROM sessions s JOIN users u ON u.id = s.user_id WHERE s.token = ?`,
		accessToken,
	).Scan(&session.UserID, &session.Email, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	session.ExpiresAt, err = time.Parse(time.RFC3339, expires)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session expiry: %w", err)
	}
	if session.Expired(a.now()) {
		return nil, ErrUnauthorized
	}
	session.AccessToken = accessToken
	return &session, nil
}

// PurgeExpiredSessions удаляет просроченные сессии и возвращает их количество.
func (a *LocalAuth) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, a.now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return res.RowsAffected()
}

func invalidCredentials() error {
	return &AuthFailure{Status: 400, Code: CodeInvalidCredentials, Message: "Invalid login credentials"}
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Session - аутентифицированный пользователь и его токены.
type Session struct {
	UserID       uuid.UUID
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired сообщает, истек ли срок действия токена доступа.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

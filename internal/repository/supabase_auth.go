package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"

	"github.com/ivanoskov/finance_tracker/internal/model"
)

// SupabaseAuth - аутентификация через Supabase Auth (GoTrue).
type SupabaseAuth struct {
	client  gotrue.Client
	timeout time.Duration
}

func NewSupabaseAuth(client gotrue.Client, timeout time.Duration) *SupabaseAuth {
	return &SupabaseAuth{client: client, timeout: timeout}
}

func (a *SupabaseAuth) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	resp, err := await(ctx, a.timeout, func() (*types.TokenResponse, error) {
		return a.client.SignInWithEmailPassword(email, password)
	})
	if err != nil {
		return nil, authError(err)
	}
	session := sessionFromGoTrue(resp.Session)
	return &session, nil
}

func (a *SupabaseAuth) SignUp(ctx context.Context, email, password string) (*SignupResult, error) {
	resp, err := await(ctx, a.timeout, func() (*types.SignupResponse, error) {
		return a.client.Signup(types.SignupRequest{Email: email, Password: password})
	})
	if err != nil {
		return nil, authError(err)
	}

	// При автоподтверждении пользователь приходит внутри сессии
	user := resp.User
	if user.ID == uuid.Nil {
		user = resp.Session.User
	}

	result := &SignupResult{
		UserID: user.ID,
		Email:  user.Email,
		// Для уже зарегистрированного адреса GoTrue отвечает успехом, но без identities
		Created: len(user.Identities) > 0,
	}
	if resp.Session.AccessToken != "" {
		session := sessionFromGoTrue(resp.Session)
		result.Session = &session
	}
	return result, nil
}

func (a *SupabaseAuth) SignOut(ctx context.Context, accessToken string) error {
	_, err := await(ctx, a.timeout, func() (struct{}, error) {
		return struct{}{}, a.client.WithToken(accessToken).Logout()
	})
	if err != nil {
		return authError(err)
	}
	return nil
}

func (a *SupabaseAuth) User(ctx context.Context, accessToken string) (*model.Session, error) {
	resp, err := await(ctx, a.timeout, func() (*types.UserResponse, error) {
		return a.client.WithToken(accessToken).GetUser()
	})
	if err != nil {
		failure := authError(err)
		var af *AuthFailure
		if errors.As(failure, &af) && (af.Status == 401 || af.Status == 403) {
			return nil, ErrUnauthorized
		}
		return nil, failure
	}
	return &model.Session{
		UserID:      resp.ID,
		Email:       resp.Email,
		AccessToken: accessToken,
	}, nil
}

// authError оборачивает ошибку GoTrue в AuthFailure; таймауты и отмена остаются как есть.
func authError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return parseGoTrueError(err)
}

func sessionFromGoTrue(s types.Session) model.Session {
	session := model.Session{
		UserID:       s.User.ID,
		Email:        s.User.Email,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
	if s.ExpiresAt > 0 {
		session.ExpiresAt = time.Unix(s.ExpiresAt, 0)
	} else if s.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return session
}

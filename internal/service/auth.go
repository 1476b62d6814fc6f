package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ivanoskov/finance_tracker/internal/model"
	"github.com/ivanoskov/finance_tracker/internal/repository"
)

// AuthErrorKind - категория ошибки аутентификации.
type AuthErrorKind int

const (
	AuthUnknown AuthErrorKind = iota
	AuthInvalidCredentials
	AuthEmailNotConfirmed
	AuthAlreadyRegistered
	AuthWeakPassword
	AuthInvalidEmail
	AuthValidation
)

// Сообщения для пользователя.
const (
	MsgInvalidCredentials = "Incorrect email or password."
	MsgEmailNotConfirmed  = "Please confirm your email first."
	MsgAlreadyRegistered  = "Account already exists. Try logging in."
	MsgWeakPassword       = "Password must be at least 6 characters."
	MsgInvalidEmail       = "Please enter a valid email address."
	MsgPasswordMismatch   = "Passwords do not match."
	MsgMissingCredentials = "Please enter email and password."
	MsgAuthFailed         = "Authentication failed."
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthError - ошибка аутентификации с готовым сообщением для пользователя.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func validationError(kind AuthErrorKind, msg string) *AuthError {
	return &AuthError{Kind: kind, Message: msg}
}

// ClassifyAuthError сопоставляет ошибку сервиса аутентификации с категорией:
// сначала по коду ошибки, затем по тексту, иначе возвращает исходное сообщение.
func ClassifyAuthError(err error) *AuthError {
	if err == nil {
		return nil
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}

	message := err.Error()
	var failure *repository.AuthFailure
	if errors.As(err, &failure) {
		switch failure.Code {
		case repository.CodeInvalidCredentials:
			return &AuthError{Kind: AuthInvalidCredentials, Message: MsgInvalidCredentials, Err: err}
		case repository.CodeEmailNotConfirmed:
			return &AuthError{Kind: AuthEmailNotConfirmed, Message: MsgEmailNotConfirmed, Err: err}
		case repository.CodeUserAlreadyExists, repository.CodeEmailExists:
			return &AuthError{Kind: AuthAlreadyRegistered, Message: MsgAlreadyRegistered, Err: err}
		case repository.CodeWeakPassword:
			return &AuthError{Kind: AuthWeakPassword, Message: MsgWeakPassword, Err: err}
		case repository.CodeEmailInvalid:
			return &AuthError{Kind: AuthInvalidEmail, Message: MsgInvalidEmail, Err: err}
		}
		message = failure.Message
	}

	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "invalid login"):
		return &AuthError{Kind: AuthInvalidCredentials, Message: MsgInvalidCredentials, Err: err}
	case strings.Contains(m, "email not confirmed"):
		return &AuthError{Kind: AuthEmailNotConfirmed, Message: MsgEmailNotConfirmed, Err: err}
	case strings.Contains(m, "already registered"):
		return &AuthError{Kind: AuthAlreadyRegistered, Message: MsgAlreadyRegistered, Err: err}
	case strings.Contains(m, "password"):
		return &AuthError{Kind: AuthWeakPassword, Message: MsgWeakPassword, Err: err}
	case strings.Contains(m, "invalid email"):
		return &AuthError{Kind: AuthInvalidEmail, Message: MsgInvalidEmail, Err: err}
	}

	if message == "" {
		message = MsgAuthFailed
	}
	return &AuthError{Kind: AuthUnknown, Message: message, Err: err}
}

// AuthService проверяет ввод до обращения к сервису аутентификации.
type AuthService struct {
	auth   repository.Auth
	logger *slog.Logger
}

func NewAuthService(auth repository.Auth, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{auth: auth, logger: logger}
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, validationError(AuthValidation, MsgMissingCredentials)
	}
	if !emailPattern.MatchString(email) {
		return nil, validationError(AuthInvalidEmail, MsgInvalidEmail)
	}

	session, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		s.logger.WarnContext(ctx, "sign in failed", "error", err)
		return nil, ClassifyAuthError(err)
	}
	s.logger.InfoContext(ctx, "user signed in", "user_id", session.UserID)
	return session, nil
}

// SignUp регистрирует пользователя. Повторная регистрация существующего адреса - ошибка AuthAlreadyRegistered.
func (s *AuthService) SignUp(ctx context.Context, email, password, confirm string) (*repository.SignupResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, validationError(AuthValidation, MsgMissingCredentials)
	}
	if !emailPattern.MatchString(email) {
		return nil, validationError(AuthInvalidEmail, MsgInvalidEmail)
	}
	if len(password) < minPasswordLength {
		return nil, validationError(AuthWeakPassword, MsgWeakPassword)
	}
	if password != confirm {
		return nil, validationError(AuthValidation, MsgPasswordMismatch)
	}

	result, err := s.auth.SignUp(ctx, email, password)
	if err != nil {
		s.logger.WarnContext(ctx, "sign up failed", "error", err)
		return nil, ClassifyAuthError(err)
	}
	if !result.Created {
		return nil, validationError(AuthAlreadyRegistered, MsgAlreadyRegistered)
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", result.UserID)
	return result, nil
}

func (s *AuthService) SignOut(ctx context.Context, accessToken string) error {
	if err := s.auth.SignOut(ctx, accessToken); err != nil {
		return ClassifyAuthError(err)
	}
	return nil
}

// Current возвращает сессию по токену или repository.ErrUnauthorized.
func (s *AuthService) Current(ctx context.Context, accessToken string) (*model.Session, error) {
	if accessToken == "" {
		return nil, repository.ErrUnauthorized
	}
	return s.auth.User(ctx, accessToken)
}

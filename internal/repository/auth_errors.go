package repository

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Коды ошибок аутентификации в терминах GoTrue.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailNotConfirmed  = "email_not_confirmed"
	CodeUserAlreadyExists  = "user_already_exists"
	CodeEmailExists        = "email_exists"
	CodeWeakPassword       = "weak_password"
	CodeEmailInvalid       = "email_address_invalid"
)

// AuthFailure - ошибка сервиса аутентификации с машиночитаемым кодом, если он известен.
type AuthFailure struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *AuthFailure) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth: %s (%s)", e.Message, e.Code)
	}
	return "auth: " + e.Message
}

func (e *AuthFailure) Unwrap() error {
	return e.Err
}

var statusPattern = regexp.MustCompile(`status code (\d{3})`)

// gotrueBody - тело ответа GoTrue с ошибкой; в разных версиях поля называются по-разному.
type gotrueBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// parseGoTrueError достает статус и код из текста ошибки gotrue-go
// ("response status code 400: {...}"). Если JSON нет, сообщение остается как есть.
func parseGoTrueError(err error) *AuthFailure {
	text := err.Error()
	failure := &AuthFailure{Message: text, Err: err}

	if m := statusPattern.FindStringSubmatch(text); m != nil {
		failure.Status, _ = strconv.Atoi(m[1])
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return failure
	}
	var body gotrueBody
	if json.Unmarshal([]byte(text[start:]), &body) != nil {
		return failure
	}

	failure.Code = body.ErrorCode
	// старые версии GoTrue кладут строковый код в "code" или "error"
	if failure.Code == "" {
		var code string
		if json.Unmarshal(body.Code, &code) == nil {
			failure.Code = code
		}
	}
	if failure.Code == "" && body.Error != "" && body.ErrorDescription != "" {
		failure.Code = body.Error
	}

	for _, msg := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
		if msg != "" {
			failure.Message = msg
			break
		}
	}
	return failure
}

package repository

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseGoTrueError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "error_code field",
			err:         errors.New(`response status code 400: {"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`),
			wantStatus:  400,
			wantCode:    CodeInvalidCredentials,
			wantMessage: "Invalid login credentials",
		},
		{
			name:        "oauth style body",
			err:         errors.New(`response status code 400: {"error":"invalid_grant","error_description":"Email not confirmed"}`),
			wantStatus:  400,
			wantCode:    "invalid_grant",
			wantMessage: "Email not confirmed",
		},
		{
			name:        "numeric code only",
			err:         errors.New(`response status code 422: {"code":422,"msg":"User already registered"}`),
			wantStatus:  422,
			wantMessage: "User already registered",
		},
		{
			name:        "no body",
			err:         errors.New("dial tcp: connection refused"),
			wantMessage: "dial tcp: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseGoTrueError(tt.err)
			if got.Status != tt.wantStatus || got.Code != tt.wantCode || got.Message != tt.wantMessage {
				t.Errorf("parseGoTrueError() = {%d %q %q}, want {%d %q %q}",
					got.Status, got.Code, got.Message, tt.wantStatus, tt.wantCode, tt.wantMessage)
			}
			if !errors.Is(got, tt.err) {
				t.Error("AuthFailure must unwrap to the original error")
			}
		})
	}
}

func TestClassifyPostgrestError(t *testing.T) {
	conflict := classifyPostgrestError(errors.New(`(23505) duplicate key value violates unique constraint "ux_transactions_rule_month"`))
	if !errors.Is(conflict, ErrConflict) {
		t.Errorf("unique violation: got %v", conflict)
	}
	other := errors.New("(42P01) relation does not exist")
	if got := classifyPostgrestError(other); got != other {
		t.Errorf("unknown error should pass through, got %v", got)
	}
}

func TestAwaitTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := await(context.Background(), 20*time.Millisecond, func() (int, error) {
		<-release
		return 1, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("await did not return promptly")
	}

	v, err := await(context.Background(), time.Second, func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("await() = %d, %v", v, err)
	}
}

package repository

import (
	"context"
	"fmt"
	"time"
)

// await выполняет синхронный вызов SDK, который не принимает context,
// и перестает ждать результат по истечении timeout или отмене ctx.
// Сам HTTP-запрос при этом завершается в фоне.
func await[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := fn()
		done <- result{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return zero, fmt.Errorf("request did not complete: %w", ctx.Err())
	}
}

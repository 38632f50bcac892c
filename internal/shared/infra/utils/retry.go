package utils

import (
	"context"
	"time"
)

// Retry ejecuta fn hasta attempts veces mientras shouldRetry acepte el error.
// shouldRetry nil reintenta cualquier error.
func Retry(ctx context.Context, attempts int, delay time.Duration, shouldRetry func(error) bool, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		if serr := Sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return err
}

// Sleep espera d o hasta que se cancele el contexto.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

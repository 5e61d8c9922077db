package llmclient

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable means the provider could not produce a completion:
	// transport failure, non-2xx status, or an empty answer.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrModelTimeout means the call did not finish within its deadline.
	ErrModelTimeout = errors.New("model call timed out")
)

// classify wraps err in one of the package sentinels. Context cancellation
// by the caller is preserved so callers can tell an abort from a failure.
func classify(ctx context.Context, provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrModelTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", provider, ErrModelTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", provider, err)
	}
	return fmt.Errorf("%s: %w: %w", provider, ErrModelUnavailable, err)
}

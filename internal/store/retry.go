package store

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/vuxtra/jivemcp/internal/apperr"
)

// retryConfig bounds the transient-error retry loop around store I/O:
// exponential backoff, capped attempts.
type retryConfig struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{maxAttempts: 3, baseDelay: 50 * time.Millisecond, maxDelay: 2 * time.Second}
}

// shouldRetry reports whether err is a transient StoreError/IOError
// worth another attempt. modernc.org/sqlite surfaces the
// "database is locked"/"busy" conditions as plain error text rather than
// a typed sentinel, so the message is matched directly.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if !apperr.Retryable(err) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"database is locked", "busy", "disk i/o error", "interrupted"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// withRetry runs op, retrying transient failures with exponential
// backoff up to cfg.maxAttempts times.
func withRetry(ctx context.Context, cfg retryConfig, op func() error) error {
	var lastErr error
	delay := cfg.baseDelay
	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !shouldRetry(lastErr) || attempt == cfg.maxAttempts {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return apperr.Wrap(apperr.Cancelled, "retry loop cancelled", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
		if delay > cfg.maxDelay {
			delay = cfg.maxDelay
		}
	}
	return lastErr
}

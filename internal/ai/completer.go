package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured is returned when no AI backend is available.
var ErrNotConfigured = errors.New("ai backend not configured")

// ClientError marks a request-level failure (bad request, auth, not found)
// that retrying cannot fix.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("ai client error %d: %s", e.StatusCode, e.Message)
}

// IsClientError reports whether err carries a non-retryable status code.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// Inline is optional binary data (an image) attached to a request.
type Inline struct {
	MIMEType string
	Data     []byte
}

// Request is a single completion request.
type Request struct {
	Prompt      string
	Inline      *Inline
	Temperature float64
}

// Completer generates a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

func (f CompleterFunc) Model() string { return "func" }

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// CompleteWithRetry calls the completer up to three times, doubling the
// delay between attempts starting at half a second. Client errors abort
// immediately.
func CompleteWithRetry(ctx context.Context, c Completer, req Request) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}

	var lastErr error
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := c.Complete(ctx, req)
		if err == nil {
			return text, nil
		}
		if IsClientError(err) || errors.Is(err, ErrNotConfigured) {
			return "", err
		}
		lastErr = err

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return "", fmt.Errorf("completion failed after %d attempts: %w", maxAttempts, lastErr)
}

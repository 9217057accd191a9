package vision

import (
	"context"
	"errors"
	"time"

	"github.com/mediaref/clipscan/pkg/models"
)

// RetryBackend layers a bounded retry policy over a Backend without changing
// its contract. Only backend failures are retried; parse errors return
// immediately since the response was received. With MaxAttempts 1 it behaves
// exactly like the wrapped backend.
type RetryBackend struct {
	backend     Backend
	maxAttempts int
	baseDelay   time.Duration
}

// NewRetryBackend wraps backend with up to maxAttempts attempts and
// exponential backoff starting at baseDelay.
func NewRetryBackend(backend Backend, maxAttempts int, baseDelay time.Duration) *RetryBackend {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	return &RetryBackend{
		backend:     backend,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// AnalyzeImage calls the wrapped backend, retrying backend failures with
// exponential backoff until the attempt budget is spent or ctx is done.
func (r *RetryBackend) AnalyzeImage(ctx context.Context, imageData []byte) ([]models.MediaItem, error) {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		items, err := r.backend.AnalyzeImage(ctx, imageData)
		if err == nil {
			return items, nil
		}
		lastErr = err

		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			return nil, err
		}

		if attempt == r.maxAttempts {
			break
		}

		delay := r.baseDelay << (attempt - 1)
		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

var _ Backend = (*RetryBackend)(nil)

package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/MatthewCline-git/higher-pleasures/internal/domain"
	"github.com/MatthewCline-git/higher-pleasures/internal/observability"
)

// Writer appends entries to the store, serialising writes per user and
// retrying transient failures with exponential backoff. On exhaustion it
// fails with ErrStoreUnavailable and guarantees nothing was persisted.
type Writer struct {
	store      Store
	maxRetries int
	baseDelay  time.Duration
	logger     *log.Logger

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// WriterOption configures optional behaviour for the Writer.
type WriterOption func(*Writer)

// WithWriterLogger overrides the logger used to report retries.
func WithWriterLogger(logger *log.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// NewWriter constructs a Writer with the provided retry configuration.
func NewWriter(store Store, maxRetries int, baseDelay time.Duration, opts ...WriterOption) *Writer {
	if maxRetries <= 0 {
		maxRetries = 4
	}
	if baseDelay <= 0 {
		baseDelay = 250 * time.Millisecond
	}
	w := &Writer{
		store:      store,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     log.New(log.Writer(), "[ledger] ", log.LstdFlags),
		userLocks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Append validates the entry and writes it to the store. Writes for the same
// user never interleave.
func (w *Writer) Append(ctx context.Context, entry domain.Entry) (string, error) {
	if err := validateEntry(entry); err != nil {
		return "", err
	}

	lock := w.lockFor(entry.UserID)
	lock.Lock()
	defer lock.Unlock()

	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			observability.RecordStoreRetry()
			delay := w.backoffDelay(attempt)
			w.logger.Printf("append retry (user=%s, attempt=%d, backoff=%s): %v", entry.UserID, attempt, delay, lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		err := w.store.AppendEntry(ctx, entry)
		if err == nil {
			return entry.ID, nil
		}
		if !errors.Is(err, ErrStoreTransient) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("%w: retries exhausted after %d attempts: %v", ErrStoreUnavailable, w.maxRetries+1, lastErr)
}

// backoffDelay calculates exponential backoff capped at one minute.
func (w *Writer) backoffDelay(attempt int) time.Duration {
	delay := time.Duration(1<<uint(attempt-1)) * w.baseDelay
	if delay > time.Minute {
		delay = time.Minute
	}
	return delay
}

func (w *Writer) lockFor(userID string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()

	lock, ok := w.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		w.userLocks[userID] = lock
	}
	return lock
}

func validateEntry(entry domain.Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEntry)
	}
	if entry.UserID == "" {
		return fmt.Errorf("%w: missing user", ErrInvalidEntry)
	}
	if entry.CategoryID == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidEntry)
	}
	if entry.DurationMinutes < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidEntry)
	}
	if entry.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidEntry)
	}
	return nil
}

// Package ledger defines the append-only store contract and the retrying
// writer that guards it.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/MatthewCline-git/higher-pleasures/internal/domain"
)

var (
	// ErrStoreTransient marks a store failure worth retrying (rate limits,
	// connection drops, 5xx-equivalents). Store implementations wrap
	// retryable errors with it.
	ErrStoreTransient = errors.New("transient store failure")
	// ErrStoreUnavailable is returned once the retry ceiling is exhausted.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidEntry is returned when an entry violates ledger invariants.
	ErrInvalidEntry = errors.New("invalid entry")
	// ErrUserNotFound indicates no user exists for the given key.
	ErrUserNotFound = errors.New("user not found")
)

// Cursor models the pagination token for entry listings.
type Cursor struct {
	Date time.Time
	ID   string
}

// EntryFilter narrows entry listings by user and date range.
type EntryFilter struct {
	UserID string
	From   time.Time // inclusive; zero means unbounded
	To     time.Time // inclusive; zero means unbounded
	Limit  int
	Cursor *Cursor
}

// Store bundles persistence for users, categories and entries. Entries are
// append-only: there is no update or delete operation.
type Store interface {
	FindUserByChatID(ctx context.Context, chatID string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) error

	ListCategories(ctx context.Context, userID string) ([]domain.ActivityCategory, error)
	CreateCategory(ctx context.Context, category domain.ActivityCategory) error
	UpdateCategory(ctx context.Context, category domain.ActivityCategory) error

	AppendEntry(ctx context.Context, entry domain.Entry) error
	ListEntries(ctx context.Context, filter EntryFilter) ([]domain.Entry, *Cursor, error)
	// CategoryAverageMinutes returns the mean duration and entry count for a
	// category, used by the duration estimation policy.
	CategoryAverageMinutes(ctx context.Context, categoryID string) (float64, int, error)
}

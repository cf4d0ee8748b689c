package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MatthewCline-git/higher-pleasures/internal/domain"
)

type flakyStore struct {
	*InMemoryStore
	failures int // AppendEntry fails this many times before succeeding
	attempts int
	err      error
}

func (s *flakyStore) AppendEntry(ctx context.Context, entry domain.Entry) error {
	s.attempts++
	if s.attempts <= s.failures {
		return s.err
	}
	return s.InMemoryStore.AppendEntry(ctx, entry)
}

func validTestEntry() domain.Entry {
	return domain.Entry{
		ID:              "entry-1",
		UserID:          "user-1",
		CategoryID:      "cat-1",
		Date:            time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
		RawInput:        "went running for 30 minutes yesterday",
		CreatedAt:       time.Now().UTC(),
	}
}

func TestWriterAppendSucceedsFirstTry(t *testing.T) {
	store := &flakyStore{InMemoryStore: NewInMemoryStore()}
	w := NewWriter(store, 3, time.Millisecond)

	id, err := w.Append(context.Background(), validTestEntry())
	require.NoError(t, err)
	require.Equal(t, "entry-1", id)
	require.Equal(t, 1, store.attempts)

	entries, _, err := store.ListEntries(context.Background(), EntryFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWriterRetriesTransientFailures(t *testing.T) {
	store := &flakyStore{
		InMemoryStore: NewInMemoryStore(),
		failures:      2,
		err:           fmt.Errorf("%w: connection reset", ErrStoreTransient),
	}
	w := NewWriter(store, 3, time.Millisecond)

	id, err := w.Append(context.Background(), validTestEntry())
	require.NoError(t, err)
	require.Equal(t, "entry-1", id)
	require.Equal(t, 3, store.attempts)
}

func TestWriterExhaustsRetries(t *testing.T) {
	store := &flakyStore{
		InMemoryStore: NewInMemoryStore(),
		failures:      100,
		err:           fmt.Errorf("%w: rate limited", ErrStoreTransient),
	}
	w := NewWriter(store, 3, time.Millisecond)

	_, err := w.Append(context.Background(), validTestEntry())
	require.ErrorIs(t, err, ErrStoreUnavailable)
	// initial attempt plus three retries
	require.Equal(t, 4, store.attempts)

	entries, _, listErr := store.ListEntries(context.Background(), EntryFilter{UserID: "user-1"})
	require.NoError(t, listErr)
	require.Empty(t, entries)
}

func TestWriterDoesNotRetryPermanentFailures(t *testing.T) {
	store := &flakyStore{
		InMemoryStore: NewInMemoryStore(),
		failures:      100,
		err:           errors.New("constraint violation"),
	}
	w := NewWriter(store, 3, time.Millisecond)

	_, err := w.Append(context.Background(), validTestEntry())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrStoreUnavailable)
	require.Equal(t, 1, store.attempts)
}

func TestWriterRejectsInvalidEntries(t *testing.T) {
	store := &flakyStore{InMemoryStore: NewInMemoryStore()}
	w := NewWriter(store, 3, time.Millisecond)

	cases := map[string]func(*domain.Entry){
		"missing id":        func(e *domain.Entry) { e.ID = "" },
		"missing user":      func(e *domain.Entry) { e.UserID = "" },
		"missing category":  func(e *domain.Entry) { e.CategoryID = "" },
		"negative duration": func(e *domain.Entry) { e.DurationMinutes = -5 },
		"missing date":      func(e *domain.Entry) { e.Date = time.Time{} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			entry := validTestEntry()
			mutate(&entry)
			_, err := w.Append(context.Background(), entry)
			require.ErrorIs(t, err, ErrInvalidEntry)
		})
	}
	require.Equal(t, 0, store.attempts)
}

func TestWriterHonorsContextDuringBackoff(t *testing.T) {
	store := &flakyStore{
		InMemoryStore: NewInMemoryStore(),
		failures:      100,
		err:           fmt.Errorf("%w: timeout", ErrStoreTransient),
	}
	w := NewWriter(store, 5, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := w.Append(ctx, validTestEntry())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoffDelayDoubles(t *testing.T) {
	w := NewWriter(NewInMemoryStore(), 4, 250*time.Millisecond)

	require.Equal(t, 250*time.Millisecond, w.backoffDelay(1))
	require.Equal(t, 500*time.Millisecond, w.backoffDelay(2))
	require.Equal(t, time.Second, w.backoffDelay(3))
	require.Equal(t, 2*time.Second, w.backoffDelay(4))
}

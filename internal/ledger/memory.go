package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/MatthewCline-git/higher-pleasures/internal/domain"
)

// InMemoryStore keeps the ledger in process memory for local development and
// tests. It implements Store.
type InMemoryStore struct {
	mu         sync.RWMutex
	users      map[string]domain.User             // by user ID
	categories map[string]domain.ActivityCategory // by category ID
	entries    []domain.Entry                     // append order
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:      make(map[string]domain.User),
		categories: make(map[string]domain.ActivityCategory),
	}
}

// FindUserByChatID returns the user registered for the chat sender, or
// ErrUserNotFound.
func (s *InMemoryStore) FindUserByChatID(ctx context.Context, chatID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.ChatID == chatID {
			u := user
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// CreateUser registers a new user.
func (s *InMemoryStore) CreateUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(user.ID) == "" {
		user.ID = uuid.NewString()
	}
	s.users[user.ID] = user
	return nil
}

// ListCategories returns all categories owned by the user.
func (s *InMemoryStore) ListCategories(ctx context.Context, userID string) ([]domain.ActivityCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ActivityCategory, 0)
	for _, cat := range s.categories {
		if cat.UserID == userID {
			out = append(out, cloneCategory(cat))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CreateCategory stores a new category.
func (s *InMemoryStore) CreateCategory(ctx context.Context, category domain.ActivityCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(category.ID) == "" {
		category.ID = uuid.NewString()
	}
	s.categories[category.ID] = cloneCategory(category)
	return nil
}

// UpdateCategory replaces the stored category (aliases, last-used timestamp).
func (s *InMemoryStore) UpdateCategory(ctx context.Context, category domain.ActivityCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.categories[category.ID] = cloneCategory(category)
	return nil
}

// AppendEntry appends the entry to the ledger.
func (s *InMemoryStore) AppendEntry(ctx context.Context, entry domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	return nil
}

// ListEntries returns entries matching the filter, newest first.
func (s *InMemoryStore) ListEntries(ctx context.Context, filter EntryFilter) ([]domain.Entry, *Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Entry, 0)
	for _, entry := range s.entries {
		if filter.UserID != "" && entry.UserID != filter.UserID {
			continue
		}
		if !filter.From.IsZero() && entry.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && entry.Date.After(filter.To) {
			continue
		}
		matched = append(matched, entry)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.After(matched[j].Date)
		}
		return matched[i].ID > matched[j].ID
	})

	if filter.Cursor != nil {
		idx := 0
		for idx < len(matched) {
			e := matched[idx]
			if e.Date.Before(filter.Cursor.Date) || (e.Date.Equal(filter.Cursor.Date) && e.ID < filter.Cursor.ID) {
				break
			}
			idx++
		}
		matched = matched[idx:]
	}

	var next *Cursor
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
		last := matched[len(matched)-1]
		next = &Cursor{Date: last.Date, ID: last.ID}
	}

	return matched, next, nil
}

// CategoryAverageMinutes computes the mean duration across the category's entries.
func (s *InMemoryStore) CategoryAverageMinutes(ctx context.Context, categoryID string) (float64, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	count := 0
	for _, entry := range s.entries {
		if entry.CategoryID == categoryID {
			total += entry.DurationMinutes
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(total) / float64(count), count, nil
}

func cloneCategory(cat domain.ActivityCategory) domain.ActivityCategory {
	out := cat
	out.Aliases = append([]string(nil), cat.Aliases...)
	return out
}

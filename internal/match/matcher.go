package match

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MatthewCline-git/higher-pleasures/internal/domain"
	"github.com/MatthewCline-git/higher-pleasures/internal/observability"
)

// CategoryStore is the slice of persistence the matcher needs.
type CategoryStore interface {
	ListCategories(ctx context.Context, userID string) ([]domain.ActivityCategory, error)
	CreateCategory(ctx context.Context, category domain.ActivityCategory) error
	UpdateCategory(ctx context.Context, category domain.ActivityCategory) error
}

// Matcher assigns descriptions to a user's categories. Matching for a single
// user is serialised so concurrent messages cannot mint duplicate categories.
type Matcher struct {
	store     CategoryStore
	scorer    Scorer
	threshold float64
	now       func() time.Time

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewMatcher constructs a matcher with the given similarity threshold.
func NewMatcher(store CategoryStore, scorer Scorer, threshold float64) *Matcher {
	return &Matcher{
		store:     store,
		scorer:    scorer,
		threshold: threshold,
		now:       time.Now,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// Match finds the best-scoring category for the description. If no category
// reaches the threshold, a new one is created from the description and
// returned with created=true. On a reuse, the description is remembered as an
// alias and the category's last-used timestamp advances.
func (m *Matcher) Match(ctx context.Context, userID, description string) (domain.ActivityCategory, bool, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return domain.ActivityCategory{}, false, fmt.Errorf("empty activity description")
	}

	lock := m.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	categories, err := m.store.ListCategories(ctx, userID)
	if err != nil {
		return domain.ActivityCategory{}, false, fmt.Errorf("list categories: %w", err)
	}

	best, bestScore, err := m.bestCandidate(ctx, categories, description)
	if err != nil {
		return domain.ActivityCategory{}, false, err
	}

	if best != nil && bestScore >= m.threshold {
		updated := *best
		alias := strings.ToLower(description)
		if !updated.HasAlias(alias) {
			updated.Aliases = append(updated.Aliases, alias)
		}
		updated.LastUsedAt = m.now().UTC()
		if err := m.store.UpdateCategory(ctx, updated); err != nil {
			return domain.ActivityCategory{}, false, fmt.Errorf("update category: %w", err)
		}
		return updated, false, nil
	}

	created := domain.ActivityCategory{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       categoryName(description),
		Aliases:    []string{strings.ToLower(description)},
		LastUsedAt: m.now().UTC(),
		CreatedAt:  m.now().UTC(),
	}
	if err := m.store.CreateCategory(ctx, created); err != nil {
		return domain.ActivityCategory{}, false, fmt.Errorf("create category: %w", err)
	}
	observability.RecordCategoryCreated()
	return created, true, nil
}

// bestCandidate scores the description against every category name and alias.
// Ties on score break toward the most recently used category.
func (m *Matcher) bestCandidate(ctx context.Context, categories []domain.ActivityCategory, description string) (*domain.ActivityCategory, float64, error) {
	// Stable scan order so tie-breaking is deterministic.
	sorted := make([]domain.ActivityCategory, len(categories))
	copy(sorted, categories)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].LastUsedAt.Equal(sorted[j].LastUsedAt) {
			return sorted[i].LastUsedAt.After(sorted[j].LastUsedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	var best *domain.ActivityCategory
	bestScore := -1.0
	for i := range sorted {
		score, err := m.categoryScore(ctx, sorted[i], description)
		if err != nil {
			return nil, 0, err
		}
		if score > bestScore {
			best = &sorted[i]
			bestScore = score
		}
	}
	return best, bestScore, nil
}

// categoryScore takes the highest score across the name and all aliases.
func (m *Matcher) categoryScore(ctx context.Context, category domain.ActivityCategory, description string) (float64, error) {
	phrases := append([]string{category.Name}, category.Aliases...)

	best := 0.0
	for _, phrase := range phrases {
		score, err := m.scorer.Score(ctx, description, phrase)
		if err != nil {
			return 0, fmt.Errorf("score %q against %q: %w", description, phrase, err)
		}
		if score > best {
			best = score
		}
	}
	return best, nil
}

func (m *Matcher) lockFor(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.userLocks[userID] = lock
	}
	return lock
}

// categoryName title-cases the description for display.
func categoryName(description string) string {
	fields := strings.Fields(strings.ToLower(description))
	for i, f := range fields {
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}

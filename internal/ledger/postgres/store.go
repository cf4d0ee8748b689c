// Package postgres provides the Postgres-backed ledger store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MatthewCline-git/higher-pleasures/internal/domain"
	"github.com/MatthewCline-git/higher-pleasures/internal/ledger"
)

// Store implements ledger.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the ledger tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id    TEXT PRIMARY KEY,
    chat_id    TEXT NOT NULL UNIQUE,
    first_name TEXT NOT NULL DEFAULT '',
    last_name  TEXT NOT NULL DEFAULT '',
    sheet_name TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS activities (
    user_activity_id TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL REFERENCES users(user_id),
    activity         TEXT NOT NULL,
    aliases          TEXT[] NOT NULL DEFAULT '{}',
    last_used_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS entries (
    entry_id         TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL REFERENCES users(user_id),
    user_activity_id TEXT NOT NULL REFERENCES activities(user_activity_id),
    date             DATE NOT NULL,
    duration_minutes INTEGER NOT NULL,
    raw_input        TEXT NOT NULL,
    estimated        BOOLEAN NOT NULL DEFAULT FALSE,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_entries_user_date ON entries (user_id, date DESC, entry_id DESC);
CREATE INDEX IF NOT EXISTS idx_entries_activity ON entries (user_activity_id);
`
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// FindUserByChatID returns the user registered for the chat sender.
func (s *Store) FindUserByChatID(ctx context.Context, chatID string) (*domain.User, error) {
	const query = `SELECT user_id, chat_id, first_name, last_name, sheet_name, created_at
        FROM users WHERE chat_id=$1`

	row := s.pool.QueryRow(ctx, query, chatID)
	var user domain.User
	if err := row.Scan(&user.ID, &user.ChatID, &user.FirstName, &user.LastName, &user.SheetName, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrUserNotFound
		}
		return nil, classify(err)
	}
	return &user, nil
}

// CreateUser registers a new user.
func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	const stmt = `INSERT INTO users (user_id, chat_id, first_name, last_name, sheet_name, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`

	_, err := s.pool.Exec(ctx, stmt, user.ID, user.ChatID, user.FirstName, user.LastName, user.SheetName, user.CreatedAt)
	if err != nil {
		return classify(err)
	}
	return nil
}

// ListCategories returns all categories owned by the user.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.ActivityCategory, error) {
	const query = `SELECT user_activity_id, user_id, activity, aliases, last_used_at, created_at
        FROM activities WHERE user_id=$1 ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := make([]domain.ActivityCategory, 0)
	for rows.Next() {
		var cat domain.ActivityCategory
		if err := rows.Scan(&cat.ID, &cat.UserID, &cat.Name, &cat.Aliases, &cat.LastUsedAt, &cat.CreatedAt); err != nil {
			return nil, classify(err)
		}
		out = append(out, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// CreateCategory stores a new category.
func (s *Store) CreateCategory(ctx context.Context, category domain.ActivityCategory) error {
	const stmt = `INSERT INTO activities (user_activity_id, user_id, activity, aliases, last_used_at, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`

	_, err := s.pool.Exec(ctx, stmt, category.ID, category.UserID, category.Name, category.Aliases, category.LastUsedAt, category.CreatedAt)
	if err != nil {
		return classify(err)
	}
	return nil
}

// UpdateCategory replaces the category's aliases and last-used timestamp.
func (s *Store) UpdateCategory(ctx context.Context, category domain.ActivityCategory) error {
	const stmt = `UPDATE activities SET activity=$2, aliases=$3, last_used_at=$4 WHERE user_activity_id=$1`

	_, err := s.pool.Exec(ctx, stmt, category.ID, category.Name, category.Aliases, category.LastUsedAt)
	if err != nil {
		return classify(err)
	}
	return nil
}

// AppendEntry appends the entry to the ledger.
func (s *Store) AppendEntry(ctx context.Context, entry domain.Entry) error {
	const stmt = `INSERT INTO entries (entry_id, user_id, user_activity_id, date, duration_minutes, raw_input, estimated, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err := s.pool.Exec(ctx, stmt,
		entry.ID,
		entry.UserID,
		entry.CategoryID,
		entry.Date,
		entry.DurationMinutes,
		entry.RawInput,
		entry.Estimated,
		entry.CreatedAt,
	)
	if err != nil {
		return classify(err)
	}
	return nil
}

// ListEntries returns entries matching the filter, newest first.
func (s *Store) ListEntries(ctx context.Context, filter ledger.EntryFilter) ([]domain.Entry, *ledger.Cursor, error) {
	query := `SELECT entry_id, user_id, user_activity_id, date, duration_minutes, raw_input, estimated, created_at
        FROM entries`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != "" {
		conds = append(conds, "user_id="+arg(filter.UserID))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "date>="+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "date<="+arg(filter.To))
	}
	if filter.Cursor != nil {
		conds = append(conds, fmt.Sprintf("(date, entry_id) < (%s, %s)", arg(filter.Cursor.Date), arg(filter.Cursor.ID)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date DESC, entry_id DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit+1)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, classify(err)
	}
	defer rows.Close()

	out := make([]domain.Entry, 0)
	for rows.Next() {
		var entry domain.Entry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.CategoryID, &entry.Date, &entry.DurationMinutes, &entry.RawInput, &entry.Estimated, &entry.CreatedAt); err != nil {
			return nil, nil, classify(err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, classify(err)
	}

	var next *ledger.Cursor
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
		last := out[len(out)-1]
		next = &ledger.Cursor{Date: last.Date, ID: last.ID}
	}
	return out, next, nil
}

// CategoryAverageMinutes computes the mean duration across the category's entries.
func (s *Store) CategoryAverageMinutes(ctx context.Context, categoryID string) (float64, int, error) {
	const query = `SELECT COALESCE(AVG(duration_minutes), 0), COUNT(*) FROM entries WHERE user_activity_id=$1`

	var avg float64
	var count int
	if err := s.pool.QueryRow(ctx, query, categoryID).Scan(&avg, &count); err != nil {
		return 0, 0, classify(err)
	}
	return avg, count, nil
}

// classify wraps retryable failures with ledger.ErrStoreTransient so the
// writer's backoff kicks in. Constraint violations and other logic errors
// pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := pgErr.Code
		switch {
		case strings.HasPrefix(code, "08"): // connection exceptions
			fallthrough
		case strings.HasPrefix(code, "53"): // insufficient resources
			fallthrough
		case code == "40001" || code == "40P01": // serialization failure, deadlock
			fallthrough
		case code == "57P03": // cannot connect now
			return fmt.Errorf("%w: %v", ledger.ErrStoreTransient, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ledger.ErrStoreTransient, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ledger.ErrStoreTransient, err)
	}
	return err
}

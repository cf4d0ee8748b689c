// Package tracking orchestrates the message-to-entry pipeline: extraction,
// date and duration resolution, category matching and the ledger append.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MatthewCline-git/higher-pleasures/internal/domain"
	"github.com/MatthewCline-git/higher-pleasures/internal/extract"
	"github.com/MatthewCline-git/higher-pleasures/internal/ledger"
	"github.com/MatthewCline-git/higher-pleasures/internal/match"
	"github.com/MatthewCline-git/higher-pleasures/internal/observability"
	"github.com/MatthewCline-git/higher-pleasures/internal/resolve"
)

// InboundMessage is one chat message handed to the tracker.
type InboundMessage struct {
	SenderID   string
	Text       string
	ReceivedAt time.Time
}

// TrackResult reports what was recorded and how.
type TrackResult struct {
	Entry           domain.Entry
	Category        domain.ActivityCategory
	CategoryCreated bool
	Estimated       bool
	Warnings        []string
}

// Tracker wires the pipeline stages together. A failed stage aborts the
// message without writing anything; only a successful pass through every
// stage appends an entry.
type Tracker struct {
	store              ledger.Store
	writer             *ledger.Writer
	extractor          extract.Extractor
	matcher            *match.Matcher
	defaultDurationMin int
	logger             *log.Logger
	now                func() time.Time
}

// TrackerOption configures optional behaviour for the Tracker.
type TrackerOption func(*Tracker)

// WithTrackerLogger overrides the pipeline logger.
func WithTrackerLogger(logger *log.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithTrackerClock overrides the reference clock, used in tests.
func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker constructs the pipeline orchestrator.
func NewTracker(store ledger.Store, writer *ledger.Writer, extractor extract.Extractor, matcher *match.Matcher, defaultDurationMin int, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:              store,
		writer:             writer,
		extractor:          extractor,
		matcher:            matcher,
		defaultDurationMin: defaultDurationMin,
		logger:             log.New(log.Writer(), "[tracking] ", log.LstdFlags),
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track runs one message through the full pipeline.
func (t *Tracker) Track(ctx context.Context, msg InboundMessage) (TrackResult, error) {
	if strings.TrimSpace(msg.Text) == "" {
		observability.RecordTrackFailure("empty_message")
		return TrackResult{}, fmt.Errorf("empty message")
	}
	received := msg.ReceivedAt
	if received.IsZero() {
		received = t.now()
	}

	user, err := t.ensureUser(ctx, msg.SenderID)
	if err != nil {
		observability.RecordTrackFailure("user")
		return TrackResult{}, fmt.Errorf("ensure user: %w", err)
	}

	cand, err := t.extractor.Extract(ctx, msg.Text)
	if err != nil {
		observability.RecordTrackFailure("extraction")
		return TrackResult{}, fmt.Errorf("extract: %w", err)
	}

	var warnings []string

	date, err := resolve.ResolveDate(cand.DateExpr, received)
	if err != nil {
		if !errors.Is(err, resolve.ErrAmbiguousDate) {
			observability.RecordTrackFailure("date")
			return TrackResult{}, fmt.Errorf("resolve date: %w", err)
		}
		// Unintelligible date phrase, fall back to the message date.
		date, _ = resolve.ResolveDate("", received)
		warnings = append(warnings, fmt.Sprintf("could not read the date %q, used %s", cand.DateExpr, date.Format("2006-01-02")))
	}

	category, created, err := t.matcher.Match(ctx, user.ID, cand.Description)
	if err != nil {
		observability.RecordTrackFailure("match")
		return TrackResult{}, fmt.Errorf("match category: %w", err)
	}

	avg, count, err := t.store.CategoryAverageMinutes(ctx, category.ID)
	if err != nil {
		observability.RecordTrackFailure("history")
		return TrackResult{}, fmt.Errorf("category history: %w", err)
	}
	history := resolve.DurationHistory{AverageMinutes: avg, Entries: count}

	minutes, estimated, err := resolve.ResolveDuration(cand.DurationExpr, history, t.defaultDurationMin)
	if err != nil {
		if !errors.Is(err, resolve.ErrUnresolvedDuration) {
			observability.RecordTrackFailure("duration")
			return TrackResult{}, fmt.Errorf("resolve duration: %w", err)
		}
		// Unintelligible duration phrase, estimate as if absent.
		minutes, estimated, _ = resolve.ResolveDuration("", history, t.defaultDurationMin)
		warnings = append(warnings, fmt.Sprintf("could not read the duration %q, estimated %d minutes", cand.DurationExpr, minutes))
	}

	entry := domain.Entry{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		CategoryID:      category.ID,
		Date:            date,
		DurationMinutes: minutes,
		RawInput:        msg.Text,
		Estimated:       estimated,
		CreatedAt:       t.now().UTC(),
	}

	if _, err := t.writer.Append(ctx, entry); err != nil {
		observability.RecordTrackFailure("store")
		return TrackResult{}, fmt.Errorf("append entry: %w", err)
	}
	observability.RecordEntryRecorded(entry.CreatedAt)

	t.logger.Printf("recorded entry (user=%s, category=%q, date=%s, minutes=%d, estimated=%t)",
		user.ID, category.Name, date.Format("2006-01-02"), minutes, estimated)

	return TrackResult{
		Entry:           entry,
		Category:        category,
		CategoryCreated: created,
		Estimated:       estimated,
		Warnings:        warnings,
	}, nil
}

// ensureUser finds the sender's user record, provisioning one on first
// contact.
func (t *Tracker) ensureUser(ctx context.Context, senderID string) (*domain.User, error) {
	if strings.TrimSpace(senderID) == "" {
		return nil, fmt.Errorf("missing sender id")
	}

	user, err := t.store.FindUserByChatID(ctx, senderID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ledger.ErrUserNotFound) {
		return nil, err
	}

	created := domain.User{
		ID:        uuid.NewString(),
		ChatID:    senderID,
		SheetName: "User " + senderID,
		CreatedAt: t.now().UTC(),
	}
	if err := t.store.CreateUser(ctx, created); err != nil {
		return nil, err
	}
	t.logger.Printf("provisioned user for sender %s", senderID)
	return &created, nil
}

// ReplyText renders a confirmation for the chat channel.
func ReplyText(res TrackResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Logged %s on %s for %d minutes", res.Category.Name, res.Entry.Date.Format("2006-01-02"), res.Entry.DurationMinutes)
	if res.Estimated {
		b.WriteString(" (estimated)")
	}
	b.WriteString(".")
	if res.CategoryCreated {
		fmt.Fprintf(&b, " Created new category %q.", res.Category.Name)
	}
	for _, w := range res.Warnings {
		b.WriteString(" Note: " + w + ".")
	}
	return b.String()
}

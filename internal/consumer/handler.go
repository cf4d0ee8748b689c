package consumer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/MatthewCline-git/higher-pleasures/internal/events"
	"github.com/MatthewCline-git/higher-pleasures/internal/extract"
	"github.com/MatthewCline-git/higher-pleasures/internal/ledger"
	"github.com/MatthewCline-git/higher-pleasures/internal/tracking"
)

// ActivityTracker is the slice of the tracking pipeline the handler needs.
type ActivityTracker interface {
	Track(ctx context.Context, msg tracking.InboundMessage) (tracking.TrackResult, error)
}

// TrackerHandler feeds chat messages into the tracker and publishes the
// outcome.
type TrackerHandler struct {
	tracker   ActivityTracker
	publisher Publisher
	logger    *log.Logger
}

// NewTrackerHandler constructs a handler around the tracker and publisher.
func NewTrackerHandler(tracker ActivityTracker, publisher Publisher, logger *log.Logger) *TrackerHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[handler] ", log.LstdFlags)
	}
	return &TrackerHandler{tracker: tracker, publisher: publisher, logger: logger}
}

// Handle runs one chat message through the pipeline. A store outage surfaces
// as an error so the message stays uncommitted and is retried; every other
// failure is reported to the sender and the message is committed.
func (h *TrackerHandler) Handle(ctx context.Context, event events.ChatMessageReceived) error {
	res, err := h.tracker.Track(ctx, tracking.InboundMessage{
		SenderID:   event.SenderID,
		Text:       event.Text,
		ReceivedAt: event.ReceivedAt,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrStoreUnavailable) {
			return fmt.Errorf("track message: %w", err)
		}
		h.logger.Printf("message rejected (sender=%s): %v", event.SenderID, err)
		return h.publisher.PublishReply(ctx, events.ChatReply{
			SenderID: event.SenderID,
			Text:     rejectionText(err),
		})
	}

	if err := h.publisher.PublishEntryRecorded(ctx, events.EntryRecorded{
		EntryID:         res.Entry.ID,
		UserID:          res.Entry.UserID,
		CategoryID:      res.Category.ID,
		CategoryName:    res.Category.Name,
		CategoryCreated: res.CategoryCreated,
		Date:            res.Entry.Date,
		DurationMinutes: res.Entry.DurationMinutes,
		Estimated:       res.Estimated,
		RecordedAt:      res.Entry.CreatedAt,
	}); err != nil {
		// The entry is already in the ledger. Log and keep going so the
		// sender still gets a confirmation.
		h.logger.Printf("publish entry event (entry=%s): %v", res.Entry.ID, err)
	}

	return h.publisher.PublishReply(ctx, events.ChatReply{
		SenderID: event.SenderID,
		Text:     tracking.ReplyText(res),
		SentAt:   time.Now().UTC(),
	})
}

// rejectionText picks the reply for a discarded message. Only extraction
// failures mean the message itself was unintelligible; everything else is a
// recording problem on our side.
func rejectionText(err error) string {
	if errors.Is(err, extract.ErrExtraction) {
		return "Sorry, I couldn't make out an activity in that message. Nothing was recorded."
	}
	return "Sorry, something went wrong while recording that. Nothing was recorded."
}

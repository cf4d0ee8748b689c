// Package events defines the event payloads exchanged with the chat transport.
package events

import "time"

// ChatMessageReceived is the inbound event emitted by the chat gateway for
// every free-form user message.
type ChatMessageReceived struct {
	SenderID   string    `json:"sender_id"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// ChatReply carries the confirmation or error text sent back to the user.
type ChatReply struct {
	SenderID string    `json:"sender_id"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
}

// EntryRecorded is emitted after an entry has been appended to the ledger,
// for downstream dashboards and audits.
type EntryRecorded struct {
	EntryID         string    `json:"entry_id"`
	UserID          string    `json:"user_id"`
	CategoryID      string    `json:"category_id"`
	CategoryName    string    `json:"category_name"`
	CategoryCreated bool      `json:"category_created"`
	Date            time.Time `json:"date"`
	DurationMinutes int       `json:"duration_minutes"`
	Estimated       bool      `json:"estimated"`
	RecordedAt      time.Time `json:"recorded_at"`
}

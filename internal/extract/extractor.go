// Package extract turns free-form chat messages into structured activity
// candidates via a language-model backend.
package extract

import (
	"context"
	"errors"
)

// ErrExtraction wraps any failure to obtain a usable candidate from the
// backend, whether a transport error or an off-format reply.
var ErrExtraction = errors.New("extraction failed")

// Candidate is the structured reading of one activity message. DateExpr and
// DurationExpr stay as raw phrases; the resolvers own their interpretation.
type Candidate struct {
	Description  string `json:"description"`
	DateExpr     string `json:"date_expr"`
	DurationExpr string `json:"duration_expr"`
}

// Extractor produces a candidate from a raw message.
type Extractor interface {
	Extract(ctx context.Context, message string) (Candidate, error)
}

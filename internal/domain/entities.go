// Package domain defines the core entities of the activity ledger.
package domain

import (
	"strings"
	"time"
)

// User is a chat sender with their own sheet partition and category list.
// Users are provisioned on the first observed message and never deleted.
type User struct {
	ID        string
	ChatID    string
	FirstName string
	LastName  string
	SheetName string
	CreatedAt time.Time
}

// ActivityCategory is a per-user bucket grouping similar activity
// descriptions. Aliases accumulate as new phrasings are matched to it.
type ActivityCategory struct {
	ID         string
	UserID     string
	Name       string
	Aliases    []string
	LastUsedAt time.Time
	CreatedAt  time.Time
}

// HasAlias reports whether the category already carries the given alias.
func (c ActivityCategory) HasAlias(alias string) bool {
	if strings.EqualFold(alias, c.Name) {
		return true
	}
	for _, a := range c.Aliases {
		if a == alias {
			return true
		}
	}
	return false
}

// Entry is one immutable logged activity occurrence. The ledger is
// append-only: entries are never updated or deleted.
type Entry struct {
	ID              string
	UserID          string
	CategoryID      string
	Date            time.Time // calendar date, UTC midnight
	DurationMinutes int
	RawInput        string
	Estimated       bool // duration came from the estimation policy
	CreatedAt       time.Time
}

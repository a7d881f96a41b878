// Package querylog records answered questions for later inspection.
package querylog

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("answer log is disabled")

const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 200
)

type Entry struct {
	ID         int64     `json:"id"`
	Question   string    `json:"question"`
	Statement  string    `json:"statement"`
	Outcome    string    `json:"outcome"`
	Stage      string    `json:"stage"`
	RowCount   int       `json:"row_count"`
	ErrorText  string    `json:"error_text,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Nop drops every entry. It is used when no answer log database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error {
	return nil
}

func (Nop) Recent(context.Context, int) ([]Entry, error) {
	return nil, ErrDisabled
}

// ClampLimit maps a requested page size into [1, MaxRecentLimit], using the default for 0 or less.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}

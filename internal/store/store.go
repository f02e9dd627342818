package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hungkimanh/gatest/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// SaveRun assigns rec an ID and creation time when missing and persists it.
	SaveRun(ctx context.Context, rec *model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, error)
	// ListRuns pages through runs oldest first. instance filters by instance
	// name when non-empty; cursor is the last ID of the previous page.
	ListRuns(ctx context.Context, instance, cursor string, limit int) (items []model.RunRecord, nextCursor string, err error)
	Ping(ctx context.Context) error
}

var (
	ErrNotFound      = errors.New("not found")
	// ErrInvalidCursor is returned by ListRuns for a cursor that is not a run ID.
	ErrInvalidCursor = errors.New("invalid cursor")
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}

// parseCursor returns cursor in canonical UUID form. An empty cursor stays
// empty.
func parseCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	id, err := uuid.Parse(cursor)
	if err != nil {
		return "", fmt.Errorf("%w %q", ErrInvalidCursor, cursor)
	}
	return id.String(), nil
}

// stamp fills the generated fields. Version 7 UUIDs sort by creation time,
// which keeps ID cursors chronological.
func stamp(rec *model.RunRecord) error {
	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		rec.ID = id.String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"office-dashboard/internal/dashboard/domain/model"
)

// ErrResumeExpired means the events after a resume token are no longer
// complete, either because the token was trimmed away or because too many
// events followed it. Listeners fall back to a snapshot.
var ErrResumeExpired = errors.New("resume token expired")

// EventStore keeps recent change events so that a reconnecting live query
// can resume from its last resume token.
type EventStore interface {
	// Append stores the event and returns its resume token.
	Append(ctx context.Context, event model.ChangeEvent) (string, error)
	// Since returns events of tenant+kind strictly after token, oldest
	// first, or ErrResumeExpired when that history is incomplete.
	Since(ctx context.Context, tenantID, kind, token string) ([]model.ChangeEvent, error)
	// Trim caps every stream to maxLen events.
	Trim(ctx context.Context, maxLen int64) (int, error)
}

// PageCache stores rendered public pages.
type PageCache interface {
	Get(ctx context.Context, tenantID, slug string) ([]byte, bool, error)
	Set(ctx context.Context, tenantID, slug string, html []byte, ttl time.Duration) error
	InvalidateTenant(ctx context.Context, tenantID string) error
}

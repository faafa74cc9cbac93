package model

import (
	"context"
)

// SessionStore is the durable home of Session records, keyed by session id.
// Get returns a not-found error (errx, status 404) when the id is absent.
// Put replaces the stored session wholesale; last writer wins. Entries expire
// after the store's configured inactivity window.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
	Put(ctx context.Context, session *Session) error
	Delete(ctx context.Context, sessionID string) error
}

// ProfileSource resolves read-only customer profiles by id.
type ProfileSource interface {
	GetProfile(ctx context.Context, customerID string) (*CustomerProfile, error)
}

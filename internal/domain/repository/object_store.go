package repository

import (
	"context"
	"io"
)

// ObjectStore is a path-addressed blob store.
type ObjectStore interface {
	// Put writes r to path and returns its public URL.
	Put(ctx context.Context, path, contentType string, r io.Reader) (string, error)
	// URL returns a publicly resolvable URL; ErrNotFound when path does not exist.
	URL(ctx context.Context, path string) (string, error)
	// Delete removes the object; ErrNotFound when path does not exist.
	Delete(ctx context.Context, path string) error
}

// SessionStore keeps one server-side session per user, identified by a session id (sid).
type SessionStore interface {
	// Save records sid as the active session for userID.
	Save(ctx context.Context, userID, sid string) error
	// Active reports whether sid is the active session for userID.
	Active(ctx context.Context, userID, sid string) (bool, error)
	// Delete drops the session; deleting a missing session is not an error.
	Delete(ctx context.Context, userID string) error
}

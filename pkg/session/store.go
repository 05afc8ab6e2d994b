package session

import (
	"context"
	"errors"
)

// PendingLinkKey is the key under which the dispatcher stores a link that
// was interrupted by an authentication redirect.
const PendingLinkKey = "deeplink:pending_url"

// ErrStoreClosed is returned when operations are attempted on a closed store.
var ErrStoreClosed = errors.New("session store is closed")

// Store is a small string key/value store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Get returns the value stored under key.
	// Returns ("", false, nil) if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Take reads key and deletes it. The value is returned even if the delete
// fails; the delete error is returned alongside it.
func Take(ctx context.Context, s Store, key string) (string, bool, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	if err := s.Delete(ctx, key); err != nil {
		return value, true, err
	}
	return value, true, nil
}

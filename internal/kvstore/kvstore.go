package kvstore

import "context"

// Store is the opaque key-value byte store the record layer persists into.
// Payloads are JSON strings; keys are fixed by the caller.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key, replacing any prior value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key; removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Healthy reports whether the backend is reachable.
	Healthy(ctx context.Context) bool
}

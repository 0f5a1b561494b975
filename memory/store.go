// Package memory provides the hierarchical key-value namespace backing the
// kernel. Prompt notes live under memory/ and are read through Notes; session
// snapshots live under sessions/ and are written by the session file backend.
package memory

import "context"

// Store reads and writes entries of the namespace. Implementations do not
// cache; every call reaches the backing storage.
type Store interface {
	// List returns every key in the store.
	List(ctx context.Context) ([]string, error)
	// Load returns the entries for keys, in order. A missing key fails with
	// ErrKeyNotFound.
	Load(ctx context.Context, keys ...string) ([]Entry, error)
	// Save creates or replaces entries.
	Save(ctx context.Context, entries ...Entry) error
	// Delete removes entries. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// Package blob abstracts the artifact store holding document copies, extracted
// records, and transaction rollups. A GCS-backed implementation is used in
// deployments; a filesystem implementation serves local runs and tests.
package blob

import "context"

// Store persists pipeline artifacts under hierarchical keys
type Store interface {
	// Upload writes data under the key, overwriting any previous object
	Upload(ctx context.Context, key string, data []byte, contentType string) error

	// Download reads the object stored under the key
	Download(ctx context.Context, key string) ([]byte, error)

	// ListByPrefix returns the keys of all objects under the prefix, sorted.
	// A prefix with no objects yields an empty list, not an error.
	ListByPrefix(ctx context.Context, prefix string) ([]string, error)

	Close() error
}

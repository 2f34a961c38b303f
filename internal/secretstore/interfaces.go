package secretstore

import "context"

// Store reads and writes the client secret.
type Store interface {
	// Read returns the stored secret. Returns error if the secret is missing or empty.
	Read(ctx context.Context) (string, error)

	// Write persists the secret. Returns error if the backend is read-only
	// or if the write operation fails.
	Write(ctx context.Context, secret string) error
}

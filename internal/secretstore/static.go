package secretstore

import (
	"context"
	"errors"
)

// StaticStore returns a secret supplied through configuration.
type StaticStore struct {
	secret string
}

// Compile-time check to ensure StaticStore implements Store
var _ Store = (*StaticStore)(nil)

// NewStaticStore creates a StaticStore. Returns error if secret is blank.
func NewStaticStore(secret string) (*StaticStore, error) {
	secret, err := normalize(secret, "configuration")
	if err != nil {
		return nil, err
	}
	return &StaticStore{secret: secret}, nil
}

// Read returns the configured secret.
func (s *StaticStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.secret, nil
}

// Write is not supported; change the configuration instead.
func (s *StaticStore) Write(ctx context.Context, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.New("configuration storage is read-only")
}

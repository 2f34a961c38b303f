package secretstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps the secret in the OS credential store
// (macOS Keychain, Windows Credential Manager, Linux Secret Service).
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check to ensure KeyringStore implements Store
var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore for the given service and user.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" || user == "" {
		return nil, fmt.Errorf("keyring service and user are required (service=%q, user=%q)", service, user)
	}
	return &KeyringStore{service: service, user: user}, nil
}

func (k *KeyringStore) location() string {
	return fmt.Sprintf("keyring %s/%s", k.service, k.user)
}

// Read returns the secret. A missing entry yields a *NotFoundError.
func (k *KeyringStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	secret, err := keyring.Get(k.service, k.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", &NotFoundError{Location: k.location(), Err: err}
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", k.location(), err)
	}
	return normalize(secret, k.location())
}

// Write replaces the secret in the keyring.
func (k *KeyringStore) Write(ctx context.Context, secret string) error {
	secret, err := normalize(secret, "input")
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := keyring.Set(k.service, k.user, secret); err != nil {
		return fmt.Errorf("writing %s: %w", k.location(), err)
	}
	return nil
}

package secretstore

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("client secret not stored")

// NotFoundError reports that a writable backend holds no secret yet.
type NotFoundError struct {
	// Location describes where the secret was looked up.
	Location string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no client secret in %s", e.Location)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// normalize trims a secret read from or written to location and rejects
// blank values.
func normalize(secret, location string) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", fmt.Errorf("empty client secret in %s", location)
	}
	if strings.ContainsAny(secret, "\r\n") {
		return "", fmt.Errorf("client secret in %s spans multiple lines", location)
	}
	return secret, nil
}

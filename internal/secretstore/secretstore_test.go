package secretstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestStores(t *testing.T) {
	keyring.MockInit()

	tests := []struct {
		name     string
		newStore func(t *testing.T) Store
		writable bool
	}{
		{
			name: "file",
			newStore: func(t *testing.T) Store {
				s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "secret"))
				if err != nil {
					t.Fatalf("NewFileStore failed: %v", err)
				}
				return s
			},
			writable: true,
		},
		{
			name: "keyring",
			newStore: func(t *testing.T) Store {
				s, err := NewKeyringStore("favorites-relay-test", t.Name())
				if err != nil {
					t.Fatalf("NewKeyringStore failed: %v", err)
				}
				return s
			},
			writable: true,
		},
		{
			name: "static",
			newStore: func(t *testing.T) Store {
				s, err := NewStaticStore("from-config")
				if err != nil {
					t.Fatalf("NewStaticStore failed: %v", err)
				}
				return s
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := tt.newStore(t)

			err := store.Write(ctx, "  s3cr3t\n")
			if !tt.writable {
				if err == nil {
					t.Fatal("expected read-only store to refuse writes")
				}
				if got, err := store.Read(ctx); err != nil || got != "from-config" {
					t.Errorf("expected configured secret, got %q, %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			got, err := store.Read(ctx)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if got != "s3cr3t" {
				t.Errorf("unexpected secret %q", got)
			}
		})
	}
}

func TestFileStoreRejectsInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("s3cr3t"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.Chmod(path, 0644); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if _, err := store.Read(context.Background()); err == nil {
		t.Fatal("expected error for world-readable secret file")
	}
}

func TestFileStoreWritesOwnerOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := store.Write(context.Background(), "s3cr3t"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600, got %04o", perm)
	}
}

func TestConstructorsValidateInput(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Error("expected error for empty file path")
	}
	if _, err := NewKeyringStore("", "user"); err == nil {
		t.Error("expected error for empty keyring service")
	}
	if _, err := NewKeyringStore("service", ""); err == nil {
		t.Error("expected error for empty keyring user")
	}
	if _, err := NewStaticStore(""); err == nil {
		t.Error("expected error for empty static secret")
	}
}

func TestMissingSecretIsNotFound(t *testing.T) {
	keyring.MockInit()

	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "secret"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	keyringStore, err := NewKeyringStore("favorites-relay-test", "nobody")
	if err != nil {
		t.Fatalf("NewKeyringStore failed: %v", err)
	}

	for name, store := range map[string]Store{"file": fileStore, "keyring": keyringStore} {
		t.Run(name, func(t *testing.T) {
			_, err := store.Read(context.Background())
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			var notFound *NotFoundError
			if !errors.As(err, &notFound) || !strings.Contains(notFound.Location, name) {
				t.Errorf("expected NotFoundError naming %s, got %v", name, err)
			}
		})
	}
}

func TestWriteRejectsBadSecrets(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "secret"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	for _, secret := range []string{"", "  \n", "line1\nline2"} {
		if err := store.Write(context.Background(), secret); err == nil {
			t.Errorf("expected Write(%q) to fail", secret)
		}
	}
	if _, err := store.Read(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("rejected writes must not create the file, got %v", err)
	}
}

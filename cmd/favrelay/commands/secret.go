package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/florianilch/favorites-relay/internal/app"
)

func secretCommand() *cli.Command {
	return &cli.Command{
		Name:  "secret",
		Usage: "manage the stored OAuth2 client secret",
		Commands: []*cli.Command{
			{
				Name:  "set",
				Usage: "store the client secret read from the terminal or stdin",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "auth--storage",
						Usage: "secret storage (file|keyring)",
						Value: string(app.SecretStorageTypeKeyring),
					},
					&cli.StringFlag{
						Name:  "auth--file",
						Usage: "secret file path for file storage",
					},
					&cli.StringFlag{
						Name:  "auth--keyring-user",
						Usage: "keyring user for keyring storage",
					},
				},
				Action: secretSetAction,
			},
		},
	}
}

func secretSetAction(ctx context.Context, cmd *cli.Command) error {
	auth, err := loadAuthConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if auth.Storage == app.SecretStorageTypeConfig {
		return errors.New("config storage is read-only, use --auth--storage file or keyring")
	}

	store, err := auth.NewSecretStore()
	if err != nil {
		return fmt.Errorf("failed to create secret store: %w", err)
	}

	secret, err := readSecret(os.Stdin, cmd.Root().ErrWriter)
	if err != nil {
		return err
	}

	if err := store.Write(ctx, secret); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.Root().Writer, "client secret stored (%s)\n", auth.Storage)
	return nil
}

// readSecret reads the secret without echo when in is a terminal, otherwise
// it reads all of in.
func readSecret(in *os.File, prompt io.Writer) (string, error) {
	var raw []byte
	var err error

	if fd := int(in.Fd()); term.IsTerminal(fd) {
		_, _ = fmt.Fprint(prompt, "Client secret: ")
		raw, err = term.ReadPassword(fd)
		_, _ = fmt.Fprintln(prompt)
	} else {
		raw, err = io.ReadAll(in)
	}
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}

	secret := strings.TrimSpace(string(raw))
	if secret == "" {
		return "", errors.New("empty secret")
	}
	return secret, nil
}

// Package secretstore provides storage backends for the OAuth2 client secret.
//
// Supports three backends with different security and deployment tradeoffs:
//   - Static: the secret is part of the loaded configuration (config file,
//     environment variable or flag); read-only
//   - File: local file with atomic writes and 0600 permissions
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
package secretstore

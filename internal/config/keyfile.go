package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// LoadOrCreateKey returns the encryption key from the key file next to the
// database, generating and persisting a fresh 32-byte key on first run. The
// file holds the key base64-encoded and is created with 0600 permissions so
// stored tokens survive restarts without the operator managing a secret.
func LoadOrCreateKey(dbPath string) ([]byte, error) {
	keyPath := dbPath + ".key"

	data, err := os.ReadFile(keyPath)
	switch {
	case err == nil:
		key, decErr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if decErr != nil {
			return nil, fmt.Errorf("key file %s is not valid base64: %w", keyPath, decErr)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("key file %s must decode to 32 bytes, got %d", keyPath, len(key))
		}
		return key, nil

	case errors.Is(err, fs.ErrNotExist):
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating encryption key: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(key) + "\n"
		if err := os.WriteFile(keyPath, []byte(encoded), 0o600); err != nil {
			return nil, fmt.Errorf("writing key file %s: %w", keyPath, err)
		}
		return key, nil

	default:
		return nil, fmt.Errorf("reading key file %s: %w", keyPath, err)
	}
}

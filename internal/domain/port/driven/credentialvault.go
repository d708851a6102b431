// Package driven defines the outbound port interfaces the application layer
// depends on, along with the sentinel errors adapters translate into.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/blinkobot/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialVault operations when the
// vault was constructed without an encryption key.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set BLINKOBOT_SECRET_KEY")

// ErrDecryptFailed is returned by Retrieve when a stored ciphertext cannot be
// decrypted, typically because the encryption key changed since the token was
// stored. Callers must treat this as "not configured", never as fatal.
var ErrDecryptFailed = errors.New("credential decryption failed: reconfigure with /configure")

// CredentialVault is the driven port for encrypted per-user token persistence.
// The adapter owns encryption and decryption; this interface trades in
// plaintext at the domain boundary.
type CredentialVault interface {
	// Store encrypts plaintextToken and writes or replaces the credential
	// row for userID. The replace is atomic per row.
	Store(ctx context.Context, userID int64, username, plaintextToken string) error

	// Retrieve returns the decrypted token for userID, or ("", nil) when no
	// credential exists. Returns ErrDecryptFailed when the ciphertext cannot
	// be opened under the current key.
	Retrieve(ctx context.Context, userID int64) (string, error)

	// Remove deletes the credential for userID. Removing an absent
	// credential is not an error.
	Remove(ctx context.Context, userID int64) error

	// Has reports whether a credential row exists for userID without
	// attempting decryption.
	Has(ctx context.Context, userID int64) (bool, error)

	// Describe returns the credential metadata (username, timestamps) for
	// userID without decrypting, or nil when absent.
	Describe(ctx context.Context, userID int64) (*model.UserCredential, error)

	// Count returns the number of configured users.
	Count(ctx context.Context) (int, error)
}

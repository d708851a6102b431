package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/ericfisherdev/blinkobot/internal/domain/model"
	"github.com/ericfisherdev/blinkobot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialVault = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialVault port.
// Token values are encrypted with AES-256-GCM before write and decrypted
// after read; nothing in the database ever holds a plaintext token.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewCredentialRepo creates a new CredentialRepo. key must be 32 bytes for
// AES-256-GCM, or nil to disable the vault (all operations will return
// ErrEncryptionKeyNotSet).
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

// Store encrypts plaintextToken and writes or replaces the credential row
// for userID. The original created_at survives reconfiguration.
func (r *CredentialRepo) Store(ctx context.Context, userID int64, username, plaintextToken string) error {
	encrypted, err := r.encrypt(plaintextToken)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO user_credentials (user_id, username, encrypted_token, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			encrypted_token = excluded.encrypted_token,
			updated_at = CURRENT_TIMESTAMP`
	_, err = r.db.Writer.ExecContext(ctx, query, userID, username, encrypted)
	if err != nil {
		return fmt.Errorf("store credential for user %d: %w", userID, err)
	}
	return nil
}

// Retrieve returns the decrypted token for userID, or ("", nil) when absent.
// A ciphertext that cannot be opened under the current key surfaces as
// driven.ErrDecryptFailed so callers degrade to "not configured".
func (r *CredentialRepo) Retrieve(ctx context.Context, userID int64) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT encrypted_token FROM user_credentials WHERE user_id = ?`
	var encrypted string
	err := r.db.Reader.QueryRowContext(ctx, query, userID).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get credential for user %d: %w", userID, err)
	}

	plaintext, err := r.decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("user %d: %w", userID, driven.ErrDecryptFailed)
	}
	return plaintext, nil
}

// Remove deletes the credential for userID. Idempotent.
func (r *CredentialRepo) Remove(ctx context.Context, userID int64) error {
	const query = `DELETE FROM user_credentials WHERE user_id = ?`
	_, err := r.db.Writer.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("remove credential for user %d: %w", userID, err)
	}
	return nil
}

// Has reports whether a credential row exists for userID without decrypting.
func (r *CredentialRepo) Has(ctx context.Context, userID int64) (bool, error) {
	const query = `SELECT 1 FROM user_credentials WHERE user_id = ?`
	var one int
	err := r.db.Reader.QueryRowContext(ctx, query, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check credential for user %d: %w", userID, err)
	}
	return true, nil
}

// Describe returns credential metadata for userID without decrypting, or
// nil when absent.
func (r *CredentialRepo) Describe(ctx context.Context, userID int64) (*model.UserCredential, error) {
	const query = `SELECT username, created_at, updated_at FROM user_credentials WHERE user_id = ?`

	var cred model.UserCredential
	var createdAt, updatedAt string
	err := r.db.Reader.QueryRowContext(ctx, query, userID).Scan(&cred.Username, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("describe credential for user %d: %w", userID, err)
	}

	cred.UserID = userID
	cred.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for user %d: %w", userID, err)
	}
	cred.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at for user %d: %w", userID, err)
	}

	return &cred, nil
}

// Count returns the number of configured users.
func (r *CredentialRepo) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM user_credentials`
	var n int
	if err := r.db.Reader.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count credentials: %w", err)
	}
	return n, nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded
// string containing the nonce (12 bytes) prepended to the ciphertext.
func (r *CredentialRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *CredentialRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/blinkobot/internal/domain/port/driven"
)

func TestCredentialRepo_StoreAndRetrieve(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey())
	ctx := context.Background()

	err := repo.Store(ctx, 42, "alice", "blinko-token-abc123")
	require.NoError(t, err)

	token, err := repo.Retrieve(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "blinko-token-abc123", token)
}

func TestCredentialRepo_RetrieveMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey())
	ctx := context.Background()

	token, err := repo.Retrieve(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, "", token)
}

func TestCredentialRepo_StoreOverwrites(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey())
	ctx := context.Background()

	err := repo.Store(ctx, 42, "alice", "old-token")
	require.NoError(t, err)

	err = repo.Store(ctx, 42, "alice", "new-token")
	require.NoError(t, err)

	token, err := repo.Retrieve(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "new-token", token)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "overwrite must not create a second row")
}

func TestCredentialRepo_CiphertextIsNotPlaintext(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey())
	ctx := context.Background()

	err := repo.Store(ctx, 42, "alice", "super-secret")
	require.NoError(t, err)

	var stored string
	err = db.Reader.QueryRowContext(ctx,
		`SELECT encrypted_token FROM user_credentials WHERE user_id = 42`).Scan(&stored)
	require.NoError(t, err)
	assert.NotContains(t, stored, "super-secret")
}

func TestCredentialRepo_KeyRotationSurfacesDecryptFailed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := NewCredentialRepo(db, testKey()).Store(ctx, 42, "alice", "token-under-old-key")
	require.NoError(t, err)

	otherKey := make([]byte, 32)
	for i := range otherKey {
		otherKey[i] = byte(255 - i)
	}

	_, err = NewCredentialRepo(db, otherKey).Retrieve(ctx, 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrDecryptFailed)
}

func TestCredentialRepo_RemoveThenRetrieve(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey())
	ctx := context.Background()

	err := repo.Store(ctx, 42, "alice", "token")
	require.NoError(t, err)

	err = repo.Remove(ctx, 42)
	require.NoError(t, err)

	token, err := repo.Retrieve(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "", token)

	has, err := repo.Has(ctx, 42)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCredentialRepo_RemoveMissingIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey())

	err := repo.Remove(context.Background(), 12345)
	assert.NoError(t, err, "removing an absent credential should not error")
}

func TestCredentialRepo_HasWithoutDecrypting(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := NewCredentialRepo(db, testKey()).Store(ctx, 42, "alice", "token")
	require.NoError(t, err)

	// Has must work even when the current key cannot open the ciphertext.
	wrongKey := make([]byte, 32)
	has, err := NewCredentialRepo(db, wrongKey).Has(ctx, 42)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestCredentialRepo_Describe(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey())
	ctx := context.Background()

	err := repo.Store(ctx, 42, "alice", "token")
	require.NoError(t, err)

	cred, err := repo.Describe(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, int64(42), cred.UserID)
	assert.Equal(t, "alice", cred.Username)
	assert.False(t, cred.CreatedAt.IsZero())

	missing, err := repo.Describe(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCredentialRepo_NilKeyDisablesVault(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, nil)
	ctx := context.Background()

	err := repo.Store(ctx, 42, "alice", "token")
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	_, err = repo.Retrieve(ctx, 42)
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}

func TestCredentialRepo_UserIsolation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey())
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, 1, "alice", "alice-token"))
	require.NoError(t, repo.Store(ctx, 2, "bob", "bob-token"))

	aliceToken, err := repo.Retrieve(ctx, 1)
	require.NoError(t, err)
	bobToken, err := repo.Retrieve(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, "alice-token", aliceToken)
	assert.Equal(t, "bob-token", bobToken)

	require.NoError(t, repo.Remove(ctx, 1))

	bobToken, err = repo.Retrieve(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "bob-token", bobToken, "removing alice must not touch bob")
}

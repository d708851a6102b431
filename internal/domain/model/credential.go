package model

import "time"

// UserCredential describes a stored Blinko API token for a Telegram user.
// The token itself never appears here; the vault hands out plaintext only
// through CredentialVault.Retrieve. At most one credential exists per user,
// and storing a new one replaces the old atomically.
type UserCredential struct {
	UserID    int64  // Telegram user ID.
	Username  string // Telegram username or first name, for /status display.
	CreatedAt time.Time
	UpdatedAt time.Time
}

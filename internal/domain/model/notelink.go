package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// NoteLink records the correlation between a bot-sent confirmation message
// and the remote Blinko note it announced. Replies to that confirmation are
// resolved through this link and become edits of the same note rather than
// duplicates. The key is the bot's own message ID, not the user's command
// message: users reply to the confirmation, and that ID stays stable across
// repeated edits.
type NoteLink struct {
	UserID      int64 // Telegram user who owns the note.
	ChatID      int64
	MessageID   int64 // The bot's confirmation message ID.
	NoteID      string
	Kind        NoteKind
	ContentHash string // hex sha256 of the last content sent to Blinko.
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HashContent computes the content fingerprint stored on a NoteLink.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

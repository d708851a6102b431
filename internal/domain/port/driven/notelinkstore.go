package driven

import (
	"context"

	"github.com/ericfisherdev/blinkobot/internal/domain/model"
)

// NoteLinkStore is the driven port for the message-to-note correlation table.
type NoteLinkStore interface {
	// Record inserts a NoteLink, replacing any existing link with the same
	// (user, chat, message) key. Re-recording the same confirmation message
	// refreshes its content hash and updated_at while keeping CreatedAt.
	Record(ctx context.Context, link model.NoteLink) error

	// Lookup returns the link for the given bot message, or nil when the
	// message was never recorded (reply is not trackable).
	Lookup(ctx context.Context, userID, chatID, messageID int64) (*model.NoteLink, error)

	// UpdateNoteID re-points an existing link at a new remote note ID.
	// Used when the remote service reissued an ID on edit.
	UpdateNoteID(ctx context.Context, userID, chatID, messageID int64, newNoteID string) error

	// Count returns the number of tracked confirmation messages.
	Count(ctx context.Context) (int, error)
}

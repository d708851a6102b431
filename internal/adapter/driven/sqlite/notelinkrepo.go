package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/blinkobot/internal/domain/model"
	"github.com/ericfisherdev/blinkobot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NoteLinkStore = (*NoteLinkRepo)(nil)

// NoteLinkRepo is the SQLite implementation of the NoteLinkStore port. It
// keeps the mapping from bot-sent confirmation messages to remote note IDs
// that makes reply-to-update possible.
type NoteLinkRepo struct {
	db *DB
}

// NewNoteLinkRepo creates a new NoteLinkRepo backed by the given DB.
func NewNoteLinkRepo(db *DB) *NoteLinkRepo {
	return &NoteLinkRepo{db: db}
}

// Record inserts a link, replacing any existing link for the same
// (user, chat, message) key. Overwriting refreshes note_id, kind, and
// content_hash but keeps the original created_at.
func (r *NoteLinkRepo) Record(ctx context.Context, link model.NoteLink) error {
	const query = `
		INSERT INTO note_links (user_id, chat_id, message_id, note_id, kind, content_hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, chat_id, message_id) DO UPDATE SET
			note_id = excluded.note_id,
			kind = excluded.kind,
			content_hash = excluded.content_hash,
			updated_at = CURRENT_TIMESTAMP`

	_, err := r.db.Writer.ExecContext(ctx, query,
		link.UserID, link.ChatID, link.MessageID, link.NoteID, int(link.Kind), link.ContentHash)
	if err != nil {
		return fmt.Errorf("record note link (chat %d, message %d): %w", link.ChatID, link.MessageID, err)
	}
	return nil
}

// Lookup returns the link for the given bot message, or nil when the message
// was never recorded.
func (r *NoteLinkRepo) Lookup(ctx context.Context, userID, chatID, messageID int64) (*model.NoteLink, error) {
	const query = `
		SELECT note_id, kind, content_hash, created_at, updated_at
		FROM note_links
		WHERE user_id = ? AND chat_id = ? AND message_id = ?`

	link := model.NoteLink{
		UserID:    userID,
		ChatID:    chatID,
		MessageID: messageID,
	}
	var kind int
	var createdAt, updatedAt string

	err := r.db.Reader.QueryRowContext(ctx, query, userID, chatID, messageID).
		Scan(&link.NoteID, &kind, &link.ContentHash, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup note link (chat %d, message %d): %w", chatID, messageID, err)
	}

	link.Kind = model.NoteKind(kind)
	link.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	link.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &link, nil
}

// UpdateNoteID re-points an existing link at a new remote note ID. Returns
// an error if no link exists for the key.
func (r *NoteLinkRepo) UpdateNoteID(ctx context.Context, userID, chatID, messageID int64, newNoteID string) error {
	const query = `
		UPDATE note_links
		SET note_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND chat_id = ? AND message_id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, newNoteID, userID, chatID, messageID)
	if err != nil {
		return fmt.Errorf("update note id (chat %d, message %d): %w", chatID, messageID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("note link (chat %d, message %d) not found", chatID, messageID)
	}

	return nil
}

// Count returns the number of tracked confirmation messages.
func (r *NoteLinkRepo) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM note_links`
	var n int
	if err := r.db.Reader.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count note links: %w", err)
	}
	return n, nil
}

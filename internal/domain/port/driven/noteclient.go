package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/blinkobot/internal/domain/model"
)

// Sentinel errors for remote note operations. Adapters translate HTTP
// failures into these; the application layer matches them with errors.Is
// and turns them into user-visible messages.
var (
	// ErrUnauthorized means the per-user token was rejected (401/403).
	// The user must reconfigure.
	ErrUnauthorized = errors.New("blinko: token rejected")

	// ErrNoteNotFound means the remote note ID no longer exists (404).
	// Callers fall back to creating a fresh note.
	ErrNoteNotFound = errors.New("blinko: note not found")

	// ErrRemoteServer means the remote service failed (5xx). Retryable by
	// the user, not retried automatically.
	ErrRemoteServer = errors.New("blinko: server error")

	// ErrNetwork wraps connectivity and timeout failures reaching the
	// remote service.
	ErrNetwork = errors.New("blinko: network error")
)

// NoteClient is the driven port for the remote Blinko API. Every call
// carries the caller's own decrypted token; the relay holds no service-level
// credential for Blinko.
type NoteClient interface {
	// CreateNote creates a note of the given kind and returns the remote
	// note ID. Any non-2xx response is an error.
	CreateNote(ctx context.Context, token, content string, kind model.NoteKind) (string, error)

	// UpdateNote replaces the content of an existing note. Returns
	// ErrNoteNotFound when the remote ID no longer exists.
	UpdateNote(ctx context.Context, token, noteID, content string, kind model.NoteKind) error

	// CheckToken verifies a token against the remote API without creating
	// anything. Returns ErrUnauthorized for a rejected token.
	CheckToken(ctx context.Context, token string) error
}

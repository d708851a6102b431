// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ericfisherdev/blinkobot/internal/domain/model"
	"github.com/ericfisherdev/blinkobot/internal/domain/port/driven"
)

// minTokenLength guards against obviously truncated tokens before a remote
// round trip is attempted.
const minTokenLength = 10

// previewLimit caps the content echoed back in confirmation messages.
const previewLimit = 100

// ChatEvent identifies the incoming chat message a service call is handling.
type ChatEvent struct {
	UserID    int64
	Username  string
	ChatID    int64
	MessageID int64 // The user's message; confirmations reply to it.
}

// Stats summarizes relay state for the health endpoint and startup logging.
type Stats struct {
	ConfiguredUsers int
	TrackedNotes    int
}

// PreviewRenderer turns raw note content into a preview string for
// confirmation messages. Implementations may emit platform-specific markup;
// when one is set, confirmations are sent with SendOptions.HTML.
type PreviewRenderer func(content string) string

// RelayService is the command dispatcher. It interprets chat commands and
// replies, consults the vault for the user's token, calls the remote note
// API, and records message-to-note correlations. All failures are translated
// into short user-visible messages here; nothing internal reaches the chat.
type RelayService struct {
	vault     driven.CredentialVault
	links     driven.NoteLinkStore
	notes     driven.NoteClient
	messenger driven.Messenger

	preview     PreviewRenderer
	htmlPreview bool
}

// NewRelayService creates a RelayService over the given ports.
func NewRelayService(
	vault driven.CredentialVault,
	links driven.NoteLinkStore,
	notes driven.NoteClient,
	messenger driven.Messenger,
) *RelayService {
	return &RelayService{
		vault:     vault,
		links:     links,
		notes:     notes,
		messenger: messenger,
		preview:   plainPreview,
	}
}

// SetPreviewRenderer installs a platform-specific confirmation preview
// renderer. Confirmations are then delivered in HTML mode.
func (s *RelayService) SetPreviewRenderer(r PreviewRenderer) {
	s.preview = r
	s.htmlPreview = true
}

// Configure validates and stores the user's Blinko token. The token is
// checked against the remote API before it is written to the vault.
func (s *RelayService) Configure(ctx context.Context, ev ChatEvent, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.reply(ctx, ev, "Send your Blinko API token along with the command: /configure <token>")
	}
	if len(token) < minTokenLength {
		return s.reply(ctx, ev, "That token looks too short. Check it and try again.")
	}

	s.messenger.SendTyping(ctx, ev.ChatID)

	if err := s.notes.CheckToken(ctx, token); err != nil {
		switch {
		case errors.Is(err, driven.ErrUnauthorized):
			return s.reply(ctx, ev, "❌ Blinko rejected that token. Make sure it is copied correctly and has not expired.")
		case errors.Is(err, driven.ErrNetwork):
			return s.reply(ctx, ev, "❌ Could not reach the Blinko server to verify the token. Check the server and try again.")
		default:
			return s.reply(ctx, ev, "❌ Token verification failed. Try again later.")
		}
	}

	if err := s.vault.Store(ctx, ev.UserID, ev.Username, token); err != nil {
		slog.Error("storing credential failed", "user_id", ev.UserID, "error", err)
		return s.reply(ctx, ev, "❌ Could not save your configuration. Try again.")
	}

	slog.Info("user configured", "user_id", ev.UserID)
	return s.reply(ctx, ev, "✅ Configuration saved. Send notes with /note or /blinko, and reply to a confirmation to edit.")
}

// CreateNote creates a remote note of the given kind and records the
// correlation between the confirmation message and the new note.
func (s *RelayService) CreateNote(ctx context.Context, ev ChatEvent, text string, kind model.NoteKind) error {
	token, ok, err := s.token(ctx, ev)
	if err != nil || !ok {
		return err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return s.reply(ctx, ev, fmt.Sprintf("Provide some content: /%s <text>", kind))
	}

	s.messenger.SendTyping(ctx, ev.ChatID)

	noteID, err := s.notes.CreateNote(ctx, token, text, kind)
	if err != nil {
		return s.replyRemoteError(ctx, ev, err)
	}

	confirmation := fmt.Sprintf("✅ %s added to Blinko (ID: %s)\n\n%s",
		titleKind(kind), noteID, s.preview(text))

	msgID, err := s.messenger.SendMessage(ctx, ev.ChatID, confirmation, driven.SendOptions{
		ReplyTo: ev.MessageID,
		HTML:    s.htmlPreview,
	})
	if err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}

	link := model.NoteLink{
		UserID:      ev.UserID,
		ChatID:      ev.ChatID,
		MessageID:   msgID,
		NoteID:      noteID,
		Kind:        kind,
		ContentHash: model.HashContent(text),
	}
	if err := s.links.Record(ctx, link); err != nil {
		// The note exists remotely; only reply-to-update is lost.
		slog.Error("recording note link failed", "user_id", ev.UserID, "note_id", noteID, "error", err)
		return err
	}

	slog.Info("note created", "user_id", ev.UserID, "note_id", noteID, "kind", kind.String())
	return nil
}

// UpdateFromReply handles a plain-text reply to one of the bot's messages.
// If the replied-to message is a tracked confirmation, the linked remote
// note is updated in place. An untracked reply is ignored. When the remote
// note has been deleted upstream, a fresh note is created and the
// correlation is re-pointed at its ID instead of dropping the user's text.
func (s *RelayService) UpdateFromReply(ctx context.Context, ev ChatEvent, repliedMessageID int64, text string) error {
	link, err := s.links.Lookup(ctx, ev.UserID, ev.ChatID, repliedMessageID)
	if err != nil {
		slog.Error("note link lookup failed", "user_id", ev.UserID, "error", err)
		return err
	}
	if link == nil {
		// Not one of ours, or recorded by another user. Stay silent.
		return nil
	}

	token, ok, err := s.token(ctx, ev)
	if err != nil || !ok {
		return err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return s.reply(ctx, ev, "Update content cannot be empty.")
	}

	s.messenger.SendTyping(ctx, ev.ChatID)

	err = s.notes.UpdateNote(ctx, token, link.NoteID, text, link.Kind)
	switch {
	case err == nil:
		link.ContentHash = model.HashContent(text)
		if err := s.links.Record(ctx, *link); err != nil {
			slog.Error("refreshing note link failed", "user_id", ev.UserID, "note_id", link.NoteID, "error", err)
		}
		slog.Info("note updated", "user_id", ev.UserID, "note_id", link.NoteID)
		return s.replyFormatted(ctx, ev, fmt.Sprintf("✅ %s updated\n\n%s", titleKind(link.Kind), s.preview(text)))

	case errors.Is(err, driven.ErrNoteNotFound):
		// The remote note is gone; honor the user's intent with a new one.
		newID, createErr := s.notes.CreateNote(ctx, token, text, link.Kind)
		if createErr != nil {
			return s.replyRemoteError(ctx, ev, createErr)
		}
		if err := s.links.UpdateNoteID(ctx, ev.UserID, ev.ChatID, repliedMessageID, newID); err != nil {
			slog.Error("re-pointing note link failed", "user_id", ev.UserID, "note_id", newID, "error", err)
		}
		slog.Info("note recreated after upstream delete",
			"user_id", ev.UserID, "old_note_id", link.NoteID, "new_note_id", newID)
		return s.replyFormatted(ctx, ev, fmt.Sprintf("✅ The original %s was gone, so a new one was created (ID: %s)\n\n%s",
			link.Kind, newID, s.preview(text)))

	default:
		return s.replyRemoteError(ctx, ev, err)
	}
}

// Status reports whether the user is configured, without revealing the token.
// The stored token is test-driven against the remote API so an expired or
// unreadable credential shows up here instead of on the next note.
func (s *RelayService) Status(ctx context.Context, ev ChatEvent) error {
	cred, err := s.vault.Describe(ctx, ev.UserID)
	if err != nil {
		slog.Error("describe credential failed", "user_id", ev.UserID, "error", err)
		return s.reply(ctx, ev, "❌ Could not read your configuration. Try again.")
	}
	if cred == nil {
		return s.reply(ctx, ev, "Not configured. Use /configure <token> to get started.")
	}

	token, err := s.vault.Retrieve(ctx, ev.UserID)
	if errors.Is(err, driven.ErrDecryptFailed) {
		return s.reply(ctx, ev, "⚠️ Your stored token can no longer be read (the server's encryption key changed). Reconfigure with /configure <token>.")
	}
	if err != nil {
		slog.Error("retrieve credential failed", "user_id", ev.UserID, "error", err)
		return s.reply(ctx, ev, "❌ Could not read your configuration. Try again.")
	}

	tokenState := "active"
	if err := s.notes.CheckToken(ctx, token); err != nil {
		if errors.Is(err, driven.ErrUnauthorized) {
			tokenState = "invalid or expired — reconfigure with /configure"
		} else {
			tokenState = "could not be verified (Blinko unreachable)"
		}
	}

	return s.reply(ctx, ev, fmt.Sprintf(
		"Configured as %s since %s.\nToken: %s.",
		cred.Username, cred.CreatedAt.Format("2006-01-02"), tokenState))
}

// Reset removes the user's stored token. Note links are kept: old
// confirmations become repliable again if the user reconfigures.
func (s *RelayService) Reset(ctx context.Context, ev ChatEvent) error {
	if err := s.vault.Remove(ctx, ev.UserID); err != nil {
		slog.Error("remove credential failed", "user_id", ev.UserID, "error", err)
		return s.reply(ctx, ev, "❌ Could not remove your configuration. Try again.")
	}

	slog.Info("user reset", "user_id", ev.UserID)
	return s.reply(ctx, ev, "✅ Configuration removed. Your token has been deleted. Use /configure <token> to set up again.")
}

// Stats returns relay-wide counters.
func (s *RelayService) Stats(ctx context.Context) (Stats, error) {
	users, err := s.vault.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	notes, err := s.links.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{ConfiguredUsers: users, TrackedNotes: notes}, nil
}

// token fetches the user's decrypted token. A missing or unreadable
// credential sends the "configure first" message and reports ok=false; no
// remote call happens in that case.
func (s *RelayService) token(ctx context.Context, ev ChatEvent) (token string, ok bool, err error) {
	token, err = s.vault.Retrieve(ctx, ev.UserID)
	if errors.Is(err, driven.ErrDecryptFailed) {
		return "", false, s.reply(ctx, ev, "⚠️ Your stored token can no longer be read. Reconfigure with /configure <token>.")
	}
	if err != nil {
		slog.Error("retrieve credential failed", "user_id", ev.UserID, "error", err)
		return "", false, s.reply(ctx, ev, "❌ Could not read your configuration. Try again.")
	}
	if token == "" {
		return "", false, s.reply(ctx, ev, "You need to configure your Blinko token first: /configure <token>")
	}
	return token, true, nil
}

// replyRemoteError maps a NoteClient failure onto a short user message.
func (s *RelayService) replyRemoteError(ctx context.Context, ev ChatEvent, err error) error {
	switch {
	case errors.Is(err, driven.ErrUnauthorized):
		return s.reply(ctx, ev, "❌ Your token was rejected by Blinko. Reconfigure with /configure <token>.")
	case errors.Is(err, driven.ErrNetwork):
		return s.reply(ctx, ev, "❌ Could not reach the Blinko server. Try again in a moment.")
	case errors.Is(err, driven.ErrRemoteServer):
		return s.reply(ctx, ev, "❌ The Blinko server returned an error. Try again later.")
	default:
		slog.Error("remote note operation failed", "user_id", ev.UserID, "error", err)
		return s.reply(ctx, ev, "❌ Something went wrong talking to Blinko. Try again.")
	}
}

// reply sends a plain-text reply to the triggering message.
func (s *RelayService) reply(ctx context.Context, ev ChatEvent, text string) error {
	_, err := s.messenger.SendMessage(ctx, ev.ChatID, text, driven.SendOptions{ReplyTo: ev.MessageID})
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// replyFormatted sends a reply that may carry rendered preview markup.
func (s *RelayService) replyFormatted(ctx context.Context, ev ChatEvent, text string) error {
	_, err := s.messenger.SendMessage(ctx, ev.ChatID, text, driven.SendOptions{
		ReplyTo: ev.MessageID,
		HTML:    s.htmlPreview,
	})
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// plainPreview truncates content for confirmation messages.
func plainPreview(content string) string {
	if utf8.RuneCountInString(content) <= previewLimit {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLimit]) + "…"
}

// titleKind capitalizes a kind name for message headers.
func titleKind(k model.NoteKind) string {
	name := k.String()
	return strings.ToUpper(name[:1]) + name[1:]
}

package driven

import "context"

// SendOptions controls how a chat message is delivered.
type SendOptions struct {
	// ReplyTo makes the message a reply to the given message ID when non-zero.
	ReplyTo int64
	// HTML enables Telegram HTML parse mode. Text must already be sanitized.
	HTML bool
}

// Messenger is the driven port for sending messages back to the chat
// platform. The application layer uses the returned message ID as the
// correlation key for reply-to-update.
type Messenger interface {
	// SendMessage delivers text to the chat and returns the platform-assigned
	// ID of the sent message.
	SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) (int64, error)

	// SendTyping shows a typing indicator while a remote call is in flight.
	// Failures are ignorable; implementations log and move on.
	SendTyping(ctx context.Context, chatID int64)
}

package telegram

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/blinkobot/internal/application"
	"github.com/ericfisherdev/blinkobot/internal/domain/model"
	"github.com/ericfisherdev/blinkobot/internal/domain/port/driven"
)

// errBackoff is how long the poller waits after a failed getUpdates before
// trying again.
const errBackoff = 3 * time.Second

const helpText = `I relay notes to your Blinko server.

/configure <token> - set your Blinko API token
/note <text> - save a note
/blinko <text> - save a blinko
/status - check your configuration
/reset - remove your stored token

Reply to one of my confirmation messages with new text to update that note.`

// Poller runs the getUpdates long-poll loop and dispatches each incoming
// message to the relay service.
type Poller struct {
	api         *Client
	out         driven.Messenger
	svc         *application.RelayService
	pollTimeout time.Duration

	botID       int64
	botUsername string
}

// NewPoller creates a Poller over the given API client and relay service.
func NewPoller(api *Client, svc *application.RelayService, pollTimeout time.Duration) *Poller {
	return &Poller{
		api:         api,
		out:         api,
		svc:         svc,
		pollTimeout: pollTimeout,
	}
}

// Run identifies the bot account and then long-polls for updates until the
// context is canceled. Updates within a batch are handled sequentially, so
// a user's commands apply in the order they were sent.
func (p *Poller) Run(ctx context.Context) error {
	me, err := p.api.GetMe(ctx)
	if err != nil {
		return err
	}
	p.botID = me.ID
	p.botUsername = me.Username
	slog.Info("telegram bot identified", "username", me.Username, "bot_id", me.ID)

	var offset int64
	for {
		updates, err := p.api.GetUpdates(ctx, offset, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("telegram poller stopped")
				return nil
			}
			slog.Error("get updates failed", "error", err)
			select {
			case <-ctx.Done():
				slog.Info("telegram poller stopped")
				return nil
			case <-time.After(errBackoff):
			}
			continue
		}

		for _, u := range updates {
			if u.ID >= offset {
				offset = u.ID + 1
			}
			p.handleUpdate(ctx, u)
		}
	}
}

// handleUpdate classifies one update as a command or a reply and dispatches
// it. Errors are logged here; they never abort the poll loop.
func (p *Poller) handleUpdate(ctx context.Context, u Update) {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}

	ev := application.ChatEvent{
		UserID:    msg.From.ID,
		Username:  displayName(msg.From),
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
	}

	var err error
	switch {
	case strings.HasPrefix(msg.Text, "/"):
		err = p.handleCommand(ctx, ev, msg.Text)
	case msg.ReplyTo != nil && msg.ReplyTo.From != nil && msg.ReplyTo.From.ID == p.botID && msg.Text != "":
		err = p.svc.UpdateFromReply(ctx, ev, msg.ReplyTo.ID, msg.Text)
	}
	if err != nil {
		slog.Error("handling update failed", "update_id", u.ID, "user_id", ev.UserID, "error", err)
	}
}

// handleCommand routes a slash command. Unknown commands are ignored, as in
// group chats they are usually addressed to other bots.
func (p *Poller) handleCommand(ctx context.Context, ev application.ChatEvent, text string) error {
	cmd, args := parseCommand(text, p.botUsername)

	switch cmd {
	case "start", "help":
		_, err := p.out.SendMessage(ctx, ev.ChatID, helpText, sendOpts(ev))
		return err
	case "configure":
		return p.svc.Configure(ctx, ev, args)
	case "note":
		return p.svc.CreateNote(ctx, ev, args, model.KindNote)
	case "blinko":
		return p.svc.CreateNote(ctx, ev, args, model.KindBlinko)
	case "status":
		return p.svc.Status(ctx, ev)
	case "reset":
		return p.svc.Reset(ctx, ev)
	default:
		return nil
	}
}

// parseCommand splits "/cmd@BotName rest of text" into ("cmd", "rest of
// text"). An @mention of a different bot yields an empty command so the
// update is ignored.
func parseCommand(text, botUsername string) (cmd, args string) {
	text = strings.TrimPrefix(text, "/")
	cmd, args, _ = strings.Cut(text, " ")

	if base, mention, found := strings.Cut(cmd, "@"); found {
		if !strings.EqualFold(mention, botUsername) {
			return "", ""
		}
		cmd = base
	}

	return strings.ToLower(cmd), strings.TrimSpace(args)
}

// sendOpts replies to the triggering message.
func sendOpts(ev application.ChatEvent) driven.SendOptions {
	return driven.SendOptions{ReplyTo: ev.MessageID}
}

// displayName prefers the username and falls back to the first name; it is
// what /status shows back to the user.
func displayName(u *User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

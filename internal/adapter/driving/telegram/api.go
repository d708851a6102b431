// Package telegram is the chat transport: a hand-rolled Telegram Bot API
// client plus the long-polling loop that feeds updates into the relay
// service. The outbound half doubles as the Messenger port implementation.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/blinkobot/internal/domain/port/driven"
)

const defaultAPIURL = "https://api.telegram.org"

// Compile-time interface satisfaction check.
var _ driven.Messenger = (*Client)(nil)

// Client is a minimal Telegram Bot API client. It covers exactly the
// methods the relay needs: getMe, getUpdates, sendMessage, sendChatAction.
type Client struct {
	token  string
	apiURL string
	httpc  *http.Client
}

// NewClient creates a Bot API client. pollTimeout is the long-poll duration
// passed to getUpdates; the underlying HTTP timeout leaves headroom above it
// so a quiet long poll is not cut short.
func NewClient(token string, pollTimeout time.Duration) *Client {
	return &Client{
		token:  token,
		apiURL: defaultAPIURL,
		httpc:  &http.Client{Timeout: pollTimeout + 10*time.Second},
	}
}

// NewClientWithAPIURL creates a Client against a custom API URL. Intended
// for testing against an httptest server.
func NewClientWithAPIURL(token, apiURL string, httpc *http.Client) *Client {
	return &Client{token: token, apiURL: apiURL, httpc: httpc}
}

// User is a Telegram user or bot account.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// Chat is the conversation a message belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// Message is an incoming or sent chat message. Only the fields the relay
// reads are mapped.
type Message struct {
	ID      int64    `json:"message_id"`
	From    *User    `json:"from"`
	Chat    Chat     `json:"chat"`
	Text    string   `json:"text"`
	ReplyTo *Message `json:"reply_to_message"`
}

// Update is one entry from getUpdates.
type Update struct {
	ID      int64    `json:"update_id"`
	Message *Message `json:"message"`
}

// GetMe returns the bot's own account, used to recognize replies to the bot
// and to strip @BotName command suffixes.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetUpdates long-polls for new updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	params := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage delivers text to a chat and returns the sent message's ID.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts driven.SendOptions) (int64, error) {
	params := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if opts.ReplyTo != 0 {
		params["reply_to_message_id"] = opts.ReplyTo
	}
	if opts.HTML {
		params["parse_mode"] = "HTML"
	}

	var sent Message
	if err := c.call(ctx, "sendMessage", params, &sent); err != nil {
		return 0, err
	}
	return sent.ID, nil
}

// SendTyping shows a typing indicator. Failures are logged and swallowed;
// the indicator is cosmetic.
func (c *Client) SendTyping(ctx context.Context, chatID int64) {
	params := map[string]any{
		"chat_id": chatID,
		"action":  "typing",
	}
	var ignored json.RawMessage
	if err := c.call(ctx, "sendChatAction", params, &ignored); err != nil {
		slog.Debug("send chat action failed", "chat_id", chatID, "error", err)
	}
}

// apiResponse is the Bot API envelope every method returns.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// call posts a Bot API method and decodes its result into out.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	var body io.Reader
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("telegram %s: encode params: %w", method, err)
		}
		body = bytes.NewReader(data)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("telegram %s: build request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram %s: decode response: %w", method, err)
	}

	if !envelope.OK {
		return fmt.Errorf("telegram %s: api error %d: %s", method, envelope.ErrorCode, envelope.Description)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}

	return nil
}

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const apiBase = "https://api.telegram.org/bot"

// Client is a minimal Bot API client over plain HTTP. Every method posts a
// JSON payload and unwraps the standard {ok, result, description} envelope.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a client for the given bot token.
func New(token string) *Client {
	return NewWithBaseURL(apiBase + token)
}

// NewWithBaseURL creates a client against an explicit API base URL. Tests
// point this at a local server.
func NewWithBaseURL(baseURL string) *Client {
	return &Client{
		// The timeout must sit above the long-poll window of GetUpdates.
		httpClient: &http.Client{Timeout: 65 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// call posts payload to one API method and decodes the envelope. A non-nil
// result receives the unmarshalled result field.
func (c *Client) call(ctx context.Context, method string, payload, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("call %s: encoding payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("call %s: building request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("call %s: decoding response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("call %s: telegram error %d: %s", method, envelope.ErrorCode, envelope.Description)
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("call %s: decoding result: %w", method, err)
		}
	}
	return nil
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// GetUpdates long-polls for updates after offset, waiting up to timeout
// seconds server-side.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", getUpdatesRequest{
		Offset:         offset,
		Timeout:        timeout,
		AllowedUpdates: []string{"message", "callback_query"},
	}, &updates)
	if err != nil {
		return nil, fmt.Errorf("GetUpdates: %w", err)
	}
	return updates, nil
}

type sendMessageRequest struct {
	ChatID      int64                 `json:"chat_id"`
	Text        string                `json:"text"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// SendMessage sends an HTML-formatted message, optionally with an inline
// keyboard, and returns the sent message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboardMarkup) (*Message, error) {
	var sent Message
	err := c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: keyboard,
	}, &sent)
	if err != nil {
		return nil, fmt.Errorf("SendMessage: %w", err)
	}
	return &sent, nil
}

type editMessageTextRequest struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int64                 `json:"message_id"`
	Text        string                `json:"text"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// EditMessageText rewrites a sent message in place. Telegram rejects edits
// that change nothing; that rejection is not an error for us.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *InlineKeyboardMarkup) error {
	err := c.call(ctx, "editMessageText", editMessageTextRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: keyboard,
	}, nil)
	if err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("EditMessageText: %w", err)
	}
	return nil
}

type deleteMessageRequest struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

// DeleteMessage removes a sent message.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	err := c.call(ctx, "deleteMessage", deleteMessageRequest{ChatID: chatID, MessageID: messageID}, nil)
	if err != nil {
		return fmt.Errorf("DeleteMessage: %w", err)
	}
	return nil
}

type answerCallbackQueryRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
	ShowAlert       bool   `json:"show_alert,omitempty"`
}

// AnswerCallbackQuery acknowledges a button press, optionally with a toast
// or a popup alert. Every callback must be answered or the client keeps a
// spinner on the button.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string, showAlert bool) error {
	err := c.call(ctx, "answerCallbackQuery", answerCallbackQueryRequest{
		CallbackQueryID: callbackQueryID,
		Text:            text,
		ShowAlert:       showAlert,
	}, nil)
	if err != nil {
		return fmt.Errorf("AnswerCallbackQuery: %w", err)
	}
	return nil
}

type setMyCommandsRequest struct {
	Commands []BotCommand `json:"commands"`
}

// SetMyCommands publishes the bot's command menu.
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	err := c.call(ctx, "setMyCommands", setMyCommandsRequest{Commands: commands}, nil)
	if err != nil {
		return fmt.Errorf("SetMyCommands: %w", err)
	}
	return nil
}

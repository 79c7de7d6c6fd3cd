package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/wayfarer/internal/dialogue"
)

const DefaultAPIURL = "https://api.telegram.org"

// APIError is a response with ok=false.
type APIError struct {
	Code        int    `json:"error_code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram error %d: %s", e.Code, e.Description)
}

func (e *APIError) entityRejected() bool {
	return e.Code == http.StatusBadRequest && strings.Contains(e.Description, "can't parse entities")
}

type Client struct {
	token  string
	apiURL string
	client *http.Client
	logger *slog.Logger
}

func NewClient(token, apiURL string, logger *slog.Logger) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		token:  token,
		apiURL: strings.TrimRight(apiURL, "/"),
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

type keyboardButton struct {
	Text            string `json:"text"`
	RequestLocation bool   `json:"request_location,omitempty"`
}

type replyMarkup struct {
	Keyboard        [][]keyboardButton `json:"keyboard,omitempty"`
	ResizeKeyboard  bool               `json:"resize_keyboard,omitempty"`
	OneTimeKeyboard bool               `json:"one_time_keyboard,omitempty"`
	RemoveKeyboard  bool               `json:"remove_keyboard,omitempty"`
}

type sendMessageRequest struct {
	ChatID      int64        `json:"chat_id"`
	Text        string       `json:"text"`
	ParseMode   string       `json:"parse_mode,omitempty"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

// Send delivers a dialogue message. Markdown that Telegram refuses to parse
// is resent as plain text.
func (c *Client) Send(ctx context.Context, chatID int64, msg dialogue.Message) error {
	req := sendMessageRequest{ChatID: chatID, Text: msg.Text}
	if msg.Markdown {
		req.ParseMode = "Markdown"
	}
	switch {
	case msg.RequestLocation:
		req.ReplyMarkup = &replyMarkup{
			Keyboard:        [][]keyboardButton{{{Text: dialogue.TextLocationButton, RequestLocation: true}}},
			ResizeKeyboard:  true,
			OneTimeKeyboard: true,
		}
	case msg.RemoveKeyboard:
		req.ReplyMarkup = &replyMarkup{RemoveKeyboard: true}
	}

	err := c.call(ctx, "sendMessage", req, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && req.ParseMode != "" && apiErr.entityRejected() {
		c.logger.Warn("markdown rejected, resending as plain text", "chat_id", chatID, "error", apiErr)
		req.ParseMode = ""
		err = c.call(ctx, "sendMessage", req, nil)
	}
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	c.logger.Debug("message sent", "chat_id", chatID, "chars", len([]rune(msg.Text)))
	return nil
}

// GetUpdates long-polls for updates after offset, waiting up to timeout.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message"},
	}, &updates)
	if err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}
	return updates, nil
}

// DeleteWebhook clears any webhook so that getUpdates is allowed.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	if err := c.call(ctx, "deleteWebhook", map[string]any{}, nil); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, redact(err, c.token))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		OK          bool            `json:"ok"`
		Result      json.RawMessage `json:"result"`
		ErrorCode   int             `json:"error_code"`
		Description string          `json:"description"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("parse telegram response (status %d): %w", resp.StatusCode, err)
	}
	if !envelope.OK {
		code := envelope.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return &APIError{Code: code, Description: envelope.Description}
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("parse %s result: %w", method, err)
		}
	}
	return nil
}

// redact keeps the bot token out of logged URL errors.
func redact(err error, token string) error {
	if token == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), token, "<token>"))
}

// Package telegram is a small Bot API client covering the methods the bot uses:
// long polling, webhooks, messages with inline URL buttons and file downloads.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/config"
)

var allowedUpdates = []string{"message"}

type Client struct {
	baseURL        string
	token          string
	httpClient     *http.Client
	requestTimeout time.Duration
	maxImageBytes  int64
	logger         *slog.Logger
}

func NewClient(cfg config.BotConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:        strings.TrimRight(cfg.APIBaseURL, "/"),
		token:          cfg.Token,
		httpClient:     &http.Client{},
		requestTimeout: cfg.RequestTimeout,
		maxImageBytes:  cfg.MaxImageBytes,
		logger:         logger,
	}
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// GetUpdates long-polls for new messages. The request deadline is the poll
// timeout plus the regular request timeout.
func (c *Client) GetUpdates(ctx context.Context, offset int64, limit int, timeout time.Duration) ([]Update, error) {
	req := getUpdatesRequest{
		Offset:         offset,
		Limit:          limit,
		Timeout:        int(timeout.Seconds()),
		AllowedUpdates: allowedUpdates,
	}
	return call[getUpdatesRequest, []Update](c, ctx, "getUpdates", &req, timeout+c.requestTimeout)
}

// Send implements application.Messenger. Buttons are laid out one per row.
func (c *Client) Send(ctx context.Context, msg application.OutgoingMessage) error {
	req := sendMessageRequest{
		ChatID:                msg.ChatID,
		Text:                  msg.Text,
		DisableWebPagePreview: true,
	}
	if len(msg.Buttons) > 0 {
		markup := &inlineKeyboardMarkup{}
		for _, b := range msg.Buttons {
			markup.InlineKeyboard = append(markup.InlineKeyboard, []inlineKeyboardButton{{Text: b.Text, URL: b.URL}})
		}
		req.ReplyMarkup = markup
	}

	_, err := call[sendMessageRequest, json.RawMessage](c, ctx, "sendMessage", &req, c.requestTimeout)
	return err
}

func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	f, err := call[getFileRequest, File](c, ctx, "getFile", &getFileRequest{FileID: fileID}, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// DownloadFile fetches a file previously resolved by GetFile, refusing bodies
// larger than maxBytes.
func (c *Client) DownloadFile(ctx context.Context, filePath string, maxBytes int64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, strings.TrimLeft(filePath, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", filePath, redact(err, c.token))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Method: "file", StatusCode: resp.StatusCode, Description: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", filePath, maxBytes)
	}
	return data, nil
}

func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	req := setWebhookRequest{URL: url, SecretToken: secret, AllowedUpdates: allowedUpdates}
	_, err := call[setWebhookRequest, bool](c, ctx, "setWebhook", &req, c.requestTimeout)
	return err
}

// DeleteWebhook is required before long polling when a webhook was registered earlier.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := call[deleteWebhookRequest, bool](c, ctx, "deleteWebhook", &deleteWebhookRequest{}, c.requestTimeout)
	return err
}

func (c *Client) GetMe(ctx context.Context) (*User, error) {
	u, err := call[any, User](c, ctx, "getMe", nil, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func call[Req any, Resp any](c *Client, ctx context.Context, method string, reqBody *Req, timeout time.Duration) (Resp, error) {
	var zero Resp

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body := []byte("{}")
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return zero, fmt.Errorf("error marshalling json: %w", err)
		}
		body = jsonData
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return zero, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return zero, fmt.Errorf("telegram %s: %w", method, redact(err, c.token))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("telegram %s: read body: %w", method, err)
	}

	var envelope apiResponse[Resp]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		if resp.StatusCode != http.StatusOK {
			return zero, &APIError{Method: method, StatusCode: resp.StatusCode, Description: strings.TrimSpace(string(raw))}
		}
		return zero, fmt.Errorf("error decoding json response: %w", err)
	}

	if !envelope.OK || resp.StatusCode != http.StatusOK {
		apiErr := &APIError{
			Method:      method,
			StatusCode:  resp.StatusCode,
			Description: envelope.Description,
		}
		if envelope.ErrorCode != 0 {
			apiErr.StatusCode = envelope.ErrorCode
		}
		if envelope.Parameters != nil && envelope.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(envelope.Parameters.RetryAfter) * time.Second
		}
		return zero, apiErr
	}

	return envelope.Result, nil
}

// redact strips the bot token from transport errors, which embed the request URL.
func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return redactedError{msg: strings.ReplaceAll(err.Error(), token, "<token>"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e redactedError) Error() string { return e.msg }
func (e redactedError) Unwrap() error { return e.err }

package telegram_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/config"
	"github.com/DanielPopoola/ocrbot/internal/domain"
	"github.com/DanielPopoola/ocrbot/internal/infrastructure/telegram"
)

const testToken = "123:secret-token"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAPI answers Bot API methods from a table of JSON bodies and records the
// request bodies it received.
type fakeAPI struct {
	t *testing.T

	mu       sync.Mutex
	bodies   map[string][]string
	handlers map[string]func(w http.ResponseWriter, body []byte)
	files    map[string][]byte
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{
		t:        t,
		bodies:   make(map[string][]string),
		handlers: make(map[string]func(http.ResponseWriter, []byte)),
		files:    make(map[string][]byte),
	}
}

func (f *fakeAPI) on(method string, h func(w http.ResponseWriter, body []byte)) {
	f.handlers[method] = h
}

func (f *fakeAPI) reply(method, result string) {
	f.on(method, func(w http.ResponseWriter, _ []byte) {
		_, _ = io.WriteString(w, `{"ok":true,"result":`+result+`}`)
	})
}

func (f *fakeAPI) received(method string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.bodies[method]...)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if path, ok := strings.CutPrefix(r.URL.Path, "/file/bot"+testToken+"/"); ok {
		data, found := f.files[path]
		if !found {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
		return
	}

	method, ok := strings.CutPrefix(r.URL.Path, "/bot"+testToken+"/")
	if !ok {
		http.Error(w, `{"ok":false,"error_code":401,"description":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.bodies[method] = append(f.bodies[method], string(body))
	h := f.handlers[method]
	f.mu.Unlock()

	if h == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
		return
	}
	h(w, body)
}

func newClient(t *testing.T, api *fakeAPI) *telegram.Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return telegram.NewClient(config.BotConfig{
		Token:          testToken,
		APIBaseURL:     srv.URL,
		RequestTimeout: 5 * time.Second,
		MaxImageBytes:  1024,
	}, discardLogger())
}

func TestClient_SendWithButtons(t *testing.T) {
	api := newFakeAPI(t)
	api.reply("sendMessage", `{"message_id":1}`)
	client := newClient(t, api)

	err := client.Send(context.Background(), application.OutgoingMessage{
		ChatID:  42,
		Text:    "hello",
		Buttons: []domain.Button{{Text: "Site", URL: "https://example.com"}, {Text: "Docs", URL: "https://example.com/docs"}},
	})
	require.NoError(t, err)

	bodies := api.received("sendMessage")
	require.Len(t, bodies, 1)

	var sent struct {
		ChatID      int64  `json:"chat_id"`
		Text        string `json:"text"`
		ReplyMarkup struct {
			InlineKeyboard [][]struct {
				Text string `json:"text"`
				URL  string `json:"url"`
			} `json:"inline_keyboard"`
		} `json:"reply_markup"`
	}
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &sent))
	assert.Equal(t, int64(42), sent.ChatID)
	assert.Equal(t, "hello", sent.Text)
	require.Len(t, sent.ReplyMarkup.InlineKeyboard, 2)
	assert.Equal(t, "Docs", sent.ReplyMarkup.InlineKeyboard[1][0].Text)
}

func TestClient_APIErrors(t *testing.T) {
	api := newFakeAPI(t)
	api.on("sendMessage", func(w http.ResponseWriter, _ []byte) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 3","parameters":{"retry_after":3}}`)
	})
	api.on("getFile", func(w http.ResponseWriter, _ []byte) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: invalid file_id"}`)
	})
	client := newClient(t, api)

	err := client.Send(context.Background(), application.OutgoingMessage{ChatID: 1, Text: "x"})
	apiErr, ok := telegram.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 429, apiErr.StatusCode)
	assert.Equal(t, 3*time.Second, apiErr.RetryAfter)
	assert.True(t, apiErr.IsRetryable())

	_, err = client.GetFile(context.Background(), "nope")
	apiErr, ok = telegram.IsAPIError(err)
	require.True(t, ok)
	assert.False(t, apiErr.IsRetryable())
	assert.Contains(t, apiErr.Error(), "invalid file_id")
}

func TestClient_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := telegram.NewClient(config.BotConfig{Token: testToken, APIBaseURL: url, RequestTimeout: time.Second}, discardLogger())
	_, err := client.GetMe(context.Background())

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestClient_GetUpdates(t *testing.T) {
	api := newFakeAPI(t)
	api.reply("getUpdates", `[{"update_id":10,"message":{"message_id":5,"chat":{"id":7,"type":"private"},"from":{"id":7,"first_name":"Ada"},"text":"/start"}}]`)
	client := newClient(t, api)

	updates, err := client.GetUpdates(context.Background(), 10, 50, time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, int64(10), updates[0].UpdateID)
	assert.Equal(t, "/start", updates[0].Message.Text)

	assert.JSONEq(t, `{"offset":10,"limit":50,"timeout":1,"allowed_updates":["message"]}`, api.received("getUpdates")[0])
}

func TestClient_Webhook(t *testing.T) {
	api := newFakeAPI(t)
	api.reply("setWebhook", `true`)
	api.reply("deleteWebhook", `true`)
	client := newClient(t, api)

	require.NoError(t, client.SetWebhook(context.Background(), "https://bot.example.com/webhook/s3cr3t", "s3cr3t"))
	require.NoError(t, client.DeleteWebhook(context.Background()))

	assert.Contains(t, api.received("setWebhook")[0], `"secret_token":"s3cr3t"`)
}

func TestClient_Inbound(t *testing.T) {
	api := newFakeAPI(t)
	api.reply("getFile", `{"file_id":"big","file_path":"photos/file_1.jpg","file_size":4}`)
	api.files["photos/file_1.jpg"] = []byte("JPEG")
	client := newClient(t, api)
	ctx := context.Background()

	t.Run("picks the largest photo", func(t *testing.T) {
		msg, err := client.Inbound(ctx, telegram.Update{Message: &telegram.Message{
			MessageID: 9,
			Chat:      telegram.Chat{ID: 100},
			From:      &telegram.User{ID: 55, Username: "ada"},
			Caption:   "receipt",
			Date:      1700000000,
			Photo: []telegram.PhotoSize{
				{FileID: "small", Width: 90, Height: 90, FileSize: 1},
				{FileID: "big", Width: 800, Height: 600, FileSize: 4},
			},
		}})
		require.NoError(t, err)
		require.NotNil(t, msg)

		assert.Equal(t, domain.NewMessageID(100, 9), msg.ID)
		assert.Equal(t, int64(55), msg.SenderID)
		assert.Equal(t, "ada", msg.SenderName)
		assert.Equal(t, "receipt", msg.Text)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), msg.ReceivedAt)
		require.True(t, msg.HasImage())
		assert.Equal(t, "big", msg.Image.FileID)
		assert.Equal(t, []byte("JPEG"), msg.Image.Data)
		assert.Contains(t, api.received("getFile")[0], `"file_id":"big"`)
	})

	t.Run("oversized image is attached without data", func(t *testing.T) {
		msg, err := client.Inbound(ctx, telegram.Update{Message: &telegram.Message{
			MessageID: 10,
			Chat:      telegram.Chat{ID: 100},
			Document:  &telegram.Document{FileID: "huge", MimeType: "image/png", FileSize: 1 << 20},
		}})
		require.NoError(t, err)
		require.True(t, msg.HasImage())
		assert.Empty(t, msg.Image.Data)
		assert.Equal(t, "image/png", msg.Image.ContentType)
	})

	t.Run("non-image document is plain text", func(t *testing.T) {
		msg, err := client.Inbound(ctx, telegram.Update{Message: &telegram.Message{
			MessageID: 11,
			Chat:      telegram.Chat{ID: 100},
			Text:      "hi",
			Document:  &telegram.Document{FileID: "pdf", MimeType: "application/pdf"},
		}})
		require.NoError(t, err)
		assert.False(t, msg.HasImage())
	})

	t.Run("update without message", func(t *testing.T) {
		msg, err := client.Inbound(ctx, telegram.Update{UpdateID: 1})
		require.NoError(t, err)
		assert.Nil(t, msg)
	})
}

func TestClient_DownloadFileLimit(t *testing.T) {
	api := newFakeAPI(t)
	api.files["docs/big.png"] = []byte(strings.Repeat("x", 2048))
	client := newClient(t, api)

	_, err := client.DownloadFile(context.Background(), "docs/big.png", 1024)
	assert.Error(t, err)

	_, err = client.DownloadFile(context.Background(), "docs/missing.png", 1024)
	assert.Error(t, err)
}

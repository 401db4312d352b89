package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig("test-token")
	cfg.BaseURL = srv.URL
	cfg.RetryAttempts = 1
	cfg.RetryDelay = 10 * time.Millisecond
	return NewClient(cfg)
}

func apiOK(t *testing.T, w http.ResponseWriter, result interface{}) {
	t.Helper()
	data, err := json.Marshal(result)
	require.NoError(t, err)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":     true,
		"result": json.RawMessage(data),
	})
}

func TestSendText(t *testing.T) {
	var gotBody map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		apiOK(t, w, Message{MessageID: 7, Text: "привет"})
	})

	msg, err := client.SendText(context.Background(), 55, "привет")
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.MessageID)

	assert.Equal(t, float64(55), gotBody["chat_id"])
	assert.Equal(t, "привет", gotBody["text"])
}

func TestSendWithKeyboard(t *testing.T) {
	var gotBody map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		apiOK(t, w, Message{MessageID: 8})
	})

	keyboard := [][]InlineKeyboardButton{
		{
			{Text: "Show homework", CallbackData: "list_homework"},
			{Text: "Help", CallbackData: "help"},
		},
	}
	_, err := client.SendWithKeyboard(context.Background(), 55, "Choose an action", keyboard)
	require.NoError(t, err)

	markup, ok := gotBody["reply_markup"].(map[string]interface{})
	require.True(t, ok, "reply_markup must be serialized")
	rows, ok := markup["inline_keyboard"].([]interface{})
	require.True(t, ok)
	require.Len(t, rows, 1)
	row, ok := rows[0].([]interface{})
	require.True(t, ok)
	require.Len(t, row, 2)
	first, ok := row[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Show homework", first["text"])
	assert.Equal(t, "list_homework", first["callback_data"])
}

func TestSendText_OmitsReplyMarkup(t *testing.T) {
	var gotBody map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		apiOK(t, w, Message{MessageID: 9})
	})

	_, err := client.SendText(context.Background(), 55, "hi")
	require.NoError(t, err)
	_, present := gotBody["reply_markup"]
	assert.False(t, present)
}

func TestSendText_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":          false,
			"error_code":  403,
			"description": "Forbidden: bot was blocked by the user",
		})
	})

	_, err := client.SendText(context.Background(), 55, "hi")
	require.Error(t, err)
	assert.True(t, IsUserBlocked(err))
}

func TestCallAPI_RetriesServerError(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"ok":          false,
				"error_code":  502,
				"description": "Bad Gateway",
			})
			return
		}
		apiOK(t, w, Message{MessageID: 1})
	})

	_, err := client.SendText(context.Background(), 55, "hi")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestCallAPI_ClientErrorNotRetried(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":          false,
			"error_code":  400,
			"description": "Bad Request: chat not found",
		})
	})

	_, err := client.SendText(context.Background(), 55, "hi")
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestGetMe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/getMe", r.URL.Path)
		apiOK(t, w, User{ID: 42, IsBot: true, Username: "classbot"})
	})

	me, err := client.GetMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "classbot", me.Username)
	assert.True(t, me.IsBot)
}

func TestUser_FullName(t *testing.T) {
	u := &User{FirstName: "Aidana", LastName: "Serik"}
	assert.Equal(t, "Aidana Serik", u.FullName())

	u = &User{FirstName: "Aidana"}
	assert.Equal(t, "Aidana", u.FullName())
}

func TestExtractCommand(t *testing.T) {
	msg := &Message{
		Text:     "/start",
		Entities: []MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
	}
	assert.Equal(t, "start", ExtractCommand(msg))

	// Команда с упоминанием бота
	msg = &Message{
		Text:     "/help@classbot extra",
		Entities: []MessageEntity{{Type: "bot_command", Offset: 0, Length: 14}},
	}
	assert.Equal(t, "help", ExtractCommand(msg))

	// Обычный текст без entities
	msg = &Message{Text: "что задали?"}
	assert.Equal(t, "", ExtractCommand(msg))

	assert.Equal(t, "", ExtractCommand(nil))
}

func TestIsPrivateChat(t *testing.T) {
	assert.True(t, IsPrivateChat(&Message{Chat: &Chat{Type: "private"}}))
	assert.False(t, IsPrivateChat(&Message{Chat: &Chat{Type: "group"}}))
	assert.False(t, IsPrivateChat(&Message{}))
	assert.False(t, IsPrivateChat(nil))
}

func TestIsUserBlocked(t *testing.T) {
	assert.True(t, IsUserBlocked(&APIError{Code: 403, Description: "Forbidden"}))
	assert.True(t, IsUserBlocked(&APIError{Code: 400, Description: "bot was blocked by the user"}))
	assert.False(t, IsUserBlocked(&APIError{Code: 429, Description: "Too Many Requests"}))
	assert.False(t, IsUserBlocked(nil))
}

package telegram_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nkaliyev/tengebot/internal/telegram"
)

// recordedCall captures the last API method and payload the client posted.
type recordedCall struct {
	path    string
	payload map[string]interface{}
}

// newTestServer serves the given envelope body for every call and records
// what the client sent.
func newTestServer(t *testing.T, body string) (*telegram.Client, *recordedCall) {
	t.Helper()
	rec := &recordedCall{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.path = r.URL.Path
		rec.payload = nil
		if err := json.NewDecoder(r.Body).Decode(&rec.payload); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return telegram.NewWithBaseURL(server.URL), rec
}

func TestSendMessage(t *testing.T) {
	client, rec := newTestServer(t, `{"ok":true,"result":{"message_id":42,"chat":{"id":118},"text":"hi"}}`)

	keyboard := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: "📉 Расход", CallbackData: `{"a":500,"t":"exp"}`}},
		},
	}
	sent, err := client.SendMessage(context.Background(), 118, "<b>hi</b>", keyboard)
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if sent.MessageID != 42 {
		t.Errorf("message id = %d, want 42", sent.MessageID)
	}

	if rec.path != "/sendMessage" {
		t.Errorf("path = %s, want /sendMessage", rec.path)
	}
	if got := rec.payload["chat_id"].(float64); got != 118 {
		t.Errorf("chat_id = %v, want 118", got)
	}
	if rec.payload["parse_mode"] != "HTML" {
		t.Errorf("parse_mode = %v, want HTML", rec.payload["parse_mode"])
	}
	if _, ok := rec.payload["reply_markup"]; !ok {
		t.Error("reply_markup missing from payload")
	}
}

func TestSendMessageOmitsNilKeyboard(t *testing.T) {
	client, rec := newTestServer(t, `{"ok":true,"result":{"message_id":1,"chat":{"id":118}}}`)

	if _, err := client.SendMessage(context.Background(), 118, "plain", nil); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if _, ok := rec.payload["reply_markup"]; ok {
		t.Error("reply_markup present for nil keyboard")
	}
}

func TestGetUpdates(t *testing.T) {
	client, rec := newTestServer(t, `{"ok":true,"result":[{"update_id":7,"message":{"message_id":1,"chat":{"id":118,"type":"private"},"text":"500"}}]}`)

	updates, err := client.GetUpdates(context.Background(), 8, 50)
	if err != nil {
		t.Fatalf("GetUpdates returned error: %v", err)
	}
	if len(updates) != 1 || updates[0].UpdateID != 7 {
		t.Fatalf("updates = %+v", updates)
	}
	if updates[0].ChatID() != 118 {
		t.Errorf("ChatID() = %d, want 118", updates[0].ChatID())
	}

	if got := rec.payload["offset"].(float64); got != 8 {
		t.Errorf("offset = %v, want 8", got)
	}
	if got := rec.payload["timeout"].(float64); got != 50 {
		t.Errorf("timeout = %v, want 50", got)
	}
}

func TestAPIErrorSurfacesDescription(t *testing.T) {
	client, _ := newTestServer(t, `{"ok":false,"error_code":400,"description":"Bad Request: message text is empty"}`)

	_, err := client.SendMessage(context.Background(), 118, "", nil)
	if err == nil {
		t.Fatal("expected an error for ok=false")
	}
	if !strings.Contains(err.Error(), "message text is empty") {
		t.Errorf("error does not carry the API description: %v", err)
	}
}

func TestEditMessageTextIgnoresNotModified(t *testing.T) {
	client, _ := newTestServer(t, `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`)

	err := client.EditMessageText(context.Background(), 118, 42, "same text", nil)
	if err != nil {
		t.Errorf("not-modified edit returned error: %v", err)
	}
}

func TestAnswerCallbackQueryAlert(t *testing.T) {
	client, rec := newTestServer(t, `{"ok":true,"result":true}`)

	err := client.AnswerCallbackQuery(context.Background(), "cb1", "🚧 В разработке", true)
	if err != nil {
		t.Fatalf("AnswerCallbackQuery returned error: %v", err)
	}
	if rec.path != "/answerCallbackQuery" {
		t.Errorf("path = %s", rec.path)
	}
	if rec.payload["show_alert"] != true {
		t.Errorf("show_alert = %v, want true", rec.payload["show_alert"])
	}
	if rec.payload["callback_query_id"] != "cb1" {
		t.Errorf("callback_query_id = %v", rec.payload["callback_query_id"])
	}
}

func TestDeleteMessage(t *testing.T) {
	client, rec := newTestServer(t, `{"ok":true,"result":true}`)

	if err := client.DeleteMessage(context.Background(), 118, 42); err != nil {
		t.Fatalf("DeleteMessage returned error: %v", err)
	}
	if rec.path != "/deleteMessage" {
		t.Errorf("path = %s", rec.path)
	}
	if got := rec.payload["message_id"].(float64); got != 42 {
		t.Errorf("message_id = %v, want 42", got)
	}
}

func TestUpdateChatID(t *testing.T) {
	message := telegram.Update{Message: &telegram.Message{Chat: telegram.Chat{ID: 118}}}
	if message.ChatID() != 118 {
		t.Errorf("message ChatID = %d", message.ChatID())
	}

	callback := telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		Message: &telegram.Message{Chat: telegram.Chat{ID: 119}},
	}}
	if callback.ChatID() != 119 {
		t.Errorf("callback ChatID = %d", callback.ChatID())
	}

	if (telegram.Update{}).ChatID() != 0 {
		t.Error("empty update ChatID != 0")
	}
}

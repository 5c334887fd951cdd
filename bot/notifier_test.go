package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeTelegram serves the two Bot API methods the notifier uses.
type fakeTelegram struct {
	mu       sync.Mutex
	getMe    int
	sent     []sentMessage
	failSend bool
}

type sentMessage struct {
	chatID string
	text   string
}

func (f *fakeTelegram) handler(t *testing.T, token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/bot" + token + "/getMe":
			f.getMe++
			w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"News","username":"news_bot"}}`))
		case "/bot" + token + "/sendMessage":
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			if f.failSend {
				w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
				return
			}
			f.sent = append(f.sent, sentMessage{chatID: r.PostForm.Get("chat_id"), text: r.PostForm.Get("text")})
			w.Write([]byte(`{"ok":true,"result":{"message_id":42,"date":0,"chat":{"id":123,"type":"private"},"text":"ok"}}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestNotifier(t *testing.T, fake *fakeTelegram, token, chatID string) (*Notifier, func()) {
	server := httptest.NewServer(fake.handler(t, token))
	n := NewNotifier(token, chatID,
		WithAPIEndpoint(server.URL+"/bot%s/%s"),
		WithTimeout(5*time.Second),
	)
	return n, server.Close
}

func TestSend(t *testing.T) {
	fake := &fakeTelegram{}
	n, done := newTestNotifier(t, fake, "tok", "123")
	defer done()

	d := n.Send(context.Background(), "hello\nworld")
	if !d.OK() {
		t.Fatalf("Send failed: %v", d.Err)
	}
	if d.MessageID != 42 {
		t.Errorf("MessageID = %d, want 42", d.MessageID)
	}

	if len(fake.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fake.sent))
	}
	if fake.sent[0].chatID != "123" {
		t.Errorf("chat_id = %q, want 123", fake.sent[0].chatID)
	}
	if fake.sent[0].text != "hello\nworld" {
		t.Errorf("text = %q", fake.sent[0].text)
	}
}

func TestSendInitializesBotOnce(t *testing.T) {
	fake := &fakeTelegram{}
	n, done := newTestNotifier(t, fake, "tok", "123")
	defer done()

	for i := 0; i < 3; i++ {
		if d := n.Send(context.Background(), "msg"); !d.OK() {
			t.Fatalf("Send %d failed: %v", i, d.Err)
		}
	}
	if fake.getMe != 1 {
		t.Errorf("getMe called %d times, want 1", fake.getMe)
	}
	if len(fake.sent) != 3 {
		t.Errorf("expected 3 messages, got %d", len(fake.sent))
	}
}

func TestSendToChannel(t *testing.T) {
	fake := &fakeTelegram{}
	n, done := newTestNotifier(t, fake, "tok", "@cryptonews")
	defer done()

	if d := n.Send(context.Background(), "hi"); !d.OK() {
		t.Fatalf("Send failed: %v", d.Err)
	}
	if fake.sent[0].chatID != "@cryptonews" {
		t.Errorf("chat_id = %q, want @cryptonews", fake.sent[0].chatID)
	}
}

func TestSendAPIError(t *testing.T) {
	fake := &fakeTelegram{failSend: true}
	n, done := newTestNotifier(t, fake, "tok", "123")
	defer done()

	d := n.Send(context.Background(), "hi")
	if d.OK() {
		t.Fatal("expected delivery failure")
	}
	if d.Skipped {
		t.Error("API failure should not be reported as skipped")
	}
	if !strings.Contains(d.Err.Error(), "chat not found") {
		t.Errorf("error should carry the API description, got: %v", d.Err)
	}
}

func TestSendInvalidChatID(t *testing.T) {
	fake := &fakeTelegram{}
	n, done := newTestNotifier(t, fake, "tok", "not-a-number")
	defer done()

	d := n.Send(context.Background(), "hi")
	if d.Err == nil {
		t.Fatal("expected error for invalid chat id")
	}
	if len(fake.sent) != 0 {
		t.Errorf("no message should be sent, got %d", len(fake.sent))
	}
}

func TestSendUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL + "/bot%s/%s"
	server.Close()

	n := NewNotifier("tok", "123", WithAPIEndpoint(endpoint))
	d := n.Send(context.Background(), "hi")
	if d.Err == nil {
		t.Fatal("expected error for unreachable API")
	}
}

func TestSendWithoutCredentials(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		chatID string
	}{
		{"no token", "", "123"},
		{"no chat", "tok", ""},
		{"neither", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))
			defer server.Close()

			n := NewNotifier(tt.token, tt.chatID, WithAPIEndpoint(server.URL+"/bot%s/%s"))
			if n.Enabled() {
				t.Error("notifier should be disabled")
			}

			d := n.Send(context.Background(), "hi")
			if !d.Skipped {
				t.Error("delivery should be skipped")
			}
			if !errors.Is(d.Err, ErrNotConfigured) {
				t.Errorf("Err = %v, want ErrNotConfigured", d.Err)
			}
			if called {
				t.Error("no network call should be made without credentials")
			}
		})
	}
}

func TestSendCancelledContext(t *testing.T) {
	fake := &fakeTelegram{}
	n, done := newTestNotifier(t, fake, "tok", "123")
	defer done()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if d := n.Send(ctx, "hi"); d.Err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if len(fake.sent) != 0 {
		t.Errorf("no message should be sent, got %d", len(fake.sent))
	}
}

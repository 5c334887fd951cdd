package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrNotConfigured is reported when the bot token or chat id is missing.
var ErrNotConfigured = errors.New("telegram bot token or chat id not configured")

// Delivery is the outcome of a single Send.
type Delivery struct {
	MessageID int
	Skipped   bool
	Err       error
}

// OK reports whether the message reached Telegram.
func (d Delivery) OK() bool {
	return d.Err == nil && !d.Skipped
}

// Notifier delivers text messages to one fixed Telegram chat.
type Notifier struct {
	token      string
	chatID     string
	endpoint   string
	httpClient *http.Client
	api        *tgbotapi.BotAPI
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		n.httpClient.Timeout = d
	}
}

// WithAPIEndpoint overrides the Bot API endpoint format (for testing).
// The format takes the token and the method name, like tgbotapi.APIEndpoint.
func WithAPIEndpoint(endpoint string) Option {
	return func(n *Notifier) {
		n.endpoint = endpoint
	}
}

// NewNotifier creates a notifier for chatID, which is either a numeric chat id
// or an @channel username. Missing credentials turn Send into a logged no-op.
func NewNotifier(token, chatID string, opts ...Option) *Notifier {
	n := &Notifier{
		token:      strings.TrimSpace(token),
		chatID:     strings.TrimSpace(chatID),
		endpoint:   tgbotapi.APIEndpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Enabled reports whether both credentials are present.
func (n *Notifier) Enabled() bool {
	return n.token != "" && n.chatID != ""
}

// Send delivers text to the configured chat. Failures are logged and returned
// in the Delivery; nothing is retried.
func (n *Notifier) Send(ctx context.Context, text string) Delivery {
	if !n.Enabled() {
		slog.Warn("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set, message not sent")
		return Delivery{Skipped: true, Err: ErrNotConfigured}
	}

	_, span := otel.Tracer("crypto-news-bot/bot").Start(ctx, "telegram.send")
	defer span.End()

	messageID, err := n.send(ctx, text)
	if err != nil {
		slog.Warn("failed to send telegram message", "chat_id", n.chatID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return Delivery{Err: err}
	}

	span.SetAttributes(attribute.Int("telegram.message_id", messageID))
	return Delivery{MessageID: messageID}
}

func (n *Notifier) send(ctx context.Context, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	api, err := n.botAPI()
	if err != nil {
		return 0, err
	}

	msg, err := n.newMessage(text)
	if err != nil {
		return 0, err
	}

	sent, err := api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return sent.MessageID, nil
}

// botAPI creates the Bot API handle on first use so a failed getMe at boot
// does not disable delivery for the rest of the process.
func (n *Notifier) botAPI() (*tgbotapi.BotAPI, error) {
	if n.api != nil {
		return n.api, nil
	}

	api, err := tgbotapi.NewBotAPIWithClient(n.token, n.endpoint, n.httpClient)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	slog.Info("telegram bot initialized", "username", api.Self.UserName)

	n.api = api
	return api, nil
}

func (n *Notifier) newMessage(text string) (tgbotapi.MessageConfig, error) {
	if strings.HasPrefix(n.chatID, "@") {
		return tgbotapi.NewMessageToChannel(n.chatID, text), nil
	}

	id, err := strconv.ParseInt(n.chatID, 10, 64)
	if err != nil {
		return tgbotapi.MessageConfig{}, fmt.Errorf("invalid chat id %q: %w", n.chatID, err)
	}
	return tgbotapi.NewMessage(id, text), nil
}

package notify

import (
	"context"
	"log/slog"
	"sync"

	siftErrors "github.com/harunnryd/sift/internal/errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramChannel sends notifications to one chat through a bot. The bot
// client is created on first use since creating it calls the API.
type TelegramChannel struct {
	token    string
	chatID   int64
	endpoint string

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegramChannel builds the channel. endpoint overrides the Bot API URL
// format and is empty in production.
func NewTelegramChannel(token string, chatID int64, endpoint string) *TelegramChannel {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	return &TelegramChannel{token: token, chatID: chatID, endpoint: endpoint}
}

func (t *TelegramChannel) Name() string {
	return "telegram"
}

func (t *TelegramChannel) client() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, nil
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(t.token, t.endpoint)
	if err != nil {
		return nil, siftErrors.Wrap(err, "failed to init telegram bot")
	}
	t.bot = bot
	slog.Info("Telegram bot ready", "user", bot.Self.UserName)
	return bot, nil
}

func (t *TelegramChannel) Send(ctx context.Context, text string) error {
	bot, err := t.client()
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := bot.Send(msg); err != nil {
		return siftErrors.Wrap(err, "failed to send telegram message")
	}

	slog.Debug("Telegram message sent", "chat_id", t.chatID)
	return nil
}

func (t *TelegramChannel) Health(ctx context.Context) error {
	bot, err := t.client()
	if err != nil {
		return siftErrors.Transient("Telegram bot not initialized: " + err.Error())
	}
	if _, err := bot.GetMe(); err != nil {
		return siftErrors.Transient("Telegram connection failed: " + err.Error())
	}
	return nil
}

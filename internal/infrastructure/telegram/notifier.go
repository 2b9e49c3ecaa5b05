package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bot-runner/internal/application/port/output"
)

var _ output.NotifierPort = (*Notifier)(nil)

// ErrGroupRequired возвращается, когда уведомления включены, но группа не
// задана. Ошибка конфигурации: поднимается до первой попытки выполнения.
var ErrGroupRequired = errors.New("telegram group must be provided when telegram is enabled")

// Notifier шлёт сообщения и файлы логов в группу или канал Telegram.
type Notifier struct {
	bot             *tgbotapi.BotAPI
	chatID          int64
	channelUsername string
	logger          output.LoggerPort
}

type Config struct {
	Token string
	Group string // числовой chat id или @канал

	// APIEndpoint переопределяет адрес Bot API (используется в тестах).
	APIEndpoint string

	Logger output.LoggerPort
}

func NewNotifier(cfg Config) (*Notifier, error) {
	if cfg.Group == "" {
		return nil, ErrGroupRequired
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token must be provided")
	}

	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot api: %w", err)
	}

	n := &Notifier{bot: bot, logger: cfg.Logger}
	if chatID, err := strconv.ParseInt(cfg.Group, 10, 64); err == nil {
		n.chatID = chatID
	} else {
		n.channelUsername = cfg.Group
	}
	return n, nil
}

func (n *Notifier) SendMessage(ctx context.Context, text string) error {
	var msg tgbotapi.MessageConfig
	if n.channelUsername != "" {
		msg = tgbotapi.NewMessageToChannel(n.channelUsername, text)
	} else {
		msg = tgbotapi.NewMessage(n.chatID, text)
	}

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	if n.logger != nil {
		n.logger.Debug("Telegram message sent", "length", len(text))
	}
	return nil
}

func (n *Notifier) UploadDocument(ctx context.Context, path, caption string) error {
	doc := tgbotapi.NewDocument(n.chatID, tgbotapi.FilePath(path))
	doc.ChannelUsername = n.channelUsername
	doc.Caption = caption

	if _, err := n.bot.Send(doc); err != nil {
		return fmt.Errorf("upload telegram document: %w", err)
	}

	if n.logger != nil {
		n.logger.Debug("Telegram document uploaded", "path", path)
	}
	return nil
}

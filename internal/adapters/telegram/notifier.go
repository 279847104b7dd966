package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/selivandex/crypto-digest/internal/adapters/config"
	"github.com/selivandex/crypto-digest/pkg/logger"
	"github.com/selivandex/crypto-digest/pkg/models"
	"github.com/selivandex/crypto-digest/pkg/templates"
)

// MessageSender is the part of tgbotapi.BotAPI the notifier uses
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts fresh digests to a Telegram chat
type Notifier struct {
	api             MessageSender
	chatID          int64
	templateManager templates.Renderer
}

// NewNotifier creates new Telegram notifier
func NewNotifier(cfg *config.TelegramConfig, templateManager templates.Renderer) (*Notifier, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot.Debug = false

	logger.Info("telegram notifier initialized",
		zap.String("bot_username", bot.Self.UserName),
		zap.Int64("chat_id", cfg.ChatID),
	)

	return NewNotifierWithSender(bot, cfg.ChatID, templateManager), nil
}

// NewNotifierWithSender creates a notifier over an existing sender
func NewNotifierWithSender(api MessageSender, chatID int64, templateManager templates.Renderer) *Notifier {
	return &Notifier{
		api:             api,
		chatID:          chatID,
		templateManager: templateManager,
	}
}

// PublishDigest sends a header then one message per entry.
// The first half of the digest is gainers, the second half losers.
func (n *Notifier) PublishDigest(ctx context.Context, dateKey string, digest models.Digest) error {
	half := len(digest) / 2

	header, err := n.templateManager.ExecuteTemplate(templates.DigestHeader, map[string]interface{}{
		"Date":    dateKey,
		"Gainers": half,
		"Losers":  len(digest) - half,
	})
	if err != nil {
		return err
	}

	if err := n.sendMessage(header); err != nil {
		return err
	}

	for i, entry := range digest {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := n.templateManager.ExecuteTemplate(templates.DigestEntry, map[string]interface{}{
			"Gainer": i < half,
			"Entry":  entry,
		})
		if err != nil {
			return err
		}

		if err := n.sendMessage(msg); err != nil {
			return err
		}
	}

	logger.Info("digest published to telegram",
		zap.String("date_key", dateKey),
		zap.Int("entries", len(digest)),
	)

	return nil
}

// Summaries are free text, so no parse mode
func (n *Notifier) sendMessage(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true

	_, err := n.api.Send(msg)
	if err != nil {
		logger.Error("failed to send telegram message",
			zap.Int64("chat_id", n.chatID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	return nil
}

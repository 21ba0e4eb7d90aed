package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-coursesync/internal/config"
	"tg-coursesync/internal/logger"
	"tg-coursesync/internal/telegram"
)

// MessageSink consumes inbound group messages for statistics capture.
type MessageSink interface {
	HandleMessage(msg telegram.Message) error
}

// BotService wraps the statistics capture bot. It only listens; chat
// management goes through the MTProto client.
type BotService struct {
	Bot     *telego.Bot
	Handler *th.BotHandler
}

// Start starts the bot handler loop.
func (b *BotService) Start() {
	b.Handler.Start()
}

// Stop stops the bot handler
func (b *BotService) Stop() {
	b.Handler.Stop()
}

// OnGroupMessage forwards every group and supergroup message to the sink.
// Sink errors are logged and swallowed so capture never breaks update
// processing.
func (b *BotService) OnGroupMessage(sink MessageSink) {
	b.Handler.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		msg, ok := groupMessage(message)
		if !ok {
			return nil
		}
		if err := sink.HandleMessage(msg); err != nil {
			logger.Warningf("Failed to record message in chat %d: %v", msg.ChatID, err)
		}
		return nil
	})
}

// The Bot API addresses supergroups and channels as -100<channel id>.
const channelIDOffset int64 = 1_000_000_000_000

// groupMessage converts a Bot API message into the capture form. The
// registry stores bare MTProto channel ids, so the Bot API -100 prefix is
// stripped before the chat lookup.
func groupMessage(message telego.Message) (telegram.Message, bool) {
	if message.Chat.Type != telego.ChatTypeGroup && message.Chat.Type != telego.ChatTypeSupergroup {
		return telegram.Message{}, false
	}
	if message.From == nil {
		return telegram.Message{}, false
	}

	return telegram.Message{
		ChatID:    channelID(message.Chat.ID),
		UserID:    message.From.ID,
		Body:      message.Text,
		CreatedAt: time.Unix(message.Date, 0),
	}, true
}

func channelID(botChatID int64) int64 {
	if botChatID < -channelIDOffset {
		return -botChatID - channelIDOffset
	}
	return botChatID
}

// webhookSecret derives the webhook secret from the bot token suffix.
func webhookSecret(token string) string {
	suffix := token
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return "capture_webhook_token_" + suffix
}

// Initialize initializes the bot and its webhook server.
func Initialize(ctx context.Context, cfg *config.Config) (*BotService, *WebhookServer, error) {
	if cfg.Bot.Token == "" {
		return nil, nil, fmt.Errorf("bot token is required")
	}

	bot, err := telego.NewBot(cfg.Bot.Token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	botUser, err := bot.GetMe(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	logger.Infof("Authorized on account %s", botUser.Username)

	// Drop any webhook left over from a previous run before re-registering.
	err = bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to delete existing webhook: %w", err)
	}

	bh, server, err := SetupWebhook(ctx, bot, cfg.Bot.Webhook, webhookSecret(cfg.Bot.Token))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup webhook: %w", err)
	}

	return &BotService{
		Bot:     bot,
		Handler: bh,
	}, server, nil
}

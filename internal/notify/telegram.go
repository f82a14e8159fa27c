package notify

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"pinefarm/internal/config"
	"pinefarm/internal/remind"
	"pinefarm/pkg/logx"
)

// telegramSender is the minimal surface of *tele.Bot used here.
type telegramSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramChannel mirrors each reminder into a single admin ops chat.
// It is an extra best-effort channel; recipients come from config, not
// from the token registry.
type TelegramChannel struct {
	bot    telegramSender
	chatID int64
	log    logx.Logger
}

func NewTelegramChannel(cfg *config.TelegramConfig, log logx.Logger) (*TelegramChannel, error) {
	if !cfg.Configured() {
		return nil, nil
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &TelegramChannel{bot: bot, chatID: cfg.ChatID, log: log}, nil
}

func (c *TelegramChannel) Name() string { return ChannelTelegram }

func (c *TelegramChannel) Send(ctx context.Context, p remind.Payload, _ Recipients) (Result, error) {
	text := fmt.Sprintf("<b>%s</b>\n%s\nLand: %s\nWhen: %s", p.Title, p.WhenText, p.LandName, p.DueText)
	if p.TargetURL != "" {
		text += "\n" + p.TargetURL
	}
	_, err := c.bot.Send(tele.ChatID(c.chatID), text, tele.ModeHTML, tele.NoPreview)
	if err != nil {
		return Result{Failure: 1}, err
	}
	return Result{Success: 1}, nil
}

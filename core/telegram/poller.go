package telegram

import (
	"fmt"
	"time"

	coreconfig "github.com/m3rciful/nfcrelay/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

// longPollTimeout returns the configured getUpdates timeout.
func longPollTimeout(cfg coreconfig.TelegramConfig) time.Duration {
	if cfg.LongPollTimeoutSeconds <= 0 {
		return defaultLongPollTimeout
	}
	return time.Duration(cfg.LongPollTimeoutSeconds) * time.Second
}

// BuildPoller returns a webhook or long poller for a normalized config.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{Timeout: longPollTimeout(cfg.Telegram)}
}

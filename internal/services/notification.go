package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/nikhilsi/trading-recommendations-app/internal/config"
	"github.com/nikhilsi/trading-recommendations-app/internal/models"
)

// NotificationService delivers recommendation alerts over Telegram to the
// configured chat. It degrades to a no-op when the bot token or chat ID is
// missing so deployments without Telegram stay functional.
type NotificationService struct {
	bot    *bot.Bot
	chatID int64
	logger *logrus.Logger
}

// NewNotificationService creates the Telegram notifier. A missing token or
// unparseable chat ID yields a disabled notifier, not an error.
func NewNotificationService(cfg config.TelegramConfig, logger *logrus.Logger) *NotificationService {
	ns := &NotificationService{logger: logger}
	if cfg.BotToken == "" || cfg.ChatID == "" {
		logger.Info("Telegram alerts disabled: no bot token or chat ID configured")
		return ns
	}

	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		logger.WithError(err).Warn("Telegram alerts disabled: invalid chat ID")
		return ns
	}

	telegramBot, err := bot.New(cfg.BotToken)
	if err != nil {
		logger.WithError(err).Warn("Telegram alerts disabled: bot initialization failed")
		return ns
	}

	ns.bot = telegramBot
	ns.chatID = chatID
	return ns
}

// Enabled reports whether alerts will actually be delivered.
func (ns *NotificationService) Enabled() bool {
	return ns.bot != nil
}

// NotifyRecommendations sends a formatted alert for the generated
// recommendations. Disabled notifiers return nil.
func (ns *NotificationService) NotifyRecommendations(ctx context.Context, recommendations []models.Recommendation) error {
	if ns.bot == nil || len(recommendations) == 0 {
		return nil
	}

	message := formatRecommendationMessage(recommendations)
	_, err := ns.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    ns.chatID,
		Text:      message,
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	ns.logger.WithField("count", len(recommendations)).Info("Sent recommendation alert")
	return nil
}

// formatRecommendationMessage renders up to three calls into one alert.
func formatRecommendationMessage(recommendations []models.Recommendation) string {
	top := recommendations
	if len(top) > 3 {
		top = top[:3]
	}

	message := "📊 *Trading Recommendations*\n\n"
	message += fmt.Sprintf("Found %d high-confidence calls:\n\n", len(recommendations))

	for i, rec := range top {
		emoji := "📈"
		if rec.Action == models.ActionSell {
			emoji = "📉"
		}
		message += fmt.Sprintf("%s *%s %s*\n", emoji, rec.Action, rec.Symbol)
		message += fmt.Sprintf("💲 Price: $%s\n", rec.CurrentPrice.StringFixed(2))
		message += fmt.Sprintf("🎯 Target: $%s\n", rec.TargetPrice.StringFixed(2))
		message += fmt.Sprintf("🛑 Stop: $%s\n", rec.StopLoss.StringFixed(2))
		message += fmt.Sprintf("🎯 Confidence: *%d%%*\n", rec.Confidence)
		message += fmt.Sprintf("⏰ %s | Risk: %s\n", rec.Timeframe, rec.RiskLevel)
		for _, reason := range rec.Reasoning {
			message += fmt.Sprintf("  • %s\n", reason)
		}
		if i < len(top)-1 {
			message += "\n"
		}
	}

	if len(recommendations) > 3 {
		message += fmt.Sprintf("\n...and %d more calls\n", len(recommendations)-3)
	}

	message += "\n⚡ *Trade wisely!* Always manage your risk and position size."
	return message
}

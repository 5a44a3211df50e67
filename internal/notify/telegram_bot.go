package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go-distributor-ledger/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ShopDirectory is what the bot needs to link chats to shops.
type ShopDirectory interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Shop, error)
	FindByChatID(ctx context.Context, chatID string) (*model.Shop, error)
	LinkChat(ctx context.Context, id uuid.UUID, chatID string) error
}

const startShopPrefix = "shop_"

// DeepLink is the URL a shop owner opens to link their chat to the shop.
func DeepLink(botUsername string, shopID uuid.UUID) string {
	if botUsername == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s?start=%s%s", botUsername, startShopPrefix, shopID)
}

// TelegramLinker answers bot commands: /start shop_<id>, /start, /help and /status.
type TelegramLinker struct {
	Shops ShopDirectory
	Log   *logrus.Logger
}

// Reply computes the answer to one incoming chat message.
func (l *TelegramLinker) Reply(ctx context.Context, chatID int64, firstName, text string) string {
	text = strings.TrimSpace(text)
	chat := strconv.FormatInt(chatID, 10)

	switch {
	case strings.HasPrefix(text, "/start "+startShopPrefix):
		return l.link(ctx, chat, strings.TrimPrefix(text, "/start "+startShopPrefix))
	case text == "/start":
		if firstName == "" {
			firstName = "there"
		}
		return fmt.Sprintf("👋 Hello %s!\n\nThis is the order notification bot.\n\n"+
			"To connect your shop:\n1. Get the connection link from your distributor\n2. Open the link\n\nNeed help? Send /help", firstName)
	case strings.HasPrefix(text, "/help"):
		return "📚 Help\n\nCommands:\n/start - Start the bot\n/status - Check your connection\n/help - Show this message"
	case strings.HasPrefix(text, "/status"):
		shop, err := l.Shops.FindByChatID(ctx, chat)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "⚠️ Not connected to any shop.\n\nPlease use the connection link from your distributor."
		}
		if err != nil {
			l.Log.WithError(err).Warn("telegram status lookup failed")
			return "❌ Error checking status."
		}
		return fmt.Sprintf("✅ Connected\n\nShop: %s\nStatus: Active\n\nYou will receive order notifications here.", shop.Name)
	case strings.HasPrefix(text, "/"):
		return "Unknown command. Send /help to see available commands."
	}
	return "I don't understand that message. 🤔\n\nSend /help to see available commands."
}

func (l *TelegramLinker) link(ctx context.Context, chat, rawID string) string {
	shopID, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return "❌ Shop not found. Please check the link."
	}
	shop, err := l.Shops.FindByID(ctx, nil, shopID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "❌ Shop not found. Please check the link."
	}
	if err != nil {
		l.Log.WithError(err).Warn("telegram shop lookup failed")
		return "❌ An error occurred. Please try again later."
	}

	current := shop.NotificationChannel()
	switch {
	case current != "" && current != chat:
		return "⚠️ This shop is already connected to another Telegram account.\n\nIf this is an error, please contact support."
	case current == chat:
		return fmt.Sprintf("✅ You are already connected to shop: %s\n\nYou will receive order notifications here.", shop.Name)
	}

	if err := l.Shops.LinkChat(ctx, shop.ID, chat); err != nil {
		l.Log.WithError(err).Warn("telegram link failed")
		return "❌ An error occurred. Please try again later."
	}
	l.Log.WithFields(logrus.Fields{"shop_id": shop.ID, "chat_id": chat}).Info("shop linked to telegram chat")
	return fmt.Sprintf("🎉 Successfully connected!\n\nShop: %s\nYou will now receive order notifications here.\n\n"+
		"Commands:\n/status - Check connection\n/help - Show help", shop.Name)
}

// Listen long-polls the bot for updates until ctx is cancelled.
func (l *TelegramLinker) Listen(ctx context.Context, bot *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 10
	updates := bot.GetUpdatesChan(u)
	defer bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if upd.Message == nil {
				continue
			}
			firstName := ""
			if upd.Message.From != nil {
				firstName = upd.Message.From.FirstName
			}
			reply := l.Reply(ctx, upd.Message.Chat.ID, firstName, upd.Message.Text)
			if _, err := bot.Send(tgbotapi.NewMessage(upd.Message.Chat.ID, reply)); err != nil {
				l.Log.WithError(err).WithField("chat_id", upd.Message.Chat.ID).Warn("telegram reply failed")
			}
		}
	}
}

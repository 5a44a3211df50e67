package notify

import (
	"context"
	"testing"

	"go-distributor-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type memShops struct {
	shops map[uuid.UUID]*model.Shop
}

func (m *memShops) FindByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Shop, error) {
	if s, ok := m.shops[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memShops) FindByChatID(_ context.Context, chatID string) (*model.Shop, error) {
	for _, s := range m.shops {
		if s.NotificationChannel() == chatID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memShops) LinkChat(_ context.Context, id uuid.UUID, chatID string) error {
	m.shops[id].ChatID = &chatID
	return nil
}

func newLinker() (*TelegramLinker, *model.Shop) {
	shop := &model.Shop{Name: "Corner Store"}
	shop.ID = uuid.New()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return &TelegramLinker{Shops: &memShops{shops: map[uuid.UUID]*model.Shop{shop.ID: shop}}, Log: log}, shop
}

func TestLinkerConnectsShop(t *testing.T) {
	l, shop := newLinker()
	ctx := context.Background()

	assert.Contains(t, l.Reply(ctx, 77, "Dilshod", "/status"), "Not connected")

	reply := l.Reply(ctx, 77, "Dilshod", "/start shop_"+shop.ID.String())
	assert.Contains(t, reply, "Successfully connected")
	assert.Equal(t, "77", shop.NotificationChannel())

	assert.Contains(t, l.Reply(ctx, 77, "", "/start shop_"+shop.ID.String()), "already connected to shop")
	assert.Contains(t, l.Reply(ctx, 88, "", "/start shop_"+shop.ID.String()), "another Telegram account")
	assert.Equal(t, "77", shop.NotificationChannel())

	assert.Contains(t, l.Reply(ctx, 77, "", "/status"), "Shop: Corner Store")
}

func TestLinkerRepliesToOtherMessages(t *testing.T) {
	l, _ := newLinker()
	ctx := context.Background()

	assert.Contains(t, l.Reply(ctx, 1, "", "/start shop_nope"), "Shop not found")
	assert.Contains(t, l.Reply(ctx, 1, "", "/start shop_"+uuid.NewString()), "Shop not found")
	assert.Contains(t, l.Reply(ctx, 1, "Aziz", "/start"), "Hello Aziz")
	assert.Contains(t, l.Reply(ctx, 1, "", "/start"), "Hello there")
	assert.Contains(t, l.Reply(ctx, 1, "", "/help"), "/status")
	assert.Contains(t, l.Reply(ctx, 1, "", "/prices"), "Unknown command")
	assert.Contains(t, l.Reply(ctx, 1, "", "hi"), "don't understand")
}

func TestDeepLink(t *testing.T) {
	id := uuid.MustParse("11111111-2222-4333-8444-555555555555")
	assert.Equal(t, "https://t.me/ledger_bot?start=shop_11111111-2222-4333-8444-555555555555", DeepLink("ledger_bot", id))
	assert.Empty(t, DeepLink("", id))
}

package notify

import (
	"context"
	"encoding/json"
	"testing"

	"go-distributor-ledger/internal/money"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeChat) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

type fakeWriter struct {
	msgs []kafkaGo.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestTelegramSenderUsesShopChat(t *testing.T) {
	chat := &fakeChat{}
	s := NewTelegramSender(chat)

	e := paymentEvent()
	require.NoError(t, s.Send(context.Background(), e))
	require.Len(t, chat.sent, 1)
	assert.Equal(t, int64(4242), chat.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, chat.sent[0].ParseMode)
	assert.Contains(t, chat.sent[0].Text, "PAYMENT RECEIVED")

	// Unlinked shops are skipped without error.
	e.ChannelID = ""
	require.NoError(t, s.Send(context.Background(), e))
	assert.Len(t, chat.sent, 1)

	e.ChannelID = "not-a-chat"
	assert.Error(t, s.Send(context.Background(), e))
}

func TestKafkaSenderKeysByShop(t *testing.T) {
	w := &fakeWriter{}
	s := NewKafkaSender(w)

	e := Event{
		ID:            uuid.New(),
		Kind:          ManualDebtAdded,
		ShopID:        uuid.New(),
		DistributorID: uuid.New(),
		Payload:       &ManualDebtPayload{Added: money.MustParse("250")},
	}
	require.NoError(t, s.Send(context.Background(), e))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, e.ShopID.String(), string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "manual_debt_added", string(msg.Headers[0].Value))

	var body struct {
		Kind    Kind `json:"kind"`
		Payload struct {
			Added money.Amount `json:"added"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, ManualDebtAdded, body.Kind)
	assert.Equal(t, money.MustParse("250"), body.Payload.Added)
}

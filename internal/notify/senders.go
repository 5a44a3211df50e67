package notify

import (
	"context"
	"fmt"
	"strconv"

	"go-distributor-ledger/internal/ws"

	"cloud.google.com/go/pubsub"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	kafkaGo "github.com/segmentio/kafka-go"
)

// chatAPI is the subset of *tgbotapi.BotAPI used for outgoing messages.
type chatAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender renders events and sends them to the shop's linked chat.
// Shops without a linked chat are skipped.
type TelegramSender struct {
	bot chatAPI
}

func NewTelegramSender(bot chatAPI) *TelegramSender {
	return &TelegramSender{bot: bot}
}

func (s *TelegramSender) Name() string { return "telegram" }

func (s *TelegramSender) Send(_ context.Context, e Event) error {
	if e.ChannelID == "" {
		return nil
	}
	chatID, err := strconv.ParseInt(e.ChannelID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: bad chat id %q: %w", e.ChannelID, err)
	}
	text, err := Render(e)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err = s.bot.Send(msg)
	return err
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
}

// KafkaSender publishes the event envelope keyed by shop id, so one shop's events
// stay ordered within a partition.
type KafkaSender struct {
	writer messageWriter
}

func NewKafkaWriter(brokers []string, topic string) *kafkaGo.Writer {
	return &kafkaGo.Writer{
		Addr:     kafkaGo.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafkaGo.LeastBytes{},
	}
}

func NewKafkaSender(w messageWriter) *KafkaSender {
	return &KafkaSender{writer: w}
}

func (s *KafkaSender) Name() string { return "kafka" }

func (s *KafkaSender) Send(ctx context.Context, e Event) error {
	body, err := Envelope(e)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(e.ShopID.String()),
		Value: body,
		Headers: []kafkaGo.Header{
			{Key: "kind", Value: []byte(e.Kind)},
		},
	})
}

// PubSubSender publishes the event envelope to a Google Cloud Pub/Sub topic.
type PubSubSender struct {
	topic *pubsub.Topic
}

func NewPubSubSender(topic *pubsub.Topic) *PubSubSender {
	return &PubSubSender{topic: topic}
}

func (s *PubSubSender) Name() string { return "pubsub" }

func (s *PubSubSender) Send(ctx context.Context, e Event) error {
	body, err := Envelope(e)
	if err != nil {
		return err
	}
	res := s.topic.Publish(ctx, &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"kind":           string(e.Kind),
			"shop_id":        e.ShopID.String(),
			"distributor_id": e.DistributorID.String(),
		},
	})
	_, err = res.Get(ctx)
	return err
}

// HubSender pushes the envelope to the distributor's open dashboards.
type HubSender struct {
	hub *ws.Hub
}

func NewHubSender(hub *ws.Hub) *HubSender {
	return &HubSender{hub: hub}
}

func (s *HubSender) Name() string { return "websocket" }

func (s *HubSender) Send(_ context.Context, e Event) error {
	body, err := Envelope(e)
	if err != nil {
		return err
	}
	s.hub.SendToUsers([]string{e.DistributorID.String()}, body)
	return nil
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/repository"
	"go-distributor-ledger/pkg/logger"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Sender delivers an event over one channel. Send returning nil means accepted.
type Sender interface {
	Name() string
	Send(ctx context.Context, e Event) error
}

const sweepLockKey = "lock:notify-sweep"

// Gateway queues events in memory, records them in the outbox and hands them to
// every sender. Failed deliveries are retried by a periodic sweep.
type Gateway struct {
	Outbox  repository.OutboxRepository
	Senders []Sender
	Logger  *logrus.Logger
	Locker  *redislock.Client // optional; serialises sweeps across replicas

	RetryInterval  time.Duration
	InitialBackoff time.Duration
	MaxAttempts    int
	BatchSize      int
	Lease          time.Duration
	SendTimeout    time.Duration

	queue chan Event
	now   func() time.Time

	mu      sync.RWMutex
	stopped bool
}

func NewGateway(outbox repository.OutboxRepository, log *logrus.Logger, queueSize int, senders ...Sender) *Gateway {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Gateway{
		Outbox:         outbox,
		Senders:        senders,
		Logger:         log,
		RetryInterval:  30 * time.Second,
		InitialBackoff: 10 * time.Second,
		MaxAttempts:    8,
		BatchSize:      50,
		Lease:          2 * time.Minute,
		SendTimeout:    10 * time.Second,
		queue:          make(chan Event, queueSize),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Notify enqueues e and returns immediately. When the queue is full the event is
// dropped and logged. After Run has returned, e is written straight to the outbox
// so the next process delivers it.
func (g *Gateway) Notify(e Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = g.now()
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.stopped {
		g.persistLate(e)
		return
	}
	select {
	case g.queue <- e:
	default:
		g.Logger.WithFields(logrus.Fields{
			"event_id": e.ID,
			"kind":     e.Kind,
			"shop_id":  e.ShopID,
		}).Warn("notification queue full, event dropped")
	}
}

// Run processes queued events and retries failed ones until ctx is cancelled.
// Events still queued at shutdown are written to the outbox for the next process to retry.
func (g *Gateway) Run(ctx context.Context) {
	ticker := time.NewTicker(g.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.mu.Lock()
			g.stopped = true
			g.mu.Unlock()
			g.drain()
			return
		case e := <-g.queue:
			g.handle(ctx, e)
		case <-ticker.C:
			g.Sweep(ctx)
		}
	}
}

func (g *Gateway) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case e := <-g.queue:
			if _, err := g.persist(ctx, e); err != nil {
				logger.LogError(g.Logger, "notify", "drain", "persist queued event", e.ID, err)
			}
		default:
			return
		}
	}
}

func (g *Gateway) persistLate(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := g.persist(ctx, e); err != nil {
		logger.LogError(g.Logger, "notify", "Notify", "persist event after shutdown", e.ID, err)
		return
	}
	g.Logger.WithFields(logrus.Fields{
		"event_id": e.ID,
		"kind":     e.Kind,
	}).Info("gateway stopped, event left in outbox")
}

func (g *Gateway) handle(ctx context.Context, e Event) {
	recs, err := g.persist(ctx, e)
	if err != nil {
		// Without an outbox row there is nothing to retry; still try once.
		logger.LogError(g.Logger, "notify", "handle", "persist event", e.ID, err)
		for _, s := range g.Senders {
			if sendErr := g.send(ctx, s, e); sendErr != nil {
				g.warn(e, s.Name(), sendErr)
			}
		}
		return
	}
	for i, s := range g.Senders {
		g.deliver(ctx, s, recs[i], e)
	}
}

// persist writes one pending outbox row per sender. The lease lets the sweep pick up
// rows whose delivery was interrupted.
func (g *Gateway) persist(ctx context.Context, e Event) ([]*model.NotificationOutbox, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	now := g.now()
	leaseEnd := now.Add(g.Lease)
	recs := make([]*model.NotificationOutbox, 0, len(g.Senders))
	for _, s := range g.Senders {
		rec := &model.NotificationOutbox{
			ID:            uuid.New(),
			EventID:       e.ID,
			Sender:        s.Name(),
			Kind:          string(e.Kind),
			ShopID:        e.ShopID,
			DistributorID: e.DistributorID,
			ChannelID:     e.ChannelID,
			Payload:       datatypes.JSON(payload),
			Status:        model.OutboxPending,
			NextAttemptAt: &leaseEnd,
			OccurredAt:    e.OccurredAt,
		}
		if err := g.Outbox.Insert(ctx, rec); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (g *Gateway) deliver(ctx context.Context, s Sender, rec *model.NotificationOutbox, e Event) {
	attempts := rec.Attempts + 1
	sendErr := g.send(ctx, s, e)
	if sendErr == nil {
		if err := g.Outbox.MarkSent(ctx, rec.ID, g.now()); err != nil {
			logger.LogError(g.Logger, "notify", "deliver", "mark sent", rec.ID, err)
		}
		return
	}

	g.warn(e, s.Name(), sendErr)
	dead := g.MaxAttempts > 0 && attempts >= g.MaxAttempts
	next := g.now().Add(g.backoff(attempts))
	if err := g.Outbox.MarkFailed(ctx, rec.ID, attempts, sendErr.Error(), &next, dead); err != nil {
		logger.LogError(g.Logger, "notify", "deliver", "mark failed", rec.ID, err)
	}
	if dead {
		g.Logger.WithFields(logrus.Fields{
			"outbox_id": rec.ID,
			"sender":    s.Name(),
			"attempts":  attempts,
		}).Error("notification moved to dead after max attempts")
	}
}

func (g *Gateway) send(ctx context.Context, s Sender, e Event) (err error) {
	ctx, cancel := context.WithTimeout(ctx, g.SendTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender %s panicked: %v", s.Name(), r)
		}
	}()
	return s.Send(ctx, e)
}

func (g *Gateway) warn(e Event, sender string, err error) {
	g.Logger.WithFields(logrus.Fields{
		"event_id": e.ID,
		"kind":     e.Kind,
		"shop_id":  e.ShopID,
		"sender":   sender,
	}).WithError(err).Warn("notification delivery failed")
}

func (g *Gateway) backoff(attempt int) time.Duration {
	d := g.InitialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d > 10*time.Minute {
			return 10 * time.Minute
		}
	}
	return d
}

// Sweep retries due outbox rows once. With a Locker configured only one replica
// sweeps at a time.
func (g *Gateway) Sweep(ctx context.Context) {
	if g.Locker != nil {
		lock, err := g.Locker.Obtain(ctx, sweepLockKey, g.Lease, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			return
		} else if err != nil {
			logger.LogError(g.Logger, "notify", "Sweep", "obtain sweep lock", nil, err)
			return
		}
		defer func() { _ = lock.Release(context.Background()) }()
	}

	recs, err := g.Outbox.ClaimDue(ctx, g.now(), g.Lease, g.BatchSize)
	if err != nil {
		logger.LogError(g.Logger, "notify", "Sweep", "claim due rows", nil, err)
		return
	}

	senders := make(map[string]Sender, len(g.Senders))
	for _, s := range g.Senders {
		senders[s.Name()] = s
	}
	for i := range recs {
		rec := &recs[i]
		s, ok := senders[rec.Sender]
		if !ok {
			_ = g.Outbox.MarkFailed(ctx, rec.ID, rec.Attempts, "sender not configured: "+rec.Sender, nil, true)
			continue
		}
		e, err := eventFromRecord(rec)
		if err != nil {
			_ = g.Outbox.MarkFailed(ctx, rec.ID, rec.Attempts, err.Error(), nil, true)
			continue
		}
		g.deliver(ctx, s, rec, e)
	}
}

func eventFromRecord(rec *model.NotificationOutbox) (Event, error) {
	kind := Kind(rec.Kind)
	payload, err := decodePayload(kind, rec.Payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            rec.EventID,
		Kind:          kind,
		ShopID:        rec.ShopID,
		DistributorID: rec.DistributorID,
		ChannelID:     rec.ChannelID,
		OccurredAt:    rec.OccurredAt,
		Payload:       payload,
	}, nil
}

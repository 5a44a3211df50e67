package repository

import (
	"context"
	"time"

	"go-distributor-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OutboxRepository interface {
	Insert(ctx context.Context, rec *model.NotificationOutbox) error
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string, next *time.Time, dead bool) error
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]model.NotificationOutbox, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.NotificationOutbox, error)
}

type outboxRepo struct {
	db *gorm.DB
}

func NewOutboxRepo(db *gorm.DB) OutboxRepository {
	return &outboxRepo{db}
}

func (r *outboxRepo) Insert(ctx context.Context, rec *model.NotificationOutbox) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *outboxRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.NotificationOutbox{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":          model.OutboxSent,
		"sent_at":         at,
		"attempts":        gorm.Expr("attempts + 1"),
		"last_error":      nil,
		"next_attempt_at": nil,
	}).Error
}

func (r *outboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string, next *time.Time, dead bool) error {
	status := model.OutboxFailed
	if dead {
		status = model.OutboxDead
		next = nil
	}
	return r.db.WithContext(ctx).Model(&model.NotificationOutbox{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":          status,
		"attempts":        attempts,
		"last_error":      lastErr,
		"next_attempt_at": next,
	}).Error
}

// ClaimDue leases rows that are due for another delivery attempt: failed rows past
// their backoff, and pending rows whose previous lease expired. Rows locked by another
// replica are skipped.
func (r *outboxRepo) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]model.NotificationOutbox, error) {
	var recs []model.NotificationOutbox
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("status IN ? AND next_attempt_at IS NOT NULL AND next_attempt_at <= ?",
				[]string{model.OutboxPending, model.OutboxFailed}, now).
			Order("created_at ASC").
			Limit(limit).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Find(&recs).Error
		if err != nil || len(recs) == 0 {
			return err
		}
		ids := make([]uuid.UUID, len(recs))
		for i := range recs {
			ids[i] = recs[i].ID
		}
		return tx.Model(&model.NotificationOutbox{}).Where("id IN ?", ids).Updates(map[string]interface{}{
			"status":          model.OutboxPending,
			"next_attempt_at": now.Add(lease),
		}).Error
	})
	return recs, err
}

func (r *outboxRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.NotificationOutbox, error) {
	var rec model.NotificationOutbox
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

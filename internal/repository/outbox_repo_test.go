package repository_test

import (
	"context"
	"testing"
	"time"

	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/repository"
	"go-distributor-ledger/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxClaimDueLeasesRows(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOutboxRepo(testutil.NewDB(t))
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := &model.NotificationOutbox{Sender: "telegram", Kind: "order_created", Status: model.OutboxFailed, NextAttemptAt: &past}
	expired := &model.NotificationOutbox{Sender: "kafka", Kind: "order_created", Status: model.OutboxPending, NextAttemptAt: &past}
	backoff := &model.NotificationOutbox{Sender: "telegram", Kind: "payment_received", Status: model.OutboxFailed, NextAttemptAt: &future}
	sent := &model.NotificationOutbox{Sender: "hub", Kind: "payment_received", Status: model.OutboxSent}
	for _, rec := range []*model.NotificationOutbox{due, expired, backoff, sent} {
		require.NoError(t, repo.Insert(ctx, rec))
	}

	claimed, err := repo.ClaimDue(ctx, now, 30*time.Second, 10)
	require.NoError(t, err)
	ids := []uuid.UUID{}
	for _, c := range claimed {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{due.ID, expired.ID}, ids)

	// Leased rows are not handed out again until the lease runs out.
	again, err := repo.ClaimDue(ctx, now, 30*time.Second, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	later, err := repo.ClaimDue(ctx, now.Add(time.Minute), 30*time.Second, 10)
	require.NoError(t, err)
	assert.Len(t, later, 2)

	got, err := repo.FindByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxPending, got.Status)
}

func TestOutboxMarkFailedAndSent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOutboxRepo(testutil.NewDB(t))
	rec := &model.NotificationOutbox{Sender: "telegram", Kind: "order_created", Status: model.OutboxPending}
	require.NoError(t, repo.Insert(ctx, rec))

	next := time.Date(2025, 3, 1, 12, 5, 0, 0, time.UTC)
	require.NoError(t, repo.MarkFailed(ctx, rec.ID, 1, "chat not found", &next, false))
	got, err := repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxFailed, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "chat not found", *got.LastError)

	require.NoError(t, repo.MarkSent(ctx, rec.ID, next))
	got, err = repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxSent, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.Nil(t, got.NextAttemptAt)
	assert.NotNil(t, got.SentAt)

	dead := &model.NotificationOutbox{Sender: "kafka", Kind: "order_created"}
	require.NoError(t, repo.Insert(ctx, dead))
	require.NoError(t, repo.MarkFailed(ctx, dead.ID, 5, "broker down", &next, true))
	got, err = repo.FindByID(ctx, dead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxDead, got.Status)
	assert.Nil(t, got.NextAttemptAt)
}

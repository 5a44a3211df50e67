package repository_test

import (
	"context"
	"testing"

	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/money"
	"go-distributor-ledger/internal/repository"
	"go-distributor-ledger/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLockByIDsIsTenantScoped(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewProductRepo(db)

	mine, theirs := uuid.New(), uuid.New()
	var own []uuid.UUID
	for _, name := range []string{"Flour", "Sugar", "Oil"} {
		p := &model.Product{DistributorID: mine, Name: name, Price: money.MustParse("10"), Stock: 5}
		require.NoError(t, repo.Create(ctx, p))
		own = append(own, p.ID)
	}
	foreign := &model.Product{DistributorID: theirs, Name: "Salt", Price: money.MustParse("3"), Stock: 9}
	require.NoError(t, repo.Create(ctx, foreign))

	err := db.Transaction(func(tx *gorm.DB) error {
		got, err := repo.LockByIDs(tx, mine, append([]uuid.UUID{foreign.ID, uuid.New()}, own...))
		require.NoError(t, err)
		assert.Len(t, got, 3)
		for _, id := range own {
			assert.Contains(t, got, id)
		}
		assert.NotContains(t, got, foreign.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateStock(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewProductRepo(db)
	dist := uuid.New()
	p := &model.Product{DistributorID: dist, Name: "Flour", Price: money.MustParse("10"), Stock: 5}
	require.NoError(t, repo.Create(ctx, p))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.LockByID(tx, dist, p.ID)
		if err != nil {
			return err
		}
		return repo.UpdateStock(tx, locked.ID, locked.Stock-2, "tester")
	}))

	got, err := repo.FindByID(ctx, dist, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
	assert.Equal(t, money.MustParse("10"), got.Price)
}

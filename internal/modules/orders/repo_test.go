package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) (*Repo, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Order{}))
	return NewRepo(db), db
}

func seed(t *testing.T, db *gorm.DB, status string) Order {
	t.Helper()

	o := Order{
		ID:          uuid.NewString(),
		UserID:      uuid.NewString(),
		OrderNumber: "ORD-1",
		Status:      status,
		TotalAmount: 100,
		Currency:    "USD",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, db.Create(&o).Error)
	return o
}

func TestConfirmPendingOrder(t *testing.T) {
	repo, db := newTestRepo(t)
	o := seed(t, db, StatusPending)

	changed, err := repo.Confirm(context.Background(), o.ID)
	require.NoError(t, err)
	require.True(t, changed)

	got, err := repo.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, got.Status)

	// Confirming again is a no-op.
	changed, err = repo.Confirm(context.Background(), o.ID)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestCancelNeverDowngradesShipped(t *testing.T) {
	repo, db := newTestRepo(t)
	o := seed(t, db, StatusShipped)

	changed, err := repo.Cancel(context.Background(), o.ID)
	require.NoError(t, err)
	require.False(t, changed)

	got, err := repo.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, StatusShipped, got.Status)
}

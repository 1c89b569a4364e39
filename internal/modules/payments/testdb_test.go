package payments

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rhonaldomaster/gshop-sub000/internal/modules/orders"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&orders.Order{},
		&Payment{},
		&CryptoTransaction{},
		&PaymentMethod{},
		&ProviderEvent{},
	))
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, status string) orders.Order {
	t.Helper()

	o := orders.Order{
		ID:          uuid.NewString(),
		UserID:      uuid.NewString(),
		OrderNumber: "ORD-TEST",
		Status:      status,
		TotalAmount: 100,
		Currency:    "USD",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, db.Create(&o).Error)
	return o
}

func seedPayment(t *testing.T, db *gorm.DB, mutate func(*Payment)) Payment {
	t.Helper()

	now := time.Now()
	p := Payment{
		ID:        uuid.NewString(),
		OrderID:   uuid.NewString(),
		UserID:    uuid.NewString(),
		Method:    MethodCard,
		Status:    StatusPending,
		Amount:    100,
		Currency:  "USD",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if mutate != nil {
		mutate(&p)
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

package invoices

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Invoice{}))
	return db
}

func createInput() CreateInput {
	return CreateInput{
		OrderID:  "order-1",
		SellerID: "seller-1",
		BuyerID:  "buyer-1",
		Subtotal: 100,
		Tax:      19,
		Shipping: 8,
		Currency: "USD",
		Items: []LineItem{
			{Description: "Widget", Quantity: 2, UnitPrice: 50, Total: 100},
		},
		BillingInfo: map[string]string{"name": "Ana Gomez", "city": "Bogota"},
	}
}

func TestCreateIssuesInvoiceWithThirtyDayTerm(t *testing.T) {
	svc := NewService(newTestDB(t), nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	inv, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)

	require.Equal(t, StatusSent, inv.Status)
	require.Equal(t, "seller-1", inv.SellerID)
	require.Equal(t, "buyer-1", inv.BuyerID)
	require.InDelta(t, 127.0, inv.Total, 0.001) // subtotal + tax + shipping
	require.Equal(t, fixed, inv.IssueDate)
	require.Equal(t, fixed.AddDate(0, 0, 30), inv.DueDate)
	require.Nil(t, inv.PaidDate)
}

func TestListBySellerScopesToIssuer(t *testing.T) {
	svc := NewService(newTestDB(t), nil)

	_, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{
		OrderID: "order-2", SellerID: "seller-2", BuyerID: "buyer-1",
		Subtotal: 10, Currency: "USD",
		Items: []LineItem{{Description: "Thing", Quantity: 1, UnitPrice: 10, Total: 10}},
	})
	require.NoError(t, err)

	list, err := svc.ListBySeller(context.Background(), "seller-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "order-1", list[0].OrderID)
}

func TestInvoiceNumberFormat(t *testing.T) {
	svc := NewService(newTestDB(t), nil)

	inv, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)

	parts := strings.Split(inv.InvoiceNumber, "-")
	require.Len(t, parts, 3)
	require.Equal(t, "INV", parts[0])
	require.Len(t, parts[2], 5)

	// Numbers from distinct invoices must differ.
	inv2, err := svc.Create(context.Background(), CreateInput{
		OrderID: "order-2", SellerID: "seller-1", BuyerID: "buyer-1", Subtotal: 10, Currency: "USD",
		Items: []LineItem{{Description: "Thing", Quantity: 1, UnitPrice: 10, Total: 10}},
	})
	require.NoError(t, err)
	require.NotEqual(t, inv.InvoiceNumber, inv2.InvoiceNumber)
}

func TestUpdateStatusPaidStampsPaidDate(t *testing.T) {
	svc := NewService(newTestDB(t), nil)

	inv, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)

	got, err := svc.UpdateStatus(context.Background(), inv.ID, StatusPaid)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, got.Status)
	require.NotNil(t, got.PaidDate)

	// Paid is terminal.
	_, err = svc.UpdateStatus(context.Background(), inv.ID, StatusCancelled)
	require.ErrorIs(t, err, ErrIllegalStatus)
}

func TestMarkOverdueFlagsPastDueInvoices(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil)

	past := time.Now().AddDate(0, 0, -40)
	svc.now = func() time.Time { return past }
	overdue, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)

	svc.now = time.Now
	fresh, err := svc.Create(context.Background(), CreateInput{
		OrderID: "order-2", SellerID: "seller-1", BuyerID: "buyer-1", Subtotal: 10, Currency: "USD",
		Items: []LineItem{{Description: "Thing", Quantity: 1, UnitPrice: 10, Total: 10}},
	})
	require.NoError(t, err)

	n, err := svc.MarkOverdue(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := svc.Get(context.Background(), overdue.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, got.Status)

	got, err = svc.Get(context.Background(), fresh.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSent, got.Status)
}

func TestUpdateStatusAcceptsSent(t *testing.T) {
	svc := NewService(newTestDB(t), nil)

	inv, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)

	// Flag it overdue, then the seller re-sends it.
	_, err = svc.UpdateStatus(context.Background(), inv.ID, StatusOverdue)
	require.NoError(t, err)

	got, err := svc.UpdateStatus(context.Background(), inv.ID, StatusSent)
	require.NoError(t, err)
	require.Equal(t, StatusSent, got.Status)
}

package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAddCardMethodDisplayName(t *testing.T) {
	db := newTestDB(t)
	store := NewMethodStore(db)

	pm, err := store.Add(context.Background(), AddMethodInput{
		UserID:         "user-1",
		Type:           MethodCard,
		Brand:          "visa",
		LastFourDigits: "4242",
		ExpiryMonth:    12,
		ExpiryYear:     2030,
	})
	require.NoError(t, err)
	require.Equal(t, "Visa •••• 4242", pm.DisplayName)
	require.True(t, pm.IsActive)
	require.False(t, pm.IsDefault)
}

func TestAddCryptoMethodDisplayName(t *testing.T) {
	db := newTestDB(t)
	store := NewMethodStore(db)

	pm, err := store.Add(context.Background(), AddMethodInput{
		UserID:       "user-1",
		Type:         MethodCrypto,
		ChainAddress: "0x1234567890abcdef1234567890abcdefcafebabe",
	})
	require.NoError(t, err)
	require.Equal(t, "USDC Wallet (0x1234…babe)", pm.DisplayName)
}

func TestSetDefaultUnsetsPrevious(t *testing.T) {
	db := newTestDB(t)
	store := NewMethodStore(db)
	ctx := context.Background()

	first, err := store.Add(ctx, AddMethodInput{UserID: "user-1", Type: MethodCard, LastFourDigits: "1111", SetDefault: true})
	require.NoError(t, err)

	second, err := store.Add(ctx, AddMethodInput{UserID: "user-1", Type: MethodCard, LastFourDigits: "2222"})
	require.NoError(t, err)

	require.NoError(t, store.SetDefault(ctx, "user-1", second.ID))

	list, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID) // default sorts first
	require.True(t, list[0].IsDefault)

	var gotFirst PaymentMethod
	require.NoError(t, db.First(&gotFirst, "id = ?", first.ID).Error)
	require.False(t, gotFirst.IsDefault)
}

func TestRemoveSoftDeletes(t *testing.T) {
	db := newTestDB(t)
	store := NewMethodStore(db)
	ctx := context.Background()

	pm, err := store.Add(ctx, AddMethodInput{UserID: "user-1", Type: MethodWalletCredit})
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, "user-1", pm.ID))

	list, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, list)

	// Row still exists for history.
	var got PaymentMethod
	require.NoError(t, db.First(&got, "id = ?", pm.ID).Error)
	require.False(t, got.IsActive)

	// Removing twice is a not-found.
	require.ErrorIs(t, store.Remove(ctx, "user-1", pm.ID), gorm.ErrRecordNotFound)
}

func TestRemoveScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	store := NewMethodStore(db)
	ctx := context.Background()

	pm, err := store.Add(ctx, AddMethodInput{UserID: "user-1", Type: MethodCard, LastFourDigits: "9999"})
	require.NoError(t, err)

	require.ErrorIs(t, store.Remove(ctx, "someone-else", pm.ID), gorm.ErrRecordNotFound)
}

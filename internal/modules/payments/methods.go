package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MethodStore manages a user's saved payment methods. Card numbers are
// never stored, only the display metadata the processor returns.
type MethodStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMethodStore(db *gorm.DB) *MethodStore {
	return &MethodStore{db: db, now: time.Now}
}

type AddMethodInput struct {
	UserID         string
	Type           string
	LastFourDigits string
	Brand          string
	ChainAddress   string
	ExpiryMonth    int
	ExpiryYear     int
	SetDefault     bool
}

// Add saves a payment method with a derived display name. Marking it
// default unsets the previous default in the same transaction.
func (m *MethodStore) Add(ctx context.Context, in AddMethodInput) (PaymentMethod, error) {
	now := m.now()
	pm := PaymentMethod{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		Type:        in.Type,
		DisplayName: displayName(in),
		IsDefault:   in.SetDefault,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.LastFourDigits != "" {
		pm.LastFourDigits = &in.LastFourDigits
	}
	if in.Brand != "" {
		pm.Brand = &in.Brand
	}
	if in.ChainAddress != "" {
		pm.ChainAddress = &in.ChainAddress
	}
	if in.ExpiryMonth > 0 {
		pm.ExpiryMonth = &in.ExpiryMonth
	}
	if in.ExpiryYear > 0 {
		pm.ExpiryYear = &in.ExpiryYear
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.SetDefault {
			if err := tx.Model(&PaymentMethod{}).
				Where("user_id = ? AND is_default = ?", in.UserID, true).
				Updates(map[string]any{"is_default": false, "updated_at": now}).Error; err != nil {
				return err
			}
		}
		return tx.Create(&pm).Error
	})
	if err != nil {
		return PaymentMethod{}, err
	}
	return pm, nil
}

// List returns the user's active methods, default first.
func (m *MethodStore) List(ctx context.Context, userID string) ([]PaymentMethod, error) {
	var out []PaymentMethod
	err := m.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("is_default DESC, created_at DESC").
		Find(&out).Error
	return out, err
}

// SetDefault marks one method as default and unsets the rest.
func (m *MethodStore) SetDefault(ctx context.Context, userID, methodID string) error {
	now := m.now()
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&PaymentMethod{}).
			Where("id = ? AND user_id = ? AND is_active = ?", methodID, userID, true).
			Updates(map[string]any{"is_default": true, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&PaymentMethod{}).
			Where("user_id = ? AND id <> ?", userID, methodID).
			Updates(map[string]any{"is_default": false, "updated_at": now}).Error
	})
}

// Remove soft-deletes a method. History referencing it stays intact.
func (m *MethodStore) Remove(ctx context.Context, userID, methodID string) error {
	res := m.db.WithContext(ctx).Model(&PaymentMethod{}).
		Where("id = ? AND user_id = ? AND is_active = ?", methodID, userID, true).
		Updates(map[string]any{"is_default": false, "is_active": false, "updated_at": m.now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// displayName builds the user-facing label, e.g. "Visa •••• 4242" or
// "USDC Wallet (0x1234…cdef)".
func displayName(in AddMethodInput) string {
	switch in.Type {
	case MethodCard:
		brand := in.Brand
		if brand == "" {
			brand = "Card"
		} else {
			brand = strings.ToUpper(brand[:1]) + brand[1:]
		}
		if in.LastFourDigits != "" {
			return fmt.Sprintf("%s •••• %s", brand, in.LastFourDigits)
		}
		return brand
	case MethodCrypto:
		addr := in.ChainAddress
		if len(addr) > 10 {
			addr = addr[:6] + "…" + addr[len(addr)-4:]
		}
		if addr == "" {
			return "Crypto Wallet"
		}
		return fmt.Sprintf("USDC Wallet (%s)", addr)
	case MethodWalletCredit:
		return "Wallet Credit"
	case MethodAggregator:
		return "MercadoPago"
	default:
		return in.Type
	}
}

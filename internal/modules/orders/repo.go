package orders

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) FindByID(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error
	return o, err
}

// TransitionFrom moves the order status only if it still holds the
// expected value. Returns true when the row was updated.
func (r *Repo) TransitionFrom(ctx context.Context, id, expected, next string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(map[string]any{
			"status":     next,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Confirm marks a pending order as confirmed after settlement.
func (r *Repo) Confirm(ctx context.Context, id string) (bool, error) {
	return r.TransitionFrom(ctx, id, StatusPending, StatusConfirmed)
}

// Cancel cancels an order only while it is still pending; shipped or
// delivered orders are never downgraded.
func (r *Repo) Cancel(ctx context.Context, id string) (bool, error) {
	return r.TransitionFrom(ctx, id, StatusPending, StatusCancelled)
}

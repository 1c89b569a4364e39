package orders

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// Order is owned by the order domain; the settlement core only reads and
// writes the status field, always through guarded updates.
type Order struct {
	ID          string    `gorm:"type:char(36);primaryKey"`
	UserID      string    `gorm:"type:char(36);not null;index:ix_orders_user_id"`
	OrderNumber string    `gorm:"type:varchar(32);not null"`
	Status      string    `gorm:"type:varchar(32);not null"`
	TotalAmount float64   `gorm:"type:decimal(15,2);not null"`
	Currency    string    `gorm:"type:char(3);not null"`
	CreatedAt   time.Time `gorm:"type:datetime;not null"`
	UpdatedAt   time.Time `gorm:"type:datetime;not null"`
}

func (Order) TableName() string { return "orders" }

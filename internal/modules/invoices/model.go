package invoices

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusDraft     = "draft"
	StatusSent      = "sent"
	StatusPaid      = "paid"
	StatusOverdue   = "overdue"
	StatusCancelled = "cancelled"
)

type Invoice struct {
	ID            string `gorm:"type:char(36);primaryKey"`
	InvoiceNumber string `gorm:"type:varchar(32);not null;uniqueIndex:ux_invoices_number"`
	OrderID       string `gorm:"type:char(36);not null;index:ix_invoices_order_id"`
	SellerID      string `gorm:"type:char(36);not null;index:ix_invoices_seller_id"`
	BuyerID       string `gorm:"type:char(36);not null;index:ix_invoices_buyer_id"`
	PaymentID     *string `gorm:"type:char(36)"`

	Status   string  `gorm:"type:varchar(32);not null"`
	Subtotal float64 `gorm:"type:decimal(15,2);not null"`
	Tax      float64 `gorm:"type:decimal(15,2);not null;default:0"`
	Shipping float64 `gorm:"type:decimal(15,2);not null;default:0"`
	Total    float64 `gorm:"type:decimal(15,2);not null"`
	Currency string  `gorm:"type:char(3);not null"`

	BillingInfo datatypes.JSON `gorm:"type:json"`
	Items       datatypes.JSON `gorm:"type:json;not null"`

	IssueDate time.Time  `gorm:"type:datetime;not null"`
	DueDate   time.Time  `gorm:"type:datetime;not null"`
	PaidDate  *time.Time `gorm:"type:datetime"`

	CreatedAt time.Time `gorm:"type:datetime;not null"`
	UpdatedAt time.Time `gorm:"type:datetime;not null"`
}

func (Invoice) TableName() string { return "invoices" }

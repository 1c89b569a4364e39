package invoices

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"log/slog"
)

var ErrIllegalStatus = errors.New("illegal invoice status change")

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger, now: time.Now}
}

type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

type CreateInput struct {
	OrderID     string
	SellerID    string
	BuyerID     string
	PaymentID   string
	Subtotal    float64
	Tax         float64
	Shipping    float64
	Currency    string
	Items       []LineItem
	BillingInfo map[string]string
}

// Create issues an invoice dated now with a 30-day payment term.
func (s *Service) Create(ctx context.Context, in CreateInput) (Invoice, error) {
	now := s.now()

	itemsJSON, err := json.Marshal(in.Items)
	if err != nil {
		return Invoice{}, err
	}
	var billingJSON datatypes.JSON
	if in.BillingInfo != nil {
		raw, err := json.Marshal(in.BillingInfo)
		if err != nil {
			return Invoice{}, err
		}
		billingJSON = datatypes.JSON(raw)
	}

	inv := Invoice{
		ID:            uuid.NewString(),
		InvoiceNumber: s.nextNumber(now),
		OrderID:       in.OrderID,
		SellerID:      in.SellerID,
		BuyerID:       in.BuyerID,
		Status:        StatusSent,
		Subtotal:      in.Subtotal,
		Tax:           in.Tax,
		Shipping:      in.Shipping,
		Total:         in.Subtotal + in.Tax + in.Shipping,
		Currency:      in.Currency,
		BillingInfo:   billingJSON,
		Items:         datatypes.JSON(itemsJSON),
		IssueDate:     now,
		DueDate:       now.AddDate(0, 0, 30),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.PaymentID != "" {
		inv.PaymentID = &in.PaymentID
	}

	if err := s.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return Invoice{}, err
	}
	s.logger.Info("invoice issued", "invoice_id", inv.ID, "number", inv.InvoiceNumber, "order_id", inv.OrderID)
	return inv, nil
}

func (s *Service) Get(ctx context.Context, id string) (Invoice, error) {
	var inv Invoice
	err := s.db.WithContext(ctx).First(&inv, "id = ?", id).Error
	return inv, err
}

func (s *Service) GetByNumber(ctx context.Context, number string) (Invoice, error) {
	var inv Invoice
	err := s.db.WithContext(ctx).First(&inv, "invoice_number = ?", number).Error
	return inv, err
}

func (s *Service) ListBySeller(ctx context.Context, sellerID string) ([]Invoice, error) {
	var out []Invoice
	err := s.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("issue_date DESC").
		Find(&out).Error
	return out, err
}

// UpdateStatus moves an invoice along its lifecycle. Marking it paid
// stamps the paid date in the same write.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (Invoice, error) {
	switch status {
	case StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
	default:
		return Invoice{}, fmt.Errorf("%w: %s", ErrIllegalStatus, status)
	}

	now := s.now()
	set := map[string]any{"status": status, "updated_at": now}
	if status == StatusPaid {
		set["paid_date"] = &now
	}

	res := s.db.WithContext(ctx).Model(&Invoice{}).
		Where("id = ? AND status NOT IN ?", id, []string{StatusPaid, StatusCancelled}).
		Updates(set)
	if res.Error != nil {
		return Invoice{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Invoice{}, ErrIllegalStatus
	}
	return s.Get(ctx, id)
}

// MarkOverdue flags every sent invoice whose due date has passed.
func (s *Service) MarkOverdue(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&Invoice{}).
		Where("status = ? AND due_date < ?", StatusSent, s.now()).
		Updates(map[string]any{"status": StatusOverdue, "updated_at": s.now()})
	return res.RowsAffected, res.Error
}

// nextNumber produces INV-<base36 unix seconds>-<5 random alphanumerics>.
func (s *Service) nextNumber(now time.Time) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	var sb strings.Builder
	for i := 0; i < 5; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			sb.WriteByte('0')
			continue
		}
		sb.WriteByte(alphabet[n.Int64()])
	}
	return "INV-" + strconv.FormatInt(now.Unix(), 36) + "-" + sb.String()
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/copperspur/rodeo-backend/pkg/enums"
)

// TicketOrder represents an admission purchase. Family tickets stay a single
// row and carry up to four wristband tags.
type TicketOrder struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConfirmationCode string                  `gorm:"column:confirmation_code;not null;uniqueIndex:ticket_orders_confirmation_code_key"`
	TicketType       enums.TicketType        `gorm:"column:ticket_type;type:text;not null"`
	EventSlug        string                  `gorm:"column:event_slug;not null"`
	CustomerName     string                  `gorm:"column:customer_name;not null"`
	CustomerEmail    string                  `gorm:"column:customer_email;not null"`
	Status           enums.TicketOrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Provider         enums.PaymentProvider   `gorm:"column:provider;type:text;not null"`
	ProviderSession  *string                 `gorm:"column:provider_session"`
	ProviderTxnID    *string                 `gorm:"column:provider_txn_id"`
	Currency         enums.Currency          `gorm:"column:currency;type:text;not null;default:'CAD'"`
	Quantity         int                     `gorm:"column:quantity;not null;default:1"`
	Subtotal         decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax              decimal.Decimal         `gorm:"column:tax;type:numeric(12,2);not null"`
	Total            decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	RefundAmount     *decimal.Decimal        `gorm:"column:refund_amount;type:numeric(12,2)"`
	Scanned          bool                    `gorm:"column:scanned;not null;default:false"`
	ScannedAt        *time.Time              `gorm:"column:scanned_at"`
	RFIDTags         []string                `gorm:"column:rfid_tags;type:jsonb;serializer:json"`
	ConfirmedAt      *time.Time              `gorm:"column:confirmed_at"`
	EmailSentAt      *time.Time              `gorm:"column:email_sent_at"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

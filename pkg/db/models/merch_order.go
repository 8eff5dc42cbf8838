package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/copperspur/rodeo-backend/pkg/enums"
	"github.com/copperspur/rodeo-backend/pkg/types"
)

// MerchOrder represents a merchandise purchase shipped to the buyer.
type MerchOrder struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConfirmationCode string                 `gorm:"column:confirmation_code;not null;uniqueIndex:merch_orders_confirmation_code_key"`
	CustomerName     string                 `gorm:"column:customer_name;not null"`
	CustomerEmail    string                 `gorm:"column:customer_email;not null"`
	Status           enums.MerchOrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Provider         enums.PaymentProvider  `gorm:"column:provider;type:text;not null"`
	ProviderSession  *string                `gorm:"column:provider_session"`
	ProviderTxnID    *string                `gorm:"column:provider_txn_id"`
	Currency         enums.Currency         `gorm:"column:currency;type:text;not null;default:'CAD'"`
	Subtotal         decimal.Decimal        `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Shipping         decimal.Decimal        `gorm:"column:shipping;type:numeric(12,2);not null"`
	Tax              decimal.Decimal        `gorm:"column:tax;type:numeric(12,2);not null"`
	Total            decimal.Decimal        `gorm:"column:total;type:numeric(12,2);not null"`
	RefundAmount     *decimal.Decimal       `gorm:"column:refund_amount;type:numeric(12,2)"`
	ShippingAddress  *types.Address         `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Items            []MerchOrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShipmentID       *string                `gorm:"column:shipment_id"`
	TrackingNumber   *string                `gorm:"column:tracking_number"`
	ShippedAt        *time.Time             `gorm:"column:shipped_at"`
	PaidAt           *time.Time             `gorm:"column:paid_at"`
	EmailSentAt      *time.Time             `gorm:"column:email_sent_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/copperspur/rodeo-backend/pkg/enums"
)

// BarCredit represents a prepaid drink-credit bundle redeemed one pour at a time.
type BarCredit struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConfirmationCode string                `gorm:"column:confirmation_code;not null;uniqueIndex:bar_credits_confirmation_code_key"`
	CustomerName     string                `gorm:"column:customer_name;not null"`
	CustomerEmail    string                `gorm:"column:customer_email;not null"`
	Status           enums.BarCreditStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Provider         enums.PaymentProvider `gorm:"column:provider;type:text;not null"`
	ProviderSession  *string               `gorm:"column:provider_session"`
	ProviderTxnID    *string               `gorm:"column:provider_txn_id"`
	Currency         enums.Currency        `gorm:"column:currency;type:text;not null;default:'CAD'"`
	Credits          int                   `gorm:"column:credits;not null"`
	RemainingCredits int                   `gorm:"column:remaining_credits;not null;default:0"`
	UnitPrice        decimal.Decimal       `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal         decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax              decimal.Decimal       `gorm:"column:tax;type:numeric(12,2);not null"`
	Total            decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	RefundAmount     *decimal.Decimal      `gorm:"column:refund_amount;type:numeric(12,2)"`
	ConfirmedAt      *time.Time            `gorm:"column:confirmed_at"`
	EmailSentAt      *time.Time            `gorm:"column:email_sent_at"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

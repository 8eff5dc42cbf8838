package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/copperspur/rodeo-backend/pkg/db/models"
	"github.com/copperspur/rodeo-backend/pkg/enums"
)

// Record is a kind-tagged view over the three order tables. Exactly one of
// the typed pointers is set.
type Record struct {
	Kind      enums.OrderKind
	Ticket    *models.TicketOrder
	Merch     *models.MerchOrder
	BarCredit *models.BarCredit
}

func (r *Record) ID() uuid.UUID {
	switch r.Kind {
	case enums.OrderKindTicket:
		return r.Ticket.ID
	case enums.OrderKindMerch:
		return r.Merch.ID
	case enums.OrderKindBarCredit:
		return r.BarCredit.ID
	}
	return uuid.Nil
}

func (r *Record) ConfirmationCode() string {
	switch r.Kind {
	case enums.OrderKindTicket:
		return r.Ticket.ConfirmationCode
	case enums.OrderKindMerch:
		return r.Merch.ConfirmationCode
	case enums.OrderKindBarCredit:
		return r.BarCredit.ConfirmationCode
	}
	return ""
}

func (r *Record) CustomerName() string {
	switch r.Kind {
	case enums.OrderKindTicket:
		return r.Ticket.CustomerName
	case enums.OrderKindMerch:
		return r.Merch.CustomerName
	case enums.OrderKindBarCredit:
		return r.BarCredit.CustomerName
	}
	return ""
}

func (r *Record) CustomerEmail() string {
	switch r.Kind {
	case enums.OrderKindTicket:
		return r.Ticket.CustomerEmail
	case enums.OrderKindMerch:
		return r.Merch.CustomerEmail
	case enums.OrderKindBarCredit:
		return r.BarCredit.CustomerEmail
	}
	return ""
}

// Status returns the record status as its raw string form.
func (r *Record) Status() string {
	switch r.Kind {
	case enums.OrderKindTicket:
		return string(r.Ticket.Status)
	case enums.OrderKindMerch:
		return string(r.Merch.Status)
	case enums.OrderKindBarCredit:
		return string(r.BarCredit.Status)
	}
	return ""
}

func (r *Record) Total() decimal.Decimal {
	switch r.Kind {
	case enums.OrderKindTicket:
		return r.Ticket.Total
	case enums.OrderKindMerch:
		return r.Merch.Total
	case enums.OrderKindBarCredit:
		return r.BarCredit.Total
	}
	return decimal.Zero
}

func (r *Record) Provider() enums.PaymentProvider {
	switch r.Kind {
	case enums.OrderKindTicket:
		return r.Ticket.Provider
	case enums.OrderKindMerch:
		return r.Merch.Provider
	case enums.OrderKindBarCredit:
		return r.BarCredit.Provider
	}
	return ""
}

func (r *Record) ProviderTxnID() *string {
	switch r.Kind {
	case enums.OrderKindTicket:
		return r.Ticket.ProviderTxnID
	case enums.OrderKindMerch:
		return r.Merch.ProviderTxnID
	case enums.OrderKindBarCredit:
		return r.BarCredit.ProviderTxnID
	}
	return nil
}

// Paid reports whether the record reached its terminal-paid state.
func (r *Record) Paid() bool {
	switch r.Kind {
	case enums.OrderKindTicket:
		return r.Ticket.Status == enums.TicketOrderStatusConfirmed
	case enums.OrderKindMerch:
		return r.Merch.Status == enums.MerchOrderStatusPaid || r.Merch.Status == enums.MerchOrderStatusShipped
	case enums.OrderKindBarCredit:
		return r.BarCredit.Status == enums.BarCreditStatusConfirmed || r.BarCredit.Status == enums.BarCreditStatusDepleted
	}
	return false
}

// Pending reports whether the record is still awaiting payment.
func (r *Record) Pending() bool {
	switch r.Kind {
	case enums.OrderKindTicket:
		return r.Ticket.Status == enums.TicketOrderStatusPending
	case enums.OrderKindMerch:
		return r.Merch.Status == enums.MerchOrderStatusPending
	case enums.OrderKindBarCredit:
		return r.BarCredit.Status == enums.BarCreditStatusPending
	}
	return false
}

// OrderFilters describe the inputs supported by the admin order lists.
type OrderFilters struct {
	Status    string
	Email     string
	EventSlug string
	DateFrom  *time.Time
	DateTo    *time.Time
}

// OrderSummary exposes the aggregated fields returned in the admin lists.
type OrderSummary struct {
	ConfirmationCode string                `json:"confirmation_code"`
	Kind             enums.OrderKind       `json:"kind"`
	Status           string                `json:"status"`
	CustomerName     string                `json:"customer_name"`
	CustomerEmail    string                `json:"customer_email"`
	Provider         enums.PaymentProvider `json:"provider"`
	Total            decimal.Decimal       `json:"total"`
	CreatedAt        time.Time             `json:"created_at"`
}

// OrderList wraps the paginated summaries plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// RefundResult reports the outcome of an admin refund.
type RefundResult struct {
	ConfirmationCode string          `json:"confirmation_code"`
	Status           string          `json:"status"`
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	ProviderRefundID *string         `json:"provider_refund_id,omitempty"`
}

func summarize(record *Record) OrderSummary {
	summary := OrderSummary{
		ConfirmationCode: record.ConfirmationCode(),
		Kind:             record.Kind,
		Status:           record.Status(),
		CustomerName:     record.CustomerName(),
		CustomerEmail:    record.CustomerEmail(),
		Provider:         record.Provider(),
		Total:            record.Total(),
		CreatedAt:        record.summaryCreatedAt(),
	}
	return summary
}

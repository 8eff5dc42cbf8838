package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	stripelib "github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/pagination"
)

// Confirmer applies the paid transition plus its post-commit side effects.
// The webhook reconciliation service satisfies this so manual confirmation
// shares the exact same path.
type Confirmer interface {
	ConfirmRecord(ctx context.Context, record *Record) (bool, error)
}

// Notifier delivers the confirmation email for a paid record.
type Notifier interface {
	SendConfirmation(ctx context.Context, record *Record) error
}

type stripeRefunder interface {
	CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64) (*stripelib.Refund, error)
}

// Service defines admin-facing order operations.
type Service interface {
	GetOrder(ctx context.Context, code string) (*Record, error)
	ListOrders(ctx context.Context, kind enums.OrderKind, params pagination.Params, filters OrderFilters) (*OrderList, error)
	Search(ctx context.Context, query string) ([]OrderSummary, error)
	ManualConfirm(ctx context.Context, code string) (*Record, error)
	Refund(ctx context.Context, code string, amount decimal.Decimal) (*RefundResult, error)
	ResendEmail(ctx context.Context, code string) error
	AttachRFIDTags(ctx context.Context, code string, tags []string) (*Record, error)
}

type service struct {
	repo      Repository
	confirmer Confirmer
	refunder  stripeRefunder
	notifier  Notifier
}

// NewService builds the admin order service with the required dependencies.
func NewService(repo Repository, confirmer Confirmer, refunder stripeRefunder, notifier Notifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if confirmer == nil {
		return nil, fmt.Errorf("confirmer required")
	}
	if refunder == nil {
		return nil, fmt.Errorf("stripe refunder required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &service{
		repo:      repo,
		confirmer: confirmer,
		refunder:  refunder,
		notifier:  notifier,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, code string) (*Record, error) {
	return s.loadByCode(ctx, code)
}

func (s *service) ListOrders(ctx context.Context, kind enums.OrderKind, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order kind")
	}
	list, err := s.repo.ListOrders(ctx, kind, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// Search resolves a confirmation code when the query carries a known prefix,
// otherwise treats the query as a customer email.
func (s *service) Search(ctx context.Context, query string) ([]OrderSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query required")
	}

	if _, err := enums.OrderKindForCode(query); err == nil {
		record, err := s.loadByCode(ctx, query)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				return []OrderSummary{}, nil
			}
			return nil, err
		}
		return []OrderSummary{summarize(record)}, nil
	}

	summaries, err := s.repo.FindByEmail(ctx, strings.ToLower(query), pagination.DefaultLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search orders")
	}
	return summaries, nil
}

func (s *service) ManualConfirm(ctx context.Context, code string) (*Record, error) {
	record, err := s.loadByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if record.Paid() {
		return record, nil
	}
	if !record.Pending() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"status": record.Status()})
	}

	if _, err := s.confirmer.ConfirmRecord(ctx, record); err != nil {
		return nil, err
	}
	return s.loadByCode(ctx, code)
}

func (s *service) Refund(ctx context.Context, code string, amount decimal.Decimal) (*RefundResult, error) {
	record, err := s.loadByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !record.Paid() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in a refundable state").
			WithDetails(map[string]any{"status": record.Status()})
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if amount.GreaterThan(record.Total()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds order total").
			WithDetails(map[string]any{"total": record.Total().StringFixed(2)})
	}

	var providerRefundID *string
	if record.Provider() == enums.PaymentProviderStripe && record.ProviderTxnID() != nil {
		refund, err := s.refunder.CreateRefund(ctx, *record.ProviderTxnID(), amount.Mul(decimal.NewFromInt(100)).IntPart())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create provider refund")
		}
		providerRefundID = &refund.ID
	}

	status, updates := refundUpdates(record, amount)
	if err := s.applyUpdates(ctx, record, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund")
	}

	return &RefundResult{
		ConfirmationCode: record.ConfirmationCode(),
		Status:           status,
		RefundAmount:     amount,
		ProviderRefundID: providerRefundID,
	}, nil
}

func (s *service) ResendEmail(ctx context.Context, code string) error {
	record, err := s.loadByCode(ctx, code)
	if err != nil {
		return err
	}
	if !record.Paid() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no confirmation to send").
			WithDetails(map[string]any{"status": record.Status()})
	}
	if err := s.notifier.SendConfirmation(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send confirmation email")
	}
	return s.applyUpdates(ctx, record, map[string]any{"email_sent_at": time.Now().UTC()})
}

func (s *service) AttachRFIDTags(ctx context.Context, code string, tags []string) (*Record, error) {
	record, err := s.loadByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if record.Kind != enums.OrderKindTicket {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wristband tags apply to ticket orders only")
	}
	if !record.Paid() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ticket is not confirmed").
			WithDetails(map[string]any{"status": record.Status()})
	}

	cleaned := make([]string, 0, len(tags))
	seen := map[string]struct{}{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "empty rfid tag")
		}
		if _, dup := seen[tag]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate rfid tag")
		}
		seen[tag] = struct{}{}
		cleaned = append(cleaned, tag)
	}
	if len(cleaned) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one rfid tag required")
	}

	limit := tagCap(record)
	if len(cleaned) > limit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many rfid tags for ticket type").
			WithDetails(map[string]any{"cap": limit})
	}

	payload, err := json.Marshal(cleaned)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode rfid tags")
	}
	if err := s.repo.UpdateTicketOrder(ctx, record.Ticket.ID, map[string]any{"rfid_tags": payload}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store rfid tags")
	}
	return s.loadByCode(ctx, code)
}

func (s *service) loadByCode(ctx context.Context, code string) (*Record, error) {
	code = strings.TrimSpace(code)
	kind, err := enums.OrderKindForCode(code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid confirmation code")
	}
	record, err := s.repo.FindByCode(ctx, kind, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return record, nil
}

func (s *service) applyUpdates(ctx context.Context, record *Record, updates map[string]any) error {
	switch record.Kind {
	case enums.OrderKindTicket:
		return s.repo.UpdateTicketOrder(ctx, record.Ticket.ID, updates)
	case enums.OrderKindMerch:
		return s.repo.UpdateMerchOrder(ctx, record.Merch.ID, updates)
	case enums.OrderKindBarCredit:
		return s.repo.UpdateBarCredit(ctx, record.BarCredit.ID, updates)
	}
	return fmt.Errorf("unknown order kind %q", record.Kind)
}

// refundUpdates maps a refund amount onto the target status. Full refunds end
// refunded where the table supports it; partial refunds cancel the record.
func refundUpdates(record *Record, amount decimal.Decimal) (string, map[string]any) {
	full := amount.Equal(record.Total())
	updates := map[string]any{"refund_amount": amount}

	var status string
	switch record.Kind {
	case enums.OrderKindTicket:
		if full {
			status = string(enums.TicketOrderStatusRefunded)
		} else {
			status = string(enums.TicketOrderStatusCancelled)
		}
	case enums.OrderKindMerch:
		status = string(enums.MerchOrderStatusCancelled)
	case enums.OrderKindBarCredit:
		if full {
			status = string(enums.BarCreditStatusRefunded)
		} else {
			status = string(enums.BarCreditStatusCancelled)
		}
		updates["remaining_credits"] = 0
	}
	updates["status"] = status
	return status, updates
}

func tagCap(record *Record) int {
	per := record.Ticket.TicketType.RFIDTagCap()
	qty := record.Ticket.Quantity
	if qty < 1 {
		qty = 1
	}
	return per * qty
}

package redemption

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/copperspur/rodeo-backend/internal/orders"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
	"github.com/copperspur/rodeo-backend/pkg/metrics"
)

const (
	ReasonPendingPayment = "pending_payment"
	ReasonAlreadyUsed    = "already_used"
	ReasonDepleted       = "depleted"
	ReasonCancelled      = "cancelled"
)

// ScanResult is returned to gate scanners on a successful admission.
type ScanResult struct {
	ConfirmationCode string           `json:"confirmation_code"`
	TicketType       enums.TicketType `json:"ticket_type"`
	EventSlug        string           `json:"event_slug"`
	CustomerName     string           `json:"customer_name"`
	ScannedAt        time.Time        `json:"scanned_at"`
}

// RedeemResult is returned to bar stations after one credit is poured.
type RedeemResult struct {
	ConfirmationCode string `json:"confirmation_code"`
	CustomerName     string `json:"customer_name"`
	RemainingCredits int    `json:"remaining_credits"`
}

// Service admits tickets and pours bar credits. Every transition is a
// conditional update; concurrent losers observe the conflict reason instead
// of a double redemption.
type Service interface {
	ScanTicket(ctx context.Context, code string) (*ScanResult, error)
	RedeemBarCredit(ctx context.Context, code string) (*RedeemResult, error)
}

type service struct {
	repo   orders.Repository
	meters *metrics.WebhookMetrics
	logger *logger.Logger
}

// NewService builds the redemption service.
func NewService(repo orders.Repository, meters *metrics.WebhookMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo, meters: meters, logger: logg}, nil
}

func (s *service) ScanTicket(ctx context.Context, code string) (*ScanResult, error) {
	record, err := s.load(ctx, enums.OrderKindTicket, code)
	if err != nil {
		s.meters.IncScan("ticket", "not_found")
		return nil, err
	}
	ticket := record.Ticket

	switch ticket.Status {
	case enums.TicketOrderStatusPending:
		s.meters.IncScan("ticket", ReasonPendingPayment)
		return nil, conflict(ReasonPendingPayment, "payment has not been confirmed", nil)
	case enums.TicketOrderStatusCancelled, enums.TicketOrderStatusRefunded:
		s.meters.IncScan("ticket", ReasonCancelled)
		return nil, conflict(ReasonCancelled, "ticket is no longer valid", nil)
	}

	if ticket.Scanned {
		s.meters.IncScan("ticket", ReasonAlreadyUsed)
		return nil, conflict(ReasonAlreadyUsed, "ticket already scanned", ticket.ScannedAt)
	}

	now := time.Now().UTC()
	won, err := s.repo.MarkTicketScannedIfUnscanned(ctx, ticket.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark ticket scanned")
	}
	if !won {
		// lost the race; surface the winner's timestamp
		fresh, err := s.load(ctx, enums.OrderKindTicket, code)
		if err != nil {
			return nil, err
		}
		s.meters.IncScan("ticket", ReasonAlreadyUsed)
		return nil, conflict(ReasonAlreadyUsed, "ticket already scanned", fresh.Ticket.ScannedAt)
	}

	if s.logger != nil {
		logCtx := s.logger.WithFields(ctx, map[string]any{"confirmation_code": code})
		s.logger.Info(logCtx, "redemption.ticket.scanned")
	}
	s.meters.IncScan("ticket", "accepted")

	return &ScanResult{
		ConfirmationCode: ticket.ConfirmationCode,
		TicketType:       ticket.TicketType,
		EventSlug:        ticket.EventSlug,
		CustomerName:     ticket.CustomerName,
		ScannedAt:        now,
	}, nil
}

func (s *service) RedeemBarCredit(ctx context.Context, code string) (*RedeemResult, error) {
	record, err := s.load(ctx, enums.OrderKindBarCredit, code)
	if err != nil {
		s.meters.IncScan("bar_credit", "not_found")
		return nil, err
	}
	credit := record.BarCredit

	switch credit.Status {
	case enums.BarCreditStatusPending:
		s.meters.IncScan("bar_credit", ReasonPendingPayment)
		return nil, conflict(ReasonPendingPayment, "payment has not been confirmed", nil)
	case enums.BarCreditStatusCancelled, enums.BarCreditStatusRefunded:
		s.meters.IncScan("bar_credit", ReasonCancelled)
		return nil, conflict(ReasonCancelled, "bar credits are no longer valid", nil)
	case enums.BarCreditStatusDepleted:
		s.meters.IncScan("bar_credit", ReasonDepleted)
		return nil, conflict(ReasonDepleted, "no credits remaining", nil)
	}

	won, err := s.repo.DecrementBarCredit(ctx, credit.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement bar credit")
	}
	if !won {
		s.meters.IncScan("bar_credit", ReasonDepleted)
		return nil, conflict(ReasonDepleted, "no credits remaining", nil)
	}

	fresh, err := s.load(ctx, enums.OrderKindBarCredit, code)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		logCtx := s.logger.WithFields(ctx, map[string]any{
			"confirmation_code": code,
			"remaining_credits": fresh.BarCredit.RemainingCredits,
		})
		s.logger.Info(logCtx, "redemption.bar_credit.poured")
	}
	s.meters.IncScan("bar_credit", "accepted")

	return &RedeemResult{
		ConfirmationCode: fresh.BarCredit.ConfirmationCode,
		CustomerName:     fresh.BarCredit.CustomerName,
		RemainingCredits: fresh.BarCredit.RemainingCredits,
	}, nil
}

func (s *service) load(ctx context.Context, kind enums.OrderKind, code string) (*orders.Record, error) {
	code = strings.TrimSpace(code)
	parsed, err := enums.OrderKindForCode(code)
	if err != nil || parsed != kind {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "confirmation code does not match this station")
	}
	record, err := s.repo.FindByCode(ctx, kind, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load record")
	}
	return record, nil
}

func conflict(reason, message string, scannedAt *time.Time) error {
	details := map[string]any{"reason": reason}
	if scannedAt != nil {
		details["scanned_at"] = scannedAt.UTC()
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).WithDetails(details)
}

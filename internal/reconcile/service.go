package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/copperspur/rodeo-backend/internal/orders"
	"github.com/copperspur/rodeo-backend/pkg/db/models"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
	"github.com/copperspur/rodeo-backend/pkg/metrics"
	"github.com/copperspur/rodeo-backend/pkg/shiptime"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type shipmentCreator interface {
	CreateShipment(ctx context.Context, order *models.MerchOrder) (*shiptime.Shipment, error)
}

// Service turns authenticated payment notices into exactly-once order
// confirmations. The confirmation itself is a conditional UPDATE guarded by
// a durable per-event ledger; side effects run only for the delivery that
// won the transition.
type Service struct {
	tx       txRunner
	repo     orders.Repository
	notifier orders.Notifier
	shipper  shipmentCreator
	meters   *metrics.WebhookMetrics
	logger   *logger.Logger
}

// NewService builds the reconciler. The shipper is optional; without it
// merch confirmations skip shipment booking.
func NewService(tx txRunner, repo orders.Repository, notifier orders.Notifier, shipper shipmentCreator, meters *metrics.WebhookMetrics, logg *logger.Logger) (*Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &Service{
		tx:       tx,
		repo:     repo,
		notifier: notifier,
		shipper:  shipper,
		meters:   meters,
		logger:   logg,
	}, nil
}

// Apply reconciles one payment notice. Unmatched and duplicate notices
// return nil so the provider stops redelivering.
func (s *Service) Apply(ctx context.Context, notice PaymentNotice) error {
	start := time.Now()
	defer func() {
		s.meters.ObserveDuration(string(notice.Provider), time.Since(start))
	}()

	if s.logger != nil {
		ctx = s.logger.WithProvider(ctx, string(notice.Provider))
		ctx = s.logger.WithEventID(ctx, notice.EventID)
		if code := notice.code(); code != "" {
			ctx = s.logger.WithOrderNo(ctx, code)
		}
	}

	if !notice.Approved {
		s.log(ctx, "payment declined, record left pending")
		s.meters.IncProcessed(string(notice.Provider), "declined")
		return nil
	}

	record, err := s.resolve(ctx, notice)
	if err != nil {
		if isNotFound(err) {
			s.log(ctx, "no record matches payment notice, acknowledging")
			s.meters.IncProcessed(string(notice.Provider), "unmatched")
			return nil
		}
		return err
	}

	if record.Paid() {
		// Terminal already; keep the ledger row for audit, send nothing.
		_ = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := s.recordEvent(tx, notice, record)
			return err
		})
		s.meters.IncProcessed(string(notice.Provider), "duplicate")
		return nil
	}

	var txnID *string
	if notice.TransactionID != "" {
		txn := notice.TransactionID
		txnID = &txn
	}

	won := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		inserted, err := s.recordEvent(tx, notice, record)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		won, err = confirmPending(ctx, s.repo.WithTx(tx), record.Kind, record.ID(), txnID, time.Now().UTC())
		return err
	})
	if err != nil {
		return err
	}

	if !won {
		s.meters.IncProcessed(string(notice.Provider), "duplicate")
		return nil
	}

	s.meters.IncProcessed(string(notice.Provider), "confirmed")
	s.log(ctx, "order confirmed from payment notice")
	s.runSideEffects(ctx, record.Kind, record.ID())
	return nil
}

// ConfirmRecord drives the same conditional transition for a staff-initiated
// manual confirmation. The winning call runs the usual side effects.
func (s *Service) ConfirmRecord(ctx context.Context, record *orders.Record) (bool, error) {
	if record == nil {
		return false, fmt.Errorf("order record required")
	}

	won, err := confirmPending(ctx, s.repo, record.Kind, record.ID(), nil, time.Now().UTC())
	if err != nil {
		return false, err
	}
	if won {
		if s.logger != nil {
			ctx = s.logger.WithOrderNo(ctx, record.ConfirmationCode())
		}
		s.log(ctx, "order confirmed manually")
		s.runSideEffects(ctx, record.Kind, record.ID())
	}
	return won, nil
}

func (s *Service) resolve(ctx context.Context, notice PaymentNotice) (*orders.Record, error) {
	kind := notice.Kind
	if !kind.IsValid() {
		code := notice.code()
		if code == "" {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "notice carries no kind, code, or order number")
		}
		resolved, err := enums.OrderKindForCode(code)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "resolving order kind")
		}
		kind = resolved
	}

	if notice.RecordID != uuid.Nil {
		record, err := s.repo.FindByID(ctx, kind, notice.RecordID)
		if err == nil {
			return record, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}

	if notice.SessionID != "" {
		record, err := s.repo.FindBySession(ctx, kind, notice.SessionID)
		if err == nil {
			return record, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}

	if code := notice.code(); code != "" {
		return s.repo.FindByCode(ctx, kind, code)
	}
	return nil, gorm.ErrRecordNotFound
}

// recordEvent inserts into the durable dedupe ledger. A false return means
// this provider event was already processed.
func (s *Service) recordEvent(tx *gorm.DB, notice PaymentNotice, record *orders.Record) (bool, error) {
	recordID := record.ID()
	event := &models.WebhookEvent{
		Provider: notice.Provider,
		EventID:  notice.EventID,
		Kind:     record.Kind,
		OrderNo:  record.ConfirmationCode(),
		RecordID: &recordID,
		Payload:  notice.Payload,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func confirmPending(ctx context.Context, repo orders.Repository, kind enums.OrderKind, id uuid.UUID, txnID *string, at time.Time) (bool, error) {
	switch kind {
	case enums.OrderKindTicket:
		return repo.ConfirmTicketOrderIfPending(ctx, id, txnID, at)
	case enums.OrderKindMerch:
		return repo.MarkMerchOrderPaidIfPending(ctx, id, txnID, at)
	case enums.OrderKindBarCredit:
		return repo.ConfirmBarCreditIfPending(ctx, id, txnID, at)
	default:
		return false, fmt.Errorf("unsupported order kind %q", kind)
	}
}

// runSideEffects sends the confirmation email and books the shipment. None
// of it can undo the confirmation; failures are logged and retriable through
// the admin resend endpoint.
func (s *Service) runSideEffects(ctx context.Context, kind enums.OrderKind, id uuid.UUID) {
	record, err := s.repo.FindByID(ctx, kind, id)
	if err != nil {
		s.logError(ctx, "reloading confirmed order for side effects", err)
		return
	}

	if err := s.notifier.SendConfirmation(ctx, record); err != nil {
		s.logError(ctx, "confirmation email failed", err)
		s.meters.IncProcessed(string(record.Provider()), "email_failed")
	} else {
		s.stampEmailSent(ctx, kind, id, time.Now().UTC())
	}

	if kind == enums.OrderKindMerch && s.shipper != nil && record.Merch != nil && record.Merch.ShippingAddress != nil {
		shipment, err := s.shipper.CreateShipment(ctx, record.Merch)
		if err != nil {
			s.logError(ctx, "shipment booking failed", err)
			return
		}
		if shipment != nil {
			updates := map[string]any{
				"shipment_id":     shipment.ID,
				"tracking_number": shipment.TrackingNumber,
			}
			if err := s.repo.UpdateMerchOrder(ctx, id, updates); err != nil {
				s.logError(ctx, "persisting shipment reference", err)
			}
		}
	}
}

func (s *Service) stampEmailSent(ctx context.Context, kind enums.OrderKind, id uuid.UUID, at time.Time) {
	updates := map[string]any{"email_sent_at": at}
	var err error
	switch kind {
	case enums.OrderKindTicket:
		err = s.repo.UpdateTicketOrder(ctx, id, updates)
	case enums.OrderKindMerch:
		err = s.repo.UpdateMerchOrder(ctx, id, updates)
	case enums.OrderKindBarCredit:
		err = s.repo.UpdateBarCredit(ctx, id, updates)
	}
	if err != nil {
		s.logError(ctx, "stamping email_sent_at", err)
	}
}

func (s *Service) log(ctx context.Context, msg string) {
	if s.logger != nil {
		s.logger.Info(ctx, msg)
	}
}

func (s *Service) logError(ctx context.Context, msg string, err error) {
	if s.logger != nil {
		s.logger.Error(ctx, msg, err)
	}
}

func isNotFound(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code() == pkgerrors.CodeNotFound
	}
	return false
}

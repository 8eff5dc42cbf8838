package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	stripelib "github.com/stripe/stripe-go/v82"

	"github.com/copperspur/rodeo-backend/internal/reconcile"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
)

type signatureVerifier interface {
	VerifyWebhook(payload []byte, sigHeader string) (stripelib.Event, error)
}

type reconciler interface {
	Apply(ctx context.Context, notice reconcile.PaymentNotice) error
}

// Service authenticates raw Stripe webhook deliveries and forwards completed
// checkout sessions to the reconciler. Signature verification happens before
// the payload is even parsed.
type Service struct {
	verifier signatureVerifier
	apply    reconciler
	guard    *IdempotencyGuard
	logger   *logger.Logger
}

// NewService builds the Stripe webhook handler. The guard is optional; the
// webhook_events ledger still dedupes without it.
func NewService(verifier signatureVerifier, apply reconciler, guard *IdempotencyGuard, logg *logger.Logger) (*Service, error) {
	if verifier == nil {
		return nil, fmt.Errorf("signature verifier required")
	}
	if apply == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &Service{verifier: verifier, apply: apply, guard: guard, logger: logg}, nil
}

// Process verifies and reconciles one raw webhook delivery.
func (s *Service) Process(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.verifier.VerifyWebhook(payload, sigHeader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "stripe signature rejected")
	}

	if s.logger != nil {
		ctx = s.logger.WithProvider(ctx, string(enums.PaymentProviderStripe))
		ctx = s.logger.WithEventID(ctx, event.ID)
	}

	if event.Type != stripelib.EventTypeCheckoutSessionCompleted {
		if s.logger != nil {
			s.logger.Info(ctx, fmt.Sprintf("ignoring stripe event type %s", event.Type))
		}
		return nil
	}

	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			// Redis down must not drop payments; the ledger still dedupes.
			if s.logger != nil {
				s.logger.Error(ctx, "idempotency fast path unavailable", err)
			}
		} else if seen {
			if s.logger != nil {
				s.logger.Info(ctx, "stripe event already processed, acknowledging")
			}
			return nil
		}
	}

	notice, err := noticeFromEvent(event, payload)
	if err != nil {
		s.release(ctx, event.ID)
		return err
	}

	if err := s.apply.Apply(ctx, notice); err != nil {
		// Let Stripe redeliver; the next attempt must not hit the fast path.
		s.release(ctx, event.ID)
		return err
	}
	return nil
}

func (s *Service) release(ctx context.Context, eventID string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Delete(ctx, eventID); err != nil && s.logger != nil {
		s.logger.Error(ctx, "releasing idempotency key", err)
	}
}

func noticeFromEvent(event stripelib.Event, payload []byte) (reconcile.PaymentNotice, error) {
	var session stripelib.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return reconcile.PaymentNotice{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}

	notice := reconcile.PaymentNotice{
		Provider:         enums.PaymentProviderStripe,
		EventID:          event.ID,
		ConfirmationCode: session.ClientReferenceID,
		SessionID:        session.ID,
		Approved:         sessionPaid(session),
		Payload:          payload,
	}

	if session.PaymentIntent != nil {
		notice.TransactionID = session.PaymentIntent.ID
	}

	if raw := session.Metadata["kind"]; raw != "" {
		if kind, err := enums.ParseOrderKind(raw); err == nil {
			notice.Kind = kind
		}
	}
	if raw := session.Metadata["record_id"]; raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			notice.RecordID = id
		}
	}
	if code := session.Metadata["confirmation_code"]; code != "" {
		notice.ConfirmationCode = code
	}
	if notice.OrderNo == "" {
		notice.OrderNo = notice.ConfirmationCode
	}
	return notice, nil
}

func sessionPaid(session stripelib.CheckoutSession) bool {
	switch session.PaymentStatus {
	case stripelib.CheckoutSessionPaymentStatusPaid,
		stripelib.CheckoutSessionPaymentStatusNoPaymentRequired:
		return true
	}
	// Some API versions omit payment_status on completed sessions.
	return session.PaymentStatus == "" && strings.EqualFold(string(session.Status), "complete")
}

package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/copperspur/rodeo-backend/internal/orders"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
	"github.com/copperspur/rodeo-backend/pkg/resend"
)

type mailer interface {
	Send(ctx context.Context, msg resend.Message) (string, error)
}

type ticketEncoder interface {
	TicketPNG(plaintext string) ([]byte, error)
}

// Service sends order confirmation email. Ticket confirmations carry an
// encrypted QR wristband code; merch and bar-credit confirmations are
// text-only.
type Service struct {
	mail   mailer
	qr     ticketEncoder
	logger *logger.Logger
}

// NewService builds the notifier.
func NewService(mail mailer, qr ticketEncoder, logg *logger.Logger) (*Service, error) {
	if mail == nil {
		return nil, fmt.Errorf("mail client required")
	}
	if qr == nil {
		return nil, fmt.Errorf("qr generator required")
	}
	return &Service{mail: mail, qr: qr, logger: logg}, nil
}

// SendConfirmation emails the customer for a freshly confirmed order.
func (s *Service) SendConfirmation(ctx context.Context, record *orders.Record) error {
	if record == nil {
		return fmt.Errorf("order record required")
	}
	email := strings.TrimSpace(record.CustomerEmail())
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order has no customer email")
	}

	msg := resend.Message{
		To:      []string{email},
		Subject: subjectFor(record),
		HTML:    bodyFor(record),
	}

	if record.Kind == enums.OrderKindTicket {
		png, err := s.qr.TicketPNG(record.ConfirmationCode())
		if err != nil {
			return fmt.Errorf("rendering ticket qr: %w", err)
		}
		msg.Attachments = []resend.Attachment{{
			Filename: "ticket.png",
			Content:  png,
		}}
	}

	messageID, err := s.mail.Send(ctx, msg)
	if err != nil {
		return err
	}
	if s.logger != nil {
		logCtx := s.logger.WithOrderNo(ctx, record.ConfirmationCode())
		logCtx = s.logger.WithField(logCtx, "message_id", messageID)
		s.logger.Info(logCtx, "confirmation email sent")
	}
	return nil
}

func subjectFor(record *orders.Record) string {
	switch record.Kind {
	case enums.OrderKindTicket:
		return fmt.Sprintf("Your tickets are confirmed (%s)", record.ConfirmationCode())
	case enums.OrderKindMerch:
		return fmt.Sprintf("Your merch order is confirmed (%s)", record.ConfirmationCode())
	case enums.OrderKindBarCredit:
		return fmt.Sprintf("Your bar credits are ready (%s)", record.ConfirmationCode())
	default:
		return fmt.Sprintf("Order confirmed (%s)", record.ConfirmationCode())
	}
}

func bodyFor(record *orders.Record) string {
	name := strings.TrimSpace(record.CustomerName())
	if name == "" {
		name = "there"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", name)

	switch record.Kind {
	case enums.OrderKindTicket:
		fmt.Fprintf(&b, "<p>Your admission is confirmed. Show the attached QR code at the gate.</p>")
	case enums.OrderKindMerch:
		fmt.Fprintf(&b, "<p>Thanks for your order. We will let you know when it ships.</p>")
	case enums.OrderKindBarCredit:
		fmt.Fprintf(&b, "<p>Your bar credits are loaded. Give your confirmation code at any bar station.</p>")
	}

	fmt.Fprintf(&b, "<p>Confirmation code: <strong>%s</strong></p>", record.ConfirmationCode())
	fmt.Fprintf(&b, "<p>Total paid: $%s</p>", record.Total().StringFixed(2))
	fmt.Fprintf(&b, "<p>See you at the Copper Spur grounds.</p>")
	return b.String()
}

package reconcile

import (
	"github.com/google/uuid"

	"github.com/copperspur/rodeo-backend/pkg/enums"
)

// PaymentNotice is an authenticated, provider-neutral payment notification.
// Adapters in internal/webhooks fill as much as the provider exposes; the
// reconciler resolves the record from whatever survived the round trip.
type PaymentNotice struct {
	Provider         enums.PaymentProvider
	EventID          string
	Kind             enums.OrderKind
	RecordID         uuid.UUID
	ConfirmationCode string
	SessionID        string
	OrderNo          string
	TransactionID    string
	Approved         bool
	Payload          []byte
}

// code returns the best confirmation code candidate the notice carries.
func (n PaymentNotice) code() string {
	if n.ConfirmationCode != "" {
		return n.ConfirmationCode
	}
	return n.OrderNo
}

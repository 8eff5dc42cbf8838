package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
)

// LineItem is one hosted-checkout display row in dollars.
type LineItem struct {
	Description string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// SessionRequest carries everything a provider needs to open a hosted
// checkout for a pending record.
type SessionRequest struct {
	Kind             enums.OrderKind
	RecordID         uuid.UUID
	ConfirmationCode string
	CustomerEmail    string
	Currency         enums.Currency
	Total            decimal.Decimal
	LineItems        []LineItem
}

// CheckoutSession is the provider-neutral result of opening a session.
// RedirectURL is set for redirect flows; HostedTicket for embedded ones.
type CheckoutSession struct {
	ID           string
	RedirectURL  string
	HostedTicket string
	Provider     enums.PaymentProvider
}

// Gateway opens hosted checkout sessions with one payment provider.
type Gateway interface {
	Provider() enums.PaymentProvider
	CreateSession(ctx context.Context, req SessionRequest) (*CheckoutSession, error)
}

// Router dispatches session creation to the configured provider gateways.
type Router struct {
	gateways map[enums.PaymentProvider]Gateway
}

// NewRouter indexes the provided gateways by provider.
func NewRouter(gateways ...Gateway) (*Router, error) {
	if len(gateways) == 0 {
		return nil, fmt.Errorf("at least one payment gateway required")
	}
	indexed := make(map[enums.PaymentProvider]Gateway, len(gateways))
	for _, gateway := range gateways {
		if gateway == nil {
			return nil, fmt.Errorf("nil payment gateway")
		}
		if _, dup := indexed[gateway.Provider()]; dup {
			return nil, fmt.Errorf("duplicate gateway for provider %s", gateway.Provider())
		}
		indexed[gateway.Provider()] = gateway
	}
	return &Router{gateways: indexed}, nil
}

// CreateSession opens a session with the requested provider.
func (r *Router) CreateSession(ctx context.Context, provider enums.PaymentProvider, req SessionRequest) (*CheckoutSession, error) {
	gateway, ok := r.gateways[provider]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment provider")
	}
	return gateway.CreateSession(ctx, req)
}

func validateRequest(req SessionRequest) error {
	if req.ConfirmationCode == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "confirmation code required")
	}
	if req.RecordID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "record id required")
	}
	if req.Total.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "session total must be positive")
	}
	if len(req.LineItems) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line item required")
	}
	return nil
}

func sessionMetadata(req SessionRequest) map[string]string {
	return map[string]string{
		"kind":              string(req.Kind),
		"record_id":         req.RecordID.String(),
		"confirmation_code": req.ConfirmationCode,
	}
}

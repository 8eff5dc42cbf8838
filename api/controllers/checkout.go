package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/copperspur/rodeo-backend/api/responses"
	"github.com/copperspur/rodeo-backend/api/validators"
	checkoutsvc "github.com/copperspur/rodeo-backend/internal/checkout"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
	"github.com/copperspur/rodeo-backend/pkg/types"
)

type checkoutTicketPayload struct {
	EventSlug  string `json:"event_slug" validate:"required"`
	TicketType string `json:"ticket_type" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

type checkoutMerchItemPayload struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

type checkoutAddressPayload struct {
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	Province   string  `json:"province" validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Country    string  `json:"country,omitempty"`
	Phone      *string `json:"phone,omitempty"`
}

type checkoutMerchPayload struct {
	Items           []checkoutMerchItemPayload `json:"items" validate:"required,min=1,dive"`
	ShippingAddress *checkoutAddressPayload    `json:"shipping_address,omitempty"`
}

type checkoutBarPayload struct {
	Credits int `json:"credits" validate:"required,gt=0"`
}

type checkoutRequest struct {
	Kind          string                 `json:"kind" validate:"required"`
	Provider      string                 `json:"provider,omitempty"`
	CustomerName  string                 `json:"customer_name" validate:"required"`
	CustomerEmail string                 `json:"customer_email,omitempty" validate:"omitempty,email"`
	Ticket        *checkoutTicketPayload `json:"ticket,omitempty"`
	Merch         *checkoutMerchPayload  `json:"merch,omitempty"`
	Bar           *checkoutBarPayload    `json:"bar,omitempty"`
}

type checkoutResponse struct {
	Kind             enums.OrderKind       `json:"kind"`
	ConfirmationCode string                `json:"confirmation_code"`
	Provider         enums.PaymentProvider `json:"provider"`
	SessionID        string                `json:"session_id"`
	RedirectURL      string                `json:"redirect_url,omitempty"`
	HostedTicket     string                `json:"hosted_ticket,omitempty"`
	Subtotal         decimal.Decimal       `json:"subtotal"`
	Tax              decimal.Decimal       `json:"tax"`
	Shipping         decimal.Decimal       `json:"shipping"`
	Total            decimal.Decimal       `json:"total"`
}

// Checkout opens a hosted payment session for a ticket, merch, or bar-credit
// purchase and returns the pending order's confirmation code.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req, err := payload.toRequest()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		initiation, err := svc.Initiate(r.Context(), *req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Kind:             initiation.Kind,
			ConfirmationCode: initiation.ConfirmationCode,
			Provider:         initiation.Provider,
			SessionID:        initiation.SessionID,
			RedirectURL:      initiation.RedirectURL,
			HostedTicket:     initiation.HostedTicket,
			Subtotal:         initiation.Subtotal,
			Tax:              initiation.Tax,
			Shipping:         initiation.Shipping,
			Total:            initiation.Total,
		})
	}
}

func (p checkoutRequest) toRequest() (*checkoutsvc.Request, error) {
	kind, err := enums.ParseOrderKind(p.Kind)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order kind").WithDetails(map[string]any{"kind": p.Kind})
	}

	req := checkoutsvc.Request{
		Kind: kind,
		Customer: checkoutsvc.Customer{
			Name:  p.CustomerName,
			Email: p.CustomerEmail,
		},
	}

	if p.Provider != "" {
		provider, err := enums.ParsePaymentProvider(p.Provider)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider").WithDetails(map[string]any{"provider": p.Provider})
		}
		req.Provider = provider
	}

	switch kind {
	case enums.OrderKindTicket:
		if p.Ticket == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket selection required")
		}
		ticketType, err := enums.ParseTicketType(p.Ticket.TicketType)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown ticket type").WithDetails(map[string]any{"ticket_type": p.Ticket.TicketType})
		}
		req.Ticket = &checkoutsvc.TicketSelection{
			EventSlug:  p.Ticket.EventSlug,
			TicketType: ticketType,
			Quantity:   p.Ticket.Quantity,
		}
	case enums.OrderKindMerch:
		if p.Merch == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "merch selection required")
		}
		items := make([]checkoutsvc.MerchItem, 0, len(p.Merch.Items))
		for _, item := range p.Merch.Items {
			items = append(items, checkoutsvc.MerchItem{SKU: item.SKU, Quantity: item.Quantity})
		}
		req.Merch = &checkoutsvc.MerchSelection{
			Items:           items,
			ShippingAddress: p.Merch.ShippingAddress.toAddress(),
		}
	case enums.OrderKindBarCredit:
		if p.Bar == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "bar credit selection required")
		}
		req.Bar = &checkoutsvc.BarSelection{Credits: p.Bar.Credits}
	}

	return &req, nil
}

func (p *checkoutAddressPayload) toAddress() *types.Address {
	if p == nil {
		return nil
	}
	return &types.Address{
		Line1:      p.Line1,
		Line2:      p.Line2,
		City:       p.City,
		Province:   p.Province,
		PostalCode: p.PostalCode,
		Country:    p.Country,
		Phone:      p.Phone,
	}
}

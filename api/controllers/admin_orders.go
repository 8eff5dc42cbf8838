package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/copperspur/rodeo-backend/api/responses"
	"github.com/copperspur/rodeo-backend/api/validators"
	"github.com/copperspur/rodeo-backend/internal/orders"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
	"github.com/copperspur/rodeo-backend/pkg/pagination"
	"github.com/copperspur/rodeo-backend/pkg/types"
)

type ticketDetailPayload struct {
	EventSlug   string           `json:"event_slug"`
	TicketType  enums.TicketType `json:"ticket_type"`
	Quantity    int              `json:"quantity"`
	Scanned     bool             `json:"scanned"`
	ScannedAt   *time.Time       `json:"scanned_at,omitempty"`
	RFIDTags    []string         `json:"rfid_tags,omitempty"`
	ConfirmedAt *time.Time       `json:"confirmed_at,omitempty"`
}

type merchItemPayload struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type merchDetailPayload struct {
	Items           []merchItemPayload `json:"items"`
	ShippingAddress *types.Address     `json:"shipping_address,omitempty"`
	Shipping        decimal.Decimal    `json:"shipping"`
	ShipmentID      *string            `json:"shipment_id,omitempty"`
	TrackingNumber  *string            `json:"tracking_number,omitempty"`
	ShippedAt       *time.Time         `json:"shipped_at,omitempty"`
}

type barDetailPayload struct {
	Credits          int             `json:"credits"`
	RemainingCredits int             `json:"remaining_credits"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

type orderDetailResponse struct {
	Kind             enums.OrderKind       `json:"kind"`
	ConfirmationCode string                `json:"confirmation_code"`
	Status           string                `json:"status"`
	CustomerName     string                `json:"customer_name"`
	CustomerEmail    string                `json:"customer_email"`
	Provider         enums.PaymentProvider `json:"provider"`
	ProviderTxnID    *string               `json:"provider_txn_id,omitempty"`
	Total            decimal.Decimal       `json:"total"`
	RefundAmount     *decimal.Decimal      `json:"refund_amount,omitempty"`
	EmailSentAt      *time.Time            `json:"email_sent_at,omitempty"`
	Ticket           *ticketDetailPayload  `json:"ticket,omitempty"`
	Merch            *merchDetailPayload   `json:"merch,omitempty"`
	Bar              *barDetailPayload     `json:"bar,omitempty"`
}

func orderDetail(record *orders.Record) orderDetailResponse {
	resp := orderDetailResponse{
		Kind:             record.Kind,
		ConfirmationCode: record.ConfirmationCode(),
		Status:           record.Status(),
		CustomerName:     record.CustomerName(),
		CustomerEmail:    record.CustomerEmail(),
		Provider:         record.Provider(),
		ProviderTxnID:    record.ProviderTxnID(),
		Total:            record.Total(),
	}

	switch record.Kind {
	case enums.OrderKindTicket:
		ticket := record.Ticket
		resp.RefundAmount = ticket.RefundAmount
		resp.EmailSentAt = ticket.EmailSentAt
		resp.Ticket = &ticketDetailPayload{
			EventSlug:   ticket.EventSlug,
			TicketType:  ticket.TicketType,
			Quantity:    ticket.Quantity,
			Scanned:     ticket.Scanned,
			ScannedAt:   ticket.ScannedAt,
			RFIDTags:    ticket.RFIDTags,
			ConfirmedAt: ticket.ConfirmedAt,
		}
	case enums.OrderKindMerch:
		merch := record.Merch
		resp.RefundAmount = merch.RefundAmount
		resp.EmailSentAt = merch.EmailSentAt
		items := make([]merchItemPayload, 0, len(merch.Items))
		for _, item := range merch.Items {
			items = append(items, merchItemPayload{
				SKU:       item.SKU,
				Name:      item.Name,
				UnitPrice: item.UnitPrice,
				Quantity:  item.Quantity,
				LineTotal: item.LineTotal,
			})
		}
		resp.Merch = &merchDetailPayload{
			Items:           items,
			ShippingAddress: merch.ShippingAddress,
			Shipping:        merch.Shipping,
			ShipmentID:      merch.ShipmentID,
			TrackingNumber:  merch.TrackingNumber,
			ShippedAt:       merch.ShippedAt,
		}
	case enums.OrderKindBarCredit:
		bar := record.BarCredit
		resp.RefundAmount = bar.RefundAmount
		resp.EmailSentAt = bar.EmailSentAt
		resp.Bar = &barDetailPayload{
			Credits:          bar.Credits,
			RemainingCredits: bar.RemainingCredits,
			UnitPrice:        bar.UnitPrice,
		}
	}
	return resp
}

// AdminGetOrder returns the full detail for one confirmation code.
func AdminGetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		record, err := svc.GetOrder(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderDetail(record))
	}
}

// AdminListOrders lists one kind of order with cursor pagination and filters.
func AdminListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		kind, err := enums.ParseOrderKind(r.URL.Query().Get("kind"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown order kind").WithDetails(map[string]any{"kind": r.URL.Query().Get("kind")}))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := parseOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOrders(r.Context(), kind, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminSearchOrders resolves a confirmation code or customer email.
func AdminSearchOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		query := validators.SanitizeString(r.URL.Query().Get("q"), 120)
		summaries, err := svc.Search(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": summaries})
	}
}

// AdminConfirmOrder applies the paid transition manually. Confirming an
// already paid order is a no-op success.
func AdminConfirmOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		record, err := svc.ManualConfirm(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderDetail(record))
	}
}

type refundRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// AdminRefundOrder refunds up to the order total.
func AdminRefundOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var body refundRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(body.Amount))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid refund amount").WithDetails(map[string]any{"amount": body.Amount}))
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		result, err := svc.Refund(r.Context(), code, amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminResendEmail redelivers the confirmation email for a paid order.
func AdminResendEmail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if err := svc.ResendEmail(r.Context(), code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "sent"})
	}
}

type rfidTagsRequest struct {
	Tags []string `json:"tags" validate:"required,min=1"`
}

// AdminAttachRFIDTags replaces the wristband tags on a confirmed ticket.
func AdminAttachRFIDTags(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var body rfidTagsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		record, err := svc.AttachRFIDTags(r.Context(), code, body.Tags)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderDetail(record))
	}
}

func parseOrderFilters(r *http.Request) (orders.OrderFilters, error) {
	filters := orders.OrderFilters{
		Status:    strings.TrimSpace(r.URL.Query().Get("status")),
		Email:     strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email"))),
		EventSlug: strings.TrimSpace(r.URL.Query().Get("event")),
	}

	dateFrom, err := parseDateParam(r.URL.Query().Get("date_from"), "date_from")
	if err != nil {
		return filters, err
	}
	filters.DateFrom = dateFrom

	dateTo, err := parseDateParam(r.URL.Query().Get("date_to"), "date_to")
	if err != nil {
		return filters, err
	}
	filters.DateTo = dateTo

	return filters, nil
}

func parseDateParam(raw, field string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD").WithDetails(map[string]any{"field": field})
	}
	return &parsed, nil
}

package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/copperspur/rodeo-backend/internal/catalog"
	"github.com/copperspur/rodeo-backend/internal/orders"
	"github.com/copperspur/rodeo-backend/internal/payments"
	"github.com/copperspur/rodeo-backend/pkg/config"
	"github.com/copperspur/rodeo-backend/pkg/db"
	"github.com/copperspur/rodeo-backend/pkg/db/models"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
	"github.com/copperspur/rodeo-backend/pkg/types"
)

// Customer identifies the buyer on a new order.
type Customer struct {
	Name  string
	Email string
}

// TicketSelection picks an admission class for one event.
type TicketSelection struct {
	EventSlug  string
	TicketType enums.TicketType
	Quantity   int
}

// MerchItem is one catalog SKU and quantity.
type MerchItem struct {
	SKU      string
	Quantity int
}

// MerchSelection lists the products bought and where to ship them.
// A nil address means pickup at the grounds; no shipping is charged.
type MerchSelection struct {
	Items           []MerchItem
	ShippingAddress *types.Address
}

// BarSelection buys a bundle of drink credits.
type BarSelection struct {
	Credits int
}

// Request carries everything needed to open a checkout. Exactly one of
// Ticket, Merch, or Bar must match Kind.
type Request struct {
	Kind     enums.OrderKind
	Provider enums.PaymentProvider
	Customer Customer
	Ticket   *TicketSelection
	Merch    *MerchSelection
	Bar      *BarSelection
}

// Initiation is what the shopper needs to finish paying.
type Initiation struct {
	Kind             enums.OrderKind
	RecordID         uuid.UUID
	ConfirmationCode string
	Provider         enums.PaymentProvider
	SessionID        string
	RedirectURL      string
	HostedTicket     string
	Subtotal         decimal.Decimal
	Tax              decimal.Decimal
	Shipping         decimal.Decimal
	Total            decimal.Decimal
}

type gatewayRouter interface {
	CreateSession(ctx context.Context, provider enums.PaymentProvider, req payments.SessionRequest) (*payments.CheckoutSession, error)
}

// Service opens hosted checkouts: it prices the selection, writes the
// pending record, and hands the shopper to the payment provider.
type Service interface {
	Initiate(ctx context.Context, req Request) (*Initiation, error)
}

type service struct {
	repo     orders.Repository
	catalog  catalog.Service
	gateways gatewayRouter
	cfg      config.PaymentsConfig
	currency enums.Currency
	logger   *logger.Logger
}

// NewService builds the checkout service.
func NewService(repo orders.Repository, catalogSvc catalog.Service, gateways gatewayRouter, cfg config.PaymentsConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if gateways == nil {
		return nil, fmt.Errorf("payment gateway router required")
	}
	currency := enums.Currency(strings.ToUpper(strings.TrimSpace(cfg.Currency)))
	if !currency.IsValid() {
		return nil, fmt.Errorf("unsupported payments currency %q", cfg.Currency)
	}
	return &service{
		repo:     repo,
		catalog:  catalogSvc,
		gateways: gateways,
		cfg:      cfg,
		currency: currency,
		logger:   logg,
	}, nil
}

type pendingRecord struct {
	id    uuid.UUID
	code  string
	email string
	quote quote
}

func (s *service) Initiate(ctx context.Context, req Request) (*Initiation, error) {
	provider, err := s.resolveProvider(req.Provider)
	if err != nil {
		return nil, err
	}
	if err := validateCustomer(req); err != nil {
		return nil, err
	}

	var created *pendingRecord
	switch req.Kind {
	case enums.OrderKindTicket:
		created, err = s.createTicketOrder(ctx, req, provider)
	case enums.OrderKindMerch:
		created, err = s.createMerchOrder(ctx, req, provider)
	case enums.OrderKindBarCredit:
		created, err = s.createBarCredit(ctx, req, provider)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported order kind")
	}
	if err != nil {
		return nil, err
	}

	sess, err := s.gateways.CreateSession(ctx, provider, payments.SessionRequest{
		Kind:             req.Kind,
		RecordID:         created.id,
		ConfirmationCode: created.code,
		CustomerEmail:    created.email,
		Currency:         s.currency,
		Total:            created.quote.Total,
		LineItems:        created.quote.Lines,
	})
	if err != nil {
		// The pending record stays behind so a retried checkout or manual
		// confirm can still resolve it.
		if s.logger != nil {
			logCtx := s.logger.WithOrderNo(ctx, created.code)
			s.logger.Error(logCtx, "payment gateway rejected checkout session", err)
		}
		return nil, err
	}

	if err := s.persistSession(ctx, req.Kind, created.id, sess.ID); err != nil {
		return nil, err
	}

	return &Initiation{
		Kind:             req.Kind,
		RecordID:         created.id,
		ConfirmationCode: created.code,
		Provider:         provider,
		SessionID:        sess.ID,
		RedirectURL:      sess.RedirectURL,
		HostedTicket:     sess.HostedTicket,
		Subtotal:         created.quote.Subtotal,
		Tax:              created.quote.Tax,
		Shipping:         created.quote.Shipping,
		Total:            created.quote.Total,
	}, nil
}

func (s *service) resolveProvider(requested enums.PaymentProvider) (enums.PaymentProvider, error) {
	if requested == "" {
		requested = enums.PaymentProvider(s.cfg.DefaultProvider)
	}
	if !requested.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment provider")
	}
	return requested, nil
}

func validateCustomer(req Request) error {
	if strings.TrimSpace(req.Customer.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}
	switch req.Kind {
	case enums.OrderKindTicket, enums.OrderKindBarCredit:
		if strings.TrimSpace(req.Customer.Email) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "customer email required")
		}
	}
	return nil
}

func (s *service) createTicketOrder(ctx context.Context, req Request, provider enums.PaymentProvider) (*pendingRecord, error) {
	sel := req.Ticket
	if sel == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket selection required")
	}
	if sel.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	event, err := s.catalog.Event(ctx, sel.EventSlug)
	if err != nil {
		return nil, err
	}
	unit, err := s.catalog.TicketPrice(ctx, sel.EventSlug, sel.TicketType)
	if err != nil {
		return nil, err
	}

	priced, err := priceOrder([]quoteLine{{
		Description: fmt.Sprintf("%s admission (%s)", event.Name, sel.TicketType),
		UnitPrice:   unit,
		Quantity:    sel.Quantity,
	}}, s.cfg.TaxRate, decimal.Zero)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "pricing ticket order")
	}

	var created *models.TicketOrder
	code, err := s.withFreshCode(ctx, enums.OrderKindTicket, func(code string) error {
		created, err = s.repo.CreateTicketOrder(ctx, &models.TicketOrder{
			ConfirmationCode: code,
			TicketType:       sel.TicketType,
			EventSlug:        event.Slug,
			Status:           enums.TicketOrderStatusPending,
			CustomerName:     strings.TrimSpace(req.Customer.Name),
			CustomerEmail:    normalizeEmail(req.Customer.Email),
			Provider:         provider,
			Currency:         s.currency,
			Quantity:         sel.Quantity,
			Subtotal:         priced.Subtotal,
			Tax:              priced.Tax,
			Total:            priced.Total,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &pendingRecord{id: created.ID, code: code, email: created.CustomerEmail, quote: priced}, nil
}

func (s *service) createMerchOrder(ctx context.Context, req Request, provider enums.PaymentProvider) (*pendingRecord, error) {
	sel := req.Merch
	if sel == nil || len(sel.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one merch item required")
	}

	lines := make([]quoteLine, 0, len(sel.Items))
	items := make([]models.MerchOrderItem, 0, len(sel.Items))
	for _, item := range sel.Items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"sku": item.SKU})
		}
		product, err := s.catalog.Product(ctx, item.SKU)
		if err != nil {
			return nil, err
		}
		if product.Price.LessThanOrEqual(decimal.Zero) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price not set").
				WithDetails(map[string]any{"sku": item.SKU})
		}
		unit := product.Price.Round(2)
		lines = append(lines, quoteLine{Description: product.Name, UnitPrice: unit, Quantity: item.Quantity})
		items = append(items, models.MerchOrderItem{
			SKU:       product.SKU,
			Name:      product.Name,
			UnitPrice: unit,
			Quantity:  item.Quantity,
			LineTotal: unit.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2),
		})
	}

	shipping := decimal.Zero
	var address *types.Address
	if sel.ShippingAddress != nil {
		normalized := sel.ShippingAddress.Normalized()
		if err := normalized.Validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
		}
		address = &normalized
		shipping = s.cfg.ShippingFlat
	}

	priced, err := priceOrder(lines, decimal.Zero, shipping)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "pricing merch order")
	}

	var created *models.MerchOrder
	code, err := s.withFreshCode(ctx, enums.OrderKindMerch, func(code string) error {
		created, err = s.repo.CreateMerchOrder(ctx, &models.MerchOrder{
			ConfirmationCode: code,
			Status:           enums.MerchOrderStatusPending,
			CustomerName:     strings.TrimSpace(req.Customer.Name),
			CustomerEmail:    normalizeEmail(req.Customer.Email),
			Provider:         provider,
			Currency:         s.currency,
			Subtotal:         priced.Subtotal,
			Shipping:         priced.Shipping,
			Tax:              priced.Tax,
			Total:            priced.Total,
			ShippingAddress:  address,
			Items:            items,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &pendingRecord{id: created.ID, code: code, email: created.CustomerEmail, quote: priced}, nil
}

func (s *service) createBarCredit(ctx context.Context, req Request, provider enums.PaymentProvider) (*pendingRecord, error) {
	sel := req.Bar
	if sel == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bar credit selection required")
	}
	if sel.Credits <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit count must be positive")
	}

	unit := s.cfg.CreditPrice
	priced, err := priceOrder([]quoteLine{{
		Description: "Bar credit",
		UnitPrice:   unit,
		Quantity:    sel.Credits,
	}}, s.cfg.TaxRate, decimal.Zero)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "pricing bar credits")
	}

	var created *models.BarCredit
	code, err := s.withFreshCode(ctx, enums.OrderKindBarCredit, func(code string) error {
		created, err = s.repo.CreateBarCredit(ctx, &models.BarCredit{
			ConfirmationCode: code,
			Status:           enums.BarCreditStatusPending,
			CustomerName:     strings.TrimSpace(req.Customer.Name),
			CustomerEmail:    normalizeEmail(req.Customer.Email),
			Provider:         provider,
			Currency:         s.currency,
			Credits:          sel.Credits,
			RemainingCredits: 0,
			UnitPrice:        unit.Round(2),
			Subtotal:         priced.Subtotal,
			Tax:              priced.Tax,
			Total:            priced.Total,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &pendingRecord{id: created.ID, code: code, email: created.CustomerEmail, quote: priced}, nil
}

// withFreshCode retries create exactly once when the confirmation code
// collides with an existing row.
func (s *service) withFreshCode(ctx context.Context, kind enums.OrderKind, create func(code string) error) (string, error) {
	for attempt := 0; ; attempt++ {
		code, err := newConfirmationCode(kind, time.Now().UTC())
		if err != nil {
			return "", err
		}
		err = create(code)
		if err == nil {
			return code, nil
		}
		if attempt < codeCreateRetries && db.IsUniqueViolation(err, "confirmation_code") {
			continue
		}
		return "", err
	}
}

func (s *service) persistSession(ctx context.Context, kind enums.OrderKind, id uuid.UUID, sessionID string) error {
	updates := map[string]any{"provider_session": sessionID}
	switch kind {
	case enums.OrderKindTicket:
		return s.repo.UpdateTicketOrder(ctx, id, updates)
	case enums.OrderKindMerch:
		return s.repo.UpdateMerchOrder(ctx, id, updates)
	case enums.OrderKindBarCredit:
		return s.repo.UpdateBarCredit(ctx, id, updates)
	default:
		return fmt.Errorf("unsupported order kind %q", kind)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package payments

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	stripelib "github.com/stripe/stripe-go/v82"

	"github.com/copperspur/rodeo-backend/pkg/config"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
	pkgstripe "github.com/copperspur/rodeo-backend/pkg/stripe"
)

var centsFactor = decimal.NewFromInt(100)

type stripeCheckoutAPI interface {
	CreateCheckoutSession(ctx context.Context, params pkgstripe.CheckoutParams) (*stripelib.CheckoutSession, error)
}

type stripeGateway struct {
	api    stripeCheckoutAPI
	cfg    config.PaymentsConfig
	logger *logger.Logger
}

// NewStripeGateway adapts the Stripe hosted-checkout client to the
// provider-neutral Gateway surface.
func NewStripeGateway(api stripeCheckoutAPI, cfg config.PaymentsConfig, logg *logger.Logger) Gateway {
	return &stripeGateway{api: api, cfg: cfg, logger: logg}
}

func (g *stripeGateway) Provider() enums.PaymentProvider {
	return enums.PaymentProviderStripe
}

func (g *stripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*CheckoutSession, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	items := make([]pkgstripe.LineItem, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		items = append(items, pkgstripe.LineItem{
			Name:       item.Description,
			UnitAmount: item.UnitPrice.Mul(centsFactor).IntPart(),
			Quantity:   int64(item.Quantity),
		})
	}

	sess, err := g.api.CreateCheckoutSession(ctx, pkgstripe.CheckoutParams{
		OrderNo:       req.ConfirmationCode,
		CustomerEmail: req.CustomerEmail,
		Currency:      strings.ToLower(string(req.Currency)),
		LineItems:     items,
		SuccessURL:    g.cfg.SuccessURL,
		CancelURL:     g.cfg.CancelURL,
		Metadata:      sessionMetadata(req),
	})
	if err != nil {
		if g.logger != nil {
			ctx = g.logger.WithOrderNo(ctx, req.ConfirmationCode)
			g.logger.Error(ctx, "stripe checkout session failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening stripe checkout")
	}

	return &CheckoutSession{
		ID:          sess.ID,
		RedirectURL: sess.URL,
		Provider:    enums.PaymentProviderStripe,
	}, nil
}

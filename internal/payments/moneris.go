package payments

import (
	"context"

	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
	"github.com/copperspur/rodeo-backend/pkg/moneris"
)

type monerisCheckoutAPI interface {
	Preload(ctx context.Context, req moneris.PreloadRequest) (*moneris.PreloadResponse, error)
}

type monerisGateway struct {
	api    monerisCheckoutAPI
	logger *logger.Logger
}

// NewMonerisGateway adapts Moneris Checkout preload to the Gateway surface.
// The confirmation code doubles as the Moneris order_no, which is how the
// receipt callback finds its way back to the record.
func NewMonerisGateway(api monerisCheckoutAPI, logg *logger.Logger) Gateway {
	return &monerisGateway{api: api, logger: logg}
}

func (g *monerisGateway) Provider() enums.PaymentProvider {
	return enums.PaymentProviderMoneris
}

func (g *monerisGateway) CreateSession(ctx context.Context, req SessionRequest) (*CheckoutSession, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Currency != enums.CurrencyCAD {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "moneris checkout only supports CAD")
	}

	resp, err := g.api.Preload(ctx, moneris.PreloadRequest{
		OrderNo:  req.ConfirmationCode,
		TxnTotal: req.Total.StringFixed(2),
		Email:    req.CustomerEmail,
		Language: "en",
	})
	if err != nil {
		if g.logger != nil {
			ctx = g.logger.WithOrderNo(ctx, req.ConfirmationCode)
			g.logger.Error(ctx, "moneris preload failed", err)
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening moneris checkout")
	}

	return &CheckoutSession{
		ID:           resp.Ticket,
		RedirectURL:  resp.RedirectURL,
		HostedTicket: resp.Ticket,
		Provider:     enums.PaymentProviderMoneris,
	}, nil
}

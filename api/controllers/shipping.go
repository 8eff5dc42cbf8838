package controllers

import (
	"net/http"

	"github.com/copperspur/rodeo-backend/api/responses"
	"github.com/copperspur/rodeo-backend/api/validators"
	"github.com/copperspur/rodeo-backend/internal/shipping"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
)

type shippingRatesRequest struct {
	Destination checkoutAddressPayload `json:"destination" validate:"required"`
	Items       int                    `json:"items" validate:"required,gt=0"`
}

// ShippingRates quotes carrier rates for a merch destination, cheapest first.
func ShippingRates(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		var body shippingRatesRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rates, err := svc.GetRates(r.Context(), *body.Destination.toAddress(), body.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"rates": rates})
	}
}

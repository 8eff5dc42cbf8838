package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/copperspur/rodeo-backend/api/responses"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
)

// maxWebhookBody caps provider payloads well above anything Stripe or
// Moneris actually sends.
const maxWebhookBody = 1 << 20

type stripeProcessor interface {
	Process(ctx context.Context, payload []byte, sigHeader string) error
}

// StripeWebhook receives checkout.session.completed deliveries. Signature
// verification happens inside the service before the payload is parsed;
// processing failures surface as errors so Stripe redelivers.
func StripeWebhook(svc stripeProcessor, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if err := svc.Process(ctx, payload, r.Header.Get("Stripe-Signature")); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}

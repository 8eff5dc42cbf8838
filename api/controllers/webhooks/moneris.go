package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/copperspur/rodeo-backend/api/responses"
	moneriswebhook "github.com/copperspur/rodeo-backend/internal/webhooks/moneris"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
)

type monerisProcessor interface {
	Process(ctx context.Context, callback moneriswebhook.Callback, payload []byte) error
}

// MonerisWebhook receives the unsigned hosted-checkout callback. The raw
// body is kept for the audit ledger; the service trusts only the receipt it
// fetches back from Moneris.
func MonerisWebhook(svc monerisProcessor, logg *logger.Logger) http.HandlerFunc {
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

		var callback moneriswebhook.Callback
		if err := json.Unmarshal(payload, &callback); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode callback"))
			return
		}

		if err := svc.Process(ctx, callback, payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}

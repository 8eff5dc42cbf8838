package controllers

import (
	"net/http"
	"strings"

	"github.com/copperspur/rodeo-backend/api/responses"
	"github.com/copperspur/rodeo-backend/api/validators"
	"github.com/copperspur/rodeo-backend/internal/redemption"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
)

// qrDecrypter recovers the confirmation code from an encrypted QR payload.
type qrDecrypter interface {
	Decrypt(token string) (string, error)
}

// scanRequest accepts either the raw confirmation code typed by staff or the
// encrypted payload read off a ticket QR.
type scanRequest struct {
	Code      string `json:"code,omitempty"`
	QRPayload string `json:"qr_payload,omitempty"`
}

// ScanTicket admits a ticket at the gate.
func ScanTicket(svc redemption.Service, qr qrDecrypter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "redemption service unavailable"))
			return
		}

		code, err := resolveScanCode(r, qr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ScanTicket(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// RedeemBarCredit pours one credit off a bar wristband.
func RedeemBarCredit(svc redemption.Service, qr qrDecrypter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "redemption service unavailable"))
			return
		}

		code, err := resolveScanCode(r, qr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RedeemBarCredit(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func resolveScanCode(r *http.Request, qr qrDecrypter) (string, error) {
	var body scanRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return "", err
	}

	if code := strings.TrimSpace(body.Code); code != "" {
		return code, nil
	}

	payload := strings.TrimSpace(body.QRPayload)
	if payload == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "code or qr_payload required")
	}
	if qr == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "qr decrypter unavailable")
	}

	code, err := qr.Decrypt(payload)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable qr payload")
	}
	return strings.TrimSpace(code), nil
}

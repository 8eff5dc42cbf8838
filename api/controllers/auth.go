package controllers

import (
	"net/http"

	"github.com/copperspur/rodeo-backend/api/responses"
	"github.com/copperspur/rodeo-backend/api/validators"
	"github.com/copperspur/rodeo-backend/internal/auth"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/logger"
)

type staffLoginRequest struct {
	DeviceLabel string `json:"device_label" validate:"required"`
	Password    string `json:"password" validate:"required"`
}

// StaffLogin exchanges the shared staff password for a device-scoped JWT.
func StaffLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body staffLoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.StaffLogin(r.Context(), auth.StaffLoginRequest{
			DeviceLabel: body.DeviceLabel,
			Password:    body.Password,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

package controllers

import (
	"net/http"

	"github.com/copperspur/rodeo-backend/api/middleware"
	"github.com/copperspur/rodeo-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// StaffPing lets a scanner device verify its token before the gates open.
func StaffPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "staff", "status": "ok"}
		if label := middleware.DeviceLabelFromContext(r.Context()); label != "" {
			payload["device_label"] = label
		}
		if role := middleware.RoleFromContext(r.Context()); role != "" {
			payload["role"] = role
		}
		responses.WriteSuccess(w, payload)
	}
}

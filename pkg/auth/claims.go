package auth

import (
	"github.com/copperspur/rodeo-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a staff JWT.
type AccessTokenPayload struct {
	DeviceLabel string
	Role        enums.StaffRole
	JTI         string
}

// AccessTokenClaims represents the typed JWT issued to scanner devices.
type AccessTokenClaims struct {
	DeviceLabel string          `json:"device_label,omitempty"`
	Role        enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}

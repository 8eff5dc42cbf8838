package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgAuth "github.com/copperspur/rodeo-backend/pkg/auth"
	"github.com/copperspur/rodeo-backend/pkg/config"
	"github.com/copperspur/rodeo-backend/pkg/enums"
	pkgerrors "github.com/copperspur/rodeo-backend/pkg/errors"
	"github.com/copperspur/rodeo-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// StaffLoginRequest exchanges the shared staff password for a device token.
type StaffLoginRequest struct {
	DeviceLabel string
	Password    string
}

// StaffLoginResponse carries the minted bearer token and its expiry.
type StaffLoginResponse struct {
	AccessToken string          `json:"access_token"`
	Role        enums.StaffRole `json:"role"`
	DeviceLabel string          `json:"device_label"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// Service authenticates staff devices against the configured shared passwords.
type Service interface {
	StaffLogin(ctx context.Context, req StaffLoginRequest) (*StaffLoginResponse, error)
}

type service struct {
	staff  config.StaffConfig
	jwtCfg config.JWTConfig
	now    func() time.Time
}

// NewService constructs the staff login service.
func NewService(staff config.StaffConfig, jwtCfg config.JWTConfig) (Service, error) {
	if strings.TrimSpace(staff.PasswordHash) == "" {
		return nil, fmt.Errorf("staff password hash is required")
	}
	if strings.TrimSpace(jwtCfg.Secret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &service{staff: staff, jwtCfg: jwtCfg, now: time.Now}, nil
}

// StaffLogin verifies the shared password and mints a short-lived JWT. The
// admin hash is checked first so an admin password never degrades to a
// scanner token.
func (s *service) StaffLogin(ctx context.Context, req StaffLoginRequest) (*StaffLoginResponse, error) {
	label := strings.TrimSpace(req.DeviceLabel)
	if label == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "device label required")
	}
	if req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	role, err := s.resolveRole(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		DeviceLabel: label,
		Role:        role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &StaffLoginResponse{
		AccessToken: token,
		Role:        role,
		DeviceLabel: label,
		ExpiresAt:   now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute),
	}, nil
}

func (s *service) resolveRole(password string) (enums.StaffRole, error) {
	if hash := strings.TrimSpace(s.staff.AdminPasswordHash); hash != "" {
		ok, err := security.VerifyPassword(password, hash)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify admin password")
		}
		if ok {
			return enums.StaffRoleAdmin, nil
		}
	}

	ok, err := security.VerifyPassword(password, s.staff.PasswordHash)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify staff password")
	}
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return enums.StaffRoleScanner, nil
}

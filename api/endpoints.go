package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/tenants"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/jrsteele09/go-auth-session/users"
)

// Backend paths, relative to the client's base URL.
const (
	PathOTPRequest      = "/auth/otp/request"
	PathOTPVerify       = "/auth/otp/verify"
	PathMagicLinkVerify = "/auth/magic-link/verify"
	PathSwitchTenant    = "/auth/switch-tenant"
	PathRefresh         = "/auth/refresh"
	PathProfile         = "/users/me"
	PathTenants         = "/tenants"
	PathLicenses        = "/licenses"
)

var (
	_ session.TenantSwitcher = (*Client)(nil)
	_ session.TokenRefresher = (*Client)(nil)
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type OTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type OTPVerification struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,min=4,max=12"`
}

type MagicLinkVerification struct {
	Token string `json:"token" validate:"required"`
}

type switchTenantRequest struct {
	TenantID string `json:"tenantId" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LoginResult is what a successful OTP or magic-link verification returns.
type LoginResult struct {
	User    users.User       `json:"user"`
	Tenant  tenants.Tenant   `json:"tenant"`
	Tokens  token.Pair       `json:"tokens"`
	Tenants []tenants.Tenant `json:"tenants,omitempty"`
}

// RequestOTP asks the backend to send a one-time code to email.
func (c *Client) RequestOTP(ctx context.Context, req OTPRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	return c.call(ctx, http.MethodPost, PathOTPRequest, "", req, nil)
}

// VerifyOTP exchanges an emailed code for a login.
func (c *Client) VerifyOTP(ctx context.Context, req OTPVerification) (LoginResult, error) {
	var result LoginResult
	if err := validateRequest(req); err != nil {
		return result, err
	}
	if err := c.call(ctx, http.MethodPost, PathOTPVerify, "", req, &result); err != nil {
		return LoginResult{}, err
	}
	return result, checkLogin(result)
}

// VerifyMagicLink exchanges a magic-link token for a login.
func (c *Client) VerifyMagicLink(ctx context.Context, req MagicLinkVerification) (LoginResult, error) {
	var result LoginResult
	if err := validateRequest(req); err != nil {
		return result, err
	}
	if err := c.call(ctx, http.MethodPost, PathMagicLinkVerify, "", req, &result); err != nil {
		return LoginResult{}, err
	}
	return result, checkLogin(result)
}

// SwitchTenant returns a token pair scoped to tenantID.
func (c *Client) SwitchTenant(ctx context.Context, accessToken, tenantID string) (token.Pair, error) {
	req := switchTenantRequest{TenantID: tenantID}
	if err := validateRequest(req); err != nil {
		return token.Pair{}, err
	}
	var pair token.Pair
	if err := c.call(ctx, http.MethodPost, PathSwitchTenant, accessToken, req, &pair); err != nil {
		return token.Pair{}, err
	}
	return pair, nil
}

func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (token.Pair, error) {
	req := refreshRequest{RefreshToken: refreshToken}
	if err := validateRequest(req); err != nil {
		return token.Pair{}, err
	}
	var pair token.Pair
	if err := c.call(ctx, http.MethodPost, PathRefresh, "", req, &pair); err != nil {
		return token.Pair{}, err
	}
	return pair, nil
}

func (c *Client) Profile(ctx context.Context, accessToken string) (users.User, error) {
	var user users.User
	err := c.call(ctx, http.MethodGet, PathProfile, accessToken, nil, &user)
	return user, err
}

// UpdateProfile sends a partial update and returns the stored user.
func (c *Client) UpdateProfile(ctx context.Context, accessToken string, upd users.Update) (users.User, error) {
	var user users.User
	err := c.call(ctx, http.MethodPatch, PathProfile, accessToken, upd, &user)
	return user, err
}

func (c *Client) Tenants(ctx context.Context, accessToken string) ([]tenants.Tenant, error) {
	var list []tenants.Tenant
	err := c.call(ctx, http.MethodGet, PathTenants, accessToken, nil, &list)
	return list, err
}

func (c *Client) Licenses(ctx context.Context, accessToken string) ([]tenants.License, error) {
	var list []tenants.License
	err := c.call(ctx, http.MethodGet, PathLicenses, accessToken, nil, &list)
	return list, err
}

func checkLogin(result LoginResult) error {
	if result.Tokens.IsZero() || result.User.ID == "" {
		return fmt.Errorf("%w: login response without user or tokens", errors.ErrBackendRejected)
	}
	return nil
}

func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrapf(errors.ErrInvalidRequest, "%v", err)
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", errors.ErrInvalidRequest, strings.Join(fields, ", "))
}

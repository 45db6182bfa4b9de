package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/shared"
	"golang.org/x/oauth2"
)

// LoginRequest holds credentials for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest holds the new account for POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// AuthResult is the outcome of a successful login or registration.
type AuthResult struct {
	User  *models.User
	Token *oauth2.Token
}

// AuthAPI wraps the authentication endpoints.
type AuthAPI struct {
	gw *Gateway
}

func NewAuthAPI(gw *Gateway) *AuthAPI {
	return &AuthAPI{gw: gw}
}

// Login authenticates and stores the issued credential pair.
func (a *AuthAPI) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return a.authenticate(ctx, loginPath, req)
}

// Register creates an account and stores the issued credential pair.
func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return a.authenticate(ctx, registerPath, req)
}

func (a *AuthAPI) authenticate(ctx context.Context, path string, body any) (*AuthResult, error) {
	var resp authResponse
	if err := a.gw.Send(ctx, Request{Method: http.MethodPost, Path: path, Body: body, SkipAuth: true}, &resp); err != nil {
		return nil, err
	}

	token := resp.token()
	if token == nil || token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: response did not include both tokens", shared.ErrAuthFailed)
	}
	if err := a.gw.Session().Save(token); err != nil {
		return nil, fmt.Errorf("failed to store credentials: %w", err)
	}

	result := &AuthResult{Token: token}
	if resp.User != nil {
		result.User = resp.User.Model()
	}
	return result, nil
}

// Logout purges the stored credentials. The server keeps no session to revoke.
func (a *AuthAPI) Logout() error {
	return a.gw.Session().Logout()
}

// Token returns the stored credential pair or [shared.ErrNotAuthenticated].
func (a *AuthAPI) Token() (*oauth2.Token, error) {
	token, err := a.gw.Session().Token()
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return token, nil
}

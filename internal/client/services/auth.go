package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
)

var ErrIncompleteLogin = errors.New("login response lacks tokens")

// Area is where a principal lands after authentication.
type Area int

const (
	AreaLogin Area = iota
	AreaDashboard
	AreaAdmin
)

func (a Area) String() string {
	switch a {
	case AreaDashboard:
		return "dashboard"
	case AreaAdmin:
		return "admin"
	default:
		return "login"
	}
}

// CredentialStore is the part of credentials.Store used by AuthService.
type CredentialStore interface {
	Set(ctx context.Context, accessToken, refreshToken string, user models.User) error
	Clear(ctx context.Context) error
	User() (*models.User, bool)
	Authenticated() bool
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate and store the credential record.
//   - Register: create an unverified account; an OTP is mailed to the user.
//   - VerifyOTP: confirm the account with the mailed code.
//   - Logout: destroy the local credential record.
//   - CurrentUser, Landing: read the stored user snapshot.
//   - Refresh, RefreshIfExpiring: rotate the access token on demand.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, req models.RegisterRequest) (string, error)
	VerifyOTP(ctx context.Context, email, code string) (string, error)
	Logout(ctx context.Context) error
	CurrentUser() (*models.User, bool)
	Landing() Area
	Refresh(ctx context.Context) error
	RefreshIfExpiring(ctx context.Context, now time.Time, window time.Duration) (bool, error)
}

type authService struct {
	api   APIClient
	store CredentialStore
}

func NewAuthService(api APIClient, store CredentialStore) AuthService {
	return &authService{api: api, store: store}
}

func (a *authService) Login(ctx context.Context, email, password string) (*models.User, error) {
	req := models.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var resp models.LoginResponse
	if err := a.api.Post(ctx, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, ErrIncompleteLogin
	}

	if err := a.store.Set(ctx, resp.AccessToken, resp.RefreshToken, resp.User); err != nil {
		return nil, fmt.Errorf("store credentials: %w", err)
	}

	u := resp.User
	return &u, nil
}

func (a *authService) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return "", err
	}

	var resp models.MessageResponse
	if err := a.api.Post(ctx, "/auth/register", req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (a *authService) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	req := models.VerifyOTPRequest{Email: strings.TrimSpace(email), OTPCode: strings.TrimSpace(code)}
	if err := req.Validate(); err != nil {
		return "", err
	}

	var resp models.MessageResponse
	if err := a.api.Post(ctx, "/auth/verify-otp", req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Logout is local only; the API has no revocation endpoint.
func (a *authService) Logout(ctx context.Context) error {
	return a.store.Clear(ctx)
}

func (a *authService) CurrentUser() (*models.User, bool) {
	if !a.store.Authenticated() {
		return nil, false
	}
	return a.store.User()
}

func (a *authService) Landing() Area {
	u, ok := a.CurrentUser()
	switch {
	case !ok:
		return AreaLogin
	case u.IsSuperAdmin():
		return AreaAdmin
	default:
		return AreaDashboard
	}
}

func (a *authService) Refresh(ctx context.Context) error {
	_, err := a.api.Refresh(ctx)
	return err
}

func (a *authService) RefreshIfExpiring(ctx context.Context, now time.Time, window time.Duration) (bool, error) {
	return a.api.RefreshIfExpiring(ctx, now, window)
}

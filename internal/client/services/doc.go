// Package services contains the application services of the authkeeper
// client: authentication (login, registration, OTP verification, logout)
// and super-admin user management. Both talk to the API through an
// APIClient, normally a *session.Client, so every authenticated call gets
// the refresh-and-retry behavior for free.
//
// Form input is validated before anything is sent; such failures wrap
// common.ErrValidation.
package services

import (
	"context"
	"time"
)

// APIClient is the JSON API surface the services depend on.
type APIClient interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, in, out any) error
	Put(ctx context.Context, path string, in, out any) error
	Delete(ctx context.Context, path string, out any) error

	Refresh(ctx context.Context) (string, error)
	RefreshIfExpiring(ctx context.Context, now time.Time, window time.Duration) (bool, error)
}

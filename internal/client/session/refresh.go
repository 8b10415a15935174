package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/authkeeper/internal/client/tokens"
)

const (
	RefreshPath = "/auth/refresh"

	refreshKey = "refresh"
)

var (
	errNoRefreshToken = errors.New("no refresh token stored")
	errNoAccessToken  = errors.New("refresh response carries no access token")
)

// Refresh unconditionally exchanges the stored refresh token for a new
// access token, joining a refresh that is already in flight.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	access, ok := c.store.AccessToken()
	if !ok {
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, credentials.ErrNoSession)
	}
	return c.refreshAfter(ctx, access)
}

// RefreshIfExpiring refreshes when the stored access token expires within
// window of now (or cannot be decoded). It reports whether a refresh ran.
func (c *Client) RefreshIfExpiring(ctx context.Context, now time.Time, window time.Duration) (bool, error) {
	access, ok := c.store.AccessToken()
	if !ok || !tokens.ExpiresWithin(access, now, window) {
		return false, nil
	}
	if _, err := c.refreshAfter(ctx, access); err != nil {
		return false, err
	}
	return true, nil
}

// refreshAfter returns an access token newer than stale, running at most one
// refresh at a time for the whole Client.
func (c *Client) refreshAfter(ctx context.Context, stale string) (string, error) {
	ch := c.refreshes.DoChan(refreshKey, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx), stale)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	current, ok := c.store.AccessToken()
	if !ok {
		// Already ended by an earlier refresh or a logout.
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, credentials.ErrNoSession)
	}
	if current != stale {
		return current, nil
	}

	refreshToken, ok := c.store.RefreshToken()
	if !ok {
		return "", c.endSession(ctx, errNoRefreshToken)
	}

	c.log.Info(ctx, "refreshing access token")

	res, err := c.send(ctx, http.MethodPost, RefreshPath, nil, nil, refreshToken)
	if err != nil {
		return "", c.endSession(ctx, err)
	}
	if err := res.Err(); err != nil {
		return "", c.endSession(ctx, err)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := res.Decode(&body); err != nil {
		return "", c.endSession(ctx, err)
	}
	if body.AccessToken == "" {
		return "", c.endSession(ctx, errNoAccessToken)
	}

	if err := c.store.SetAccessToken(ctx, body.AccessToken); err != nil {
		if errors.Is(err, credentials.ErrNoSession) {
			return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return "", c.endSession(ctx, err)
	}

	c.log.Info(ctx, "access token refreshed", "request_id", res.RequestID)
	return body.AccessToken, nil
}

func (c *Client) endSession(ctx context.Context, cause error) error {
	if err := c.store.Clear(ctx); err != nil {
		c.log.Error(ctx, "clear credentials", "error", err)
	}
	c.log.Warn(ctx, "session ended", "cause", cause)

	if c.onSessionEnd != nil {
		c.onSessionEnd(ctx, cause)
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, cause)
}

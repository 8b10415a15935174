// Package tokens answers expiry questions about JWT bearer tokens without
// touching the network or the credential store.
//
// Signatures are not verified: the client never holds the signing key and
// only needs the exp claim to decide whether a refresh is due. Every decode
// failure is reported as "expired" by the predicates so that a damaged token
// leads to re-authentication instead of being trusted.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultRefreshWindow is how early proactive callers should refresh.
const DefaultRefreshWindow = 5 * time.Minute

var (
	ErrMalformedToken = fmt.Errorf("%w: malformed", common.ErrInvalidToken)
	ErrNoExpiry       = fmt.Errorf("%w: missing exp claim", common.ErrInvalidToken)
)

var parser = jwt.NewParser()

// DecodeExpiry returns the instant carried in the token's exp claim.
func DecodeExpiry(token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, ErrMalformedToken
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, errors.Join(ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}

	return claims.ExpiresAt.Time, nil
}

// IsExpired reports exp <= now. Undecodable tokens count as expired.
func IsExpired(token string, now time.Time) bool {
	return ExpiresWithin(token, now, 0)
}

// ExpiresWithin reports exp <= now+window. Undecodable tokens count as expired.
func ExpiresWithin(token string, now time.Time, window time.Duration) bool {
	exp, err := DecodeExpiry(token)
	if err != nil {
		return true
	}
	return !exp.After(now.Add(window))
}

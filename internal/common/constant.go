// Package common contains constants and helpers shared by the authkeeper
// client packages.
package common

const (
	// AuthorizationHeaderName carries the bearer credential on outbound requests.
	AuthorizationHeaderName = "Authorization"
	// BearerPrefix precedes the token in the Authorization header value.
	BearerPrefix = "Bearer "
	// RequestIDHeaderName correlates client log records with server logs.
	RequestIDHeaderName = "X-Request-ID"

	ContentTypeHeaderName = "Content-Type"
	ContentTypeJSON       = "application/json"
)

// BearerValue formats token as an Authorization header value.
func BearerValue(token string) string {
	return BearerPrefix + token
}

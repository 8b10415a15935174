// Package session is the single point through which the client talks to the
// auth API with credentials attached.
//
// # Overview
//
// A Client reads the access token from a credentials store before every
// request and sends it as a bearer credential. When the API answers 401 and
// a refresh token is available, the Client exchanges the refresh token for a
// new access token at /auth/refresh and replays the original request exactly
// once. The replayed outcome is returned as-is; a second 401 is not retried.
//
// # Refresh coordination
//
// Refreshes are single-flight: concurrent requests that hit 401 share one
// call to /auth/refresh and observe the same outcome. A request whose stale
// token was already replaced by a finished refresh reuses the stored token
// without another round trip. Each waiter honors its own context, while the
// shared refresh runs to completion independently of any single caller.
//
// # Error Handling
//
// Transport failures wrap ErrUnavailable. Non-2xx responses become
// *RequestError, which matches ErrUnauthorized (401, 403) and ErrNotFound
// (404) with errors.Is. A failed refresh clears the credential record, runs
// the session-end hook and returns an error matching ErrSessionExpired.
package session

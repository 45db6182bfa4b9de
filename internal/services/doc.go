// Package services implements the authenticated request gateway for the content studio API.
//
// # Gateway
//
// [Gateway] sends JSON requests relative to the configured API root. Every request
// carries an X-Request-ID and a fixed timeout. Requests not flagged SkipAuth carry
// the stored access token as a bearer header.
//
// # Session Renewal
//
// When an authenticated request is rejected with 401 the gateway asks the
// [SessionManager] for a fresh token and retries the request once:
//   - only one refresh is in flight at a time; concurrent callers are queued
//   - queued callers are resumed in arrival order with the same outcome
//   - a caller whose stale token was already replaced skips the refresh
//   - if renewal fails, or the retry is rejected again, credentials are purged,
//     the OnSessionExpired hook fires and a session_expired error is returned
//
// # Error Handling
//
// All failures are returned as [*APIError] with a stable [Category] and a
// user-facing message. The wrapped sentinel comes from the shared package:
//   - [shared.ErrUnauthorized] : 401 on an endpoint that does not renew
//   - [shared.ErrSessionExpired] : session could not be recovered
//   - [shared.ErrForbidden], [shared.ErrNotFound] : 403, 404
//   - [shared.ErrServerError] : 5xx
//   - [shared.ErrTimeout], [shared.ErrNetwork] : transport failures
//   - [shared.ErrAPIRequest] : other 4xx and undecodable responses
//
// # Endpoints
//
// [AuthAPI], [ThreadsAPI] and [ContentAPI] wrap the REST endpoints and validate
// outbound payloads before sending them.
package services

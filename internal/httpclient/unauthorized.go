package httpclient

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// DefaultLoginPath is the login entry point the user is sent to after a forced logout.
const DefaultLoginPath = "/login"

// UnauthorizedHandler reacts to a 401 on a request that carried credentials.
type UnauthorizedHandler func(ctx context.Context, req *http.Request)

// Navigator moves the active view to another entry point.
type Navigator interface {
	Redirect(ctx context.Context, path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, path string)

// Redirect implements Navigator.
func (f NavigatorFunc) Redirect(ctx context.Context, path string) {
	f(ctx, path)
}

// CredentialClearer removes the persisted token and related identifiers.
type CredentialClearer interface {
	Clear(ctx context.Context) error
}

// CredentialClearerFunc adapts a function to CredentialClearer.
type CredentialClearerFunc func(ctx context.Context) error

// Clear implements CredentialClearer.
func (f CredentialClearerFunc) Clear(ctx context.Context) error {
	return f(ctx)
}

// Unauthorized calls h when an authenticated request comes back 401. The
// response itself is passed through untouched so the caller still sees the
// failure.
//
// Only requests that carried an Authorization header trigger h. A 401 on an
// unauthenticated request means the request itself was refused (a login with
// a wrong password, or a call made with Anonymous), not that a stored token
// expired, so there is no session to end.
func Unauthorized(h UnauthorizedHandler) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err == nil && resp.StatusCode == http.StatusUnauthorized && req.Header.Get("Authorization") != "" {
				h(req.Context(), req)
			}
			return resp, err
		})
	}
}

// ForcedLogout clears credentials through creds and redirects to loginPath.
// creds must not wait on a session action, since the handler runs inside
// the request that action is making.
func ForcedLogout(creds CredentialClearer, nav Navigator, loginPath string, logger zerolog.Logger) UnauthorizedHandler {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}

	return func(ctx context.Context, req *http.Request) {
		logger.Info().Str("path", req.URL.Path).Msg("token rejected by server, logging out")

		if err := creds.Clear(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to clear credentials after 401")
		}
		if nav != nil {
			nav.Redirect(ctx, loginPath)
		}
	}
}

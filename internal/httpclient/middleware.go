package httpclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/cicdai/cli/internal/auth"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware decorates a RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// Chain wraps base so that mw[0] is the outermost layer.
func Chain(base http.RoundTripper, mw ...Middleware) http.RoundTripper {
	rt := base
	for i := len(mw) - 1; i >= 0; i-- {
		rt = mw[i](rt)
	}
	return rt
}

type anonymousKey struct{}

// Anonymous marks ctx so Bearer leaves requests made with it unauthenticated.
// Used for the public login and register endpoints.
func Anonymous(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey{}, true)
}

func isAnonymous(ctx context.Context) bool {
	v, _ := ctx.Value(anonymousKey{}).(bool)
	return v
}

// Bearer sets `Authorization: Bearer <token>` when source holds a token.
// It never fails: without a token (or when the store cannot be read) the
// request goes out unmodified.
func Bearer(source auth.TokenSource, logger zerolog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if isAnonymous(req.Context()) {
				return next.RoundTrip(req)
			}

			token, err := source.Token(req.Context())
			if err != nil {
				if !errors.Is(err, auth.ErrMissingCredential) {
					logger.Warn().Err(err).Msg("token unavailable, sending request without credentials")
				}
				return next.RoundTrip(req)
			}

			req = req.Clone(req.Context())
			(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
			return next.RoundTrip(req)
		})
	}
}

// RequestID sets X-Request-ID unless the caller already did.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(RequestIDHeader) == "" {
				req = req.Clone(req.Context())
				req.Header.Set(RequestIDHeader, uuid.NewString())
			}
			return next.RoundTrip(req)
		})
	}
}

// Logging emits one debug line per round trip. Headers are never logged.
func Logging(logger zerolog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)

			var evt *zerolog.Event
			if err != nil {
				evt = logger.Warn().Err(err)
			} else {
				evt = logger.Debug().Int("status", resp.StatusCode)
			}
			evt.Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("request_id", req.Header.Get(RequestIDHeader)).
				Dur("duration", time.Since(start)).
				Msg("api request")

			return resp, err
		})
	}
}

// RateLimit delays requests beyond rps (with the given burst). Waiting honours
// the request context.
func RateLimit(rps float64, burst int) Middleware {
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if err := limiter.Wait(req.Context()); err != nil {
				return nil, err
			}
			return next.RoundTrip(req)
		})
	}
}

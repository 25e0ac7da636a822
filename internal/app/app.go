// Package app wires the CLI's components together from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/cicdai/cli/internal/auth"
	"github.com/cicdai/cli/internal/config"
	"github.com/cicdai/cli/internal/httpclient"
	"github.com/cicdai/cli/internal/kvs"
	"github.com/cicdai/cli/internal/projects"
	"github.com/cicdai/cli/internal/session"
)

// App holds the components shared by every command.
type App struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Store       kvs.Store
	Credentials *auth.Credentials
	HTTP        *httpclient.Client
	Session     *session.Manager
	Projects    *projects.Client
	Registry    *prometheus.Registry
}

type options struct {
	navigator httpclient.Navigator
	transport http.RoundTripper
	store     kvs.Store
}

// Option configures New.
type Option func(*options)

// WithNavigator sets where a forced logout sends the user.
func WithNavigator(nav httpclient.Navigator) Option {
	return func(o *options) { o.navigator = nav }
}

// WithTransport replaces the network transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithStore uses store instead of building one from the configuration.
func WithStore(store kvs.Store) Option {
	return func(o *options) { o.store = store }
}

// New builds the credential store, the HTTP client with its middleware chain,
// the session manager and the projects client.
func New(cfg *config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store := o.store
	if store == nil {
		var err error
		store, err = kvs.New(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to open credential store: %w", err)
		}
	}

	creds := auth.NewCredentials(store)
	registry := prometheus.NewRegistry()

	// The session is built after the client it uses; a 401 ends both it and
	// the stored credentials.
	var sess *session.Manager
	expire := httpclient.CredentialClearerFunc(func(ctx context.Context) error {
		return sess.Expire(ctx)
	})

	clientOpts := []httpclient.Option{
		httpclient.WithLogger(logger.With().Str("component", "http").Logger()),
		httpclient.WithMetrics(httpclient.NewMetrics(registry)),
		httpclient.WithTokenSource(creds),
		httpclient.WithUnauthorizedHandler(httpclient.ForcedLogout(expire, o.navigator, cfg.LoginPath, logger)),
	}
	if o.transport != nil {
		clientOpts = append(clientOpts, httpclient.WithTransport(o.transport))
	}

	client, err := httpclient.New(cfg.HTTPClient(), clientOpts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	sess = session.NewManager(client, creds,
		session.WithLogger(logger.With().Str("component", "session").Logger()),
		session.WithLocale(cfg.Locale),
	)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Credentials: creds,
		HTTP:        client,
		Session:     sess,
		Projects:    projects.NewClient(client, creds),
		Registry:    registry,
	}, nil
}

// Close exports metrics when a textfile is configured and closes the store.
func (a *App) Close() error {
	var errs []error

	if path := a.Config.MetricsTextfile; path != "" {
		if err := prometheus.WriteToTextfile(path, a.Registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}

	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close credential store: %w", err))
	}

	return errors.Join(errs...)
}

// Package session holds the authenticated-session state machine.
//
// A Manager is built once by the application and injected wherever session data
// is needed. Actions are serialized; getters read a consistent snapshot and never
// wait on an in-flight request.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/cicdai/cli/internal/auth"
	"github.com/cicdai/cli/internal/httpclient"
)

// Manager owns the in-memory session and keeps it consistent with the
// persisted token.
type Manager struct {
	client   *httpclient.Client
	creds    *auth.Credentials
	logger   zerolog.Logger
	messages Messages
	validate *validator.Validate

	// action serializes lifecycle actions.
	action sync.Mutex

	mu              sync.RWMutex
	state           State
	user            *UserProfile
	token           string
	githubConnected bool
	googleConnected bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithLocale selects the fallback message catalog.
func WithLocale(locale string) Option {
	return func(m *Manager) { m.messages = MessagesFor(locale) }
}

// NewManager creates a logged-out session.
func NewManager(client *httpclient.Client, creds *auth.Credentials, opts ...Option) *Manager {
	m := &Manager{
		client:   client,
		creds:    creds,
		logger:   zerolog.Nop(),
		messages: MessagesFor(DefaultLocale),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		state:    LoggedOut,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Messages returns the active message catalog.
func (m *Manager) Messages() Messages {
	return m.messages
}

// Initialize restores the session from the persisted token, if any, and
// validates it with a profile fetch. Without a token no request is made.
func (m *Manager) Initialize(ctx context.Context) {
	m.action.Lock()
	defer m.action.Unlock()

	token, err := m.creds.Token(ctx)
	if err != nil {
		if !errors.Is(err, auth.ErrMissingCredential) {
			m.logger.Warn().Err(err).Msg("could not read persisted token")
		}
		return
	}

	m.mu.Lock()
	m.token = token
	m.state = Authenticating
	m.mu.Unlock()

	m.fetchUserInfoLocked(ctx)
}

// Register creates an account and logs in with the returned token.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) Result {
	m.action.Lock()
	defer m.action.Unlock()

	if err := m.validate.StructCtx(ctx, req); err != nil {
		return fail(m.validationMessage(err))
	}

	var resp tokenResponse
	err := m.client.DoJSON(httpclient.Anonymous(ctx), http.MethodPost, "/api/auth/register", httpclient.JSON(req), &resp)
	if err != nil {
		m.logger.Debug().Err(err).Msg("registration failed")
		return fail(m.failureMessage(err, m.messages.RegisterFailed))
	}
	if resp.AccessToken == "" {
		return fail(m.messages.RegisterFailed)
	}

	if err := m.creds.SetToken(ctx, resp.AccessToken); err != nil {
		m.logger.Error().Err(err).Msg("failed to persist token")
		return fail(m.messages.RegisterFailed)
	}

	m.mu.Lock()
	m.token = resp.AccessToken
	m.setUserLocked(resp.User)
	m.state = LoggedIn
	m.mu.Unlock()

	m.logger.Info().Str("email", req.Email).Msg("registered")
	return ok()
}

// Login exchanges email and password for a token, then refreshes the profile
// to learn which identities are linked.
func (m *Manager) Login(ctx context.Context, req LoginRequest) Result {
	m.action.Lock()
	defer m.action.Unlock()

	if err := m.validate.StructCtx(ctx, req); err != nil {
		return fail(m.validationMessage(err))
	}

	form := url.Values{}
	form.Set("username", req.Email)
	form.Set("password", req.Password)

	var resp tokenResponse
	err := m.client.DoJSON(httpclient.Anonymous(ctx), http.MethodPost, "/api/auth/login", httpclient.Form(form), &resp)
	if err != nil {
		m.logger.Debug().Err(err).Msg("login failed")
		return fail(m.failureMessage(err, m.messages.LoginFailed))
	}
	if resp.AccessToken == "" {
		return fail(m.messages.LoginFailed)
	}

	if err := m.creds.SetToken(ctx, resp.AccessToken); err != nil {
		m.logger.Error().Err(err).Msg("failed to persist token")
		return fail(m.messages.LoginFailed)
	}

	m.mu.Lock()
	m.token = resp.AccessToken
	m.setUserLocked(resp.User)
	m.state = Authenticating
	m.mu.Unlock()

	if !m.fetchUserInfoLocked(ctx) {
		return fail(m.messages.LoginFailed)
	}

	m.logger.Info().Str("email", req.Email).Msg("logged in")
	return ok()
}

// Logout clears the session, the persisted token and the remembered GitHub
// username. It always succeeds and may be called repeatedly.
func (m *Manager) Logout(ctx context.Context) {
	m.action.Lock()
	defer m.action.Unlock()

	m.logoutLocked(ctx)
}

// FetchUserInfo refreshes the profile. Any failure logs the session out.
func (m *Manager) FetchUserInfo(ctx context.Context) {
	m.action.Lock()
	defer m.action.Unlock()

	m.fetchUserInfoLocked(ctx)
}

// HandleOAuthCallback confirms a provider link with the authorization code and
// records the linked identity on the in-memory profile.
func (m *Manager) HandleOAuthCallback(ctx context.Context, provider Provider, code string) Result {
	m.action.Lock()
	defer m.action.Unlock()

	if _, err := ParseProvider(string(provider)); err != nil {
		return fail(m.messages.UnknownProvider)
	}

	path := fmt.Sprintf("/api/auth/%s/callback?code=%s", provider, url.QueryEscape(code))

	var resp callbackResponse
	if err := m.client.DoJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		m.logger.Debug().Err(err).Str("provider", string(provider)).Msg("link callback failed")
		return fail(m.failureMessage(err, m.messages.linkFailed(provider)))
	}

	m.mu.Lock()
	if m.user == nil {
		m.user = &UserProfile{}
	}
	switch provider {
	case ProviderGitHub:
		m.githubConnected = true
		m.user.GithubUsername = resp.GithubUsername
	case ProviderGoogle:
		m.googleConnected = true
		m.user.GoogleEmail = resp.GoogleEmail
	}
	m.mu.Unlock()

	if provider == ProviderGitHub && resp.GithubUsername != "" {
		if err := m.creds.RememberGithubUsername(ctx, resp.GithubUsername); err != nil {
			m.logger.Warn().Err(err).Msg("failed to remember github username")
		}
	}

	m.logger.Info().Str("provider", string(provider)).Msg("identity linked")
	return ok()
}

// AuthorizeURL is the address that starts linking provider to the account.
func (m *Manager) AuthorizeURL(ctx context.Context, provider Provider) (string, error) {
	if _, err := ParseProvider(string(provider)); err != nil {
		return "", err
	}

	token, err := m.creds.Token(ctx)
	if err != nil {
		return "", err
	}

	return m.client.URL(fmt.Sprintf("/api/auth/%s/login?token=%s", provider, url.QueryEscape(token))), nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CurrentUser returns a copy of the profile, or nil when logged out.
func (m *Manager) CurrentUser() *UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyUser(m.user)
}

func (m *Manager) IsLoggedIn() bool {
	return m.State() == LoggedIn
}

func (m *Manager) HasGithubAccess() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.githubConnected
}

func (m *Manager) HasGoogleAccess() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.googleConnected
}

// Snapshot returns a copy of the whole session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		State:           m.state,
		User:            copyUser(m.user),
		Token:           m.token,
		IsAuthenticated: m.state == LoggedIn,
		GithubConnected: m.githubConnected,
		GoogleConnected: m.googleConnected,
	}
}

// fetchUserInfoLocked reports whether the session ended up logged in.
// Callers hold m.action.
func (m *Manager) fetchUserInfoLocked(ctx context.Context) bool {
	m.mu.RLock()
	hasToken := m.token != ""
	m.mu.RUnlock()

	if !hasToken {
		m.logoutLocked(ctx)
		return false
	}

	var user UserProfile
	if err := m.client.DoJSON(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		m.logger.Warn().Err(err).Msg("failed to fetch user info")
		m.logoutLocked(ctx)
		return false
	}

	m.mu.Lock()
	m.setUserLocked(&user)
	m.state = LoggedIn
	m.mu.Unlock()
	return true
}

// Expire ends the session after the server rejected its token. It does not
// take the action lock, so it can run from inside a request made by an
// in-flight action.
func (m *Manager) Expire(ctx context.Context) error {
	m.resetState()
	return m.creds.Clear(ctx)
}

func (m *Manager) logoutLocked(ctx context.Context) {
	m.resetState()

	if err := m.creds.Clear(ctx); err != nil {
		m.logger.Error().Err(err).Msg("failed to clear persisted credentials")
	}
}

func (m *Manager) resetState() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = LoggedOut
	m.user = nil
	m.token = ""
	m.githubConnected = false
	m.googleConnected = false
}

// setUserLocked replaces the profile and derives the link flags. Callers hold m.mu.
func (m *Manager) setUserLocked(user *UserProfile) {
	m.user = copyUser(user)
	m.githubConnected = user != nil && user.GithubUsername != ""
	m.googleConnected = user != nil && user.GoogleEmail != ""
}

func (m *Manager) failureMessage(err error, fallback string) string {
	if detail := httpclient.Detail(err); detail != "" {
		return detail
	}
	return fallback
}

func (m *Manager) validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Password" {
		return m.messages.PasswordRequired
	}
	return m.messages.InvalidEmail
}

func copyUser(u *UserProfile) *UserProfile {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

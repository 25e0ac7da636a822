package session

import "fmt"

// State is the position of a session in its lifecycle.
type State int

const (
	LoggedOut State = iota
	Authenticating
	LoggedIn
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged_out"
	case Authenticating:
		return "authenticating"
	case LoggedIn:
		return "logged_in"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Provider is an external identity that can be linked to an account.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGoogle Provider = "google"
)

// ParseProvider returns the provider named s.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderGitHub, ProviderGoogle:
		return p, nil
	default:
		return "", fmt.Errorf("unknown provider %q (expected github or google)", s)
	}
}

// UserProfile is the account record returned by /api/auth/me.
type UserProfile struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	GithubUsername string `json:"github_username,omitempty"`
	GoogleEmail    string `json:"google_email,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// RegisterRequest is the JSON body of /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest is sent form-encoded to /api/auth/login.
type LoginRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Result is the outcome of a session action. Error holds a user-facing
// message and is empty on success.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func ok() Result { return Result{Success: true} }

func fail(msg string) Result { return Result{Error: msg} }

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	State           State        `json:"-"`
	User            *UserProfile `json:"user,omitempty"`
	Token           string       `json:"-"`
	IsAuthenticated bool         `json:"is_authenticated"`
	GithubConnected bool         `json:"github_connected"`
	GoogleConnected bool         `json:"google_connected"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *UserProfile `json:"user"`
}

type callbackResponse struct {
	GithubUsername string `json:"github_username"`
	GoogleEmail    string `json:"google_email"`
}

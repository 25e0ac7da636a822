package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cicdai/cli/internal/session"
)

var (
	authEmail    string
	authPassword string
	authCode     string
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your cicdai session",
	Long: `Sign in to the CI/CD AI API and link external accounts.

Examples:
  # Create an account
  cicdai auth register --email you@example.com

  # Log in (password is prompted when omitted)
  cicdai auth login --email you@example.com

  # Link your GitHub account
  cicdai auth link github
  cicdai auth callback github --code <code>

  # Check or end the session
  cicdai auth status
  cicdai auth logout`,
}

var authRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := resolveCredentials()
		if err != nil {
			return err
		}

		res := application.Session.Register(cmd.Context(), session.RegisterRequest{Email: email, Password: password})
		if !res.Success {
			return errors.New(res.Error)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s Registered and logged in as %s\n", successStyle.Render("✓"), email)
		return nil
	},
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with email and password",
	Long: `Log in to the CI/CD AI API.

The email and password can also be set with CICDAI_EMAIL and CICDAI_PASSWORD.
When no password is given and stdin is a terminal, it is prompted for.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := resolveCredentials()
		if err != nil {
			return err
		}

		res := application.Session.Login(cmd.Context(), session.LoginRequest{Email: email, Password: password})
		if !res.Success {
			return errors.New(res.Error)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Login successful\n", successStyle.Render("✓"))
		printSession(out, application.Session.Snapshot())
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		application.Session.Logout(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current authentication state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd)
	},
}

var authLinkCmd = &cobra.Command{
	Use:       "link github|google",
	Short:     "Print the URL that links an external account",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(session.ProviderGitHub), string(session.ProviderGoogle)},
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := session.ParseProvider(args[0])
		if err != nil {
			return err
		}

		url, err := application.Session.AuthorizeURL(cmd.Context(), provider)
		if err != nil {
			return describeError(err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Open this URL in a browser to link your %s account:\n\n  %s\n\n", providerName(provider), url)
		fmt.Fprintf(out, "Then run: cicdai auth callback %s --code <code>\n", provider)
		return nil
	},
}

var authCallbackCmd = &cobra.Command{
	Use:   "callback github|google",
	Short: "Complete account linking with an authorization code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := session.ParseProvider(args[0])
		if err != nil {
			return err
		}
		if authCode == "" {
			return fmt.Errorf("--code is required")
		}

		ctx := cmd.Context()
		if _, err := application.Credentials.Token(ctx); err != nil {
			return describeError(err)
		}

		application.Session.Initialize(ctx)
		if !application.Session.IsLoggedIn() {
			return fmt.Errorf("session is no longer valid\nRun 'cicdai auth login' to authenticate")
		}

		res := application.Session.HandleOAuthCallback(ctx, provider, authCode)
		if !res.Success {
			return errors.New(res.Error)
		}

		user := application.Session.CurrentUser()
		id := user.GithubUsername
		if provider == session.ProviderGoogle {
			id = user.GoogleEmail
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s account linked: %s\n", successStyle.Render("✓"), providerName(provider), id)
		return nil
	},
}

// resolveCredentials takes email and password from flags, then the
// environment, then an interactive prompt for the password.
func resolveCredentials() (string, string, error) {
	email := strings.TrimSpace(authEmail)
	if email == "" {
		email = os.Getenv("CICDAI_EMAIL")
	}
	password := authPassword
	if password == "" {
		password = os.Getenv("CICDAI_PASSWORD")
	}

	if email == "" {
		return "", "", fmt.Errorf("email is required (use --email flag or CICDAI_EMAIL env var)")
	}

	if password == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return "", "", fmt.Errorf("password is required in non-interactive mode (use --password flag or CICDAI_PASSWORD env var)")
		}
		fmt.Print("Password: ")
		bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", "", fmt.Errorf("failed to read password: %w", err)
		}
		password = string(bytePassword)
	}

	return email, password, nil
}

func providerName(p session.Provider) string {
	if p == session.ProviderGoogle {
		return "Google"
	}
	return "GitHub"
}

func init() {
	for _, c := range []*cobra.Command{authRegisterCmd, authLoginCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "Email address (or set CICDAI_EMAIL)")
		c.Flags().StringVar(&authPassword, "password", "", "Password (or set CICDAI_PASSWORD, will prompt if not provided)")
	}
	authCallbackCmd.Flags().StringVar(&authCode, "code", "", "Authorization code returned by the provider")

	authCmd.AddCommand(authRegisterCmd, authLoginCmd, authLogoutCmd, authStatusCmd, authLinkCmd, authCallbackCmd)
	rootCmd.AddCommand(authCmd)
}

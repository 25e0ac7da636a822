package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cicdai/cli/internal/app"
	"github.com/cicdai/cli/internal/auth"
	"github.com/cicdai/cli/internal/config"
	"github.com/cicdai/cli/internal/httpclient"
	"github.com/cicdai/cli/internal/logger"
	"github.com/cicdai/cli/internal/session"
)

var (
	// Shared components, built before every command that talks to the API
	application *app.App

	// Command line flags
	cfgFile   string
	baseURL   string
	storeType string
	logLevel  string
	logFormat string
	version   = "1.0.0" // This will be set during build
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cicdai",
	Short: "CI/CD AI CLI - manage your session and deployment projects",
	Long: `cicdai is the command-line client for the CI/CD AI platform. It signs you in,
links your GitHub and Google accounts, and manages the deployment projects
created for your repositories.

Run without arguments to show the current session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupApp(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd)
	},
}

// setupApp loads configuration, applies flag overrides and builds the app.
func setupApp(cmd *cobra.Command) error {
	if err := closeApp(); err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = baseURL
	}
	if flags.Changed("store") {
		cfg.Store.Type = storeType
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr, !isTerminal(os.Stderr))

	a, err := app.New(cfg, log, app.WithNavigator(newNavigator(cmd.ErrOrStderr(), cfg.BaseURL, cfg.Locale)))
	if err != nil {
		return err
	}
	application = a
	return nil
}

func closeApp() error {
	if application == nil {
		return nil
	}
	err := application.Close()
	application = nil
	return err
}

// runStatus restores the session from the stored token and reports it.
func runStatus(cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	cfg := application.Config

	fmt.Fprintf(out, "%s\n\n", titleStyle.Render("cicdai CLI v"+version))
	printField(out, "API", cfg.BaseURL)
	printField(out, "Store", storeDescription(cfg))

	token, err := application.Credentials.Token(ctx)
	if err != nil {
		if !errors.Is(err, auth.ErrMissingCredential) {
			return err
		}
		printField(out, "Session", mutedStyle.Render(session.LoggedOut.String()))
		fmt.Fprintln(out)
		fmt.Fprintln(out, "No credentials configured. Run 'cicdai auth login' to get started.")
		return nil
	}

	if info, err := auth.Inspect(token); err == nil {
		if info.Subject != "" {
			printField(out, "Account ID", info.Subject)
		}
		if !info.ExpiresAt.IsZero() {
			expiry := info.ExpiresAt.Local().Format("2006-01-02 15:04 MST")
			if info.Expired(nowFunc()) {
				expiry = errorStyle.Render(expiry + " (expired)")
			}
			printField(out, "Token expires", expiry)
		}
	}

	application.Session.Initialize(ctx)
	printSession(out, application.Session.Snapshot())
	return nil
}

// Execute runs the root command and releases the shared components.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if cerr := closeApp(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// describeError adds a next step to errors the user can act on.
func describeError(err error) error {
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		return fmt.Errorf("%w\nRun 'cicdai auth login' to authenticate", err)
	case errors.Is(err, httpclient.ErrTimeout):
		return fmt.Errorf("%w\nCheck that %s is reachable or raise the timeout in the config file", err, application.Config.BaseURL)
	default:
		return err
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.cicdai/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", httpclient.DefaultBaseURL, "API base URL (overrides CICDAI_API_URL)")
	rootCmd.PersistentFlags().StringVar(&storeType, "store", "file", "Credential store: file, keyring, leveldb, redis, memory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format: console, json")

	// Add version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of cicdai",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cicdai CLI v%s\n", version)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}

	rootCmd.AddCommand(versionCmd, statusCmd)
}

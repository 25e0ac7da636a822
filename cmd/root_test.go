package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cicdai/cli/internal/testutils"
)

// executeCommand executes a cobra command and captures its output.
// It also mocks os.Exit to prevent the test from exiting.
func executeCommand(t *testing.T, cmd *cobra.Command, args ...string) (output string, err error) {
	t.Helper()

	// Capture stdout and stderr
	oldStdout := os.Stdout
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stdout = w
	os.Stderr = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	// Mock os.Exit
	oldOsExit := exit
	exit = func(code int) {
		// We don't want to actually exit during tests, so we panic and recover.
		// The executeCommand defer function will catch this panic.
		panic(fmt.Sprintf("os.Exit called with code %d", code))
	}

	defer func() {
		// Restore os.Exit
		exit = oldOsExit

		// Release the credential store before the next command opens it
		_ = closeApp()

		// Restore stdout and stderr
		w.Close()
		os.Stdout = oldStdout
		os.Stderr = oldStderr
		output = <-outC

		// Recover from panic if os.Exit was called
		if r := recover(); r != nil {
			if s, ok := r.(string); ok && strings.HasPrefix(s, "os.Exit called with code") {
				err = fmt.Errorf("%s", s) // Convert panic to error
			} else {
				panic(r) // Not our panic, re-panic
			}
		}
	}()

	// Flags keep their values between runs of the same command tree
	resetFlags(cmd)

	cmd.SetArgs(args)
	err = cmd.Execute()

	return output, err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// isolateHome gives each test an empty home and working directory so the
// default file store and config file start out absent.
func isolateHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	cleanup := testutils.SetEnv(t, map[string]string{
		"HOME":                    home,
		"CICDAI_API_URL":          "",
		"CICDAI_STORE":            "",
		"CICDAI_EMAIL":            "",
		"CICDAI_PASSWORD":         "",
		"CICDAI_LOCALE":           "",
		"CICDAI_WITH_CREDENTIALS": "",
		"GITHUB_REPOSITORY":       "",
	})
	t.Cleanup(cleanup)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

// mockAPI serves the endpoints used by the CLI. Only token "T1" is accepted.
func mockAPI(t *testing.T) *httptest.Server {
	t.Helper()

	authorized := func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer T1"
	}
	writeJSON := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}

	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("username") != "a@b.com" || r.FormValue("password") != "x" {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Incorrect email or password"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"access_token":"T1","token_type":"bearer","user":{"id":1,"email":"a@b.com","github_username":null,"google_email":null}}`)
	})
	r.Get("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":1,"email":"a@b.com","github_username":null,"google_email":null,"created_at":"2024-05-01T10:00:00"}`)
	})
	r.Get("/api/auth/github/callback", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"github_username":"octocat"}`)
	})
	r.Get("/api/projects/me", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`)
			return
		}
		writeJSON(w, http.StatusOK, `[{"id":1,"github_repo":"octocat/hello","gcp_project_id":"gcp-1","service_name":"hello","region":"asia-northeast3","deployment_url":"https://hello.run.app"}]`)
	})
	r.Delete("/api/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != "1" {
			writeJSON(w, http.StatusNotFound, `{"detail":"Project not found"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"message":"Project deleted successfully"}`)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name                 string
		args                 []string
		expectError          bool
		expectOutputContains string
		expectErrorContains  string
		setupEnv             map[string]string
	}{
		{
			name:                 "Default status without credentials",
			args:                 []string{},
			expectError:          false,
			expectOutputContains: "No credentials configured",
		},
		{
			name:                 "Version command",
			args:                 []string{"version"},
			expectError:          false,
			expectOutputContains: "cicdai CLI v",
		},
		{
			name:                 "Base URL from environment",
			args:                 []string{"status"},
			expectError:          false,
			expectOutputContains: "https://api.example.com",
			setupEnv:             map[string]string{"CICDAI_API_URL": "https://api.example.com"},
		},
		{
			name:                "Invalid store",
			args:                []string{"status", "--store", "etcd"},
			expectError:         true,
			expectErrorContains: "invalid store",
		},
		{
			name:                "Projects without credentials",
			args:                []string{"projects", "list", "--store", "memory"},
			expectError:         true,
			expectErrorContains: "no authentication token",
		},
		{
			name:                "Login without password in non-interactive mode",
			args:                []string{"auth", "login", "--email", "a@b.com", "--store", "memory"},
			expectError:         true,
			expectErrorContains: "password is required",
		},
		{
			name:                "Unknown provider",
			args:                []string{"auth", "link", "gitlab", "--store", "memory"},
			expectError:         true,
			expectErrorContains: "unknown provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateHome(t)
			if tt.setupEnv != nil {
				t.Cleanup(testutils.SetEnv(t, tt.setupEnv))
			}

			// Use the actual rootCmd for testing
			output, err := executeCommand(t, rootCmd, tt.args...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectErrorContains)
			} else {
				assert.NoError(t, err)
				assert.Contains(t, output, tt.expectOutputContains)
			}
		})
	}
}

func TestSessionWorkflow(t *testing.T) {
	home := isolateHome(t)
	server := mockAPI(t)
	base := []string{"--base-url", server.URL}
	run := func(args ...string) (string, error) {
		return executeCommand(t, rootCmd, append(args, base...)...)
	}
	credentialsPath := filepath.Join(home, ".cicdai", "credentials.json")

	output, err := run("auth", "login", "--email", "a@b.com", "--password", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect email or password")
	assert.NotContains(t, output, "Run 'cicdai auth login' to continue")

	output, err = run("auth", "login", "--email", "a@b.com", "--password", "x")
	require.NoError(t, err)
	assert.Contains(t, output, "Login successful")
	assert.Contains(t, output, "a@b.com")
	assert.FileExists(t, credentialsPath)

	output, err = run("status")
	require.NoError(t, err)
	assert.Contains(t, output, "logged_in")
	assert.Contains(t, output, "not linked")

	output, err = run("auth", "link", "github")
	require.NoError(t, err)
	assert.Contains(t, output, server.URL+"/api/auth/github/login?token=T1")

	output, err = run("auth", "callback", "github", "--code", "code123")
	require.NoError(t, err)
	assert.Contains(t, output, "GitHub account linked: octocat")

	output, err = run("projects", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "octocat/hello")
	assert.Contains(t, output, "asia-northeast3")

	output, err = run("projects", "list", "-o", "json")
	require.NoError(t, err)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "hello", listed[0]["service_name"])

	_, err = run("projects", "delete", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Project not found")

	output, err = run("projects", "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, output, "Project deleted successfully")

	output, err = run("auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, output, "Logged out")
	assert.NoFileExists(t, credentialsPath)

	_, err = run("projects", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cicdai auth login")
}

func TestExpiredTokenForcesLogout(t *testing.T) {
	home := isolateHome(t)
	server := mockAPI(t)

	credentialsPath := filepath.Join(home, ".cicdai", "credentials.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(credentialsPath), 0o700))
	require.NoError(t, os.WriteFile(credentialsPath, []byte(`{"jwt_token":"stale","github_username":"octocat"}`), 0o600))

	output, err := executeCommand(t, rootCmd, "projects", "list", "--base-url", server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not validate credentials")
	assert.Contains(t, output, "Run 'cicdai auth login' to continue")
	assert.Contains(t, output, "Web sign-in: "+server.URL+"/login")
	assert.NoFileExists(t, credentialsPath)
}

func TestCurrentRepoFilter(t *testing.T) {
	home := isolateHome(t)
	server := mockAPI(t)

	credentialsPath := filepath.Join(home, ".cicdai", "credentials.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(credentialsPath), 0o700))
	require.NoError(t, os.WriteFile(credentialsPath, []byte(`{"jwt_token":"T1"}`), 0o600))

	t.Setenv("GITHUB_REPOSITORY", "octocat/other")
	output, err := executeCommand(t, rootCmd, "projects", "list", "--current-repo", "--base-url", server.URL)
	require.NoError(t, err)
	assert.Contains(t, output, "No projects found.")

	t.Setenv("GITHUB_REPOSITORY", "OctoCat/Hello")
	output, err = executeCommand(t, rootCmd, "projects", "list", "--current-repo", "-o", "json", "--base-url", server.URL)
	require.NoError(t, err)
	assert.Contains(t, output, `"github_repo": "octocat/hello"`)
}

// exit is a variable that can be overridden for testing purposes
var exit = os.Exit

package gitremote

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepo(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		expected    string
		expectedErr string
	}{
		{name: "HTTPS", url: "https://github.com/octocat/hello.git", expected: "octocat/hello"},
		{name: "HTTPS without suffix", url: "https://github.com/octocat/hello/", expected: "octocat/hello"},
		{name: "SCP style", url: "git@github.com:octocat/hello.git", expected: "octocat/hello"},
		{name: "SSH URL", url: "ssh://git@github.com/octocat/hello.git", expected: "octocat/hello"},
		{name: "Too deep", url: "https://gitlab.com/group/sub/hello.git", expectedErr: "does not name an owner/repo"},
		{name: "Bare word", url: "hello", expectedErr: "unrecognised remote URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRepo(tt.url)
			if tt.expectedErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func initRepo(t *testing.T, urls ...string) string {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	if len(urls) > 0 {
		_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: urls})
		require.NoError(t, err)
	}
	return dir
}

func TestFromRemote(t *testing.T) {
	dir := initRepo(t, "git@github.com:octocat/hello.git")
	sub := filepath.Join(dir, "deploy", "k8s")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	got, err := FromRemote(sub, "origin")
	require.NoError(t, err)
	assert.Equal(t, "octocat/hello", got)
}

func TestFromRemoteMissing(t *testing.T) {
	_, err := FromRemote(t.TempDir(), "origin")
	assert.ErrorIs(t, err, ErrNoRepository)

	_, err = FromRemote(initRepo(t), "origin")
	assert.ErrorIs(t, err, ErrNoRepository)
}

func TestDetectPrefersActionsEnvironment(t *testing.T) {
	dir := initRepo(t, "https://github.com/octocat/hello.git")

	t.Setenv("GITHUB_REPOSITORY", "octo-org/deployer")
	got, err := Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, "octo-org/deployer", got)

	t.Setenv("GITHUB_REPOSITORY", "")
	got, err = Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, "octocat/hello", got)
}

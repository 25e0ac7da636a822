// Package gitremote works out which GitHub repository the CLI is running in.
package gitremote

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
)

// ErrNoRepository is returned when neither the environment nor a git remote
// names a repository.
var ErrNoRepository = errors.New("no GitHub repository detected")

// Detect returns "owner/name" for the working tree at dir. Inside GitHub
// Actions GITHUB_REPOSITORY wins; otherwise the origin remote is used.
func Detect(dir string) (string, error) {
	if repo := strings.TrimSpace(os.Getenv("GITHUB_REPOSITORY")); repo != "" {
		return repo, nil
	}
	return FromRemote(dir, "origin")
}

// FromRemote opens the repository containing dir and parses the first URL of
// the named remote.
func FromRemote(dir, remote string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", ErrNoRepository
		}
		return "", fmt.Errorf("failed to open git repository: %w", err)
	}

	r, err := repo.Remote(remote)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return "", fmt.Errorf("%w: remote %q not found", ErrNoRepository, remote)
		}
		return "", fmt.Errorf("failed to read remote %q: %w", remote, err)
	}

	urls := r.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: remote %q has no URL", ErrNoRepository, remote)
	}
	return ParseRepo(urls[0])
}

// ParseRepo extracts "owner/name" from an HTTPS, SSH or scp-style remote URL.
func ParseRepo(remoteURL string) (string, error) {
	raw := strings.TrimSpace(remoteURL)

	var path string
	if !strings.Contains(raw, "://") {
		// scp-like: git@github.com:owner/name.git
		_, after, ok := strings.Cut(raw, ":")
		if !ok {
			return "", fmt.Errorf("unrecognised remote URL %q", remoteURL)
		}
		path = after
	} else {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("unrecognised remote URL %q: %w", remoteURL, err)
		}
		path = u.Path
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("remote URL %q does not name an owner/repo", remoteURL)
	}
	return parts[0] + "/" + parts[1], nil
}

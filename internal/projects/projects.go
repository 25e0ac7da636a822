// Package projects is a thin client for the project resource.
package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cicdai/cli/internal/auth"
	"github.com/cicdai/cli/internal/httpclient"
)

// Project is a deployment pipeline owned by the current user.
type Project struct {
	ID            int64  `json:"id"`
	GithubRepo    string `json:"github_repo"`
	GCPProjectID  string `json:"gcp_project_id"`
	ServiceName   string `json:"service_name"`
	Region        string `json:"region"`
	DeploymentURL string `json:"deployment_url,omitempty"`
	WorkflowPath  string `json:"workflow_path,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

// DeleteResponse acknowledges a deletion.
type DeleteResponse struct {
	Message string `json:"message"`
}

// Client calls the project endpoints. It keeps no state of its own.
type Client struct {
	http   *httpclient.Client
	tokens auth.TokenSource
}

// NewClient creates a projects client. tokens is consulted before each call so
// that nothing is sent without credentials.
func NewClient(hc *httpclient.Client, tokens auth.TokenSource) *Client {
	return &Client{http: hc, tokens: tokens}
}

// ListMine returns the projects of the logged-in user.
func (c *Client) ListMine(ctx context.Context) ([]Project, error) {
	if err := c.requireToken(ctx); err != nil {
		return nil, err
	}

	respBody, err := c.http.DoRequest(ctx, http.MethodGet, "/api/projects/me", nil)
	if err != nil {
		return nil, err
	}

	var projects []Project
	if err := json.Unmarshal(respBody, &projects); err != nil {
		return nil, fmt.Errorf("%w: failed to parse projects: %w", httpclient.ErrRequestFailed, err)
	}
	return projects, nil
}

// Delete removes the project with the given id.
func (c *Client) Delete(ctx context.Context, id string) (*DeleteResponse, error) {
	if err := c.requireToken(ctx); err != nil {
		return nil, err
	}

	var resp DeleteResponse
	path := "/api/projects/" + url.PathEscape(id)
	if err := c.http.DoJSON(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// requireToken fails with auth.ErrMissingCredential when no token is stored.
func (c *Client) requireToken(ctx context.Context) error {
	_, err := c.tokens.Token(ctx)
	return err
}

// FilterByRepo keeps the projects deploying repo ("owner/name", case-insensitive).
func FilterByRepo(projects []Project, repo string) []Project {
	repo = normalizeRepo(repo)

	var out []Project
	for _, p := range projects {
		if normalizeRepo(p.GithubRepo) == repo {
			out = append(out, p)
		}
	}
	return out
}

func normalizeRepo(repo string) string {
	repo = strings.TrimSpace(strings.ToLower(repo))
	repo = strings.TrimPrefix(repo, "https://github.com/")
	return strings.TrimSuffix(strings.TrimSuffix(repo, "/"), ".git")
}

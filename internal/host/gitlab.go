package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GitLabClient implements Host against the GitLab REST API.
type GitLabClient struct {
	baseURL   string
	token     string
	projectID string
	http      *http.Client
}

// NewGitLabClient creates a client for one GitLab project. projectID may be
// a numeric id or a URL-encoded "group/project" path.
func NewGitLabClient(baseURL, token, projectID string) *GitLabClient {
	return &GitLabClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		projectID: projectID,
		http:      &http.Client{Timeout: 60 * time.Second},
	}
}

// projectURL builds an API URL under the project namespace.
func (c *GitLabClient) projectURL(tail string) string {
	return fmt.Sprintf("%s/api/v4/projects/%s/%s", c.baseURL, url.PathEscape(c.projectID), tail)
}

// post sends a JSON body and decodes the JSON response into out when non-nil.
func (c *GitLabClient) post(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrHostAPI)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %w", resp.StatusCode, ErrHostAPI)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %v: %w", err, ErrHostAPI)
		}
	}
	return nil
}

// CreateBranch creates a branch from ref.
func (c *GitLabClient) CreateBranch(ctx context.Context, name, ref string) error {
	payload := map[string]string{"branch": name, "ref": ref}
	if err := c.post(ctx, c.projectURL("repository/branches"), payload, nil); err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}
	return nil
}

type commitAction struct {
	Action   string `json:"action"`
	FilePath string `json:"file_path"`
	Content  string `json:"content,omitempty"`
}

type commitPayload struct {
	Branch        string         `json:"branch"`
	CommitMessage string         `json:"commit_message"`
	Actions       []commitAction `json:"actions"`
	AuthorName    string         `json:"author_name,omitempty"`
	AuthorEmail   string         `json:"author_email,omitempty"`
}

// Commit writes all files as a single multi-action commit on branch.
func (c *GitLabClient) Commit(ctx context.Context, branch string, files []File, message string) (string, error) {
	actions := make([]commitAction, 0, len(files))
	for _, f := range files {
		a := commitAction{Action: string(f.Action), FilePath: f.Path}
		if f.Action != ActionDelete {
			a.Content = string(f.Content)
		}
		actions = append(actions, a)
	}

	payload := commitPayload{
		Branch:        branch,
		CommitMessage: message,
		Actions:       actions,
		AuthorName:    "sonarfix",
		AuthorEmail:   "sonarfix@automated.local",
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, c.projectURL("repository/commits"), payload, &result); err != nil {
		return "", fmt.Errorf("commit %d files to %s: %w", len(files), branch, err)
	}
	return result.ID, nil
}

// CreateMergeRequest opens a merge request and returns its web URL.
func (c *GitLabClient) CreateMergeRequest(ctx context.Context, source, target, title, body string) (string, error) {
	payload := map[string]string{
		"source_branch": source,
		"target_branch": target,
		"title":         title,
		"description":   body,
	}

	var result struct {
		IID    int    `json:"iid"`
		WebURL string `json:"web_url"`
	}
	if err := c.post(ctx, c.projectURL("merge_requests"), payload, &result); err != nil {
		return "", fmt.Errorf("create merge request %s -> %s: %w", source, target, err)
	}
	if result.WebURL != "" {
		return result.WebURL, nil
	}
	return fmt.Sprintf("!%d", result.IID), nil
}

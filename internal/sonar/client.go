package sonar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrSourceUnavailable indicates the issue server could not be reached or
// rejected the request. It is fatal to a run: no cost has been incurred yet.
var ErrSourceUnavailable = errors.New("issue source unavailable")

// Client fetches findings from a SonarQube server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a SonarQube client. The token is sent as the basic-auth
// username with an empty password, per the SonarQube web API contract.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type searchResponse struct {
	Issues []rawIssue `json:"issues"`
}

// Fetch retrieves up to limit CODE_SMELL findings for a project, most severe
// first. pullRequest narrows the search to issues raised on that pull request.
func (c *Client) Fetch(ctx context.Context, projectKey, pullRequest string, limit int) ([]Finding, error) {
	params := url.Values{}
	params.Set("componentKeys", projectKey)
	params.Set("types", "CODE_SMELL")
	params.Set("ps", strconv.Itoa(limit))
	params.Set("s", "SEVERITY")
	params.Set("asc", "false")
	if pullRequest != "" {
		params.Set("pullRequest", pullRequest)
	}

	endpoint := c.baseURL + "/api/issues/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build issues request: %w", err)
	}
	req.SetBasicAuth(c.token, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch issues: %v: %w", err, ErrSourceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch issues: status %d: %w", resp.StatusCode, ErrSourceUnavailable)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode issues response: %v: %w", err, ErrSourceUnavailable)
	}

	findings := make([]Finding, 0, len(sr.Issues))
	for _, issue := range sr.Issues {
		findings = append(findings, findingFromIssue(issue))
	}
	return findings, nil
}

// Ping checks connectivity to the SonarQube server.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/system/status", nil)
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}
	req.SetBasicAuth(c.token, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping sonarqube: %v: %w", err, ErrSourceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping sonarqube: status %d: %w", resp.StatusCode, ErrSourceUnavailable)
	}
	return nil
}

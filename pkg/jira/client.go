// Package jira provides a minimal client for the Jira Cloud REST API v2.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the Jira operations used for ticketing.
type Client interface {
	// CreateIssue creates an issue and returns its id and key.
	CreateIssue(ctx context.Context, req IssueRequest) (*Issue, error)
	// SearchByLabel returns issues carrying label, newest first.
	SearchByLabel(ctx context.Context, label string) ([]Issue, error)
}

// IssueRequest describes a new issue.
type IssueRequest struct {
	Summary     string
	Description string
	IssueType   string
	Priority    string
	Assignee    string
	Labels      []string
}

// Issue is the subset of issue fields we read back.
type Issue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Self   string `json:"self"`
	Status string `json:"-"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira: http %d: %s", e.StatusCode, e.Body)
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Option configures the Jira client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	baseURL    string
	projectKey string
	email      string
	apiToken   string
	http       *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Jira client for one project.
func NewClient(baseURL, projectKey, email, apiToken string, opts ...Option) Client {
	c := &httpClient{
		baseURL:    baseURL,
		projectKey: projectKey,
		email:      email,
		apiToken:   apiToken,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createIssueBody struct {
	Fields map[string]any `json:"fields"`
}

func (c *httpClient) CreateIssue(ctx context.Context, req IssueRequest) (*Issue, error) {
	issueType := req.IssueType
	if issueType == "" {
		issueType = "Task"
	}
	fields := map[string]any{
		"project":     map[string]string{"key": c.projectKey},
		"summary":     req.Summary,
		"description": req.Description,
		"issuetype":   map[string]string{"name": issueType},
		"labels":      req.Labels,
	}
	if req.Priority != "" {
		fields["priority"] = map[string]string{"name": req.Priority}
	}
	if req.Assignee != "" {
		fields["assignee"] = map[string]string{"id": req.Assignee}
	}

	payload, err := json.Marshal(createIssueBody{Fields: fields})
	if err != nil {
		return nil, eris.Wrap(err, "jira: marshal issue")
	}

	body, err := c.do(ctx, http.MethodPost, "/rest/api/2/issue", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "jira: create issue")
	}

	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, eris.Wrap(err, "jira: decode created issue")
	}
	if issue.Key == "" {
		return nil, eris.New("jira: created issue has no key")
	}
	return &issue, nil
}

type searchResponse struct {
	Issues []struct {
		ID     string `json:"id"`
		Key    string `json:"key"`
		Self   string `json:"self"`
		Fields struct {
			Status struct {
				Name string `json:"name"`
			} `json:"status"`
		} `json:"fields"`
	} `json:"issues"`
}

func (c *httpClient) SearchByLabel(ctx context.Context, label string) ([]Issue, error) {
	q := url.Values{}
	q.Set("jql", fmt.Sprintf(`project = %q AND labels = %q ORDER BY created DESC`, c.projectKey, label))
	q.Set("fields", "status")
	q.Set("maxResults", "5")

	body, err := c.do(ctx, http.MethodGet, "/rest/api/2/search?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "jira: search")
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "jira: decode search")
	}
	out := make([]Issue, 0, len(resp.Issues))
	for _, it := range resp.Issues {
		out = append(out, Issue{ID: it.ID, Key: it.Key, Self: it.Self, Status: it.Fields.Status.Name})
	}
	return out, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "jira: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, eris.Wrap(err, "jira: build request")
	}
	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "jira: read body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

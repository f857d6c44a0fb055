// Package forge talks to GitHub on behalf of a publish run: it reads the
// triggering pull-request event and maintains the run's status comment.
package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"git.home.luguber.info/inful/docdraft/internal/foundation/errors"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

const commentsPerPage = 100

// Comment is an issue comment on a pull request.
type Comment struct {
	ID      int64  `json:"id"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
}

// Commenter manages issue comments on a pull request.
type Commenter interface {
	ListComments(ctx context.Context, repo string, pr int) ([]Comment, error)
	CreateComment(ctx context.Context, repo string, pr int, body string) (*Comment, error)
	UpdateComment(ctx context.Context, repo string, id int64, body string) (*Comment, error)
	DeleteComment(ctx context.Context, repo string, id int64) error
}

// Client is a minimal GitHub REST client for issue comments.
type Client struct {
	httpClient *http.Client
	apiURL     string
	token      string
	userAgent  string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithAPIURL points the client at a GitHub Enterprise or test endpoint.
func WithAPIURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.apiURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a GitHub client authenticated with token.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	if token == "" {
		return nil, ErrAuthRequired
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiURL:     DefaultAPIURL,
		token:      token,
		userAgent:  "docdraft/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListComments returns every issue comment on the pull request, oldest first.
func (c *Client) ListComments(ctx context.Context, repo string, pr int) ([]Comment, error) {
	if err := validateRepo(repo); err != nil {
		return nil, err
	}
	var all []Comment
	for page := 1; ; page++ {
		endpoint := fmt.Sprintf("/repos/%s/issues/%d/comments?per_page=%d&page=%d", repo, pr, commentsPerPage, page)
		req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		var batch []Comment
		if err := c.doRequest(req, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < commentsPerPage {
			break
		}
	}
	return all, nil
}

// CreateComment posts a new comment on the pull request.
func (c *Client) CreateComment(ctx context.Context, repo string, pr int, body string) (*Comment, error) {
	if err := validateRepo(repo); err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/issues/%d/comments", repo, pr), map[string]string{"body": body})
	if err != nil {
		return nil, err
	}
	var out Comment
	if err := c.doRequest(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateComment replaces the body of an existing comment.
func (c *Client) UpdateComment(ctx context.Context, repo string, id int64, body string) (*Comment, error) {
	if err := validateRepo(repo); err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPatch, fmt.Sprintf("/repos/%s/issues/comments/%d", repo, id), map[string]string{"body": body})
	if err != nil {
		return nil, err
	}
	var out Comment
	if err := c.doRequest(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteComment removes a comment. A comment that is already gone is not an error.
func (c *Client) DeleteComment(ctx context.Context, repo string, id int64) error {
	if err := validateRepo(repo); err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/repos/%s/issues/comments/%d", repo, id), nil)
	if err != nil {
		return err
	}
	err = c.doRequest(req, nil)
	if statusOf(err) == http.StatusNotFound {
		return nil
	}
	return err
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid GitHub API URL").Build()
	}
	p, rawQuery, _ := strings.Cut(endpoint, "?")
	u.Path = path.Join(u.Path, p)
	u.RawQuery = rawQuery

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryInternal, "encode request body").Build()
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "build GitHub request").Build()
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) doRequest(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WrapError(err, errors.CategoryForge, "GitHub request failed").
			Rerun().WithContext("method", req.Method).WithContext("url", req.URL.Path).Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		b := errors.ForgeError(fmt.Sprintf("GitHub API error: %s", resp.Status)).
			WithContext("status", resp.StatusCode).
			WithContext("method", req.Method).
			WithContext("url", req.URL.Path)
		if len(detail) > 0 {
			b = b.WithContext("response", strings.TrimSpace(string(detail)))
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			b = errors.AuthError(fmt.Sprintf("GitHub API error: %s", resp.Status)).
				WithContext("status", resp.StatusCode).
				WithContext("url", req.URL.Path)
		}
		return b.Build()
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return errors.WrapError(err, errors.CategoryForge, "decode GitHub response").Build()
		}
	}
	return nil
}

func statusOf(err error) int {
	ce, ok := errors.AsClassified(err)
	if !ok {
		return 0
	}
	v := ce.Context()["status"]
	code, _ := v.(int)
	return code
}

func validateRepo(repo string) error {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return ErrInvalidRepository.WithContext("repository", repo)
	}
	return nil
}

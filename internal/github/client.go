// Package github implements the hosting-platform side of the pipeline:
// repository listing, raw readme retrieval and topic lookup.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/itakello/projectsync/internal/project"
	"github.com/itakello/projectsync/internal/telemetry"
)

const (
	acceptJSON = "application/vnd.github+json"
	acceptRaw  = "application/vnd.github.raw+json"
)

// readmeVariants are tried in order; the first hit wins and no path is
// retried. Content lookups on the platform are case-sensitive.
var readmeVariants = []string{"README.md", "Readme.md", "readme.md"}

// Config controls client behavior.
type Config struct {
	Owner    string
	Token    string
	APIBase  string
	PageSize int
	Timeout  time.Duration
}

// Client talks to the hosting platform's REST API. It implements
// project.RepoSource.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New builds a Client with a pooled transport.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.github.com"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newHTTPTransport(),
		},
		logger: logger,
	}
}

type listedRepo struct {
	Name        string  `json:"name"`
	FullName    string  `json:"full_name"`
	Description *string `json:"description"`
	HTMLURL     string  `json:"html_url"`
	Language    *string `json:"language"`
	Archived    bool    `json:"archived"`
	Fork        bool    `json:"fork"`
	Private     bool    `json:"private"`
	PushedAt    string  `json:"pushed_at"`
	UpdatedAt   string  `json:"updated_at"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// ListRepos returns every repository for the configured account, following
// page numbers until a short page.
func (c *Client) ListRepos(ctx context.Context) ([]project.Repo, error) {
	var all []project.Repo
	for page := 1; ; page++ {
		batch, err := c.listPage(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < c.cfg.PageSize {
			return all, nil
		}
	}
}

func (c *Client) listPage(ctx context.Context, page int) ([]project.Repo, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(c.cfg.PageSize))
	q.Set("sort", "updated")
	q.Set("page", strconv.Itoa(page))
	endpoint := fmt.Sprintf("%s/users/%s/repos?%s", c.cfg.APIBase, c.cfg.Owner, q.Encode())

	body, status, err := c.get(ctx, endpoint, acceptJSON, "list_repos")
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list repos: unexpected status %d", status)
	}

	var listed []listedRepo
	if err := json.Unmarshal(body, &listed); err != nil {
		return nil, fmt.Errorf("decode repo listing: %w", err)
	}

	repos := make([]project.Repo, 0, len(listed))
	for _, r := range listed {
		repos = append(repos, project.Repo{
			Name:        r.Name,
			FullName:    r.FullName,
			Description: deref(r.Description),
			HTMLURL:     r.HTMLURL,
			Language:    deref(r.Language),
			OwnerLogin:  r.Owner.Login,
			Archived:    r.Archived,
			Fork:        r.Fork,
			Private:     r.Private,
			PushedAt:    parseTime(r.PushedAt),
			UpdatedAt:   parseTime(r.UpdatedAt),
		})
	}
	return repos, nil
}

// FetchReadme tries the case-variant readme paths and returns the first
// successful body. ok is false when every variant misses.
func (c *Client) FetchReadme(ctx context.Context, owner, repo string) (string, bool, error) {
	for _, name := range readmeVariants {
		endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.cfg.APIBase, owner, repo, name)
		body, status, err := c.get(ctx, endpoint, acceptRaw, "fetch_readme")
		if err != nil {
			return "", false, fmt.Errorf("fetch readme %s: %w", name, err)
		}
		if status == http.StatusOK {
			return string(body), true, nil
		}
		c.logger.Debug("readme variant missed",
			zap.String("repo", repo),
			zap.String("variant", name),
			zap.Int("status", status),
		)
	}
	return "", false, nil
}

// FetchTopics returns the repository's topic labels. Any non-success status
// degrades to an empty list.
func (c *Client) FetchTopics(ctx context.Context, owner, repo string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/topics", c.cfg.APIBase, owner, repo)
	body, status, err := c.get(ctx, endpoint, acceptJSON, "fetch_topics")
	if err != nil {
		return nil, fmt.Errorf("fetch topics: %w", err)
	}
	if status != http.StatusOK {
		return nil, nil
	}
	var payload struct {
		Names []string `json:"names"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}
	return payload.Names, nil
}

func (c *Client) get(ctx context.Context, endpoint, accept, operation string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		telemetry.ObserveUpstreamRequest("github", operation, 0, time.Since(start))
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	telemetry.ObserveUpstreamRequest("github", operation, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultAPIURL    = "https://api.github.com"
	DefaultUserAgent = "autoupdate"
	DefaultMaxPages  = 5

	httpTimeout = 30 * time.Second
	perPage     = 100
)

// ErrRepoNotFound is returned when the registry has no such owner/repo.
var ErrRepoNotFound = errors.New("repository not found")

// RegistryClient fetches the published releases of a repository.
type RegistryClient interface {
	ListReleases(ctx context.Context, owner, repo string) ([]Release, error)
}

// HTTPDoer interface for HTTP requests (allows mocking in tests).
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// GitHubOptions configures a GitHubClient.
type GitHubOptions struct {
	BaseURL   string   // API root (default: https://api.github.com)
	Token     string   // Optional bearer token for private repos and rate limits
	UserAgent string   // default: autoupdate
	MaxPages  int      // Pages of 100 releases to follow (default: 5)
	HTTP      HTTPDoer // default: http.Client with a 30s timeout
}

// GitHubClient lists releases from a GitHub-compatible releases API.
type GitHubClient struct {
	baseURL   string
	token     string
	userAgent string
	maxPages  int
	http      HTTPDoer
}

// NewGitHubClient creates a client from opts, filling in defaults.
func NewGitHubClient(opts GitHubOptions) *GitHubClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAPIURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{Timeout: httpTimeout}
	}
	return &GitHubClient{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		token:     opts.Token,
		userAgent: opts.UserAgent,
		maxPages:  opts.MaxPages,
		http:      opts.HTTP,
	}
}

// ListReleases returns all releases of owner/repo, newest first as the
// API orders them, following pagination up to MaxPages.
func (c *GitHubClient) ListReleases(ctx context.Context, owner, repo string) ([]Release, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}

	next := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), perPage)

	var all []Release
	for page := 0; next != "" && page < c.maxPages; page++ {
		releases, link, err := c.fetchPage(ctx, next, owner, repo)
		if err != nil {
			return nil, err
		}
		all = append(all, releases...)
		next = nextLink(link)
	}
	return all, nil
}

func (c *GitHubClient) fetchPage(ctx context.Context, pageURL, owner, repo string) ([]Release, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch releases: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", fmt.Errorf("%s/%s: %w", owner, repo, ErrRepoNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("GitHub API error: %s", resp.Status)
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, "", fmt.Errorf("failed to parse releases: %w", err)
	}
	return releases, resp.Header.Get("Link"), nil
}

var linkNextRE = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="next"`)

// nextLink extracts the rel="next" target from an RFC 8288 Link header.
func nextLink(header string) string {
	m := linkNextRE.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return m[1]
}

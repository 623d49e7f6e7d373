package feedbin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"feedsync/core/retry"

	"go.uber.org/zap"
)

// Client talks to one Feedbin account's REST surface. It is stateless apart
// from the authorization header derived from the account credentials, so a
// single instance is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials string
	retryCfg    retry.Config
	logger      *zap.Logger
}

// NewClient creates a provider client for one set of credentials.
func NewClient(cfg Config, username, password string, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.feedbin.com/"
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeoutDuration,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeoutDuration,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeoutDuration,
	}

	retryCfg := retry.DefaultConfig()
	if cfg.MaxRetries > 0 {
		retryCfg.MaxAttempts = cfg.MaxRetries
	}
	retryCfg.OnRetry = func(err error) {
		logger.Warn("Retrying provider request", zap.Error(err))
	}

	auth := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))

	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Transport: transport, Timeout: timeoutDuration},
		credentials: "Basic " + auth,
		retryCfg:    retryCfg,
		logger:      logger,
	}
}

// ValidCredentials checks whether the account credentials are accepted.
// A transport failure is reported as an error; 401 is simply "invalid".
func (c *Client) ValidCredentials(ctx context.Context) (bool, error) {
	req, err := c.newGetRequest(ctx, "v2/authentication.json", nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("feedbin: credential check failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode <= 299, nil
}

// Subscriptions lists all subscribed feeds.
func (c *Client) Subscriptions(ctx context.Context) ([]Subscription, error) {
	return getJSON[[]Subscription](ctx, c, "v2/subscriptions.json", nil)
}

// Taggings lists all feed-to-tag assignments.
func (c *Client) Taggings(ctx context.Context) ([]Tagging, error) {
	return getJSON[[]Tagging](ctx, c, "v2/taggings.json", nil)
}

// Icons lists favicon references for subscribed feed hosts.
func (c *Client) Icons(ctx context.Context) ([]Icon, error) {
	return getJSON[[]Icon](ctx, c, "v2/icons.json", nil)
}

// SavedSearches lists the account's stored queries.
func (c *Client) SavedSearches(ctx context.Context) ([]SavedSearch, error) {
	return getJSON[[]SavedSearch](ctx, c, "v2/saved_searches.json", nil)
}

// UnreadEntryIDs lists the ids of all unread entries.
func (c *Client) UnreadEntryIDs(ctx context.Context) ([]int64, error) {
	return getJSON[[]int64](ctx, c, "v2/unread_entries.json", nil)
}

// StarredEntryIDs lists the ids of all starred entries.
func (c *Client) StarredEntryIDs(ctx context.Context) ([]int64, error) {
	return getJSON[[]int64](ctx, c, "v2/starred_entries.json", nil)
}

// EntriesQuery selects which entries page to fetch.
type EntriesQuery struct {
	// Since restricts results to entries created after this timestamp.
	Since string
	// Page is the 1-based page number; empty means the first page.
	Page string
	// IDs restricts results to a comma-separated id list.
	IDs string
}

// Entries fetches one page of entries in extended mode. The caller loops
// with increasing page numbers until a page comes back empty.
func (c *Client) Entries(ctx context.Context, query EntriesQuery) ([]Entry, error) {
	params := url.Values{}
	if query.Since != "" {
		params.Set("since", query.Since)
	}
	if query.Page != "" {
		params.Set("page", query.Page)
	}
	if query.IDs != "" {
		params.Set("ids", query.IDs)
	}
	params.Set("mode", "extended")
	params.Set("per_page", "100")

	return getJSON[[]Entry](ctx, c, "v2/entries.json", params)
}

// newGetRequest builds an authorized GET request for an API path.
func (c *Client) newGetRequest(ctx context.Context, path string, params url.Values) (*http.Request, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("feedbin: failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", c.credentials)
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// getJSON performs one authorized GET through the retry policy and decodes
// the response body into T.
func getJSON[T any](ctx context.Context, c *Client, path string, params url.Values) (T, error) {
	return retry.Do(ctx, c.retryCfg, func(ctx context.Context) (T, error) {
		var zero T

		req, err := c.newGetRequest(ctx, path, params)
		if err != nil {
			return zero, &retry.Permanent{Err: err}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return zero, fmt.Errorf("feedbin: request to %s failed: %w", path, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return zero, fmt.Errorf("feedbin: failed to read response from %s: %w", path, err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return zero, &retry.Permanent{Err: ErrUnauthorized}
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return zero, &StatusError{Code: resp.StatusCode, Body: string(body)}
		}

		var result T
		if err := json.Unmarshal(body, &result); err != nil {
			// A malformed body will not get better on retry.
			return zero, &retry.Permanent{Err: fmt.Errorf("feedbin: failed to decode response from %s: %w", path, err)}
		}
		return result, nil
	})
}

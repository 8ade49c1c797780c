package nexusapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hasura/go-graphql-client"
)

const (
	restBaseURL     = "https://api.nexusmods.com/v1"
	graphqlEndpoint = "https://api.nexusmods.com/v2/graphql"

	// minRequestInterval is a conservative floor well under Nexus's published
	// 30 req/s premium ceiling.
	minRequestInterval = 100 * time.Millisecond
)

// Client is a rate-limited, API-key-authenticated Nexus Mods client
// combining REST v1 (auth, download links, file info) and GraphQL v2
// (collection/mod metadata) over one underlying *http.Client.
type Client struct {
	http       *http.Client
	gql        *graphql.Client
	apiKey     string
	gameDomain string
	baseURL    string // overridable in tests; defaults to restBaseURL

	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient builds a Client. httpClient may be nil to use http.DefaultClient's
// settings; gameDomain is the Nexus domain slug (e.g. "skyrimspecialedition").
func NewClient(httpClient *http.Client, apiKey, gameDomain string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	authed := &http.Client{
		Transport: &apiKeyTransport{base: httpClient.Transport, apiKey: apiKey},
		Timeout:   httpClient.Timeout,
	}
	return &Client{
		http:       authed,
		gql:        graphql.NewClient(graphqlEndpoint, authed),
		apiKey:     apiKey,
		gameDomain: gameDomain,
		baseURL:    restBaseURL,
	}
}

type apiKeyTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.apiKey != "" {
		req.Header.Set("apikey", t.apiKey)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// waitRateLimit blocks until at least minRequestInterval has elapsed since
// the previous REST or GraphQL call issued by this client.
func (c *Client) waitRateLimit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < minRequestInterval {
		time.Sleep(minRequestInterval - elapsed)
	}
	c.lastRequest = time.Now()
}

// restGetMaxAttempts and restGetRetryPause implement the per-GET retry
// policy: transient failures (timeout, DNS, connection reset, empty body)
// are retried up to 3 times total with a 2s pause between attempts. A 403
// is not transient and is returned at once, whatever its body.
const (
	restGetMaxAttempts = 3
	restGetRetryPause  = 2 * time.Second
)

func (c *Client) restGet(ctx context.Context, path string) ([]byte, int, error) {
	var (
		body       []byte
		statusCode int
		err        error
	)
	for attempt := 1; attempt <= restGetMaxAttempts; attempt++ {
		body, statusCode, err = c.restGetOnce(ctx, path)
		if err == nil && (statusCode == http.StatusForbidden || (statusCode < http.StatusInternalServerError && len(body) > 0)) {
			return body, statusCode, nil
		}
		if attempt == restGetMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, statusCode, ctx.Err()
		case <-time.After(restGetRetryPause):
		}
	}
	return body, statusCode, err
}

func (c *Client) restGetOnce(ctx context.Context, path string) ([]byte, int, error) {
	c.waitRateLimit()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// ValidateAPIKey confirms the API key and reports the account's premium status.
func (c *Client) ValidateAPIKey(ctx context.Context) (*ValidateResponse, error) {
	body, status, err := c.restGet(ctx, "/users/validate.json")
	if err != nil {
		return nil, fmt.Errorf("validating api key: %w", err)
	}
	if status != http.StatusOK || len(body) == 0 {
		return nil, fmt.Errorf("validating api key: http %d", status)
	}
	var v ValidateResponse
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("parsing validation response: %w", err)
	}
	return &v, nil
}

// IsAuthenticated is a convenience wrapper around ValidateAPIKey.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	_, err := c.ValidateAPIKey(ctx)
	return err == nil
}

// GetDownloadLinks resolves the CDN download URIs for a mod file. A 403
// response (free account, premium-gated file) is not an error: it yields an
// empty slice so the caller can fall back to the manual nxm:// flow.
func (c *Client) GetDownloadLinks(ctx context.Context, modID, fileID int) ([]DownloadLink, error) {
	path := fmt.Sprintf("/games/%s/mods/%d/files/%d/download_link.json", url.PathEscape(c.gameDomain), modID, fileID)
	body, status, err := c.restGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetching download links: %w", err)
	}
	if status == http.StatusForbidden {
		return nil, nil
	}
	if status != http.StatusOK || len(body) == 0 {
		return nil, fmt.Errorf("fetching download links: http %d", status)
	}
	var links []DownloadLink
	if err := json.Unmarshal(body, &links); err != nil {
		return nil, fmt.Errorf("parsing download links: %w", err)
	}
	return links, nil
}

// GetDownloadLinksWithKey resolves a CDN download link using the one-time
// key/expires pair carried in an nxm:// link, the non-premium manual-download
// handoff: Nexus mints a time-limited key when the user clicks "download with
// manager" in the browser, and that key substitutes for premium status on
// this one request.
func (c *Client) GetDownloadLinksWithKey(ctx context.Context, modID, fileID int, key string, expires int64) ([]DownloadLink, error) {
	path := fmt.Sprintf("/games/%s/mods/%d/files/%d/download_link.json?key=%s&expires=%d",
		url.PathEscape(c.gameDomain), modID, fileID, url.QueryEscape(key), expires)
	body, status, err := c.restGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetching download links: %w", err)
	}
	if status != http.StatusOK || len(body) == 0 {
		return nil, fmt.Errorf("fetching download links: http %d", status)
	}
	var links []DownloadLink
	if err := json.Unmarshal(body, &links); err != nil {
		return nil, fmt.Errorf("parsing download links: %w", err)
	}
	return links, nil
}

// GetFileInfo fetches metadata (filename, size, md5) for a single mod file.
func (c *Client) GetFileInfo(ctx context.Context, modID, fileID int) (*FileInfo, error) {
	path := fmt.Sprintf("/games/%s/mods/%d/files/%d.json", url.PathEscape(c.gameDomain), modID, fileID)
	body, status, err := c.restGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetching file info: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetching file info: http %d", status)
	}
	var info FileInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parsing file info: %w", err)
	}
	return &info, nil
}

// GetMod fetches mod metadata via GraphQL.
func (c *Client) GetMod(ctx context.Context, modID int) (*ModData, error) {
	c.waitRateLimit()
	var query struct {
		Mod ModData `graphql:"mod(gameId: $gameId, modId: $modId)"`
	}
	vars := map[string]interface{}{
		"gameId": graphql.String(c.gameDomain),
		"modId":  graphql.Int(modID),
	}
	if err := c.gql.Query(ctx, &query, vars); err != nil {
		return nil, fmt.Errorf("querying mod: %w", err)
	}
	return &query.Mod, nil
}

// GetLatestCollectionRevision queries the latest published revision of a
// collection by its slug, enough to resolve the collection.json download URL.
func (c *Client) GetLatestCollectionRevision(ctx context.Context, collectionSlug string) (*CollectionRevision, error) {
	c.waitRateLimit()
	var query struct {
		Collection struct {
			LatestPublishedRevision CollectionRevision `graphql:"latestPublishedRevision"`
		} `graphql:"collection(slug: $slug)"`
	}
	vars := map[string]interface{}{
		"slug": graphql.String(collectionSlug),
	}
	if err := c.gql.Query(ctx, &query, vars); err != nil {
		return nil, fmt.Errorf("querying collection revision: %w", err)
	}
	return &query.Collection.LatestPublishedRevision, nil
}

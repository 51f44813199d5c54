// Package research runs web research for todos through the Tavily search
// API and schedules it in the background.
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTavilyURL is the production Tavily API root.
const DefaultTavilyURL = "https://api.tavily.com"

// Hit is one search result as returned by Tavily.
type Hit struct {
	Title   *string  `json:"title"`
	URL     *string  `json:"url"`
	Content *string  `json:"content"`
	Score   *float64 `json:"score"`
}

// SearchResponse is the subset of the Tavily response we consume.
type SearchResponse struct {
	Answer  string `json:"answer"`
	Results []Hit  `json:"results"`
}

type searchRequest struct {
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeRawContent bool     `json:"include_raw_content"`
	MaxResults        int      `json:"max_results"`
	IncludeDomains    []string `json:"include_domains"`
	ExcludeDomains    []string `json:"exclude_domains"`
}

// Client calls the Tavily search endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	maxResults  int
	searchDepth string
	httpClient  *http.Client
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithMaxResults sets the result cap sent with each search.
func WithMaxResults(n int) ClientOption {
	return func(c *Client) { c.maxResults = n }
}

// WithSearchDepth sets the Tavily search depth ("basic" or "advanced").
func WithSearchDepth(depth string) ClientOption {
	return func(c *Client) { c.searchDepth = depth }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Tavily client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultTavilyURL,
		apiKey:      apiKey,
		maxResults:  5,
		searchDepth: "advanced",
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Search runs one query.
func (c *Client) Search(ctx context.Context, query string) (SearchResponse, error) {
	body, err := json.Marshal(searchRequest{
		Query:          query,
		SearchDepth:    c.searchDepth,
		IncludeAnswer:  true,
		MaxResults:     c.maxResults,
		IncludeDomains: []string{},
		ExcludeDomains: []string{},
	})
	if err != nil {
		return SearchResponse{}, fmt.Errorf("tavily: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return SearchResponse{}, fmt.Errorf("tavily: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("tavily: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return SearchResponse{}, &UpstreamError{Status: resp.StatusCode, Body: string(excerpt)}
	}

	var out SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SearchResponse{}, fmt.Errorf("tavily: decode response: %w", err)
	}
	return out, nil
}

// UpstreamError reports a non-200 response from Tavily.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Tavily API error: %d", e.Status)
}

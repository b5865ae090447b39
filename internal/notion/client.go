// Package notion pulls pages from the Notion API and feeds them through the
// note ingestion pipeline.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// APIBase is the Notion API origin.
	APIBase = "https://api.notion.com"
	// APIVersion is the Notion-Version header value.
	APIVersion = "2022-06-28"

	defaultTimeout = 30 * time.Second
)

// Client is a lightweight Notion API client.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API origin. Tests point it at a local server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Notion API client for the given integration token.
func NewClient(token string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("notion token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		token:      token,
		baseURL:    APIBase,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search returns all pages accessible to the integration, following
// pagination. Database objects in the result set are skipped.
func (c *Client) Search(ctx context.Context, query string) ([]Page, error) {
	var pages []Page
	cursor := ""

	for {
		req := SearchRequest{
			Query:       query,
			Filter:      &SearchFilter{Property: "object", Value: "page"},
			StartCursor: cursor,
			PageSize:    100, // Notion API maximum
		}

		var resp SearchResponse
		if err := c.do(ctx, http.MethodPost, "/v1/search", req, &resp); err != nil {
			return nil, fmt.Errorf("searching pages: %w", err)
		}

		for _, raw := range resp.Results {
			var probe struct {
				Object string `json:"object"`
			}
			if err := json.Unmarshal(raw, &probe); err != nil || probe.Object != "page" {
				continue
			}
			var page Page
			if err := json.Unmarshal(raw, &page); err != nil {
				c.logger.Warn("skipping unparseable search result", "error", err)
				continue
			}
			pages = append(pages, page)
		}

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	c.logger.Debug("notion search completed", "query", query, "pages", len(pages))
	return pages, nil
}

// BlockChildren returns all child blocks of a block (or page), following
// pagination and recursing into nested blocks. A nested fetch failure skips
// that subtree rather than failing the whole page.
func (c *Client) BlockChildren(ctx context.Context, blockID string) ([]Block, error) {
	var blocks []Block
	cursor := ""

	for {
		path := fmt.Sprintf("/v1/blocks/%s/children", blockID)
		if cursor != "" {
			path += "?start_cursor=" + cursor
		}

		var resp BlockChildrenResponse
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, fmt.Errorf("fetching block children: %w", err)
		}
		blocks = append(blocks, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	var flat []Block
	for _, b := range blocks {
		flat = append(flat, b)
		if b.HasChildren {
			children, err := c.BlockChildren(ctx, b.ID)
			if err != nil {
				c.logger.Warn("skipping nested blocks", "block_id", b.ID, "error", err)
				continue
			}
			flat = append(flat, children...)
		}
	}
	return flat, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", APIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notion API error (status %d): %s", resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response: %w", err)
		}
	}
	return nil
}

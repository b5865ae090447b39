// Package cms lists indexable entities from the course CMS over its REST
// listing API, in the paginated since-watermark shape the reindexer
// iterates.
package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/imagilearn/corpus/internal/ingest"
)

const defaultTimeout = 30 * time.Second

// Client fetches entity listings from the CMS. It implements ingest.Source.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a CMS listing client. token may be empty when the CMS
// listing API is unauthenticated (local development).
func NewClient(baseURL, token string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("cms base URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// pageDTO mirrors the CMS page listing payload.
type pageDTO struct {
	ID              string     `json:"id"`
	CourseTitle     string     `json:"course_title"`
	ChapterTitle    string     `json:"chapter_title"`
	SubchapterTitle string     `json:"subchapter_title"`
	Title           string     `json:"title"`
	Domain          string     `json:"domain"`
	Slug            string     `json:"slug"`
	Locale          string     `json:"locale"`
	Concepts        []string   `json:"concepts"`
	Published       bool       `json:"published"`
	Visible         bool       `json:"visible"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Blocks          []blockDTO `json:"blocks"`
}

type blockDTO struct {
	Kind     string `json:"kind"`
	HTML     string `json:"html"`
	Code     string `json:"code"`
	Language string `json:"language"`
	URL      string `json:"url"`
	Caption  string `json:"caption"`
}

type imagimodelDTO struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Domain          string    `json:"domain"`
	Concepts        []string  `json:"concepts"`
	MnemonicTags    []string  `json:"mnemonic_tags"`
	TechniqueTags   []string  `json:"technique_tags"`
	DescriptionHTML string    `json:"description_html"`
	ImageURL        string    `json:"image_url"`
	Visible         bool      `json:"visible"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type reflectionDTO struct {
	ID          string    `json:"id"`
	Domain      string    `json:"domain"`
	AuthorLabel string    `json:"author_label"`
	UserHash    string    `json:"user_hash"`
	PIILevel    string    `json:"pii_level"`
	Sentiment   string    `json:"sentiment"`
	Rating      int       `json:"rating"`
	Text        string    `json:"text"`
	Visible     bool      `json:"visible"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListPages returns one page of course pages updated since the watermark.
func (c *Client) ListPages(ctx context.Context, since time.Time, offset, limit int) ([]ingest.Page, error) {
	var payload struct {
		Pages []pageDTO `json:"pages"`
	}
	if err := c.list(ctx, "/api/rag/pages", since, offset, limit, &payload); err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}

	pages := make([]ingest.Page, len(payload.Pages))
	for i, p := range payload.Pages {
		blocks := make([]ingest.Block, len(p.Blocks))
		for j, b := range p.Blocks {
			blocks[j] = ingest.Block(b)
		}
		pages[i] = ingest.Page{
			ID:              p.ID,
			CourseTitle:     p.CourseTitle,
			ChapterTitle:    p.ChapterTitle,
			SubchapterTitle: p.SubchapterTitle,
			Title:           p.Title,
			Domain:          p.Domain,
			Slug:            p.Slug,
			Locale:          p.Locale,
			Concepts:        p.Concepts,
			Published:       p.Published,
			Visible:         p.Visible,
			UpdatedAt:       p.UpdatedAt,
			Blocks:          blocks,
		}
	}
	return pages, nil
}

// ListImagimodels returns one page of mnemonic models updated since the
// watermark.
func (c *Client) ListImagimodels(ctx context.Context, since time.Time, offset, limit int) ([]ingest.Imagimodel, error) {
	var payload struct {
		Imagimodels []imagimodelDTO `json:"imagimodels"`
	}
	if err := c.list(ctx, "/api/rag/imagimodels", since, offset, limit, &payload); err != nil {
		return nil, fmt.Errorf("listing imagimodels: %w", err)
	}

	models := make([]ingest.Imagimodel, len(payload.Imagimodels))
	for i, m := range payload.Imagimodels {
		models[i] = ingest.Imagimodel(m)
	}
	return models, nil
}

// ListReflections returns one page of reflections updated since the
// watermark.
func (c *Client) ListReflections(ctx context.Context, since time.Time, offset, limit int) ([]ingest.Reflection, error) {
	var payload struct {
		Reflections []reflectionDTO `json:"reflections"`
	}
	if err := c.list(ctx, "/api/rag/reflections", since, offset, limit, &payload); err != nil {
		return nil, fmt.Errorf("listing reflections: %w", err)
	}

	reflections := make([]ingest.Reflection, len(payload.Reflections))
	for i, r := range payload.Reflections {
		reflections[i] = ingest.Reflection(r)
	}
	return reflections, nil
}

func (c *Client) list(ctx context.Context, path string, since time.Time, offset, limit int, result any) error {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("closing response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

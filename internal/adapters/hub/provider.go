// Package hub implements ports.Provider against a dataset-hub rows API of the
// Hugging Face datasets-server shape: GET /rows?dataset=...&config=...&split=
// ...&offset=N&length=M returning a page of row objects. Rows stream lazily,
// one page at a time; memory use is one page regardless of dataset size.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/corey/mixdown/internal/ports"
)

// DefaultEndpoint is the public datasets-server rows API.
const DefaultEndpoint = "https://datasets-server.huggingface.co"

// pageSize is how many rows one request fetches. 100 is the server maximum.
const pageSize = 100

// Client implements ports.Provider over HTTP.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the rows API base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithToken sets the bearer token for gated datasets.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds each page request. A timed-out source surfaces as
// source_load_failed upstream, never a process abort.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient returns a hub provider.
func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rowsResponse mirrors the rows API payload. Each row wraps the record under
// a "row" key; everything else in the envelope is ignored.
type rowsResponse struct {
	Rows []struct {
		Row ports.RawRecord `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

// Open starts streaming one dataset split. The first page is fetched eagerly
// so that an unreachable or nonexistent dataset fails here, at the source
// boundary, rather than mid-iteration.
//
// trustRemoteCode is accepted for descriptor compatibility; the rows API
// serves pre-extracted rows, so no remote code ever runs in this process.
func (c *Client) Open(ctx context.Context, dataset, config, split string, trustRemoteCode bool) (ports.Source, error) {
	_ = trustRemoteCode
	if dataset == "" {
		return nil, fmt.Errorf("hub: empty dataset id")
	}
	if split == "" {
		split = "train"
	}
	if config == "" {
		config = "default"
	}
	src := &rowStream{client: c, ctx: ctx, dataset: dataset, config: config, split: split}
	if err := src.fetch(); err != nil {
		return nil, err
	}
	return src, nil
}

// rowStream is a lazy iterator over one dataset split.
type rowStream struct {
	client  *Client
	ctx     context.Context
	dataset string
	config  string
	split   string

	offset int
	total  int
	page   []ports.RawRecord
	done   bool
}

func (s *rowStream) fetch() error {
	u, err := url.Parse(s.client.endpoint + "/rows")
	if err != nil {
		return fmt.Errorf("hub: bad endpoint: %w", err)
	}
	q := u.Query()
	q.Set("dataset", s.dataset)
	q.Set("config", s.config)
	q.Set("split", s.split)
	q.Set("offset", fmt.Sprint(s.offset))
	q.Set("length", fmt.Sprint(pageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("hub: build request: %w", err)
	}
	if s.client.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.client.token)
	}

	resp, err := s.client.http.Do(req)
	if err != nil {
		return fmt.Errorf("hub: fetch %s: %w", s.dataset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("hub: fetch %s: status %d: %s", s.dataset, resp.StatusCode, body)
	}

	var page rowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return fmt.Errorf("hub: decode %s: %w", s.dataset, err)
	}

	s.page = s.page[:0]
	for _, r := range page.Rows {
		if r.Row != nil {
			s.page = append(s.page, r.Row)
		}
	}
	s.total = page.NumRowsTotal
	s.offset += len(page.Rows)
	if len(page.Rows) == 0 || (s.total > 0 && s.offset >= s.total) {
		s.done = true
	}
	return nil
}

// Next returns the next row, paging through the API as needed.
func (s *rowStream) Next() (ports.RawRecord, error) {
	for {
		if len(s.page) > 0 {
			raw := s.page[0]
			s.page = s.page[1:]
			return raw, nil
		}
		if s.done {
			return nil, io.EOF
		}
		if err := s.ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.fetch(); err != nil {
			return nil, err
		}
	}
}

// Close is a no-op; each page request owns its own connection.
func (s *rowStream) Close() error {
	return nil
}

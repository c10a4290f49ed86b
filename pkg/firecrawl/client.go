package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Default base URL for the Firecrawl v2 API.
const defaultBaseURL = "https://api.firecrawl.dev/v2"

// Client defines the Firecrawl scrape operation.
type Client interface {
	Scrape(ctx context.Context, req ScrapeRequest) (Result, error)
}

// ScrapeRequest is the body for POST /scrape.
type ScrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []Format `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	WaitFor         int      `json:"waitFor"`
	Timeout         int      `json:"timeout"`
}

// Result is the raw JSON document returned by POST /scrape. Its shape is
// controlled by Firecrawl and the requested formats, so it is kept untyped:
// any JSON value (object, array or scalar) with numbers as json.Number.
type Result = any

// FetchError is returned for every failed scrape: transport errors, non-2xx
// responses and undecodable bodies alike.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("firecrawl: HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("firecrawl: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// CallTimeout converts the scrape timeout budget (milliseconds) into the
// deadline applied to the HTTP exchange. It never drops below one second.
func CallTimeout(timeoutMs int) time.Duration {
	d := time.Duration(timeoutMs) * time.Millisecond
	if d < time.Second {
		return time.Second
	}
	return d
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Firecrawl client. Per-call deadlines come from the
// caller's context.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Scrape(ctx context.Context, req ScrapeRequest) (Result, error) {
	out, err := c.post(ctx, "/scrape", req)
	if err != nil {
		err.URL = req.URL
		return nil, err
	}
	return out, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any) (Result, *FetchError) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, &FetchError{Err: eris.Wrap(err, "marshal request")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, &FetchError{Err: eris.Wrap(err, "create request")}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req)
}

func (c *httpClient) do(req *http.Request) (Result, *FetchError) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Err: eris.Wrap(err, "execute request")}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Err: eris.Wrap(err, "read response body")}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
			Err:        eris.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	// UseNumber keeps large integers intact when the result is re-encoded.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out Result
	if err := dec.Decode(&out); err != nil {
		return nil, &FetchError{Err: eris.Wrap(err, "decode response")}
	}
	if out == nil {
		return nil, &FetchError{Err: eris.New("decode response: empty document")}
	}

	return out, nil
}

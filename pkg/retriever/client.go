package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Option configures the Client.
type Option interface {
	apply(*Client)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*Client)

func (f optionFunc) apply(c *Client) { f(c) }

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *Client) {
		c.apiKey = key
	})
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *Client) {
		c.httpClient = hc
	})
}

// WithTimeout sets the per-request timeout on the default HTTP client.
// Ignored when WithHTTPClient is also given.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *Client) {
		c.timeout = d
	})
}

// Client is the retriever API client.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o.apply(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// Retrieve runs hybrid retrieval for one query. A Count of 0 with a nil
// error means the query genuinely matched nothing.
func (c *Client) Retrieve(ctx context.Context, req RetrieveRequest) (*RetrieveResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("retriever: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/v1/retrieve", bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("retriever: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var resp RetrieveResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Explain traces a query through the retrieval pipeline without boosting.
func (c *Client) Explain(ctx context.Context, query string, k int, hint string) (*Explanation, error) {
	params := url.Values{}
	params.Set("query", query)
	if k > 0 {
		params.Set("k", strconv.Itoa(k))
	}
	if hint != "" {
		params.Set("hint", hint)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+"/v1/explain?"+params.Encode(), http.NoBody,
	)
	if err != nil {
		return nil, fmt.Errorf("retriever: build request: %w", err)
	}

	var exp Explanation
	if err := c.do(httpReq, &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

// Health reports component status. A degraded service returns the report
// along with the *APIError carrying status 503.
func (c *Client) Health(ctx context.Context) (*HealthReport, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("retriever: build request: %w", err)
	}

	var report HealthReport
	if err := c.do(httpReq, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("retriever: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return parseAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("retriever: decode response: %w", err)
	}
	return nil
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Stage   string `json:"stage"`
	}
	if json.NewDecoder(resp.Body).Decode(&body) == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		apiErr.Stage = body.Stage
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

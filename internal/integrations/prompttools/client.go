package prompttools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	DefaultBaseURL = "https://builder.empromptu.ai/api_tools"

	maxErrorBody    = 4096
	maxResponseBody = 1 << 20
)

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("prompttools: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client talks to the hosted prompt execution API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	source     CredentialSource

	credMu     sync.Mutex
	credLoaded bool
	creds      Credentials
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client. Credentials are resolved on the first call and
// reused for the lifetime of the process; a failed resolution is retried on
// the next call.
func NewClient(source CredentialSource, opts ...Option) (*Client, error) {
	if source == nil {
		return nil, errors.New("prompttools: credential source must not be nil")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		source:     source,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveCredentials(ctx context.Context) (Credentials, error) {
	c.credMu.Lock()
	defer c.credMu.Unlock()
	if c.credLoaded {
		return c.creds, nil
	}
	creds, err := c.source.Credentials(ctx)
	if err != nil {
		return Credentials{}, err
	}
	if err := creds.validate(); err != nil {
		return Credentials{}, err
	}
	c.creds = creds
	c.credLoaded = true
	return creds, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func endpointURL(baseURL, path string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/api_tools") {
		base += "/api_tools"
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

// StoreInput uploads values under req.CreatedObjectName. The response body
// is opaque and returned as text.
func (c *Client) StoreInput(ctx context.Context, req InputDataRequest) (string, error) {
	if strings.TrimSpace(req.CreatedObjectName) == "" {
		return "", errors.New("prompttools: created object name must not be empty")
	}
	if req.InputData == nil {
		req.InputData = []string{}
	}
	raw, err := c.postJSON(ctx, "input_data", req)
	if err != nil {
		return "", fmt.Errorf("prompttools: store input: %w", err)
	}
	return string(raw), nil
}

// ApplyPrompt runs a transformation that writes into req.CreatedObjectNames.
func (c *Client) ApplyPrompt(ctx context.Context, req ApplyPromptRequest) (string, error) {
	if len(req.CreatedObjectNames) == 0 {
		return "", errors.New("prompttools: at least one created object name is required")
	}
	if strings.TrimSpace(req.PromptString) == "" {
		return "", errors.New("prompttools: prompt string must not be empty")
	}
	if req.Inputs == nil {
		req.Inputs = []PromptInput{}
	}
	raw, err := c.postJSON(ctx, "apply_prompt", req)
	if err != nil {
		return "", fmt.Errorf("prompttools: apply prompt: %w", err)
	}
	return string(raw), nil
}

// ReturnData retrieves a derived object.
func (c *Client) ReturnData(ctx context.Context, req ReturnDataRequest) (ReturnDataResponse, error) {
	if strings.TrimSpace(req.ObjectName) == "" {
		return ReturnDataResponse{}, errors.New("prompttools: object name must not be empty")
	}
	raw, err := c.postJSON(ctx, "return_data", req)
	if err != nil {
		return ReturnDataResponse{}, fmt.Errorf("prompttools: return data: %w", err)
	}
	var out ReturnDataResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return ReturnDataResponse{}, fmt.Errorf("prompttools: decode return data response: %w", err)
	}
	return out, nil
}

// DeleteObject removes one stored object.
func (c *Client) DeleteObject(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("prompttools: object name must not be empty")
	}
	creds, err := c.resolveCredentials(ctx)
	if err != nil {
		return "", err
	}
	u := endpointURL(c.baseURL, "objects/"+url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return "", fmt.Errorf("prompttools: create request: %w", err)
	}
	setHeaders(req, creds)

	raw, err := c.doRequest(req, u)
	if err != nil {
		return "", fmt.Errorf("prompttools: delete object: %w", err)
	}
	return string(raw), nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	creds, err := c.resolveCredentials(ctx)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	u := endpointURL(c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	setHeaders(req, creds)

	return c.doRequest(req, u)
}

func setHeaders(req *http.Request, creds Credentials) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.Token)
	req.Header.Set("X-Generated-App-ID", creds.AppID)
	req.Header.Set("X-Usage-Key", creds.UsageKey)
}

func (c *Client) doRequest(req *http.Request, url string) ([]byte, error) {
	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

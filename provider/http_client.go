package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClientConfig configures a gateway HTTP client.
type HTTPClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	Username       string // basic auth, when the gateway API requires it
	Password       string
	DefaultHeaders map[string]string
}

// HTTPRequest is a standardized outbound gateway request.
type HTTPRequest struct {
	Method      string
	Endpoint    string
	Headers     map[string]string
	FormData    FieldSet
	RawBody     []byte
	QueryParams map[string]string
}

// HTTPResponse is a standardized gateway response.
type HTTPResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// GatewayHTTPClient provides form/NVP/XML transport for gateway API calls.
// Network and protocol failures are returned as errors for the caller to
// convert into a typed Failure; no retry is performed here.
type GatewayHTTPClient struct {
	config *HTTPClientConfig
	client *http.Client
}

// NewGatewayHTTPClient creates a gateway HTTP client with an explicit
// timeout so a hung gateway cannot stall callback processing.
func NewGatewayHTTPClient(config *HTTPClientConfig) *GatewayHTTPClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &GatewayHTTPClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// SendForm posts the field set form-encoded and returns the raw response.
func (c *GatewayHTTPClient) SendForm(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	form := url.Values{}
	for key, value := range req.FormData {
		form.Set(key, value)
	}
	return c.send(ctx, req, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

// SendRaw posts a raw body and returns the raw response.
func (c *GatewayHTTPClient) SendRaw(ctx context.Context, req *HTTPRequest, contentType string) (*HTTPResponse, error) {
	var body io.Reader
	if len(req.RawBody) > 0 {
		body = bytes.NewReader(req.RawBody)
	}
	return c.send(ctx, req, contentType, body)
}

func (c *GatewayHTTPClient) send(ctx context.Context, req *HTTPRequest, contentType string, body io.Reader) (*HTTPResponse, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(req.Endpoint, req.QueryParams), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.config.Username != "" {
		httpReq.SetBasicAuth(c.config.Username, c.config.Password)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	response := &HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return response, fmt.Errorf("gateway returned HTTP %d", resp.StatusCode)
	}

	return response, nil
}

func joinURL(base, endpoint string) string {
	if strings.HasSuffix(base, "/") && strings.HasPrefix(endpoint, "/") {
		return base + endpoint[1:]
	}
	if !strings.HasSuffix(base, "/") && !strings.HasPrefix(endpoint, "/") {
		return base + "/" + endpoint
	}
	return base + endpoint
}

// buildURL constructs the full URL with query parameters.
func (c *GatewayHTTPClient) buildURL(endpoint string, queryParams map[string]string) string {
	fullURL := endpoint
	if !strings.HasPrefix(endpoint, "http") {
		fullURL = joinURL(c.config.BaseURL, endpoint)
	}

	if len(queryParams) == 0 {
		return fullURL
	}

	u, err := url.Parse(fullURL)
	if err != nil {
		return fullURL
	}
	q := u.Query()
	for key, value := range queryParams {
		q.Set(key, value)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ParseNVP decodes a name-value-pair body ("k=v&k2=v2", URL-encoded values)
// into a field set. Pairs without '=' are skipped.
func ParseNVP(body []byte) (FieldSet, error) {
	fields := make(FieldSet)
	for _, pair := range strings.Split(string(body), "&") {
		if pair == "" {
			continue
		}
		key, rawValue, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("decode NVP value for %q: %w", key, err)
		}
		fields[key] = value
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty NVP response")
	}
	return fields, nil
}

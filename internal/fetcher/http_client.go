// Package fetcher performs the crawler's HTTP GET requests.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptrace"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultTimeout bounds a single page request.
const DefaultTimeout = 10 * time.Second

// maxBodySize caps how much of a response body is read into memory.
const maxBodySize = 10 << 20

// HTTPClient issues GET requests with an identifying User-Agent.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// Metrics contains timing information for one request.
type Metrics struct {
	TTFB         time.Duration // Time to First Byte
	DownloadTime time.Duration // Total time until the body was read
}

// Response is a fetched page. Body is decoded to UTF-8 when the
// Content-Type or the document itself declares another charset.
type Response struct {
	URL         string
	FinalURL    string // After following redirects
	StatusCode  int
	ContentType string
	Body        []byte
	Truncated   bool // Body was cut at the size cap
	Metrics     Metrics
}

// NewHTTPClient creates a new HTTP client
func NewHTTPClient(userAgent string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &HTTPClient{
		client:    client,
		userAgent: userAgent,
		maxBody:   maxBodySize,
	}
}

// UserAgent returns the User-Agent header sent with every request.
func (h *HTTPClient) UserAgent() string {
	return h.userAgent
}

// Get performs an HTTP GET and returns the response whatever its status.
// Only transport and body read failures are reported as *FetchError.
func (h *HTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: KindNetwork, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	var firstByteTime time.Time
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			firstByteTime = time.Now()
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	startTime := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: classify(err), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var metrics Metrics
	if !firstByteTime.IsZero() {
		metrics.TTFB = firstByteTime.Sub(startTime)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody+1))
	if err != nil {
		return nil, &FetchError{URL: url, Kind: classify(err), StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	truncated := int64(len(raw)) > h.maxBody
	if truncated {
		raw = raw[:h.maxBody]
		slog.Warn("Response body truncated", "url", url, "limit", h.maxBody)
	}
	metrics.DownloadTime = time.Since(startTime)

	contentType := resp.Header.Get("Content-Type")

	return &Response{
		URL:         url,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        decodeBody(raw, contentType),
		Truncated:   truncated,
		Metrics:     metrics,
	}, nil
}

// Fetch is Get with non-2xx statuses turned into a *FetchError of kind
// KindStatus. The response is still returned alongside that error.
func (h *HTTPClient) Fetch(ctx context.Context, url string) (*Response, error) {
	resp, err := h.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, &FetchError{URL: url, Kind: KindStatus, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// Close closes the HTTP client
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
}

// decodeBody converts raw to UTF-8. Undecodable input is returned unchanged.
func decodeBody(raw []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return raw
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return raw
	}
	return decoded
}

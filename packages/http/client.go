package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"
)

const (
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// Client dispatches exchanges. By default it has no timeout: a hung target
// blocks the send until the caller's context is done.
type Client struct {
	httpClient     *http.Client
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	proxyURL       string
	baseURL        *neturl.URL
	defaultHeaders Headers
	now            func() time.Time
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}

	if !c.validateSSL {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	if c.proxyURL != "" {
		proxyURL, err := neturl.Parse(c.proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !c.followRedirect {
			return http.ErrUseLastResponse
		}
		if len(via) >= c.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	c.httpClient = &http.Client{
		Transport:     transport,
		Timeout:       c.timeout,
		CheckRedirect: redirectPolicy,
	}

	return c
}

// WithTimeout bounds each exchange. Zero means no timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		if max > 0 {
			c.maxRedirects = max
		}
	}
}

// WithDefaultHeaders adds headers sent when the exchange does not set them.
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.defaultHeaders = append(c.defaultHeaders, Header{Key: k, Value: v})
		}
	}
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithBaseURL sets the origin that path-only URLs are resolved against,
// normally the development proxy.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		if base == "" {
			return
		}
		if u, err := neturl.Parse(base); err == nil {
			c.baseURL = u
		}
	}
}

// WithClock replaces the clock used for latency measurement.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// Outcome is the raw result of a dispatch: either a received response or a
// transport error. HTTP error statuses are responses, not errors.
type Outcome struct {
	StatusCode   int
	Status       string
	Header       http.Header
	Body         []byte
	Uncompressed bool
	Elapsed      time.Duration
	Err          error
}

// Dispatch performs the exchange. The elapsed time covers sending the request
// and reading the whole body. Failures are never retried.
func (c *Client) Dispatch(ctx context.Context, ex *Exchange) *Outcome {
	target, err := c.resolveURL(ex.URL)
	if err != nil {
		return &Outcome{Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, ex.Method, target, ex.BodyReader())
	if err != nil {
		return &Outcome{Err: err}
	}

	for _, h := range ex.Headers {
		httpReq.Header.Add(h.Key, h.Value)
	}
	for _, h := range c.defaultHeaders {
		if httpReq.Header.Get(h.Key) == "" {
			httpReq.Header.Set(h.Key, h.Value)
		}
	}

	start := c.now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &Outcome{Err: err, Elapsed: c.now().Sub(start)}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	end := c.now()
	if err != nil {
		return &Outcome{Err: fmt.Errorf("reading response body: %w", err), Elapsed: end.Sub(start)}
	}

	return &Outcome{
		StatusCode:   httpResp.StatusCode,
		Status:       httpResp.Status,
		Header:       httpResp.Header,
		Body:         respBody,
		Uncompressed: httpResp.Uncompressed,
		Elapsed:      end.Sub(start),
	}
}

// Execute dispatches and normalizes in one step.
func (c *Client) Execute(ctx context.Context, ex *Exchange) Result {
	return Normalize(c.Dispatch(ctx, ex))
}

func (c *Client) resolveURL(rawURL string) (string, error) {
	if strings.HasPrefix(rawURL, "/") && !strings.HasPrefix(rawURL, "//") {
		if c.baseURL == nil {
			return "", fmt.Errorf("invalid URL: %q is relative and no base URL is configured", rawURL)
		}
		ref, err := neturl.Parse(rawURL)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %v", err)
		}
		rawURL = c.baseURL.ResolveReference(ref).String()
	}
	if err := ValidateURL(rawURL); err != nil {
		return "", err
	}
	return rawURL, nil
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q (only http and https are allowed)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}

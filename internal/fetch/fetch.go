// Package fetch is the transport boundary of the extraction pipeline: it
// downloads pages, API JSON, and streaming manifests on behalf of the site
// extractors. Responses to idempotent GET requests are retried with backoff
// and optionally cached; POST requests (login) are performed exactly once.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/naglis/mediaresolver/internal/cache"
	"github.com/naglis/mediaresolver/internal/config"
)

// Options carries per-request overrides. A nil *Options is valid.
type Options struct {
	// Headers are set on the request. A User-Agent entry overrides the
	// configured default.
	Headers map[string]string

	// Query is appended to the URL's query string.
	Query url.Values
}

// Fetcher is the page/API fetching collaborator used by site extractors.
type Fetcher interface {
	// GetBytes performs a GET and returns the raw response body.
	GetBytes(ctx context.Context, rawURL string, opts *Options) ([]byte, error)

	// GetJSON performs a GET and decodes the JSON response body into out.
	GetJSON(ctx context.Context, rawURL string, opts *Options, out any) error

	// GetPage performs a GET and returns the body converted to UTF-8,
	// honoring the document's declared character encoding.
	GetPage(ctx context.Context, rawURL string, opts *Options) ([]byte, error)

	// PostJSON performs a single POST with a JSON body and decodes the JSON
	// response into out (when out is non-nil). Never retried.
	PostJSON(ctx context.Context, rawURL string, body any, opts *Options, out any) error

	// Close releases any resources held by the fetcher (e.g., cache connections).
	Close() error
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

type fetcher struct {
	httpClient *http.Client
	userAgent  string
	cache      cache.Cache
	retry      retrypolicy.RetryPolicy[[]byte]
}

// cacheLogger adapts zerolog to the cache.Logger interface.
type cacheLogger struct{}

func (cacheLogger) Error(msg string, err error) {
	logger := config.GetLogger()
	logger.Error().Err(err).Msg(msg)
}

// NewFetcher creates a Fetcher from config: timeout and optional proxy on a
// cloned default transport, transparent response decompression, a bounded
// retry policy for GETs, and an optional page cache ("memory" or "redis"
// provider; empty provider disables caching).
func NewFetcher(cfg *config.Config) (Fetcher, error) {
	logger := config.GetLogger()

	timeout := 30 * time.Second // default
	if cfg.ClientTimeout != "" {
		if parsedTimeout, err := time.ParseDuration(cfg.ClientTimeout); err != nil {
			logger.Warn().Err(err).Str("timeout", cfg.ClientTimeout).Msg("Invalid timeout duration, using default 30s")
		} else {
			timeout = parsedTimeout
		}
	}

	// Clone DefaultTransport to preserve all its settings (timeouts, connection pooling, HTTP/2, etc.)
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.ProxyConnectionString != "" {
		proxyURL, err := url.Parse(cfg.ProxyConnectionString)
		if err != nil {
			logger.Warn().Err(err).Str("proxy", cfg.ProxyConnectionString).Msg("Invalid proxy URL, continuing without proxy")
		} else {
			baseTransport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: newCompressionTransport(baseTransport),
	}

	var pageCache cache.Cache
	if cfg.Cache.Provider != "" {
		ttl := time.Hour
		if parsed, err := time.ParseDuration(cfg.Cache.TTL); err == nil {
			ttl = parsed
		}
		c, err := cache.New(cfg.Cache.Provider, cache.ProviderConfig{
			Size:          cfg.Cache.Size,
			TTL:           ttl,
			Logger:        cacheLogger{},
			RedisAddress:  cfg.Cache.Redis.Address,
			RedisPassword: cfg.Cache.Redis.Password,
			RedisDB:       cfg.Cache.Redis.DB,
			Group:         "fetch",
		})
		if err != nil {
			return nil, fmt.Errorf("create page cache: %w", err)
		}
		pageCache = c
	}

	return &fetcher{
		httpClient: httpClient,
		userAgent:  cfg.UserAgent,
		cache:      pageCache,
		retry:      buildRetryPolicy(cfg),
	}, nil
}

func buildRetryPolicy(cfg *config.Config) retrypolicy.RetryPolicy[[]byte] {
	delay := 500 * time.Millisecond
	if parsed, err := time.ParseDuration(cfg.Retry.Delay); err == nil && parsed > 0 {
		delay = parsed
	}
	maxDelay := 5 * time.Second
	if parsed, err := time.ParseDuration(cfg.Retry.MaxDelay); err == nil && parsed > 0 {
		maxDelay = parsed
	}
	maxRetries := cfg.Retry.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}

	return retrypolicy.NewBuilder[[]byte]().
		HandleIf(retryableError).
		WithBackoff(delay, maxDelay).
		WithMaxRetries(maxRetries).
		Build()
}

// retryableError limits retries to transport failures and server errors.
// 4xx responses are deterministic and are returned on the first attempt.
func retryableError(_ []byte, err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func (f *fetcher) Close() error {
	if f.cache != nil {
		return f.cache.Close()
	}
	return nil
}

// buildURL appends opts.Query to rawURL.
func buildURL(rawURL string, opts *Options) (string, error) {
	if opts == nil || len(opts.Query) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	q := u.Query()
	for key, values := range opts.Query {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *fetcher) applyHeaders(req *http.Request, opts *Options) {
	userAgent := f.userAgent
	if userAgent == "" {
		userAgent = config.GetUserAgent()
	}
	req.Header.Set("User-Agent", userAgent)
	if opts != nil {
		for k, v := range opts.Headers {
			req.Header.Set(k, v)
		}
	}
}

// cacheable reports whether a GET response for these options may be stored.
// Authenticated responses are never cached: tokens are per-operator and the
// body may embed entitlements.
func cacheable(opts *Options) bool {
	if opts == nil {
		return true
	}
	_, hasAuth := opts.Headers["Authorization"]
	return !hasAuth
}

func (f *fetcher) GetBytes(ctx context.Context, rawURL string, opts *Options) ([]byte, error) {
	logger := config.GetLogger()

	fullURL, err := buildURL(rawURL, opts)
	if err != nil {
		return nil, err
	}

	useCache := f.cache != nil && cacheable(opts)
	cacheKey := "GET " + fullURL
	if useCache {
		if body, ok := f.cache.Get(cacheKey); ok {
			logger.Debug().Str("url", fullURL).Msg("Serving response from cache")
			return body, nil
		}
	}

	executor := failsafe.With[[]byte](f.retry).WithContext(ctx)
	body, err := executor.Get(func() ([]byte, error) {
		return f.doGet(ctx, fullURL, opts)
	})
	if err != nil {
		return nil, err
	}

	if useCache {
		f.cache.Set(cacheKey, body)
	}
	return body, nil
}

func (f *fetcher) doGet(ctx context.Context, fullURL string, opts *Options) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	f.applyHeaders(req, opts)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: fullURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (f *fetcher) GetJSON(ctx context.Context, rawURL string, opts *Options, out any) error {
	body, err := f.GetBytes(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode JSON from %s: %w", rawURL, err)
	}
	return nil
}

func (f *fetcher) GetPage(ctx context.Context, rawURL string, opts *Options) ([]byte, error) {
	body, err := f.GetBytes(ctx, rawURL, opts)
	if err != nil {
		return nil, err
	}

	reader, err := NewUTF8Reader(bytes.NewReader(body))
	if err != nil {
		// Undetectable encoding; hand back the raw bytes.
		return body, nil
	}
	converted, err := io.ReadAll(reader)
	if err != nil {
		return body, nil
	}
	return converted, nil
}

func (f *fetcher) PostJSON(ctx context.Context, rawURL string, body any, opts *Options, out any) error {
	fullURL, err := buildURL(rawURL, opts)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	f.applyHeaders(req, opts)
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{URL: fullURL, StatusCode: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode JSON from %s: %w", rawURL, err)
	}
	return nil
}

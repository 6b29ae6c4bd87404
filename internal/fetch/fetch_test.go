package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/naglis/mediaresolver/internal/config"
)

func newTestFetcher(t *testing.T, cfg *config.Config) Fetcher {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	f, err := NewFetcher(cfg)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("isbn"); got != "9781250761170" {
			t.Errorf("query isbn = %q, want 9781250761170", got)
		}
		if got := r.Header.Get("X-Custom"); got != "yes" {
			t.Errorf("X-Custom header = %q, want yes", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title": "The Design"}`))
	}))
	defer server.Close()

	f := newTestFetcher(t, nil)

	var out struct {
		Title string `json:"title"`
	}
	err := f.GetJSON(context.Background(), server.URL, &Options{
		Headers: map[string]string{"X-Custom": "yes"},
		Query:   url.Values{"isbn": []string{"9781250761170"}},
	}, &out)
	if err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Title != "The Design" {
		t.Errorf("title = %q, want %q", out.Title, "The Design")
	}
}

func TestGetBytes_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := newTestFetcher(t, nil)

	_, err := f.GetBytes(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", statusErr.StatusCode)
	}
}

func TestGetBytes_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Retry.MaxRetries = 2
	cfg.Retry.Delay = "1ms"
	cfg.Retry.MaxDelay = "2ms"
	f := newTestFetcher(t, cfg)

	body, err := f.GetBytes(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("GetBytes after retries: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

func TestGetBytes_ClientErrorsNotRetried(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Retry.MaxRetries = 2
	cfg.Retry.Delay = "1ms"
	cfg.Retry.MaxDelay = "2ms"
	f := newTestFetcher(t, cfg)

	_, err := f.GetBytes(context.Background(), server.URL, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1 (4xx responses are deterministic)", got)
	}
}

func TestGetBytes_GzipDecompression(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte("compressed payload"))
		_ = gz.Close()
	}))
	defer server.Close()

	f := newTestFetcher(t, nil)

	body, err := f.GetBytes(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	if string(body) != "compressed payload" {
		t.Errorf("body = %q, want decompressed payload", body)
	}
}

func TestGetBytes_CachesResponses(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("cached body"))
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Cache.Provider = "memory"
	cfg.Cache.Size = 8
	cfg.Cache.TTL = "1m"
	f := newTestFetcher(t, cfg)

	for i := 0; i < 3; i++ {
		body, err := f.GetBytes(context.Background(), server.URL, nil)
		if err != nil {
			t.Fatalf("GetBytes #%d: %v", i, err)
		}
		if string(body) != "cached body" {
			t.Errorf("body = %q, want cached body", body)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1 (later requests served from cache)", got)
	}
}

func TestGetBytes_AuthenticatedRequestsNotCached(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("private"))
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Cache.Provider = "memory"
	cfg.Cache.Size = 8
	cfg.Cache.TTL = "1m"
	f := newTestFetcher(t, cfg)

	opts := &Options{Headers: map[string]string{"Authorization": "Bearer token"}}
	for i := 0; i < 2; i++ {
		if _, err := f.GetBytes(context.Background(), server.URL, opts); err != nil {
			t.Fatalf("GetBytes #%d: %v", i, err)
		}
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("server calls = %d, want 2 (authenticated responses must not be cached)", got)
	}
}

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}
		_, _ = w.Write([]byte(`{"access_token": "tok-1"}`))
	}))
	defer server.Close()

	f := newTestFetcher(t, nil)

	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := f.PostJSON(context.Background(), server.URL, map[string]string{
		"grant_type": "password",
	}, nil, &out)
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if out.AccessToken != "tok-1" {
		t.Errorf("access_token = %q, want tok-1", out.AccessToken)
	}
}

func TestGetPage_ConvertsCharset(t *testing.T) {
	// "Pesäpallo" in ISO-8859-1: 0xE4 for ä.
	latin1 := []byte("<html><head><meta charset=\"iso-8859-1\"></head><body>Pes\xe4pallo</body></html>")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(latin1)
	}))
	defer server.Close()

	f := newTestFetcher(t, nil)

	page, err := f.GetPage(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if want := "Pesäpallo"; !strings.Contains(string(page), want) {
		t.Errorf("page does not contain %q after charset conversion", want)
	}
}

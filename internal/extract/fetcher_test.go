package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testPageBody = "<html><body>Test content</body></html>"

func TestFetcherFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("User-Agent header not set")
		}

		w.WriteHeader(http.StatusOK)

		if _, err := w.Write([]byte(testPageBody)); err != nil {
			t.Errorf("write response body: %v", err)
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(10, 5*time.Second)

	body, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, testPageBody, string(body))
}

func TestFetcherFetchBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(10, 5*time.Second)

	_, err := fetcher.Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrHTTPStatus)
}

func TestFetcherFetchCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fetcher := NewFetcher(10, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetcher.Fetch(ctx, server.URL)
	require.Error(t, err)
}

func TestFetcherRedirectLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/next", http.StatusFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(10, 5*time.Second)

	_, err := fetcher.Fetch(context.Background(), server.URL)
	require.Error(t, err)
}

func TestFetcherDomainLimiterReuse(t *testing.T) {
	fetcher := NewFetcher(1, time.Second)

	first := fetcher.domainLimiter("example.com")
	require.NotNil(t, first)
	require.Same(t, first, fetcher.domainLimiter("example.com"))
	require.NotSame(t, first, fetcher.domainLimiter("other.com"))
}

func TestFetcherExtractDomain(t *testing.T) {
	fetcher := NewFetcher(1, time.Second)

	tests := []struct {
		name   string
		rawURL string
		want   string
	}{
		{name: "simple domain", rawURL: "https://example.com/page", want: "example.com"},
		{name: "subdomain", rawURL: "https://api.example.com/v1", want: "api.example.com"},
		{name: "uppercase normalized", rawURL: "https://EXAMPLE.COM/page", want: "example.com"},
		{name: "empty URL", rawURL: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fetcher.extractDomain(tt.rawURL); got != tt.want {
				t.Errorf("extractDomain(%q) = %q, want %q", tt.rawURL, got, tt.want)
			}
		})
	}
}

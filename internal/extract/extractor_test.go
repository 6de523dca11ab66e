package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const articlePage = `<html>
<head><title>Sodium battery milestone</title></head>
<body>
<article>
<h1>Sodium battery milestone</h1>
<p>The research team announced on Monday that the new battery design, which relies on abundant sodium rather than lithium, survived more than four thousand charge cycles in laboratory testing without measurable degradation.</p>
<p>Industry analysts, who have watched the project since its early days, said the results could reshape how utilities plan grid storage, because sodium cells cost a fraction of their lithium counterparts and tolerate deeper discharge.</p>
<p>The company expects to open a pilot production line next year, and several grid operators have already signed letters of intent, although regulators must still certify the cells for stationary storage before commercial deployment.</p>
</article>
</body>
</html>`

const selectorsOnlyPage = `<html>
<head><title>Spartans win</title></head>
<body>
<div class="article-content"><span>The Spartans defeated their rivals in overtime on Saturday, sealing the division title with a late three-point shot that silenced the visiting crowd and set off celebrations across the city center.</span></div>
</body>
</html>`

func newTestExtractor() *Extractor {
	return NewExtractor(NewFetcher(100, 5*time.Second), 5*time.Second, nil)
}

func TestExtractorExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(articlePage))
	}))
	defer server.Close()

	result := newTestExtractor().Extract(context.Background(), server.URL)

	require.True(t, result.Success)
	require.NoError(t, result.Err)
	require.Equal(t, MethodReadability, result.Method)
	require.Greater(t, len(result.Text), minContentLength)
	require.Contains(t, result.Text, "sodium")
}

func TestExtractorFallsBackToSelectors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(selectorsOnlyPage))
	}))
	defer server.Close()

	result := newTestExtractor().Extract(context.Background(), server.URL)

	require.True(t, result.Success)
	require.Equal(t, MethodSelectors, result.Method)
	require.Contains(t, result.Text, "Spartans defeated")
}

func TestExtractorRejectsBadURLs(t *testing.T) {
	extractor := newTestExtractor()

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{name: "empty URL", url: "", wantErr: ErrInvalidURL},
		{name: "non-http scheme", url: "ftp://example.com/file", wantErr: ErrInvalidURL},
		{name: "blocked domain", url: "https://www.facebook.com/post/1", wantErr: ErrBlockedDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractor.Extract(context.Background(), tt.url)

			require.False(t, result.Success)
			require.ErrorIs(t, result.Err, tt.wantErr)
		})
	}
}

func TestExtractorFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	result := newTestExtractor().Extract(context.Background(), server.URL)

	require.False(t, result.Success)
	require.ErrorIs(t, result.Err, ErrHTTPStatus)
}

func TestExtractMetadata(t *testing.T) {
	page := `<html>
<head>
<title>Fallback Title</title>
<meta name="description" content="A short description of the story.">
<meta property="og:title" content="Open Graph Title">
<meta property="og:description" content="A longer open graph description.">
</head>
<body>
<p>First paragraph of visible text.</p>
<p>Second paragraph of visible text.</p>
<script>var tracking = true;</script>
</body>
</html>`

	extractor := newTestExtractor()

	text, title, err := extractor.extractMetadata([]byte(page), nil)
	require.NoError(t, err)
	require.Equal(t, "Open Graph Title", title)
	require.Contains(t, text, "A short description of the story.")
	require.Contains(t, text, "First paragraph of visible text.")
	require.NotContains(t, text, "tracking")
}

func TestExtractSelectorsFullPageFallback(t *testing.T) {
	page := `<html>
<head><title>Plain Page</title></head>
<body>
<span>There is no article container on this page, only loose inline text that still runs well past the one hundred character threshold used by the extraction chain.</span>
</body>
</html>`

	extractor := newTestExtractor()

	text, title, err := extractor.extractSelectors([]byte(page), nil)
	require.NoError(t, err)
	require.Equal(t, "Plain Page", title)
	require.Contains(t, text, "no article container")
}

func TestExtractable(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "empty", url: "", want: false},
		{name: "no scheme", url: "example.com/story", want: false},
		{name: "non-http", url: "ftp://example.com/story", want: false},
		{name: "blocked social domain", url: "https://twitter.com/user/status/1", want: false},
		{name: "blocked subdomain", url: "https://m.youtube.com/watch", want: false},
		{name: "regular news site", url: "https://news.example.com/story", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extractable(tt.url); got != tt.want {
				t.Errorf("Extractable(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	got := normalizeWhitespace("  line one\n\t line\ttwo  ")
	require.Equal(t, "line one line two", got)

	require.Equal(t, "", normalizeWhitespace("   \n\t "))
}

func TestExtractorStrategyTimeout(t *testing.T) {
	extractor := NewExtractor(NewFetcher(100, 5*time.Second), time.Nanosecond, nil)

	slow := func([]byte, *url.URL) (string, string, error) {
		time.Sleep(50 * time.Millisecond)
		return strings.Repeat("x", 200), "", nil
	}

	_, _, err := extractor.runStrategy(context.Background(), slow, nil, nil)
	require.Error(t, err)
}

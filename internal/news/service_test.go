package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"newsagent/internal/cache"
	"newsagent/internal/extract"
	"newsagent/internal/model"
)

const solarPage = `<!DOCTYPE html>
<html>
<head><title>Perovskite solar cells hit new record</title></head>
<body>
<article>
<p>Researchers at the national laboratory said the new perovskite solar cell
design converted just over thirty one percent of captured sunlight into
electricity, a figure that edges past the long standing ceiling for single
junction silicon panels and marks the third record this year.</p>
<p>The team layered a thin perovskite film on top of a conventional silicon
wafer so each material harvests a different slice of the spectrum. Stability
remains the hard problem, and the group reported the tandem cell kept ninety
five percent of its output after a thousand hours of continuous
illumination.</p>
<p>Manufacturing partners are already scaling the coating process to full
size panels, and the laboratory expects pilot production lines to deliver
the first commercial modules within two years if durability testing stays
on track through the winter trials.</p>
</article>
</body>
</html>`

type stubProvider struct {
	name          ProviderName
	articles      []model.Article
	err           error
	available     bool
	searchCalls   int
	headlineCalls int
}

func (p *stubProvider) Name() ProviderName { return p.name }

func (p *stubProvider) Search(_ context.Context, _ Query) ([]model.Article, error) {
	p.searchCalls++

	return p.articles, p.err
}

func (p *stubProvider) Headlines(_ context.Context, _ string, _ int) ([]model.Article, error) {
	p.headlineCalls++

	return p.articles, p.err
}

func (p *stubProvider) IsAvailable() bool { return p.available }

func newTestService(t *testing.T, provider Provider, extractor *extract.Extractor, cfg Config) *Service {
	t.Helper()

	store, err := cache.Open(filepath.Join(t.TempDir(), "news.db"), nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	registry := NewRegistry()
	registry.Register(provider)

	return NewService(registry, store, extractor, cfg, nil)
}

func TestServiceSearchRanksByRelevance(t *testing.T) {
	provider := &stubProvider{
		name:      ProviderNewsAPI,
		available: true,
		articles: []model.Article{
			{URL: "https://example.com/a", Title: "Climate change accelerating", Description: "Climate change is accelerating"},
			{URL: "https://example.com/b", Title: "Local sports roundup", Description: "The match ended in a draw"},
			{URL: "https://example.com/c", Title: "Policy update", Description: "New climate rules announced"},
		},
	}

	svc := newTestService(t, provider, nil, Config{})

	out := svc.Search(context.Background(), "climate change", "en", 10)

	require.Len(t, out, 3)
	require.Equal(t, "Climate change accelerating", out[0].Title)
	require.Equal(t, "Policy update", out[1].Title)
	require.Equal(t, "Local sports roundup", out[2].Title)

	require.InDelta(t, 1.0, out[0].RelevanceScore, 0.001)
	require.GreaterOrEqual(t, out[0].RelevanceScore, out[1].RelevanceScore)
	require.GreaterOrEqual(t, out[1].RelevanceScore, out[2].RelevanceScore)
}

func TestServiceSearchServesFromCache(t *testing.T) {
	provider := &stubProvider{
		name:      ProviderNewsAPI,
		available: true,
		articles: []model.Article{
			{URL: "https://example.com/go", Title: "Go release", Description: "New Go version released"},
		},
	}

	svc := newTestService(t, provider, nil, Config{})

	first := svc.Search(context.Background(), "go", "en", 5)
	require.Len(t, first, 1)
	require.False(t, first[0].Cached)

	provider.err = errors.New("provider down")

	second := svc.Search(context.Background(), "go", "en", 5)
	require.Len(t, second, 1)
	require.True(t, second[0].Cached)
	require.Equal(t, first[0].URL, second[0].URL)
	require.Equal(t, 1, provider.searchCalls)
}

func TestServiceSearchProviderFailure(t *testing.T) {
	provider := &stubProvider{
		name:      ProviderNewsAPI,
		available: true,
		err:       errors.New("quota exceeded"),
	}

	svc := newTestService(t, provider, nil, Config{})

	out := svc.Search(context.Background(), "anything", "en", 5)
	require.Empty(t, out)
}

func TestServiceSearchEnrichesThinArticles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/solar", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(solarPage))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	provider := &stubProvider{
		name:      ProviderNewsAPI,
		available: true,
		articles: []model.Article{
			{URL: server.URL + "/solar", Title: "Solar record", Description: "New solar efficiency record", Snippet: "Short solar preview."},
			{URL: server.URL + "/gone", Title: "Solar setback", Description: "Solar project delayed"},
		},
	}

	extractor := extract.NewExtractor(extract.NewFetcher(100, 5*time.Second), 5*time.Second, nil)
	svc := newTestService(t, provider, extractor, Config{
		EnableExtraction: true,
		MaxConcurrent:    2,
		ArticleTimeout:   5 * time.Second,
	})

	out := svc.Search(context.Background(), "solar", "en", 10)
	require.Len(t, out, 2)

	byTitle := make(map[string]model.Article, len(out))
	for _, a := range out {
		byTitle[a.Title] = a
	}

	enriched := byTitle["Solar record"]
	require.True(t, enriched.Extracted())
	require.Equal(t, extract.MethodReadability, enriched.ExtractionMethod)
	require.Contains(t, enriched.TextContent, "perovskite")
	require.Greater(t, len(enriched.TextContent), shortContentMax)

	failed := byTitle["Solar setback"]
	require.True(t, failed.ExtractionFailed())
	require.Equal(t, "extraction failed or timed out", failed.ExtractionError)
	require.Equal(t, "Solar project delayed", failed.TextContent)
}

func TestServiceTrendingDerivesAndCaches(t *testing.T) {
	provider := &stubProvider{
		name:      ProviderNewsAPI,
		available: true,
		articles: []model.Article{
			{Title: "Quantum computing milestone reached", URL: "https://example.com/q1", Categories: []string{"technology"}},
			{Title: "Quantum encryption standard approved", URL: "https://example.com/q2", Categories: []string{"technology"}},
			{Title: "Market rally continues", URL: "https://example.com/m1", Categories: []string{"business"}},
		},
	}

	svc := newTestService(t, provider, nil, Config{})

	topics := svc.Trending(context.Background(), "en")

	require.Len(t, topics, 7)
	require.Equal(t, "Technology", topics[0].Topic)
	require.Equal(t, 2, topics[0].Count)
	require.Equal(t, "Quantum", topics[1].Topic)
	require.Equal(t, 2, topics[1].Count)
	require.NotNil(t, topics[1].LatestArticle)
	require.Equal(t, "Quantum computing milestone reached", topics[1].LatestArticle.Title)

	provider.err = errors.New("provider down")

	again := svc.Trending(context.Background(), "en")
	require.Equal(t, topics, again)
	require.Equal(t, 1, provider.headlineCalls)
}

func TestServiceTrendingProviderFailure(t *testing.T) {
	provider := &stubProvider{
		name:      ProviderNewsAPI,
		available: true,
		err:       errors.New("unreachable"),
	}

	svc := newTestService(t, provider, nil, Config{})

	topics := svc.Trending(context.Background(), "en")
	require.Empty(t, topics)
}

func TestServiceCachedKeysAndClear(t *testing.T) {
	provider := &stubProvider{
		name:      ProviderNewsAPI,
		available: true,
		articles: []model.Article{
			{URL: "https://example.com/ai", Title: "AI news", Description: "Latest developments"},
		},
	}

	svc := newTestService(t, provider, nil, Config{})

	ctx := context.Background()

	svc.Search(ctx, "ai", "en", 5)

	keys := svc.CachedKeys(ctx)
	require.Contains(t, keys, "search_ai_en_5")

	require.NoError(t, svc.ClearCache(ctx))
	require.Empty(t, svc.CachedKeys(ctx))
}

func TestNormalizeArticles(t *testing.T) {
	raw := []model.Article{
		{Description: "Desc only"},
		{Title: "Snippet article", Source: "Feed", Snippet: "Snip only"},
		{Title: "Dropped"},
	}

	out := normalizeArticles(raw)
	require.Len(t, out, 2)

	require.Equal(t, "No title", out[0].Title)
	require.Equal(t, "Unknown", out[0].Source)
	require.Equal(t, "Desc only", out[0].TextContent)

	require.Equal(t, "Snip only", out[1].Description)
	require.Equal(t, "Snip only", out[1].TextContent)
}

func TestNeedsExtraction(t *testing.T) {
	long := strings.Repeat("x", shortContentMax+1)

	tests := []struct {
		name    string
		article model.Article
		want    bool
	}{
		{"no url", model.Article{TextContent: ""}, false},
		{"blocked domain", model.Article{URL: "https://facebook.com/post", TextContent: ""}, false},
		{"rich content", model.Article{URL: "https://news.example.com/a", TextContent: long}, false},
		{"thin content", model.Article{URL: "https://news.example.com/a", TextContent: "short"}, true},
		{"paywalled", model.Article{URL: "https://news.example.com/a", TextContent: long + model.PaywallMarker}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, needsExtraction(&tt.article))
		})
	}
}

func TestDeriveTrendingFilters(t *testing.T) {
	articles := []model.Article{
		{Title: "AI beats humans at chess", Categories: []string{"ai"}},
	}

	topics := deriveTrending(articles)

	require.Len(t, topics, 1)
	require.Equal(t, "Beats", topics[0].Topic)
	require.Equal(t, 1, topics[0].Count)
}

func TestProviderLimit(t *testing.T) {
	tests := []struct {
		max  int
		want int
	}{
		{1, 2},
		{25, 50},
		{50, 100},
		{60, 100},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, providerLimit(tt.max))
	}
}

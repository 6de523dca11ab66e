package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const rssTestFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Example Wire</title>
<link>https://wire.example</link>
<description>Test wire feed</description>
<item>
<title>Electric grid upgrades approved</title>
<link>https://wire.example/grid</link>
<description><![CDATA[<p>Regulators signed off on new <b>grid</b> spending.</p>]]></description>
<pubDate>Thu, 20 Aug 2026 10:00:00 GMT</pubDate>
</item>
<item>
<title>Football season preview</title>
<link>https://wire.example/football</link>
<description>The league returns next week.</description>
<pubDate>Fri, 21 Aug 2026 08:00:00 GMT</pubDate>
</item>
</channel>
</rss>`

func rssTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")

		_, _ = w.Write([]byte(rssTestFeed))
	}))

	t.Cleanup(ts.Close)

	return ts
}

func TestRSSSearchFiltersByTopic(t *testing.T) {
	ts := rssTestServer(t)
	p := NewRSSProvider(RSSConfig{Feeds: []string{ts.URL}}, nil)

	articles, err := p.Search(context.Background(), Query{Topic: "grid", Limit: 10})
	require.NoError(t, err)
	require.Len(t, articles, 1)

	a := articles[0]
	require.Equal(t, "Electric grid upgrades approved", a.Title)
	require.Equal(t, "Example Wire", a.Source)
	require.Equal(t, "Regulators signed off on new grid spending.", a.Description)
	require.Equal(t, "https://wire.example/grid", a.URL)
	require.False(t, a.PublishedAt.IsZero())
}

func TestRSSSearchEmptyTopicKeepsAll(t *testing.T) {
	ts := rssTestServer(t)
	p := NewRSSProvider(RSSConfig{Feeds: []string{ts.URL}}, nil)

	articles, err := p.Search(context.Background(), Query{Topic: "", Limit: 10})
	require.NoError(t, err)
	require.Len(t, articles, 2)
}

func TestRSSHeadlinesSortedByRecency(t *testing.T) {
	ts := rssTestServer(t)
	p := NewRSSProvider(RSSConfig{Feeds: []string{ts.URL}}, nil)

	articles, err := p.Headlines(context.Background(), "en", 1)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	require.Equal(t, "Football season preview", articles[0].Title)
}

func TestRSSAllFeedsFailed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	p := NewRSSProvider(RSSConfig{Feeds: []string{ts.URL}}, nil)

	_, err := p.Search(context.Background(), Query{Topic: "grid"})
	require.ErrorIs(t, err, errAllFeedsFailed)
}

func TestRSSPartialFeedFailure(t *testing.T) {
	good := rssTestServer(t)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	p := NewRSSProvider(RSSConfig{Feeds: []string{bad.URL, good.URL}}, nil)

	articles, err := p.Search(context.Background(), Query{Topic: "grid", Limit: 10})
	require.NoError(t, err)
	require.Len(t, articles, 1)
}

func TestRSSAvailability(t *testing.T) {
	require.False(t, NewRSSProvider(RSSConfig{}, nil).IsAvailable())
	require.True(t, NewRSSProvider(RSSConfig{Feeds: []string{"https://wire.example/rss"}}, nil).IsAvailable())
}

func TestSearchWords(t *testing.T) {
	require.Equal(t, []string{"quantum", "computing"}, searchWords("Quantum Computing"))
	require.Nil(t, searchWords("a I"))
}

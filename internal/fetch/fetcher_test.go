package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"widgetforge/internal/config"
)

type stubSearch struct {
	urls []string
	err  error
}

func (s *stubSearch) Search(ctx context.Context, query string, limit int) ([]string, error) {
	return s.urls, s.err
}

func TestGather_CollectsTextAndSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/one":
			w.Write([]byte(`<html><body><h1>Acme Corp</h1><p>trades at $99.00</p><script>ignored()</script></body></html>`))
		case "/down":
			http.Error(w, "nope", http.StatusInternalServerError)
		default:
			w.Write([]byte(`<html><body>second page</body></html>`))
		}
	}))
	defer srv.Close()

	f := NewFetcher(config.FetchConfig{MaxPages: 3, Timeout: "5s"},
		&stubSearch{urls: []string{srv.URL + "/one", srv.URL + "/down", srv.URL + "/two"}},
		zap.NewNop())

	corpus, sources, err := f.Gather(context.Background(), "acme stock")
	require.NoError(t, err)

	assert.Contains(t, corpus, "Acme Corp trades at $99.00")
	assert.NotContains(t, corpus, "ignored()", "script content must be stripped")
	assert.Contains(t, corpus, "second page")
	assert.Equal(t, []string{srv.URL + "/one", srv.URL + "/two"}, sources,
		"failed pages are dropped, order is preserved")
}

func TestGather_EmptyWhenEverythingFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher(config.FetchConfig{MaxPages: 2, Timeout: "5s"},
		&stubSearch{urls: []string{srv.URL + "/a", srv.URL + "/b"}}, nil)

	corpus, sources, err := f.Gather(context.Background(), "anything")
	require.NoError(t, err, "total fetch failure degrades, it does not error")
	assert.Empty(t, corpus)
	assert.Empty(t, sources)
}

func TestGather_NoSearchProvider(t *testing.T) {
	f := NewFetcher(config.FetchConfig{}, nil, nil)
	_, _, err := f.Gather(context.Background(), "anything")
	assert.Error(t, err)
}

func TestGather_RespectsMaxPages(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("<html><body>page</body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(config.FetchConfig{MaxPages: 2, Timeout: "5s"},
		&stubSearch{urls: []string{srv.URL + "/1", srv.URL + "/2", srv.URL + "/3", srv.URL + "/4"}}, nil)

	_, sources, err := f.Gather(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
	assert.Len(t, sources, 2)
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "collapses whitespace",
			in:   "<p>hello\n\n  world</p>",
			want: "hello world",
		},
		{
			name: "strips script and style",
			in:   `<style>p{}</style><p>kept</p><script>var x;</script>`,
			want: "kept",
		},
		{
			name: "nested elements",
			in:   `<div><span>a</span><b>b</b></div>`,
			want: "a b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, htmlToText(tt.in))
		})
	}
}

const searchPage = `
<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Facme&amp;rut=abc">Acme</a>
</div>
<div class="result">
  <a class="result__a" href="https://other.example.org/page">Other</a>
</div>
<a href="https://ignored.example.com">not a result</a>
<div class="result">
  <a class="result__a" href="https://other.example.org/page">duplicate</a>
</div>
</body></html>`

func TestParseSearchResults(t *testing.T) {
	urls, err := parseSearchResults(strings.NewReader(searchPage), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/acme",
		"https://other.example.org/page",
	}, urls, "redirects unwrapped, non-results and duplicates dropped")
}

func TestParseSearchResults_Limit(t *testing.T) {
	urls, err := parseSearchResults(strings.NewReader(searchPage), 1)
	require.NoError(t, err)
	assert.Len(t, urls, 1)
}

func TestResolveResultHref(t *testing.T) {
	assert.Equal(t, "https://example.com/x", resolveResultHref("https://example.com/x"))
	assert.Equal(t, "https://example.com/x", resolveResultHref("//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fx"))
	assert.Empty(t, resolveResultHref("javascript:alert(1)"))
	assert.Empty(t, resolveResultHref(""))
}

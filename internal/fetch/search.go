package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// DuckDuckGoProvider resolves queries through the DuckDuckGo HTML endpoint,
// which needs no API key.
type DuckDuckGoProvider struct {
	httpClient *http.Client
	endpoint   string
}

// NewDuckDuckGoProvider builds the default search provider.
func NewDuckDuckGoProvider(httpClient *http.Client) *DuckDuckGoProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DuckDuckGoProvider{
		httpClient: httpClient,
		endpoint:   "https://html.duckduckgo.com/html/",
	}
}

// Search returns up to limit result URLs for the query.
func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, limit int) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", p.endpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned HTTP %d", resp.StatusCode)
	}

	return parseSearchResults(io.LimitReader(resp.Body, maxPageBytes), limit)
}

// parseSearchResults pulls result links out of the DuckDuckGo HTML page.
// Result anchors carry the "result__a" class; their hrefs are redirect links
// with the real target in the uddg parameter.
func parseSearchResults(r io.Reader, limit int) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	var urls []string
	seen := map[string]bool{}

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if limit > 0 && len(urls) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			if target := resolveResultHref(attr(n, "href")); target != "" && !seen[target] {
				seen[target] = true
				urls = append(urls, target)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	return urls, nil
}

// resolveResultHref unwraps DuckDuckGo's redirect links and rejects anything
// that is not an absolute http(s) URL.
func resolveResultHref(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		href = target
		if u, err = url.Parse(href); err != nil {
			return ""
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

package fetch

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlToText strips markup and returns the page's visible text with
// whitespace collapsed. Script, style and other non-content subtrees are
// skipped. Input that fails to parse is returned trimmed as-is; html.Parse
// is lenient, so that effectively never happens on real pages.
func htmlToText(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "svg", "iframe", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}

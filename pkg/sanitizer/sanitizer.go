// Package sanitizer converts raw message HTML into safe-for-display HTML.
// It never fetches anything: remote image references are captured and
// replaced so no tracking pixel fires during ingestion.
package sanitizer

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var policy *bluemonday.Policy

func init() {
	policy = bluemonday.UGCPolicy()

	// Additional safe elements common in mail bodies
	policy.AllowElements("p", "br", "div", "span", "h1", "h2", "h3", "h4", "h5", "h6")
	policy.AllowElements("strong", "em", "u", "s", "code", "pre")
	policy.AllowElements("ul", "ol", "li", "blockquote")
	policy.AllowElements("table", "thead", "tbody", "tr", "th", "td")
	policy.AllowElements("a")

	policy.AllowAttrs("href").OnElements("a")
	policy.AllowAttrs("class", "id").Globally()

	policy.RequireParseableURLs(true)
	policy.AllowURLSchemes("http", "https", "mailto")
}

// cssURLPattern matches url(...) values inside inline style attributes.
var cssURLPattern = regexp.MustCompile(`(?i)url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// Result carries the sanitized HTML and the remote image URLs that were
// stripped out of it.
type Result struct {
	HTML         string
	ImageSources []string
}

// Sanitize produces display-safe HTML from raw message HTML. Script and
// style elements are dropped, inline event handlers stripped, and images
// replaced with a text placeholder while their URLs are captured. Malformed
// input falls back to escaped plain text rather than failing the message.
func Sanitize(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{}
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(raw), body)
	if err != nil {
		return Result{HTML: "<pre>" + html.EscapeString(raw) + "</pre>"}
	}

	var srcs []string
	var out strings.Builder
	for _, n := range nodes {
		clean(n, &srcs)
	}
	for _, n := range nodes {
		if err := html.Render(&out, n); err != nil {
			return Result{HTML: "<pre>" + html.EscapeString(raw) + "</pre>"}
		}
	}

	return Result{HTML: policy.Sanitize(out.String()), ImageSources: srcs}
}

// clean walks the tree removing active content and rewriting images.
func clean(n *html.Node, srcs *[]string) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling

		if c.Type == html.ElementNode {
			switch c.DataAtom {
			case atom.Script, atom.Style:
				n.RemoveChild(c)
				continue
			case atom.Img:
				if src := attrValue(c, "src"); src != "" {
					*srcs = append(*srcs, src)
				}
				n.InsertBefore(blockedPlaceholder(), c)
				n.RemoveChild(c)
				continue
			}
			scrubAttrs(c, srcs)
		}

		clean(c, srcs)
	}
}

// scrubAttrs drops on* handlers and style attributes carrying url() values,
// capturing any URLs the style referenced.
func scrubAttrs(n *html.Node, srcs *[]string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		if strings.HasPrefix(key, "on") {
			continue
		}
		if key == "style" && cssURLPattern.MatchString(a.Val) {
			for _, m := range cssURLPattern.FindAllStringSubmatch(a.Val, -1) {
				*srcs = append(*srcs, m[1])
			}
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

func blockedPlaceholder() *html.Node {
	span := &html.Node{Type: html.ElementNode, Data: "span", DataAtom: atom.Span}
	span.AppendChild(&html.Node{Type: html.TextNode, Data: "[image blocked]"})
	return span
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

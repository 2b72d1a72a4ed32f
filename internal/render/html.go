package render

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractText walks an HTML fragment and returns its visible text content.
// Message bodies arrive as markup ("<p>hello</p>"), so emptiness checks and
// previews must look at the text, not the raw string.
func ExtractText(htmlStr string) string {
	if strings.TrimSpace(htmlStr) == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		// Fall back to the raw string; a body we cannot parse still counts
		// as content.
		return strings.TrimSpace(htmlStr)
	}
	var b strings.Builder
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			switch strings.ToLower(n.Data) {
			case "head", "style", "script", "title", "meta", "link":
				return
			case "br":
				b.WriteByte('\n')
			case "p", "div", "li":
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					visit(c)
				}
				b.WriteByte('\n')
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return strings.TrimSpace(normalizeNewlines(b.String()))
}

// IsEmpty reports whether an HTML fragment has no visible text at all.
func IsEmpty(htmlStr string) bool {
	return ExtractText(htmlStr) == ""
}

// Sanitize re-serializes an HTML fragment with script/style subtrees and
// inline event handlers removed. The result is safe to hand to the host UI
// as a pre-sanitized body.
func Sanitize(htmlStr string) string {
	if strings.TrimSpace(htmlStr) == "" {
		return ""
	}
	nodes, err := html.ParseFragment(strings.NewReader(htmlStr), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return html.EscapeString(htmlStr)
	}
	var b strings.Builder
	for _, n := range nodes {
		cleanNode(n)
		if n != nil {
			_ = html.Render(&b, n)
		}
	}
	return b.String()
}

func cleanNode(n *html.Node) {
	if n == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode {
			switch strings.ToLower(c.Data) {
			case "script", "style", "iframe", "object", "embed":
				n.RemoveChild(c)
				c = next
				continue
			}
		}
		cleanNode(c)
		c = next
	}
	if n.Type == html.ElementNode {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			key := strings.ToLower(a.Key)
			if strings.HasPrefix(key, "on") {
				continue
			}
			if key == "href" || key == "src" {
				val := strings.TrimSpace(strings.ToLower(a.Val))
				if strings.HasPrefix(val, "javascript:") {
					continue
				}
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}
}

// Preview returns the first line of the visible text, trimmed to max runes.
// Used for share links and log lines.
func Preview(htmlStr string, max int) string {
	text := ExtractText(htmlStr)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimRightFunc(text, unicode.IsSpace)
	r := []rune(text)
	if max > 0 && len(r) > max {
		return string(r[:max]) + "…"
	}
	return text
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}

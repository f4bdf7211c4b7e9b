// Package content decides when two project documents are the "same"
// for versioning purposes. A save only creates a version snapshot when
// the incoming content differs structurally from what is stored;
// insignificant whitespace must not produce spurious versions.
package content

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/jacksonwyt/byldur-sub000/internal/domain"
)

// Equal reports whether a and b describe the same document. HTML is
// compared structurally (parsed and re-rendered, inter-element
// whitespace dropped); CSS and JS are compared whitespace-insensitively.
func Equal(a, b domain.Content) bool {
	if !textEqual(a.CSS, b.CSS) || !textEqual(a.JS, b.JS) {
		return false
	}
	return htmlEqual(a.HTML, b.HTML)
}

func htmlEqual(a, b string) bool {
	if a == b {
		return true
	}
	na, errA := NormalizeHTML(a)
	nb, errB := NormalizeHTML(b)
	if errA != nil || errB != nil {
		// Unparseable markup falls back to exact comparison.
		return a == b
	}
	return na == nb
}

// NormalizeHTML parses markup and renders it back in canonical form:
// whitespace-only text nodes between elements are dropped and runs of
// whitespace inside text are collapsed, except inside elements where
// whitespace is significant.
func NormalizeHTML(raw string) (string, error) {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", err
	}
	normalizeNode(root, false)
	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Elements whose text content must be preserved byte for byte.
var preserveWhitespace = map[string]bool{
	"pre":      true,
	"textarea": true,
	"script":   true,
	"style":    true,
}

func normalizeNode(n *html.Node, preserve bool) {
	if n.Type == html.ElementNode && preserveWhitespace[n.Data] {
		preserve = true
	}
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.TextNode && !preserve {
			collapsed := collapseSpace(c.Data)
			if collapsed == "" {
				n.RemoveChild(c)
				continue
			}
			c.Data = collapsed
		}
		normalizeNode(c, preserve)
	}
}

func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Join(fields, " ")
}

// textEqual compares CSS or JS bodies ignoring whitespace differences.
func textEqual(a, b string) bool {
	if a == b {
		return true
	}
	return strings.Join(strings.Fields(a), " ") == strings.Join(strings.Fields(b), " ")
}

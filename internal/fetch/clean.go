package fetch

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// droppedElements are stripped wholesale before text extraction: they
// hold chrome and navigation, not article content.
var droppedElements = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
	"header": true,
	"footer": true,
	"nav":    true,
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// nonASCII drops everything outside 7-bit ASCII; the models downstream
// choke on decorative unicode and the source pages are English anyway.
var nonASCII = runes.Remove(runes.Predicate(func(r rune) bool {
	return r > unicode.MaxASCII
}))

// CleanHTML extracts readable plain text from an HTML document. It
// prefers the <main> element, then <article>, then <body>, drops chrome
// elements and comments, collapses whitespace, and strips non-ASCII
// runes. Returns "" when the document has no usable content region.
func CleanHTML(htmlText string) string {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return ""
	}

	root := findFirst(doc, "main")
	if root == nil {
		root = findFirst(doc, "article")
	}
	if root == nil {
		root = findFirst(doc, "body")
	}
	if root == nil {
		return ""
	}

	var sb strings.Builder
	collectText(root, &sb)

	text := sb.String()
	text, _, err = transform.String(nonASCII, text)
	if err != nil {
		return ""
	}
	text = whitespaceRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// findFirst returns the first element node with the given tag, depth
// first.
func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// collectText appends text nodes under n, skipping dropped elements and
// comments. A space is written between nodes so adjacent blocks do not
// run together; the whitespace collapse pass tidies up afterwards.
func collectText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.ElementNode:
		if droppedElements[n.Data] {
			return
		}
	case html.TextNode:
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

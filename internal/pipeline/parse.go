package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrParse indicates the content cannot be parsed as markup.
var ErrParse = errors.New("cannot parse markup")

// ParseDocument parses a complete HTML document.
// Content that is not valid UTF-8 text (binary files, legacy encodings)
// is rejected with ErrParse rather than rendered as mojibake.
func ParseDocument(content string) (*html.Node, error) {
	if !utf8.ValidString(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8 text", ErrParse)
	}
	if strings.ContainsRune(content, '\x00') {
		return nil, fmt.Errorf("%w: content contains NUL bytes", ErrParse)
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return doc, nil
}

// ParseFragment parses markup in a <body> context and wraps the resulting
// nodes in a document node for uniform traversal.
func ParseFragment(content string) (*html.Node, error) {
	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), context)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, nil
}

// Render serializes a node and its subtree.
func Render(n *html.Node) (string, error) {
	var buf strings.Builder
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderChildren serializes the children of n without n itself.
func RenderChildren(n *html.Node) (string, error) {
	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// BodyInnerHTML returns the serialized children of the document's <body>.
// Returns an empty string when the tree has no body.
func BodyInnerHTML(doc *html.Node) (string, error) {
	body := findElement(doc, atom.Body)
	if body == nil {
		return "", nil
	}
	return RenderChildren(body)
}

// findElement returns the first element with the given atom in document order.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// getAttr returns the value of the named attribute and whether it is present.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// hasToken reports whether a whitespace-separated attribute value contains
// token, case-insensitively.
func hasToken(value, token string) bool {
	for _, f := range strings.Fields(value) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

// textContent concatenates the text of all descendant text nodes.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

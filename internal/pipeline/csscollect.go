package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-html2lms/internal/sandbox"
)

// AssetReader reads a local reference relative to the current document.
// Implementations return errors matching fs.ErrNotExist for missing files
// and sandbox.ErrPathEscape for references outside the root.
type AssetReader func(ref string) ([]byte, error)

// CollectCSS gathers stylesheet text from <style> and <link rel=stylesheet>
// nodes in document order and detaches every one of them from the tree.
//
// Inline <style> text is appended as-is. Links with an empty or remote href
// contribute nothing. Relative links are read through read; a missing or
// escaping file yields a warning and the link is still removed.
func CollectCSS(doc *html.Node, read AssetReader) (string, []string) {
	var (
		blocks   []string
		warnings []string
	)

	for _, n := range stylesheetNodes(doc) {
		switch n.DataAtom {
		case atom.Style:
			blocks = append(blocks, textContent(n))
		case atom.Link:
			href, _ := getAttr(n, "href")
			if ClassifyRef(href) == RefLocal && read != nil && isAppliedStylesheet(n) {
				data, err := read(LocalPath(href))
				if err != nil {
					warnings = append(warnings, AssetWarning("stylesheet", href, err))
				} else {
					blocks = append(blocks, string(data))
				}
			}
		}
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}

	return strings.Join(blocks, "\n"), warnings
}

// stylesheetNodes returns style-carrying nodes in order of appearance.
// Collection happens before detaching so the walk never sees a mutated tree.
func stylesheetNodes(n *html.Node) []*html.Node {
	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Style:
				nodes = append(nodes, n)
				return
			case atom.Link:
				rel, _ := getAttr(n, "rel")
				if hasToken(rel, "stylesheet") {
					nodes = append(nodes, n)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return nodes
}

// isAppliedStylesheet reports whether a stylesheet <link> applies by default.
// Alternate stylesheets are detached like the others but never collected.
func isAppliedStylesheet(n *html.Node) bool {
	rel, _ := getAttr(n, "rel")
	return hasToken(rel, "stylesheet") && !hasToken(rel, "alternate")
}

// AssetWarning formats a non-fatal problem with a local reference.
func AssetWarning(kind, ref string, err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Sprintf("missing local %s: %s", kind, ref)
	case errors.Is(err, sandbox.ErrPathEscape):
		return fmt.Sprintf("local %s outside root skipped: %s", kind, ref)
	default:
		return fmt.Sprintf("unreadable local %s: %s: %v", kind, ref, err)
	}
}

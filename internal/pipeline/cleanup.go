package pipeline

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultCardClass is the class the upstream generator puts on card containers.
const DefaultCardClass = "card"

// CleanupCards removes the trailing empty paragraph the upstream generator
// leaves at the end of each card container and returns how many were removed.
//
// A paragraph is empty when it has no child elements and its text is blank
// once non-breaking spaces are stripped. Only the last child element of each
// card is considered. A trailing run of two or more empty paragraphs is
// author spacing and is kept whole, which also makes the pass idempotent.
func CleanupCards(doc *html.Node, cardClass string) int {
	if cardClass == "" {
		cardClass = DefaultCardClass
	}

	removed := 0
	for _, card := range elementsWithClass(doc, cardClass) {
		last := lastElementChild(card)
		if !isEmptyParagraph(last) {
			continue
		}
		if isEmptyParagraph(prevElementSibling(last)) {
			continue
		}
		card.RemoveChild(last)
		removed++
	}
	return removed
}

// isEmptyParagraph reports whether n is a <p> with no element children and
// only whitespace or non-breaking spaces as text.
func isEmptyParagraph(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || n.DataAtom != atom.P {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return false
		}
	}
	text := strings.ReplaceAll(textContent(n), "\u00a0", "")
	return strings.TrimSpace(text) == ""
}

// elementsWithClass returns elements whose class list contains class.
func elementsWithClass(n *html.Node, class string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if v, ok := getAttr(n, "class"); ok && hasToken(v, class) {
				found = append(found, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

func lastElementChild(n *html.Node) *html.Node {
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func prevElementSibling(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

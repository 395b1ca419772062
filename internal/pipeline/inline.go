package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/vanng822/go-premailer/premailer"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrInline indicates CSS inlining failed.
var ErrInline = errors.New("CSS inlining failed")

// Inliner merges a CSS ruleset into the style attribute of each matching
// element, respecting specificity and source order.
type Inliner interface {
	Inline(ctx context.Context, htmlContent, cssContent string) (string, error)
}

// PremailerInliner inlines CSS with go-premailer.
//
// Rules premailer cannot inline (media queries, pseudo-classes) are not
// preserved: every <style> and stylesheet <link> left after the pass is
// removed, since the destination editor strips them anyway.
type PremailerInliner struct {
	opts *premailer.Options
}

// NewPremailerInliner creates an inliner that writes rules to style
// attributes only: classes are kept, no presentational attributes are added.
func NewPremailerInliner() *PremailerInliner {
	opts := premailer.NewOptions()
	opts.RemoveClasses = false
	opts.CssToAttributes = false
	opts.KeepBangImportant = false
	return &PremailerInliner{opts: opts}
}

// Inline injects cssContent into the document head, runs premailer, then
// strips residual style-carrying tags.
func (p *PremailerInliner) Inline(ctx context.Context, htmlContent, cssContent string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	withCSS, err := injectStyle(htmlContent, cssContent)
	if err != nil {
		return "", err
	}

	prem, err := premailer.NewPremailerFromString(withCSS, p.opts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInline, err)
	}
	out, err := prem.Transform()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInline, err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	return stripStyleTags(out)
}

// stripStyleTags removes <style> and stylesheet <link> elements.
func stripStyleTags(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInline, err)
	}
	doc.Find("style").Remove()
	doc.Find("link").FilterFunction(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		return hasToken(rel, "stylesheet")
	}).Remove()

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInline, err)
	}
	return out, nil
}

// injectStyle appends a <style> block to the document head.
// The parser synthesizes <head> when the markup omits it.
func injectStyle(htmlContent, cssContent string) (string, error) {
	if strings.TrimSpace(cssContent) == "" {
		return htmlContent, nil
	}

	doc, err := ParseDocument(htmlContent)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInline, err)
	}
	head := findElement(doc, atom.Head)
	if head == nil {
		return "", fmt.Errorf("%w: document has no head", ErrInline)
	}

	style := &html.Node{Type: html.ElementNode, DataAtom: atom.Style, Data: "style"}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: sanitizeCSS(cssContent)})
	head.AppendChild(style)

	out, err := Render(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInline, err)
	}
	return out, nil
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

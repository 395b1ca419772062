package pipeline

import (
	"fmt"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	mhtml "github.com/tdewolff/minify/v2/html"
)

// Minifier shrinks a fragment before it is pasted.
// End tags, quotes and default attribute values are kept so the editor's
// own sanitizer sees conventional markup.
type Minifier struct {
	m *minify.M
}

// NewMinifier creates a Minifier for HTML with inline CSS.
func NewMinifier() *Minifier {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.Add("text/html", &mhtml.Minifier{
		KeepDefaultAttrVals: true,
		KeepDocumentTags:    true,
		KeepEndTags:         true,
		KeepQuotes:          true,
	})
	return &Minifier{m: m}
}

// MinifyHTML minifies an HTML fragment.
func (m *Minifier) MinifyHTML(fragment string) (string, error) {
	out, err := m.m.String("text/html", fragment)
	if err != nil {
		return "", fmt.Errorf("minifying fragment: %w", err)
	}
	return out, nil
}

package pipeline

import (
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/go-html2lms/internal/fileutil"
)

// RefKind classifies a resource reference found in markup.
type RefKind int

// Reference kinds. Only RefLocal references are read from disk or uploaded.
const (
	RefEmpty    RefKind = iota // missing or blank attribute
	RefLocal                   // relative filesystem path
	RefRemote                  // http(s) or protocol-relative URL
	RefEmbedded                // data: or blob: URI
	RefOther                   // absolute path, anchor, or another scheme
)

// String returns the kind's name for logs and warnings.
func (k RefKind) String() string {
	switch k {
	case RefLocal:
		return "local"
	case RefRemote:
		return "remote"
	case RefEmbedded:
		return "embedded"
	case RefOther:
		return "other"
	default:
		return "empty"
	}
}

// ClassifyRef returns the kind of a src or href value.
func ClassifyRef(ref string) RefKind {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return RefEmpty
	case fileutil.IsEmbedded(ref):
		return RefEmbedded
	case fileutil.IsURL(ref):
		return RefRemote
	case strings.HasPrefix(ref, "/"), strings.HasPrefix(ref, "\\"), strings.HasPrefix(ref, "#"):
		return RefOther
	}

	u, err := url.Parse(ref)
	if err != nil {
		// Unparsable as a URL but still a plausible file name ("50%.png").
		return RefLocal
	}
	if u.Scheme != "" {
		return RefOther
	}
	return RefLocal
}

// LocalPath turns a local reference into a slash-separated relative file
// path: query and fragment are dropped and percent-escapes decoded.
func LocalPath(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if unescaped, err := url.PathUnescape(ref); err == nil {
		ref = unescaped
	}
	return ref
}

// ImageRef is an <img> element and its classified src.
type ImageRef struct {
	Node *html.Node
	Src  string
	Kind RefKind
}

// ScanImages returns every <img> element under n in document order.
func ScanImages(n *html.Node) []ImageRef {
	var refs []ImageRef
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			src, _ := getAttr(n, "src")
			refs = append(refs, ImageRef{Node: n, Src: src, Kind: ClassifyRef(src)})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return refs
}

// SplitName splits a local reference into its base name without extension
// and its extension ("img/My Photo.PNG" -> "My Photo", ".PNG").
func SplitName(ref string) (base, ext string) {
	name := path.Base(strings.ReplaceAll(LocalPath(ref), "\\", "/"))
	if name == "." || name == "/" {
		return "", ""
	}
	ext = path.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

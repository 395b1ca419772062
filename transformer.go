package html2lms

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/alnah/go-html2lms/internal/assets"
	"github.com/alnah/go-html2lms/internal/fileutil"
	"github.com/alnah/go-html2lms/internal/logging"
	"github.com/alnah/go-html2lms/internal/pipeline"
	"github.com/alnah/go-html2lms/internal/sandbox"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.Inliner       = (*pipeline.PremailerInliner)(nil)
	_ pipeline.HTMLConverter = (*pipeline.GoldmarkConverter)(nil)
	_ FragmentSource         = (*Transformer)(nil)
	_ AssetFetcher           = (*Transformer)(nil)
)

// DocumentExtensions are the source extensions listed and transformed.
var DocumentExtensions = []string{".html", ".htm", ".md", ".markdown"}

// Transformer turns documents under a root directory into editor-ready
// fragments. It holds no per-document state: every call re-reads and
// re-parses its source, so it is safe for concurrent use.
type Transformer struct {
	sb        *sandbox.Sandbox
	inliner   pipeline.Inliner
	converter pipeline.HTMLConverter
	minifier  *pipeline.Minifier
	loader    assets.AssetLoader
	cardClass string
	baseCSS   string
	logger    *slog.Logger
}

// NewTransformer creates a Transformer confined to root.
// Returns ErrInvalidRoot when root is not a readable directory, and
// ErrInvalidAssetPath or ErrStyleNotFound when style options cannot be
// resolved.
func NewTransformer(root string, opts ...Option) (*Transformer, error) {
	s := newSettings(opts)

	sb, err := sandbox.New(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}

	t := &Transformer{
		sb:        sb,
		inliner:   s.inliner,
		converter: s.converter,
		loader:    assets.NewEmbeddedLoader(),
		cardClass: s.cardClass,
		logger:    logging.OrNop(s.logger),
	}
	if t.inliner == nil {
		t.inliner = pipeline.NewPremailerInliner()
	}
	if t.converter == nil {
		t.converter = pipeline.NewGoldmarkConverter()
	}
	if s.minify {
		t.minifier = pipeline.NewMinifier()
	}

	if s.assetPath != "" {
		resolver, err := assets.NewAssetResolver(s.assetPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
		}
		t.loader = resolver
	}

	if err := t.resolveStyle(s.style); err != nil {
		return nil, err
	}

	return t, nil
}

// resolveStyle resolves the style input (name, path, or CSS content) to CSS.
func (t *Transformer) resolveStyle(input string) error {
	if input == "" {
		return nil
	}

	if fileutil.IsFilePath(input) {
		content, err := os.ReadFile(input) // #nosec G304 -- user-provided path
		if err != nil {
			return fmt.Errorf("loading style file %q: %w", input, err)
		}
		t.baseCSS = string(content)
		return nil
	}

	if fileutil.IsCSS(input) {
		t.baseCSS = input
		return nil
	}

	css, err := t.loader.LoadStyle(input)
	if err != nil {
		return fmt.Errorf("loading style %q: %w", input, err)
	}
	t.baseCSS = css
	return nil
}

// Root returns the absolute document root.
func (t *Transformer) Root() string {
	return t.sb.Root()
}

// List returns the root-relative paths of every document, sorted.
func (t *Transformer) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.sb.List(DocumentExtensions...)
}

// Transform runs the pipeline on the document at rel.
//
// Missing and escaping paths fail with ErrNotFound (escaping paths also match
// ErrPathEscape). Unparsable content fails with ErrParse. Missing local
// assets and remote assets never fail the call; they become warnings.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (t *Transformer) Transform(ctx context.Context, rel string) (result *TransformResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := t.readDocument(rel)
	if err != nil {
		return nil, err
	}

	if isMarkdown(rel) {
		title := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
		content, err = t.converter.ToHTML(ctx, title, content)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
	}

	doc, err := pipeline.ParseDocument(content)
	if err != nil {
		return nil, err
	}

	css, warnings := pipeline.CollectCSS(doc, t.assetReader(rel))
	if t.baseCSS != "" {
		css = t.baseCSS + "\n" + css
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	stripped, err := pipeline.Render(doc)
	if err != nil {
		return nil, fmt.Errorf("serializing document: %w", err)
	}

	inlined, err := t.inliner.Inline(ctx, stripped, css)
	if err != nil {
		return nil, fmt.Errorf("inlining CSS: %w", err)
	}

	doc, err = pipeline.ParseDocument(inlined)
	if err != nil {
		return nil, err
	}

	if n := pipeline.CleanupCards(doc, t.cardClass); n > 0 {
		t.logger.Debug("removed trailing empty paragraphs", "file", rel, "count", n)
	}

	warnings = append(warnings, t.imageWarnings(doc, rel)...)

	body, err := pipeline.BodyInnerHTML(doc)
	if err != nil {
		return nil, fmt.Errorf("serializing body: %w", err)
	}

	if t.minifier != nil {
		body, err = t.minifier.MinifyHTML(body)
		if err != nil {
			return nil, err
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	warnings = dedupe(warnings)
	for _, w := range warnings {
		t.logger.Debug("transform warning", "file", rel, "warning", w)
	}

	return &TransformResult{File: rel, BodyHTML: body, Warnings: warnings}, nil
}

// OpenAsset reads the file at assetPath relative to the document docRel.
// assetPath is a file path, not a reference: callers holding an src value
// decode it with pipeline.LocalPath first.
// Missing files fail with ErrAssetNotFound, escaping paths with ErrPathEscape
// (which also matches ErrAssetNotFound), other read failures with
// ErrAssetUnreadable.
func (t *Transformer) OpenAsset(docRel, assetPath string) (*Asset, error) {
	p, err := t.sb.ResolveAsset(docRel, assetPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssetNotFound, err)
	}

	info, err := os.Stat(p)
	switch {
	case errors.Is(err, fs.ErrNotExist), err == nil && info.IsDir():
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, assetPath)
	case err != nil:
		return nil, fmt.Errorf("%w: %s: %w", ErrAssetUnreadable, assetPath, err)
	}

	data, err := os.ReadFile(p) // #nosec G304 -- path contained by sandbox
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAssetUnreadable, assetPath, err)
	}

	return &Asset{Path: assetPath, ContentType: fileutil.ContentType(p, data), Data: data}, nil
}

// FetchAsset returns the bytes of the asset at the decoded path asset,
// relative to doc.
func (t *Transformer) FetchAsset(ctx context.Context, doc, asset string) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.OpenAsset(doc, asset)
}

// readDocument reads rel through the sandbox.
func (t *Transformer) readDocument(rel string) (string, error) {
	p, err := t.sb.Resolve(rel)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, rel)
	}

	data, err := os.ReadFile(p) // #nosec G304 -- path contained by sandbox
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rel, err)
	}
	return string(data), nil
}

// assetReader reads stylesheets relative to the document docRel.
func (t *Transformer) assetReader(docRel string) pipeline.AssetReader {
	return func(ref string) ([]byte, error) {
		p, err := t.sb.ResolveAsset(docRel, ref)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(p) // #nosec G304 -- path contained by sandbox
	}
}

// imageWarnings reports remote images and local images that cannot be
// served. No src is modified.
func (t *Transformer) imageWarnings(doc *html.Node, docRel string) []string {
	var warnings []string
	for _, img := range pipeline.ScanImages(doc) {
		switch img.Kind {
		case pipeline.RefRemote:
			warnings = append(warnings, "remote asset skipped: "+img.Src)
		case pipeline.RefLocal:
			if err := t.statAsset(docRel, pipeline.LocalPath(img.Src)); err != nil {
				warnings = append(warnings, pipeline.AssetWarning("image", img.Src, err))
			}
		}
	}
	return warnings
}

func (t *Transformer) statAsset(docRel, ref string) error {
	p, err := t.sb.ResolveAsset(docRel, ref)
	if err != nil {
		return err
	}
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory: %w", ref, fs.ErrNotExist)
	}
	return nil
}

func isMarkdown(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// dedupe removes repeated warnings, keeping first occurrences in order.
func dedupe(items []string) []string {
	if len(items) == 0 {
		return []string{}
	}
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

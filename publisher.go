package html2lms

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alnah/go-html2lms/internal/logging"
	"github.com/alnah/go-html2lms/internal/upload"
)

// FragmentSource produces the transformed fragment of a document.
type FragmentSource interface {
	Transform(ctx context.Context, file string) (*TransformResult, error)
}

// PageInfo describes the host page the editor runs in.
type PageInfo interface {
	URL(ctx context.Context) (string, error)
	GlobalString(ctx context.Context, path ...string) (string, error)
}

// Publisher runs a full publish: transform, upload images, insert.
type Publisher struct {
	editor     Editor
	source     FragmentSource
	uploader   *Uploader
	page       PageInfo
	fallbackID string
	logger     *slog.Logger
}

// NewPublisher creates a Publisher. Use WithPage and WithDestinationID to
// tell it where uploads go.
func NewPublisher(editor Editor, source FragmentSource, uploader *Uploader, opts ...Option) *Publisher {
	s := newSettings(opts)
	return &Publisher{
		editor:     editor,
		source:     source,
		uploader:   uploader,
		page:       s.page,
		fallbackID: s.fallbackID,
		logger:     logging.OrNop(s.logger),
	}
}

// Publish puts the document in.File into the editor.
//
// It fails with ErrEditorUnavailable before any work when no editor is
// active, and with ErrNoDestination when no destination id can be found.
// Image failures do not fail the run; they lower the converted count.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (p *Publisher) Publish(ctx context.Context, in PublishInput) (result *PublishResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if in.File == "" {
		return nil, fmt.Errorf("%w: no document selected", ErrEmptyPath)
	}
	mode, err := ParseMode(string(in.Mode))
	if err != nil {
		return nil, err
	}

	if !p.editor.IsAvailable(ctx) {
		return nil, ErrEditorUnavailable
	}

	dest, err := p.destination(ctx)
	if err != nil {
		return nil, err
	}

	frag, err := p.source.Transform(ctx, in.File)
	if err != nil {
		return nil, fmt.Errorf("transforming %s: %w", in.File, err)
	}

	docPath := frag.File
	if docPath == "" {
		docPath = in.File
	}
	summary, err := p.uploader.UploadImages(ctx, frag.BodyHTML, docPath, UploadTarget{
		DestinationID: dest,
		Folder:        in.Folder,
	})
	if err != nil {
		return nil, fmt.Errorf("uploading images: %w", err)
	}

	if err := p.editor.Focus(ctx); err != nil {
		return nil, err
	}
	if mode == ModeReplace {
		err = p.editor.SetContent(ctx, summary.HTML)
	} else {
		err = p.editor.InsertContent(ctx, summary.HTML)
	}
	if err != nil {
		return nil, err
	}

	p.logger.Info("published", "file", in.File, "destination", dest, "mode", string(mode),
		"converted", summary.Converted, "total", summary.Total)

	return &PublishResult{
		File:          in.File,
		DestinationID: dest,
		Converted:     summary.Converted,
		Total:         summary.Total,
		Warnings:      frag.Warnings,
		Failures:      summary.Failures,
		Summary:       summary.Ratio(),
	}, nil
}

// destination finds the upload destination id: the host page URL first,
// then the configured id, then the page's ENV.COURSE_ID.
func (p *Publisher) destination(ctx context.Context) (string, error) {
	var pageURL string
	if p.page != nil {
		u, err := p.page.URL(ctx)
		if err != nil {
			p.logger.Debug("cannot read page URL", "error", err)
		}
		pageURL = u
	}

	fallback := p.fallbackID
	if fallback == "" && p.page != nil {
		if v, err := p.page.GlobalString(ctx, "ENV", "COURSE_ID"); err == nil {
			fallback = v
		}
	}

	return upload.DestinationID(pageURL, fallback)
}

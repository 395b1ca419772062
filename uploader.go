package html2lms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/alnah/go-html2lms/internal/fileutil"
	"github.com/alnah/go-html2lms/internal/logging"
	"github.com/alnah/go-html2lms/internal/pipeline"
	"github.com/alnah/go-html2lms/internal/upload"
)

// AssetFetcher returns the bytes of an asset referenced by a document.
// asset is a decoded file path relative to the document.
type AssetFetcher interface {
	FetchAsset(ctx context.Context, doc, asset string) (*Asset, error)
}

// FileUploader sends one file to the LMS and returns its hosted URL.
type FileUploader interface {
	Upload(ctx context.Context, f upload.File, t upload.Target) (string, error)
}

var _ FileUploader = (*upload.Client)(nil)

// Uploader moves the local images of a fragment to the LMS.
type Uploader struct {
	fetcher  AssetFetcher
	uploader FileUploader
	clock    func() time.Time
	logger   *slog.Logger
}

// NewUploader creates an Uploader reading assets from fetcher and sending
// them through uploader.
func NewUploader(fetcher AssetFetcher, uploader FileUploader, opts ...Option) *Uploader {
	s := newSettings(opts)
	return &Uploader{
		fetcher:  fetcher,
		uploader: uploader,
		clock:    s.clock,
		logger:   logging.OrNop(s.logger),
	}
}

// UploadImages uploads every local image of fragment, in document order and
// one at a time, and rewrites the src of each uploaded image to its hosted
// URL. docPath is the root-relative path of the document that owns the
// fragment; image references resolve against its directory.
//
// A failed image keeps its src, is logged and recorded in Failures, and the
// batch continues. Only a cancelled context or an unparsable fragment fail
// the call.
func (u *Uploader) UploadImages(ctx context.Context, fragment, docPath string, target UploadTarget) (*UploadSummary, error) {
	container, err := pipeline.ParseFragment(fragment)
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(container)

	var (
		summary = &UploadSummary{}
		namer   = &fileNamer{now: u.clock}
		aborted error
	)

	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, _ := img.Attr("src")
		if pipeline.ClassifyRef(src) != pipeline.RefLocal {
			return true
		}
		summary.Total++

		if err := ctx.Err(); err != nil {
			aborted = err
			return false
		}

		hosted, err := u.uploadOne(ctx, src, docPath, namer.next(src), target)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				aborted = ctxErr
				return false
			}
			u.logger.Warn("image upload failed", "src", src, "doc", docPath, "error", err)
			summary.Failures = append(summary.Failures, ImageFailure{Src: src, Err: err})
			return true
		}

		img.SetAttr("src", hosted)
		summary.Converted++
		u.logger.Debug("image uploaded", "src", src, "url", hosted)
		return true
	})
	if aborted != nil {
		return nil, aborted
	}

	out, err := pipeline.RenderChildren(container)
	if err != nil {
		return nil, fmt.Errorf("serializing fragment: %w", err)
	}
	summary.HTML = out
	return summary, nil
}

// uploadOne fetches and uploads a single image.
func (u *Uploader) uploadOne(ctx context.Context, src, docPath, name string, target UploadTarget) (string, error) {
	asset, err := u.fetcher.FetchAsset(ctx, docPath, pipeline.LocalPath(src))
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", src, err)
	}

	contentType := asset.ContentType
	if contentType == "" {
		contentType = fileutil.ContentType(name, asset.Data)
	}

	return u.uploader.Upload(ctx, upload.File{
		Name:        name,
		ContentType: contentType,
		Data:        asset.Data,
	}, target.toUpload())
}

// fileNamer builds upload names of the form base-<unix ms>ext.
// Names within one run stay unique when the clock repeats a millisecond.
type fileNamer struct {
	now     func() time.Time
	last    int64
	counter int
}

func (n *fileNamer) next(src string) string {
	base, ext := pipeline.SplitName(src)
	if base == "" {
		base = "image"
	}

	ms := n.now().UnixMilli()
	stamp := strconv.FormatInt(ms, 10)
	if ms == n.last {
		n.counter++
		stamp += "-" + strconv.Itoa(n.counter)
	} else {
		n.last = ms
		n.counter = 0
	}
	return base + "-" + stamp + ext
}

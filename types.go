package html2lms

import (
	"fmt"
	"strings"

	"github.com/alnah/go-html2lms/internal/upload"
)

// TransformResult is an editor-ready fragment and its non-fatal warnings.
type TransformResult struct {
	File     string   `json:"file"`
	BodyHTML string   `json:"bodyHtml"`
	Warnings []string `json:"warnings"`
}

// Asset is a local file served from under the document root.
type Asset struct {
	Path        string
	ContentType string
	Data        []byte
}

// UploadTarget is where images are uploaded.
type UploadTarget struct {
	DestinationID string
	Folder        string
}

func (t UploadTarget) toUpload() upload.Target {
	return upload.Target{DestinationID: t.DestinationID, Folder: t.Folder}
}

// ImageFailure records one image that could not be uploaded.
type ImageFailure struct {
	Src string
	Err error
}

// UploadSummary is the outcome of an image batch.
// Total counts local images only; Failures is meant for diagnostics.
type UploadSummary struct {
	HTML      string
	Converted int
	Total     int
	Failures  []ImageFailure
}

// Ratio returns the user-facing summary line, e.g. "3/4 images uploaded".
func (s *UploadSummary) Ratio() string {
	return fmt.Sprintf("%d/%d images uploaded", s.Converted, s.Total)
}

// Mode selects how a fragment enters the editor.
type Mode string

// Publish modes.
const (
	ModeInsert  Mode = "insert"  // insert at the cursor
	ModeReplace Mode = "replace" // replace the whole editor content
)

// ParseMode parses a mode name; empty means ModeInsert.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeInsert:
		return ModeInsert, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("%w: %q (must be insert or replace)", ErrInvalidMode, s)
	}
}

// PublishInput names the document to publish.
type PublishInput struct {
	File   string
	Folder string
	Mode   Mode
}

// PublishResult reports a publish run.
type PublishResult struct {
	File          string
	DestinationID string
	Converted     int
	Total         int
	Warnings      []string
	Failures      []ImageFailure
	Summary       string
}

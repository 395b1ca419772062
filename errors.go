package html2lms

import (
	"errors"

	"github.com/alnah/go-html2lms/internal/assets"
	"github.com/alnah/go-html2lms/internal/credentials"
	"github.com/alnah/go-html2lms/internal/pipeline"
	"github.com/alnah/go-html2lms/internal/sandbox"
	"github.com/alnah/go-html2lms/internal/upload"
)

// Sentinel errors for library operations.
var (
	ErrNotFound          = errors.New("document not found")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrAssetUnreadable   = errors.New("asset not readable")
	ErrEditorUnavailable = errors.New("rich content editor not available")
	ErrEditorCommand     = errors.New("editor command failed")
	ErrInvalidRoot       = errors.New("invalid document root")
	ErrInvalidAssetPath  = errors.New("invalid asset path")
	ErrInvalidMode       = errors.New("invalid publish mode")
	ErrBrowserConnect    = errors.New("failed to connect to browser")
	ErrPageNotFound      = errors.New("no open page matches")
	ErrListener          = errors.New("listener request failed")
	ErrListenerDown      = errors.New("listener unreachable")
)

// Errors from internal packages, re-exported for errors.Is checks.
var (
	ErrParse         = pipeline.ErrParse
	ErrInline        = pipeline.ErrInline
	ErrPathEscape    = sandbox.ErrPathEscape
	ErrEmptyPath     = sandbox.ErrEmptyPath
	ErrStyleNotFound = assets.ErrStyleNotFound
	ErrUploadPhase   = upload.ErrUploadPhase
	ErrNoUsableURL   = upload.ErrNoUsableURL
	ErrNoDestination = upload.ErrNoDestination
	ErrNoCredentials = credentials.ErrNoCredentials
)

package main

import (
	"errors"
	"os"

	flag "github.com/spf13/pflag"

	html2lms "github.com/alnah/go-html2lms"
	"github.com/alnah/go-html2lms/internal/config"
	"github.com/alnah/go-html2lms/internal/upload"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage       = errors.New("invalid usage")
	ErrWriteOutput = errors.New("failed to write output")
)

// Exit codes for html2lms CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful run
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // Document not found, permission denied, path escape
	ExitBrowser = 4 // Browser, page or editor errors
	ExitRemote  = 5 // LMS upload, credentials or listener errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, html2lms.ErrBrowserConnect) ||
		errors.Is(err, html2lms.ErrPageNotFound) ||
		errors.Is(err, html2lms.ErrEditorUnavailable) ||
		errors.Is(err, html2lms.ErrEditorCommand) {
		return ExitBrowser
	}

	// Remote errors (exit 5)
	if errors.Is(err, html2lms.ErrUploadPhase) ||
		errors.Is(err, html2lms.ErrNoUsableURL) ||
		errors.Is(err, html2lms.ErrNoDestination) ||
		errors.Is(err, html2lms.ErrNoCredentials) ||
		errors.Is(err, html2lms.ErrListener) ||
		errors.Is(err, html2lms.ErrListenerDown) {
		return ExitRemote
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, html2lms.ErrNotFound) ||
		errors.Is(err, html2lms.ErrAssetNotFound) ||
		errors.Is(err, html2lms.ErrAssetUnreadable) ||
		errors.Is(err, html2lms.ErrPathEscape) ||
		errors.Is(err, html2lms.ErrInvalidRoot) ||
		errors.Is(err, ErrWriteOutput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, html2lms.ErrEmptyPath) ||
		errors.Is(err, html2lms.ErrInvalidMode) ||
		errors.Is(err, html2lms.ErrStyleNotFound) ||
		errors.Is(err, html2lms.ErrInvalidAssetPath) ||
		errors.Is(err, upload.ErrInvalidBaseURL) ||
		isFlagError(err) {
		return ExitUsage
	}

	return ExitGeneral
}

// isFlagError reports whether err came from flag parsing.
// pflag returns plain errors, so the message prefix is the only signal.
func isFlagError(err error) bool {
	if errors.Is(err, flag.ErrHelp) {
		return true
	}
	msg := err.Error()
	for _, prefix := range []string{"unknown flag", "unknown shorthand flag", "invalid argument", "flag needs an argument", "bad flag syntax"} {
		if len(msg) >= len(prefix) && msg[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

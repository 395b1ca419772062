// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-html2lms/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for browser connection errors.
func ForBrowserConnect() string {
	var hints []string

	if os.Getenv("HTML2LMS_BROWSER_CONTROL_URL") == "" {
		hints = append(hints, "start Chrome with --remote-debugging-port=9222 and pass --control-url")
	}

	inCI := os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != ""
	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}

	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing timeout for slow uploads.
func ForTimeout() string {
	return format("for large images or slow networks, use --timeout")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-html2lms/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-html2lms") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForStyleNotFound returns hints for style not found errors.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForEditorUnavailable returns hints when no rich content editor is open.
func ForEditorUnavailable() string {
	return format("open a page, assignment or discussion in edit mode, then retry")
}

// ForNoCredentials returns hints when no CSRF token could be found.
func ForNoCredentials() string {
	return format("log in to the LMS in the controlled browser, or set HTML2LMS_CSRF_TOKEN and HTML2LMS_SESSION_COOKIE")
}

// ForNoDestination returns hints when the course id cannot be determined.
func ForNoDestination() string {
	return format("open a page under /courses/<id>/ or pass --course")
}

// ForListenerUnreachable returns hints when the local listener does not answer.
func ForListenerUnreachable(addr string) string {
	if addr == "" {
		return format("start the listener with: html2lms serve")
	}
	return format("start the listener with: html2lms serve --addr " + addr)
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}

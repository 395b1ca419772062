// Package fileutil provides file, path and reference classification helpers.
package fileutil

import (
	"mime"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsFilePath returns true if the string looks like a file path rather than a name.
// A string containing path separators (/, \) is treated as a path.
//
// Examples:
//   - "canvas" -> false (name)
//   - "./custom.css" -> true (relative path)
//   - "/absolute/path.css" -> true (absolute)
//   - "sub/dir" -> true (contains separator)
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// IsCSS returns true if the string looks like CSS content rather than a
// name or path.
func IsCSS(s string) bool {
	return strings.Contains(s, "{")
}

// IsURL returns true if the reference points at a network location:
// an http(s) URL or a protocol-relative "//host/..." reference.
func IsURL(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "//")
}

// IsEmbedded returns true for references that already carry their content
// (data: URIs) or point at browser memory (blob: URLs).
func IsEmbedded(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "blob:")
}

// ContentType returns a best-effort MIME type for a file.
// Extensions browsers are strict about win; other files are sniffed.
func ContentType(name string, data []byte) string {
	ext := strings.ToLower(path.Ext(name))

	switch ext {
	case ".css":
		return "text/css; charset=utf-8"
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	}

	if len(data) > 0 {
		if mt := mimetype.Detect(data); mt.String() != "application/octet-stream" {
			return mt.String()
		}
	}

	if ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			return mt
		}
	}

	return "application/octet-stream"
}

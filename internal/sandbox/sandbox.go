// Package sandbox confines file access to a single root directory.
//
// Every path handed to the listener (documents, stylesheets, images) goes
// through a Sandbox before it touches the filesystem. Paths are cleaned
// before the containment check, and the check compares against the root
// plus a trailing separator so that a sibling such as /srv/docs-evil never
// passes for /srv/docs.
package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Sentinel errors for sandbox operations.
var (
	// ErrPathEscape indicates the resolved path is outside the root.
	ErrPathEscape = errors.New("path escapes sandbox root")

	// ErrEmptyPath indicates an empty relative path was supplied.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrInvalidRoot indicates the root is not a readable directory.
	ErrInvalidRoot = errors.New("invalid sandbox root")
)

// Sandbox resolves relative paths against a fixed root directory.
type Sandbox struct {
	root string
}

// New creates a Sandbox rooted at dir.
// The root is made absolute and symlinks in it are resolved once, so that
// containment checks compare real paths.
func New(dir string) (*Sandbox, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidRoot)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory does not exist: %s", ErrInvalidRoot, abs)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory: %s", ErrInvalidRoot, abs)
	}

	return &Sandbox{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve returns the absolute path of rel under the sandbox root.
func (s *Sandbox) Resolve(rel string) (string, error) {
	return Resolve(s.root, rel)
}

// ResolveAsset resolves assetRel relative to the directory of the document
// docRel, then re-validates the result against the root.
func (s *Sandbox) ResolveAsset(docRel, assetRel string) (string, error) {
	if assetRel == "" {
		return "", ErrEmptyPath
	}
	docPath, err := s.Resolve(docRel)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(filepath.FromSlash(assetRel)) {
		return "", fmt.Errorf("%w: %q is absolute", ErrPathEscape, assetRel)
	}
	joined := filepath.Join(filepath.Dir(docPath), filepath.FromSlash(assetRel))
	return s.contain(joined, assetRel)
}

// Rel converts an absolute path under the root to a slash-separated
// root-relative path.
func (s *Sandbox) Rel(abs string) (string, error) {
	if _, err := s.contain(abs, abs); err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathEscape, err)
	}
	return filepath.ToSlash(rel), nil
}

// List returns the root-relative paths of regular files whose extension is
// one of exts (case-insensitive), sorted lexicographically.
// Hidden directories and files are skipped.
func (s *Sandbox) List(exts ...string) ([]string, error) {
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}

	var files []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if path != s.root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if len(want) > 0 && !want[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.root, err)
	}

	sort.Strings(files)
	return files, nil
}

// Resolve joins rel onto root and fails with ErrPathEscape unless the result
// equals root or lies beneath it. root must be absolute.
func Resolve(root, rel string) (string, error) {
	if rel == "" {
		return "", ErrEmptyPath
	}
	native := filepath.FromSlash(rel)
	if filepath.IsAbs(native) || filepath.VolumeName(native) != "" {
		return "", fmt.Errorf("%w: %q is absolute", ErrPathEscape, rel)
	}
	root = filepath.Clean(root)
	if real, err := filepath.EvalSymlinks(root); err == nil {
		root = real
	}
	s := &Sandbox{root: root}
	return s.contain(filepath.Join(s.root, native), rel)
}

// contain checks abs against the root, lexically first and then through
// symlinks when the target exists.
func (s *Sandbox) contain(abs, display string) (string, error) {
	clean := filepath.Clean(abs)
	if !isUnder(clean, s.root) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, display)
	}

	// A symlink inside the root may still point outside it.
	if real, err := filepath.EvalSymlinks(clean); err == nil && !isUnder(real, s.root) {
		return "", fmt.Errorf("%w: %q resolves outside root", ErrPathEscape, display)
	}

	return clean, nil
}

// isUnder reports whether path equals dir or is a descendant of it.
// Both arguments must be clean.
func isUnder(path, dir string) bool {
	if path == dir {
		return true
	}
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

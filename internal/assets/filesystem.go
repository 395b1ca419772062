package assets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alnah/go-html2lms/internal/sandbox"
)

// FilesystemLoader loads assets from a directory on the filesystem.
type FilesystemLoader struct {
	box *sandbox.Sandbox
}

// NewFilesystemLoader creates a FilesystemLoader for the given base path.
// Returns ErrInvalidBasePath if the path is not a valid, readable directory.
func NewFilesystemLoader(basePath string) (*FilesystemLoader, error) {
	if basePath == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidBasePath)
	}

	box, err := sandbox.New(basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}

	// Verify read access by attempting to read directory
	if _, err := os.ReadDir(box.Root()); err != nil {
		return nil, fmt.Errorf("%w: cannot read directory: %v", ErrInvalidBasePath, err)
	}

	return &FilesystemLoader{box: box}, nil
}

// LoadStyle loads {basePath}/styles/{name}.css.
func (f *FilesystemLoader) LoadStyle(name string) (string, error) {
	return f.load(name, "styles/"+name+".css", ErrStyleNotFound)
}

// LoadTemplate loads {basePath}/templates/{name}.html.
func (f *FilesystemLoader) LoadTemplate(name string) (string, error) {
	return f.load(name, "templates/"+name+".html", ErrTemplateNotFound)
}

func (f *FilesystemLoader) load(name, rel string, notFound error) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}

	filePath, err := f.box.Resolve(rel)
	if err != nil {
		if errors.Is(err, sandbox.ErrPathEscape) {
			return "", fmt.Errorf("%w: %v", ErrPathTraversal, err)
		}
		return "", fmt.Errorf("%w: %v", ErrAssetRead, err)
	}

	content, err := os.ReadFile(filePath) // #nosec G304 -- path contained by sandbox
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %q", notFound, name)
		}
		return "", fmt.Errorf("%w: %v", ErrAssetRead, err)
	}

	return string(content), nil
}

// StyleNames lists {basePath}/styles/*.css by name. Names that would fail
// validation are skipped.
func (f *FilesystemLoader) StyleNames() []string {
	dir, err := f.box.Resolve("styles")
	if err != nil {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".css")
		if !ok || e.IsDir() || ValidateAssetName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	return names
}

// Compile-time interface check.
var _ AssetLoader = (*FilesystemLoader)(nil)

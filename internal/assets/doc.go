// Package assets provides the base CSS styles prepended to document styles
// and the HTML templates served by the local listener.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (built-in assets)
//	    ├── FilesystemLoader  - loads from a custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── {name}.css      # base styles (e.g., compact.css)
//	└── templates/
//	    └── {name}.html     # listener pages (e.g., index.html)
//
// Asset names are validated; the filesystem loader resolves names through
// the path sandbox so symlinks cannot leave basePath.
package assets

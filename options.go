package html2lms

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alnah/go-html2lms/internal/pipeline"
)

// settings holds values shared by every constructor's options.
// Each constructor reads only the fields it cares about.
type settings struct {
	logger     *slog.Logger
	inliner    pipeline.Inliner
	converter  pipeline.HTMLConverter
	cardClass  string
	style      string
	assetPath  string
	minify     bool
	clock      func() time.Time
	httpClient *http.Client
	page       PageInfo
	fallbackID string
}

// Option configures a Transformer, Uploader, Publisher or ServerClient.
type Option func(*settings)

func newSettings(opts []Option) settings {
	s := settings{
		cardClass: pipeline.DefaultCardClass,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger sets the diagnostics logger. Defaults to a discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithInliner replaces the CSS inliner (default: go-premailer).
func WithInliner(i pipeline.Inliner) Option {
	return func(s *settings) {
		s.inliner = i
	}
}

// WithHTMLConverter replaces the Markdown renderer (default: Goldmark).
func WithHTMLConverter(c pipeline.HTMLConverter) Option {
	return func(s *settings) {
		s.converter = c
	}
}

// WithCardClass sets the class that marks card containers.
// Empty values are ignored.
func WithCardClass(class string) Option {
	return func(s *settings) {
		if class != "" {
			s.cardClass = class
		}
	}
}

// WithStyle prepends a base stylesheet to each document's CSS.
// Accepts a style name ("default"), a file path, or raw CSS content.
func WithStyle(style string) Option {
	return func(s *settings) {
		s.style = style
	}
}

// WithAssetPath sets a directory of custom styles and templates, looked up
// before the embedded ones.
func WithAssetPath(path string) Option {
	return func(s *settings) {
		s.assetPath = path
	}
}

// WithMinify enables fragment minification.
func WithMinify(enabled bool) Option {
	return func(s *settings) {
		s.minify = enabled
	}
}

// WithClock sets the time source used to build upload file names.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithHTTPClient sets the HTTP client of a ServerClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) {
		s.httpClient = hc
	}
}

// WithPage sets the host page a Publisher reads its URL and runtime
// destination id from.
func WithPage(p PageInfo) Option {
	return func(s *settings) {
		s.page = p
	}
}

// WithDestinationID sets the destination id used when the host page URL
// carries none.
func WithDestinationID(id string) Option {
	return func(s *settings) {
		s.fallbackID = id
	}
}

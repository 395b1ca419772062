// Package server exposes a Transformer over HTTP so a script running in the
// LMS page can list documents, fetch fragments and read image bytes.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/alnah/go-html2lms"
	"github.com/alnah/go-html2lms/internal/assets"
	"github.com/alnah/go-html2lms/internal/logging"
)

// Service is what the listener serves. *html2lms.Transformer implements it.
type Service interface {
	Root() string
	List(ctx context.Context) ([]string, error)
	Transform(ctx context.Context, file string) (*html2lms.TransformResult, error)
	OpenAsset(doc, asset string) (*html2lms.Asset, error)
}

var _ Service = (*html2lms.Transformer)(nil)

// Default listener timeouts.
const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address ("127.0.0.1:8765").
	Addr string
	// AllowOrigins lists the origins allowed by CORS. Empty allows all.
	AllowOrigins []string
	// IndexTemplate overrides the embedded index page template.
	IndexTemplate string
	// Verbose enables gin's request log.
	Verbose bool
	Logger  *slog.Logger
}

// Server is the local HTTP listener.
type Server struct {
	svc    Service
	engine *gin.Engine
	addr   string
	logger *slog.Logger
}

// New builds the listener routes around svc.
// The gin mode is process-wide and left to the caller.
func New(svc Service, opts Options) (*Server, error) {
	engine := gin.New()
	engine.Use(gin.Recovery())
	if opts.Verbose {
		engine.Use(gin.Logger())
	}

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.AllowOrigins
	}
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Requested-With"}
	// LMS pages are served over https from a public origin; Chrome requires
	// an explicit opt-in before they may call a loopback address.
	corsConfig.AllowPrivateNetwork = true
	engine.Use(cors.New(corsConfig))

	index := opts.IndexTemplate
	if index == "" {
		var err error
		index, err = assets.LoadTemplate(assets.IndexTemplateName)
		if err != nil {
			return nil, fmt.Errorf("loading index template: %w", err)
		}
	}
	tmpl, err := template.New(assets.IndexTemplateName).Parse(index)
	if err != nil {
		return nil, fmt.Errorf("parsing index template: %w", err)
	}
	engine.SetHTMLTemplate(tmpl)

	s := &Server{
		svc:    svc,
		engine: engine,
		addr:   opts.Addr,
		logger: logging.OrNop(opts.Logger),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/healthz", s.handleHealth)

	api := s.engine.Group("/api")
	api.Use(noStore())
	{
		api.GET("/files", s.handleFiles)
		api.GET("/transform", s.handleTransform)
		api.GET("/asset", s.handleAsset)
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// ready, when non-nil, receives the bound address once listening.
func (s *Server) ListenAndServe(ctx context.Context, ready func(addr string)) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%w: %v", html2lms.ErrListener, err)
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: DefaultReadTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("listening", "addr", ln.Addr().String(), "root", s.svc.Root())
	if ready != nil {
		ready(ln.Addr().String())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%w: %v", html2lms.ErrListener, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down listener: %w", err)
	}
	return nil
}

// noStore disables caching: every response reflects the files on disk now.
func noStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

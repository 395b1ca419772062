package main

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"

	html2lms "github.com/alnah/go-html2lms"
	"github.com/alnah/go-html2lms/internal/assets"
	"github.com/alnah/go-html2lms/internal/config"
	"github.com/alnah/go-html2lms/internal/logging"
	"github.com/alnah/go-html2lms/internal/server"
)

// runServe starts the local listener and blocks until interrupted.
func runServe(args []string, env *Environment) error {
	f, positional, err := parseServeFlags(args)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, positional[0])
	}

	cfg, err := resolveConfig(env, f.common.config)
	if err != nil {
		return err
	}
	applyTransformFlags(&f.transform, cfg)
	setIf(&cfg.Server.Addr, f.addr)
	if len(f.origins) > 0 {
		cfg.Server.AllowOrigins = f.origins
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(env, f.common)
	t, err := newTransformer(cfg, logger)
	if err != nil {
		return err
	}

	index, err := indexTemplate(cfg.Transform.AssetPath)
	if err != nil {
		return err
	}

	if f.common.verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := server.New(t, server.Options{
		Addr:          cfg.Server.Addr,
		AllowOrigins:  cfg.Server.AllowOrigins,
		IndexTemplate: index,
		Verbose:       f.common.verbose,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := env.signalContext()
	defer cancel()

	return srv.ListenAndServe(ctx, func(addr string) {
		if !f.common.quiet {
			fmt.Fprintf(env.Stdout, "Serving %s on http://%s (Ctrl-C to stop)\n", t.Root(), addr)
		}
	})
}

// indexTemplate returns a custom index page from assetPath, or "" to use
// the embedded one.
func indexTemplate(assetPath string) (string, error) {
	if assetPath == "" {
		return "", nil
	}
	resolver, err := assets.NewAssetResolver(assetPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", html2lms.ErrInvalidAssetPath, err)
	}
	return resolver.LoadTemplate(assets.IndexTemplateName)
}

// newTransformer builds a Transformer from resolved config.
func newTransformer(cfg *config.Config, logger *slog.Logger) (*html2lms.Transformer, error) {
	return html2lms.NewTransformer(cfg.Server.Root,
		html2lms.WithLogger(logger),
		html2lms.WithCardClass(cfg.Transform.CardClass),
		html2lms.WithStyle(cfg.Transform.Style),
		html2lms.WithAssetPath(cfg.Transform.AssetPath),
		html2lms.WithMinify(cfg.Transform.Minify),
	)
}

// newLogger returns a stderr logger, or a discarding one in quiet mode.
func newLogger(env *Environment, f commonFlags) *slog.Logger {
	if f.quiet {
		return logging.Nop()
	}
	return logging.New(env.Stderr, f.verbose)
}

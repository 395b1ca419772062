package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	html2lms "github.com/alnah/go-html2lms"
	"github.com/alnah/go-html2lms/internal/config"
	"github.com/alnah/go-html2lms/internal/credentials"
	"github.com/alnah/go-html2lms/internal/logging"
	"github.com/alnah/go-html2lms/internal/upload"
)

// hostPage is the editor page push works against.
type hostPage interface {
	html2lms.PageInfo
	credentials.Page
	Editor() html2lms.Editor
}

// browserSession finds the editor page and releases the browser.
type browserSession interface {
	FindPage(ctx context.Context, match string) (hostPage, error)
	Close() error
}

// browserOpener starts a browser session.
type browserOpener func(ctx context.Context, opts html2lms.BrowserOptions, logger *slog.Logger) (browserSession, error)

var _ hostPage = (*html2lms.HostPage)(nil)

// rodSession adapts *html2lms.Browser to browserSession.
type rodSession struct {
	b *html2lms.Browser
}

func (s rodSession) FindPage(ctx context.Context, match string) (hostPage, error) {
	p, err := s.b.FindPage(ctx, match)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s rodSession) Close() error { return s.b.Close() }

// openRodBrowser is the production browserOpener.
func openRodBrowser(ctx context.Context, opts html2lms.BrowserOptions, logger *slog.Logger) (browserSession, error) {
	b, err := html2lms.ConnectBrowser(ctx, opts, html2lms.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return rodSession{b: b}, nil
}

// runPush transforms one document, uploads its local images, and pastes
// the result into the open editor.
func runPush(args []string, env *Environment) error {
	f, positional, err := parsePushFlags(args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("%w: push takes exactly one document path", ErrUsage)
	}
	file := positional[0]

	cfg, err := resolveConfig(env, f.common.config)
	if err != nil {
		return err
	}
	applyPushFlags(f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	mode, err := html2lms.ParseMode(cfg.LMS.Mode)
	if err != nil {
		return err
	}

	ctx, cancel := env.signalContext()
	defer cancel()

	logger := newLogger(env, f.common)

	source, origin, err := newSource(cfg, f.listener, logger)
	if err != nil {
		return err
	}
	logger.Debug("document source", "from", origin)

	session, err := env.OpenBrowser(ctx, html2lms.BrowserOptions{
		ControlURL:  cfg.Browser.ControlURL,
		UserDataDir: cfg.Browser.UserDataDir,
		StartURL:    cfg.LMS.BaseURL,
		Headless:    f.browser.headless,
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	page, err := session.FindPage(ctx, cfg.Browser.PageMatch)
	if err != nil {
		return err
	}

	baseURL, err := lmsBaseURL(ctx, cfg.LMS.BaseURL, page)
	if err != nil {
		return err
	}

	creds := credentials.Chain{
		&credentials.PageSource{Page: page},
		credentials.FromEnv(env.Getenv),
	}
	if c, err := creds.Credentials(ctx); err == nil {
		logger.Debug("credentials found", "token", logging.Redact(c.CSRFToken), "cookies", len(c.Cookies))
	}

	client, err := upload.NewClient(baseURL, creds,
		upload.WithTimeout(cfg.LMS.Timeout),
		upload.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	uploader := html2lms.NewUploader(source, client,
		html2lms.WithLogger(logger),
		html2lms.WithClock(env.Now),
	)
	publisher := html2lms.NewPublisher(page.Editor(), source, uploader,
		html2lms.WithLogger(logger),
		html2lms.WithPage(page),
		html2lms.WithDestinationID(cfg.LMS.CourseID),
	)

	result, err := publisher.Publish(ctx, html2lms.PublishInput{
		File:   file,
		Folder: cfg.LMS.Folder,
		Mode:   mode,
	})
	if err != nil {
		return err
	}

	if !f.common.quiet {
		for _, w := range result.Warnings {
			fmt.Fprintf(env.Stderr, "warning: %s\n", w)
		}
		for _, fail := range result.Failures {
			fmt.Fprintf(env.Stderr, "warning: image not uploaded: %s: %v\n", fail.Src, fail.Err)
		}
		fmt.Fprintf(env.Stdout, "Published %s to course %s: %s\n", result.File, result.DestinationID, result.Summary)
	}
	return nil
}

// applyPushFlags overlays push flags on the config.
func applyPushFlags(f *pushFlags, cfg *config.Config) {
	applyTransformFlags(&f.transform, cfg)
	setIf(&cfg.Browser.ControlURL, f.browser.controlURL)
	setIf(&cfg.Browser.PageMatch, f.browser.pageMatch)
	setIf(&cfg.Browser.UserDataDir, f.browser.userDataDir)
	setIf(&cfg.LMS.BaseURL, f.lms.baseURL)
	setIf(&cfg.LMS.CourseID, f.lms.course)
	setIf(&cfg.LMS.Folder, f.lms.folder)
	setIf(&cfg.LMS.Mode, f.lms.mode)
	if f.lms.timeout > 0 {
		cfg.LMS.Timeout = f.lms.timeout
	}
}

// lmsBaseURL returns configured, or the origin of the editor page.
func lmsBaseURL(ctx context.Context, configured string, page html2lms.PageInfo) (string, error) {
	if configured != "" {
		return configured, nil
	}
	raw, err := page.URL(ctx)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: editor page %q has no http(s) origin", upload.ErrInvalidBaseURL, raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

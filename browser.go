package html2lms

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-html2lms/internal/credentials"
	"github.com/alnah/go-html2lms/internal/fileutil"
	"github.com/alnah/go-html2lms/internal/logging"
	"github.com/alnah/go-html2lms/internal/process"
)

var (
	_ credentials.Page = (*HostPage)(nil)
	_ PageInfo         = (*HostPage)(nil)
	_ scriptRunner     = (*HostPage)(nil)
)

// BrowserOptions selects how to reach the browser the LMS is open in.
type BrowserOptions struct {
	// ControlURL is a DevTools endpoint of a running browser
	// ("http://127.0.0.1:9222" or a ws:// URL). When empty, a visible
	// browser is launched.
	ControlURL string
	// UserDataDir is the profile of a launched browser, so LMS logins persist.
	UserDataDir string
	// StartURL is opened in a launched browser.
	StartURL string
	// Headless hides a launched browser (CI and doctor checks).
	Headless bool
}

// Browser is a DevTools session with the user's browser.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	pid      int
	logger   *slog.Logger
}

// ConnectBrowser attaches to a running browser, or launches one.
func ConnectBrowser(ctx context.Context, opts BrowserOptions, options ...Option) (*Browser, error) {
	s := newSettings(options)
	b := &Browser{logger: logging.OrNop(s.logger)}

	controlURL := opts.ControlURL
	if controlURL != "" {
		u, err := launcher.ResolveURL(controlURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
		}
		controlURL = u
	} else {
		l := launcher.New().Headless(opts.Headless).Leakless(false)
		if opts.UserDataDir != "" {
			l = l.UserDataDir(opts.UserDataDir)
		}
		// Use pre-installed browser if specified (Docker/containerized environments)
		if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
			l = l.Bin(bin)
		}
		// NoSandbox required for CI and containerized environments
		if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
			l = l.NoSandbox(true)
		}
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
		}
		b.launcher = l
		b.pid = l.PID()
		controlURL = u
		b.logger.Debug("browser launched", "pid", b.pid)
	}

	b.browser = rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.browser.Connect(); err != nil {
		b.kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	if b.launcher != nil && opts.StartURL != "" {
		p, err := b.browser.Page(proto.TargetCreateTarget{URL: opts.StartURL})
		if err == nil {
			err = p.WaitLoad()
		}
		if err != nil {
			b.logger.Warn("cannot open start page", "url", opts.StartURL, "error", err)
		}
	}

	return b, nil
}

// FindPage returns the first open page whose URL contains match.
func (b *Browser) FindPage(ctx context.Context, match string) (*HostPage, error) {
	pages, err := b.browser.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("%w: listing pages: %v", ErrBrowserConnect, err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if strings.Contains(info.URL, match) {
			b.logger.Debug("host page found", "url", info.URL)
			return &HostPage{page: p}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrPageNotFound, match)
}

// Close ends the session. A launched browser is killed with its process
// group; a connected browser belongs to the user and is left running.
func (b *Browser) Close() error {
	if b.launcher == nil {
		return nil
	}
	err := b.browser.Close()
	b.kill()
	return err
}

func (b *Browser) kill() {
	if b.launcher == nil {
		return
	}
	b.launcher.Kill()
	process.KillTree(b.pid)
}

// HostPage is the LMS page the editor runs in.
type HostPage struct {
	page *rod.Page
}

// Editor returns the rich content editor of the page.
func (h *HostPage) Editor() Editor {
	return &tinyMCEEditor{run: h}
}

// URL returns the current page URL.
func (h *HostPage) URL(ctx context.Context) (string, error) {
	info, err := h.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("reading page URL: %w", err)
	}
	return info.URL, nil
}

// Cookies returns the cookies of the page origin.
// Pages without an http(s) origin have none.
func (h *HostPage) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	pageURL, err := h.URL(ctx)
	if err != nil {
		return nil, err
	}
	if !fileutil.IsURL(pageURL) {
		return nil, nil
	}
	raw, err := h.page.Context(ctx).Cookies([]string{pageURL})
	if err != nil {
		return nil, err
	}
	cookies := make([]*http.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return cookies, nil
}

const jsMetaContent = `(name) => {
	for (const m of document.getElementsByTagName("meta")) {
		if (m.getAttribute("name") === name) return m.getAttribute("content") || "";
	}
	return "";
}`

// MetaContent returns the content of <meta name=name>, or "".
func (h *HostPage) MetaContent(ctx context.Context, name string) (string, error) {
	v, err := h.eval(ctx, jsMetaContent, name)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

const jsGlobalString = `(path) => {
	let v = window;
	for (const k of path) {
		if (v === null || v === undefined) return "";
		v = v[k];
	}
	if (v === null || v === undefined) return "";
	return String(v);
}`

// GlobalString reads window[path[0]][path[1]]... as a string, or "".
func (h *HostPage) GlobalString(ctx context.Context, path ...string) (string, error) {
	v, err := h.eval(ctx, jsGlobalString, path)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

func (h *HostPage) eval(ctx context.Context, js string, args ...any) (any, error) {
	res, err := h.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return nil, err
	}
	return res.Value.Val(), nil
}

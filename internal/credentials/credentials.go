// Package credentials supplies the CSRF token and session cookies used to
// authenticate against the LMS API.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrNoCredentials indicates no provider could supply a CSRF token.
var ErrNoCredentials = errors.New("no LMS credentials found")

// Credentials authenticate same-origin LMS requests.
type Credentials struct {
	CSRFToken string
	Cookies   []*http.Cookie
}

// Valid reports whether the credentials carry a token.
func (c Credentials) Valid() bool {
	return c.CSRFToken != ""
}

// Provider returns the current credentials.
type Provider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// Compile-time interface checks.
var (
	_ Provider = Chain(nil)
	_ Provider = Static{}
	_ Provider = (*PageSource)(nil)
)

// Chain tries providers in order and returns the first valid credentials.
type Chain []Provider

// Credentials implements Provider.
func (c Chain) Credentials(ctx context.Context) (Credentials, error) {
	var errs []error
	for _, p := range c {
		if p == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Credentials{}, err
		}
		creds, err := p.Credentials(ctx)
		if err == nil && creds.Valid() {
			return creds, nil
		}
		if err != nil && !errors.Is(err, ErrNoCredentials) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return Credentials{}, fmt.Errorf("%w: %w", ErrNoCredentials, errors.Join(errs...))
	}
	return Credentials{}, ErrNoCredentials
}

// Static returns fixed credentials, typically from configuration or the
// environment. Cookie is a raw Cookie header value ("a=1; b=2").
type Static struct {
	CSRFToken string
	Cookie    string
}

// Credentials implements Provider.
func (s Static) Credentials(_ context.Context) (Credentials, error) {
	token := strings.TrimSpace(s.CSRFToken)
	if token == "" {
		return Credentials{}, ErrNoCredentials
	}

	var cookies []*http.Cookie
	if raw := strings.TrimSpace(s.Cookie); raw != "" {
		parsed, err := http.ParseCookie(raw)
		if err != nil {
			return Credentials{}, fmt.Errorf("parsing session cookie: %w", err)
		}
		cookies = parsed
	}
	return Credentials{CSRFToken: token, Cookies: cookies}, nil
}

// Environment variable names read by FromEnv.
const (
	EnvCSRFToken     = "HTML2LMS_CSRF_TOKEN"
	EnvSessionCookie = "HTML2LMS_SESSION_COOKIE"
)

// FromEnv builds a Static provider from environment variables.
func FromEnv(getenv func(string) string) Static {
	return Static{
		CSRFToken: getenv(EnvCSRFToken),
		Cookie:    getenv(EnvSessionCookie),
	}
}

// Page inspects the host page the LMS editor runs in.
type Page interface {
	// Cookies returns the cookies visible to the page origin.
	Cookies(ctx context.Context) ([]*http.Cookie, error)
	// MetaContent returns the content attribute of <meta name=name>.
	MetaContent(ctx context.Context, name string) (string, error)
	// GlobalString reads a string property path on the page's window object.
	GlobalString(ctx context.Context, path ...string) (string, error)
}

// CSRFCookieName is the cookie the LMS stores its CSRF token in.
const CSRFCookieName = "_csrf_token"

// PageSource reads credentials from the host page.
// The token is looked up in a fixed order: the CSRF cookie, the csrf-token
// meta tag, then the page runtime variable ENV.csrf_token.
type PageSource struct {
	Page Page
}

// Credentials implements Provider.
func (s *PageSource) Credentials(ctx context.Context) (Credentials, error) {
	if s == nil || s.Page == nil {
		return Credentials{}, ErrNoCredentials
	}

	cookies, err := s.Page.Cookies(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("reading page cookies: %w", err)
	}

	if token := cookieToken(cookies); token != "" {
		return Credentials{CSRFToken: token, Cookies: cookies}, nil
	}

	if token, err := s.Page.MetaContent(ctx, "csrf-token"); err == nil && strings.TrimSpace(token) != "" {
		return Credentials{CSRFToken: strings.TrimSpace(token), Cookies: cookies}, nil
	}

	if token, err := s.Page.GlobalString(ctx, "ENV", "csrf_token"); err == nil && strings.TrimSpace(token) != "" {
		return Credentials{CSRFToken: strings.TrimSpace(token), Cookies: cookies}, nil
	}

	return Credentials{}, ErrNoCredentials
}

// cookieToken returns the URL-decoded CSRF cookie value, or "".
func cookieToken(cookies []*http.Cookie) string {
	for _, c := range cookies {
		if c == nil || c.Name != CSRFCookieName || c.Value == "" {
			continue
		}
		if v, err := url.QueryUnescape(c.Value); err == nil {
			return v
		}
		return c.Value
	}
	return ""
}

// Package upload implements the three-phase LMS file upload: a preflight
// request that returns an upload grant, a multipart upload of the bytes to
// the granted storage URL, and an optional finalize request that returns
// the hosted file record.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/alnah/go-html2lms/internal/credentials"
	"github.com/alnah/go-html2lms/internal/logging"
)

// ErrInvalidBaseURL indicates the LMS base URL is not an absolute http(s) URL.
var ErrInvalidBaseURL = errors.New("invalid LMS base URL")

const (
	// DefaultTimeout bounds each HTTP request of an upload.
	DefaultTimeout = 60 * time.Second

	defaultFileParam   = "file"
	defaultContentType = "application/octet-stream"
	maxResponseBytes   = 1 << 20
)

// File is one asset to upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Target is where uploaded files land.
type Target struct {
	DestinationID string
	Folder        string
}

// Grant is the preflight answer: where and how to send the bytes.
type Grant struct {
	UploadURL    string
	UploadParams map[string]string
	FileParam    string
}

// Client runs the upload protocol against one LMS origin.
//
// Two HTTP clients are used: api carries the session cookies and CSRF token
// for same-origin requests; storage sends the bytes anonymously and never
// follows redirects, since the redirect target is the finalize step.
type Client struct {
	base    *url.URL
	creds   credentials.Provider
	api     *http.Client
	storage *http.Client
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its transport is shared by
// the storage client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.api = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.OrNop(l)
	}
}

// NewClient creates a Client for the LMS at baseURL.
func NewClient(baseURL string, creds credentials.Provider, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	if creds == nil {
		return nil, fmt.Errorf("%w: no provider", credentials.ErrNoCredentials)
	}

	c := &Client{
		base:    base,
		creds:   creds,
		logger:  logging.Nop(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.api == nil {
		c.api = &http.Client{Timeout: c.timeout}
	}
	storage := *c.api
	storage.Jar = nil
	storage.Timeout = c.timeout
	storage.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.storage = &storage

	return c, nil
}

// BaseURL returns the LMS origin the client talks to.
func (c *Client) BaseURL() string {
	return c.base.String()
}

type state int

const (
	statePreflight state = iota
	stateBinaryUpload
	stateFinalize
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case statePreflight:
		return "preflight"
	case stateBinaryUpload:
		return "binary-upload"
	case stateFinalize:
		return "finalize"
	case stateDone:
		return "done"
	default:
		return "failed"
	}
}

// attempt carries one file through the protocol.
type attempt struct {
	state    state
	file     File
	target   Target
	creds    credentials.Credentials
	grant    Grant
	location string
	url      string
	err      error
}

func (a *attempt) terminal() bool {
	return a.state == stateDone || a.state == stateFailed
}

func (a *attempt) fail(err error) {
	a.state = stateFailed
	a.err = err
}

// Upload sends one file and returns its hosted URL.
// Failures are *PhaseError (matching ErrUploadPhase) or wrap ErrNoUsableURL.
func (c *Client) Upload(ctx context.Context, f File, t Target) (string, error) {
	if strings.TrimSpace(f.Name) == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidFile)
	}
	if strings.TrimSpace(t.DestinationID) == "" {
		return "", ErrNoDestination
	}
	if f.ContentType == "" {
		f.ContentType = defaultContentType
	}

	a := &attempt{state: statePreflight, file: f, target: t}
	for !a.terminal() {
		if err := ctx.Err(); err != nil {
			a.fail(err)
			break
		}
		from := a.state
		c.step(ctx, a)
		c.logger.Debug("upload transition", "file", f.Name, "from", from, "to", a.state)
	}

	if a.state == stateFailed {
		return "", a.err
	}
	return a.url, nil
}

// step advances a by exactly one transition.
func (c *Client) step(ctx context.Context, a *attempt) {
	switch a.state {
	case statePreflight:
		c.preflight(ctx, a)
	case stateBinaryUpload:
		c.sendBytes(ctx, a)
	case stateFinalize:
		c.finalize(ctx, a)
	}
}

func (c *Client) preflight(ctx context.Context, a *attempt) {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		a.fail(newPhaseError(PhasePreflight, 0, "", err))
		return
	}
	a.creds = creds

	form := url.Values{}
	form.Set("name", a.file.Name)
	form.Set("size", strconv.Itoa(len(a.file.Data)))
	form.Set("content_type", a.file.ContentType)
	form.Set("on_duplicate", "rename")
	if folder := strings.TrimSpace(a.target.Folder); folder != "" {
		form.Set("parent_folder_path", folder)
	}
	form.Set("authenticity_token", creds.CSRFToken)

	endpoint := c.base.JoinPath("api", "v1", "courses", a.target.DestinationID, "files")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		a.fail(newPhaseError(PhasePreflight, 0, "", err))
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.authenticate(req, creds)

	c.logger.Debug("preflight", "endpoint", endpoint.String(), "token", logging.Redact(creds.CSRFToken))

	resp, raw, err := send(c.api, req)
	if err != nil {
		a.fail(newPhaseError(PhasePreflight, 0, "", err))
		return
	}
	if !isSuccess(resp.StatusCode) {
		a.fail(newPhaseError(PhasePreflight, resp.StatusCode, raw, nil))
		return
	}

	grant, err := parseGrant(raw)
	if err != nil {
		a.fail(newPhaseError(PhasePreflight, resp.StatusCode, raw, err))
		return
	}
	if resolved, err := c.base.Parse(grant.UploadURL); err == nil {
		grant.UploadURL = resolved.String()
	}
	a.grant = grant
	a.state = stateBinaryUpload
}

func (c *Client) sendBytes(ctx context.Context, a *attempt) {
	body, contentType, err := multipartBody(a.grant, a.file)
	if err != nil {
		a.fail(newPhaseError(PhaseBinary, 0, "", err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.grant.UploadURL, body)
	if err != nil {
		a.fail(newPhaseError(PhaseBinary, 0, "", err))
		return
	}
	req.Header.Set("Content-Type", contentType)

	resp, raw, err := send(c.storage, req)
	if err != nil {
		a.fail(newPhaseError(PhaseBinary, 0, "", err))
		return
	}

	location := resp.Header.Get("Location")
	switch {
	case isRedirect(resp.StatusCode) && location != "":
	case isSuccess(resp.StatusCode):
		if location == "" {
			a.complete(PhaseBinary, raw)
			return
		}
	default:
		a.fail(newPhaseError(PhaseBinary, resp.StatusCode, raw, nil))
		return
	}

	loc, err := req.URL.Parse(location)
	if err != nil {
		a.fail(newPhaseError(PhaseBinary, resp.StatusCode, raw, fmt.Errorf("bad Location %q: %w", location, err)))
		return
	}
	a.location = loc.String()
	a.state = stateFinalize
}

func (c *Client) finalize(ctx context.Context, a *attempt) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.location, nil)
	if err != nil {
		a.fail(newPhaseError(PhaseFinalize, 0, "", err))
		return
	}
	c.authenticate(req, a.creds)

	resp, raw, err := send(c.api, req)
	if err != nil {
		a.fail(newPhaseError(PhaseFinalize, 0, "", err))
		return
	}
	if !isSuccess(resp.StatusCode) {
		a.fail(newPhaseError(PhaseFinalize, resp.StatusCode, raw, nil))
		return
	}
	a.complete(PhaseFinalize, raw)
}

// complete extracts the hosted URL from the final record.
func (a *attempt) complete(phase Phase, record string) {
	u, err := extractURL(record)
	if err != nil {
		a.fail(fmt.Errorf("%s: %w", phase, err))
		return
	}
	a.url = u
	a.state = stateDone
}

// authenticate attaches the CSRF token and session cookies to same-origin
// requests only.
func (c *Client) authenticate(req *http.Request, creds credentials.Credentials) {
	req.Header.Set("Accept", "application/json")
	if !c.sameOrigin(req.URL) {
		return
	}
	if creds.CSRFToken != "" {
		req.Header.Set("X-CSRF-Token", creds.CSRFToken)
	}
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	for _, ck := range creds.Cookies {
		if ck != nil {
			req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
		}
	}
}

func (c *Client) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, c.base.Scheme) && strings.EqualFold(u.Host, c.base.Host)
}

// send performs req and reads a bounded response body.
func send(hc *http.Client, req *http.Request) (*http.Response, string, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, "", fmt.Errorf("reading response: %w", err)
	}
	return resp, string(raw), nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}

// parseGrant decodes the preflight response.
func parseGrant(raw string) (Grant, error) {
	if !gjson.Valid(raw) {
		return Grant{}, errors.New("response is not JSON")
	}
	res := gjson.Parse(raw)

	g := Grant{
		UploadURL:    strings.TrimSpace(res.Get("upload_url").String()),
		UploadParams: map[string]string{},
		FileParam:    res.Get("file_param").String(),
	}
	if g.UploadURL == "" {
		return Grant{}, errors.New("response has no upload_url")
	}
	if g.FileParam == "" {
		g.FileParam = defaultFileParam
	}
	res.Get("upload_params").ForEach(func(k, v gjson.Result) bool {
		g.UploadParams[k.String()] = v.String()
		return true
	})
	return g, nil
}

// extractURL returns the first non-empty of url, download_url, preview_url.
func extractURL(record string) (string, error) {
	if gjson.Valid(record) {
		res := gjson.Parse(record)
		for _, key := range []string{"url", "download_url", "preview_url"} {
			if u := strings.TrimSpace(res.Get(key).String()); u != "" {
				return u, nil
			}
		}
	}
	return "", ErrNoUsableURL
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody writes the grant's parameters, sorted by name, followed by
// the file part.
func multipartBody(g Grant, f File) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, k := range slices.Sorted(maps.Keys(g.UploadParams)) {
		if err := w.WriteField(k, g.UploadParams[k]); err != nil {
			return nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(g.FileParam), quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", f.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

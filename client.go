package html2lms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// maxResponseSize bounds listener responses (fragments and image bytes).
const maxResponseSize = 64 << 20

var (
	_ FragmentSource = (*ServerClient)(nil)
	_ AssetFetcher   = (*ServerClient)(nil)
)

// ServerClient talks to a running html2lms listener.
type ServerClient struct {
	base *url.URL
	hc   *http.Client
}

// NewServerClient creates a client for the listener at baseURL
// ("http://127.0.0.1:8765"). A bare host:port is accepted.
func NewServerClient(baseURL string, opts ...Option) (*ServerClient, error) {
	s := newSettings(opts)

	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid address %q", ErrListener, baseURL)
	}

	hc := s.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &ServerClient{base: u, hc: hc}, nil
}

// Health reports whether the listener answers /healthz.
func (c *ServerClient) Health(ctx context.Context) error {
	_, err := c.get(ctx, "/healthz", nil)
	return err
}

// List returns the documents served by the listener.
func (c *ServerClient) List(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "/api/files", nil)
	if err != nil {
		return nil, err
	}
	files := []string{}
	for _, f := range gjson.GetBytes(body, "files").Array() {
		files = append(files, f.String())
	}
	return files, nil
}

// Transform asks the listener for the fragment of file.
func (c *ServerClient) Transform(ctx context.Context, file string) (*TransformResult, error) {
	body, err := c.get(ctx, "/api/transform", url.Values{"file": {file}})
	if err != nil {
		return nil, err
	}
	res := gjson.ParseBytes(body)
	out := &TransformResult{
		File:     res.Get("file").String(),
		BodyHTML: res.Get("bodyHtml").String(),
		Warnings: []string{},
	}
	for _, w := range res.Get("warnings").Array() {
		out.Warnings = append(out.Warnings, w.String())
	}
	return out, nil
}

// FetchAsset downloads an asset of doc through the listener's sandbox.
// asset is a decoded file path; query encoding is the only escaping applied.
func (c *ServerClient) FetchAsset(ctx context.Context, doc, asset string) (*Asset, error) {
	req, err := c.newRequest(ctx, "/api/asset", url.Values{"file": {doc}, "path": {asset}})
	if err != nil {
		return nil, err
	}
	resp, body, err := c.do(req)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
	}
	if err != nil {
		return nil, err
	}
	return &Asset{
		Path:        asset,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        body,
	}, nil
}

func (c *ServerClient) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := c.newRequest(ctx, path, q)
	if err != nil {
		return nil, err
	}
	_, body, err := c.do(req)
	return body, err
}

func (c *ServerClient) newRequest(ctx context.Context, path string, q url.Values) (*http.Request, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrListener, err)
	}
	return req, nil
}

// do sends req and maps error statuses to sentinel errors.
func (c *ServerClient) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrListenerDown, c.base.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading response: %v", ErrListener, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, body, nil
	}

	msg := gjson.GetBytes(body, "error").String()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, msg)
	case http.StatusForbidden:
		return nil, nil, fmt.Errorf("%w: %s", ErrPathEscape, msg)
	case http.StatusUnprocessableEntity:
		return nil, nil, fmt.Errorf("%w: %s", ErrParse, msg)
	default:
		return nil, nil, fmt.Errorf("%w: status %d: %s", ErrListener, resp.StatusCode, msg)
	}
}

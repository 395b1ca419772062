package main

// Notes:
// - runMain: we test dispatch and exit codes with an injected Environment;
//   stdout and stderr are buffers, the process environment is a map.
// - transform and list run against a real temp document root.
// - push runs with a fake browser session and an httptest LMS; the rod
//   path is covered by the integration test in the root package.
// - serve is not started here (covered by internal/server tests).

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	html2lms "github.com/alnah/go-html2lms"
	"github.com/alnah/go-html2lms/internal/credentials"
)

// ---------------------------------------------------------------------------
// Test Infrastructure
// ---------------------------------------------------------------------------

// testEnv returns an Environment with buffered output and a map-backed
// process environment.
func testEnv(vars map[string]string) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	env := &Environment{
		Now:    func() time.Time { return time.UnixMilli(1700000000000) },
		Stdout: stdout,
		Stderr: stderr,
		Getenv: func(k string) string { return vars[k] },
		Environ: func() []string {
			out := make([]string, 0, len(vars))
			for k, v := range vars {
				out = append(out, k+"="+v)
			}
			return out
		},
		OpenBrowser: func(context.Context, html2lms.BrowserOptions, *slog.Logger) (browserSession, error) {
			return nil, html2lms.ErrBrowserConnect
		},
	}
	return env, stdout, stderr
}

// writeDocs creates files under a fresh temp root.
func writeDocs(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	return root
}

const lessonHTML = `<!DOCTYPE html><html><head>
<style>.card { padding: 8px; } p { color: red; }</style>
</head><body>
<div class="card"><p>Hello</p></div>
<img src="img/cat.png" alt="cat">
<img src="img/missing.png" alt="gone">
</body></html>`

// ---------------------------------------------------------------------------
// TestRunMain - Dispatch and exit codes
// ---------------------------------------------------------------------------

func TestRunMain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"no command", []string{"html2lms"}, ExitUsage, "", "Usage: html2lms"},
		{"unknown command", []string{"html2lms", "frobnicate"}, ExitUsage, "", "Unknown command: frobnicate"},
		{"version", []string{"html2lms", "version"}, ExitSuccess, "go-html2lms dev", ""},
		{"help", []string{"html2lms", "help"}, ExitSuccess, "Commands:", ""},
		{"help push", []string{"html2lms", "help", "push"}, ExitSuccess, "Usage: html2lms push", ""},
		{"help unknown", []string{"html2lms", "help", "nope"}, ExitSuccess, "", "Unknown command: nope"},
		{"transform without document", []string{"html2lms", "transform"}, ExitUsage, "", "exactly one document"},
		{"push without document", []string{"html2lms", "push"}, ExitUsage, "", "exactly one document"},
		{"unknown flag", []string{"html2lms", "list", "--nope"}, ExitUsage, "", "unknown flag"},
		{"missing config", []string{"html2lms", "list", "--config", "./does/not/exist.yaml"}, ExitUsage, "", "config file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, stdout, stderr := testEnv(nil)
			code := runMain(tt.args, env)

			if code != tt.wantCode {
				t.Errorf("runMain() = %d, want %d (stderr: %s)", code, tt.wantCode, stderr)
			}
			if tt.wantStdout != "" && !strings.Contains(stdout.String(), tt.wantStdout) {
				t.Errorf("stdout = %q, want to contain %q", stdout, tt.wantStdout)
			}
			if tt.wantStderr != "" && !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Errorf("stderr = %q, want to contain %q", stderr, tt.wantStderr)
			}
		})
	}
}

func TestHasVerboseFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"serve", "-v"}, true},
		{[]string{"push", "x.html", "--verbose"}, true},
		{[]string{"serve", "--addr", ":1"}, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := hasVerboseFlag(tt.args); got != tt.want {
			t.Errorf("hasVerboseFlag(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestRunTransform - Local transformation
// ---------------------------------------------------------------------------

func TestRunTransform(t *testing.T) {
	t.Parallel()

	root := writeDocs(t, map[string]string{
		"week1/lesson.html":     lessonHTML,
		"week1/img/cat.png":     "\x89PNG\r\n\x1a\n",
		"week1/notes/readme.md": "# Notes\n\nplain",
	})

	t.Run("prints fragment and warnings", func(t *testing.T) {
		t.Parallel()

		env, stdout, stderr := testEnv(nil)
		code := runMain([]string{"html2lms", "transform", "week1/lesson.html", "--root", root}, env)
		if code != ExitSuccess {
			t.Fatalf("runMain() = %d, stderr: %s", code, stderr)
		}

		out := stdout.String()
		if !strings.Contains(out, "color: red") {
			t.Errorf("fragment not inlined: %s", out)
		}
		if strings.Contains(out, "<style") || strings.Contains(out, "<body") {
			t.Errorf("fragment should be body content without style blocks: %s", out)
		}
		if !strings.Contains(stderr.String(), "missing local image: img/missing.png") {
			t.Errorf("stderr = %q, want missing image warning", stderr)
		}
	})

	t.Run("quiet suppresses warnings", func(t *testing.T) {
		t.Parallel()

		env, _, stderr := testEnv(nil)
		code := runMain([]string{"html2lms", "transform", "week1/lesson.html", "-r", root, "-q"}, env)
		if code != ExitSuccess {
			t.Fatalf("runMain() = %d", code)
		}
		if stderr.Len() != 0 {
			t.Errorf("stderr = %q, want empty", stderr)
		}
	})

	t.Run("json output", func(t *testing.T) {
		t.Parallel()

		env, stdout, _ := testEnv(nil)
		code := runMain([]string{"html2lms", "transform", "week1/lesson.html", "-r", root, "--json", "-q"}, env)
		if code != ExitSuccess {
			t.Fatalf("runMain() = %d", code)
		}

		var got struct {
			File     string   `json:"file"`
			BodyHTML string   `json:"bodyHtml"`
			Warnings []string `json:"warnings"`
		}
		if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON %q: %v", stdout, err)
		}
		if got.File != "week1/lesson.html" {
			t.Errorf("file = %q, want week1/lesson.html", got.File)
		}
		if len(got.Warnings) != 1 {
			t.Errorf("warnings = %v, want 1", got.Warnings)
		}
	})

	t.Run("output file", func(t *testing.T) {
		t.Parallel()

		out := filepath.Join(t.TempDir(), "fragment.html")
		env, stdout, _ := testEnv(nil)
		code := runMain([]string{"html2lms", "transform", "week1/notes/readme.md", "-r", root, "-o", out}, env)
		if code != ExitSuccess {
			t.Fatalf("runMain() = %d", code)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if !strings.Contains(string(data), "Notes</h1>") {
			t.Errorf("fragment = %q, want rendered Markdown heading", data)
		}
		if !strings.Contains(stdout.String(), "Wrote "+out) {
			t.Errorf("stdout = %q, want confirmation", stdout)
		}
	})

	t.Run("root from environment", func(t *testing.T) {
		t.Parallel()

		env, stdout, _ := testEnv(map[string]string{"HTML2LMS_ROOT": root})
		code := runMain([]string{"html2lms", "transform", "week1/lesson.html", "-q"}, env)
		if code != ExitSuccess {
			t.Fatalf("runMain() = %d", code)
		}
		if !strings.Contains(stdout.String(), "Hello") {
			t.Errorf("stdout = %q, want fragment", stdout)
		}
	})

	t.Run("missing document", func(t *testing.T) {
		t.Parallel()

		env, _, stderr := testEnv(nil)
		code := runMain([]string{"html2lms", "transform", "week9/none.html", "-r", root}, env)
		if code != ExitIO {
			t.Errorf("runMain() = %d, want %d (stderr: %s)", code, ExitIO, stderr)
		}
	})

	t.Run("path escape", func(t *testing.T) {
		t.Parallel()

		env, _, _ := testEnv(nil)
		code := runMain([]string{"html2lms", "transform", "../../etc/passwd", "-r", root}, env)
		if code != ExitIO {
			t.Errorf("runMain() = %d, want %d", code, ExitIO)
		}
	})

	t.Run("unknown style", func(t *testing.T) {
		t.Parallel()

		env, _, stderr := testEnv(nil)
		code := runMain([]string{"html2lms", "transform", "week1/lesson.html", "-r", root, "--style", "nope"}, env)
		if code != ExitUsage {
			t.Errorf("runMain() = %d, want %d", code, ExitUsage)
		}
		if !strings.Contains(stderr.String(), "hint: available: compact, default") {
			t.Errorf("stderr = %q, want style hint", stderr)
		}
	})
}

// ---------------------------------------------------------------------------
// TestRunList - Document listing
// ---------------------------------------------------------------------------

func TestRunList(t *testing.T) {
	t.Parallel()

	root := writeDocs(t, map[string]string{
		"b.html":        "<p>b</p>",
		"a/intro.md":    "# a",
		"a/photo.png":   "png",
		"notes.txt":     "skip",
		"c/page.htm":    "<p>c</p>",
		"c/d/deep.html": "<p>d</p>",
	})

	env, stdout, stderr := testEnv(nil)
	code := runMain([]string{"html2lms", "list", "--root", root}, env)
	if code != ExitSuccess {
		t.Fatalf("runMain() = %d, stderr: %s", code, stderr)
	}

	got := strings.Fields(stdout.String())
	want := []string{"a/intro.md", "b.html", "c/d/deep.html", "c/page.htm"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("list = %v, want %v", got, want)
	}
}

func TestRunList_ListenerDown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	env, _, stderr := testEnv(nil)
	code := runMain([]string{"html2lms", "list", "--listener", addr}, env)
	if code != ExitRemote {
		t.Errorf("runMain() = %d, want %d", code, ExitRemote)
	}
	if !strings.Contains(stderr.String(), "html2lms serve --addr "+addr) {
		t.Errorf("stderr = %q, want listener hint with %s", stderr, addr)
	}
}

// ---------------------------------------------------------------------------
// TestRunPush - Full publish with fakes
// ---------------------------------------------------------------------------

// fakeLMS accepts preflight and binary upload on a single origin.
type fakeLMS struct {
	srv *httptest.Server

	mu       sync.Mutex
	names    []string
	folder   string
	csrf     string
	failName string
}

func newFakeLMS(t *testing.T) *fakeLMS {
	t.Helper()
	f := &fakeLMS{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/courses/42/files":
			_ = r.ParseForm()
			f.names = append(f.names, r.PostForm.Get("name"))
			f.folder = r.PostForm.Get("parent_folder_path")
			f.csrf = r.Header.Get("X-CSRF-Token")
			_, _ = io.WriteString(w, `{"upload_url":"/storage","upload_params":{"key":"k"}}`)
		case r.Method == http.MethodPost && r.URL.Path == "/storage":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":7,"url":"https://lms.test/files/7/download"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

// fakeEditor records pasted content.
type fakeEditor struct {
	mu       sync.Mutex
	inserted string
	replaced string
}

func (e *fakeEditor) IsAvailable(context.Context) bool { return true }
func (e *fakeEditor) Focus(context.Context) error      { return nil }

func (e *fakeEditor) SetContent(_ context.Context, html string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replaced = html
	return nil
}

func (e *fakeEditor) InsertContent(_ context.Context, html string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inserted = html
	return nil
}

// fakeHostPage is an editor page on the fake LMS.
type fakeHostPage struct {
	url    string
	editor *fakeEditor
}

func (p *fakeHostPage) URL(context.Context) (string, error) { return p.url, nil }
func (p *fakeHostPage) Editor() html2lms.Editor             { return p.editor }

func (p *fakeHostPage) Cookies(context.Context) ([]*http.Cookie, error) {
	return []*http.Cookie{{Name: credentials.CSRFCookieName, Value: "tok%3D%3D"}}, nil
}

func (p *fakeHostPage) MetaContent(context.Context, string) (string, error) { return "", nil }

func (p *fakeHostPage) GlobalString(context.Context, ...string) (string, error) { return "", nil }

// fakeSession serves a single page.
type fakeSession struct {
	page   *fakeHostPage
	match  string
	closed bool
}

func (s *fakeSession) FindPage(_ context.Context, match string) (hostPage, error) {
	s.match = match
	return s.page, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func TestRunPush(t *testing.T) {
	t.Parallel()

	lms := newFakeLMS(t)
	root := writeDocs(t, map[string]string{
		"week1/lesson.html": lessonHTML,
		"week1/img/cat.png": "\x89PNG\r\n\x1a\n",
	})

	editor := &fakeEditor{}
	session := &fakeSession{page: &fakeHostPage{
		url:    lms.srv.URL + "/courses/42/pages/intro/edit",
		editor: editor,
	}}

	env, stdout, stderr := testEnv(nil)
	var gotOpts html2lms.BrowserOptions
	env.OpenBrowser = func(_ context.Context, opts html2lms.BrowserOptions, _ *slog.Logger) (browserSession, error) {
		gotOpts = opts
		return session, nil
	}

	code := runMain([]string{"html2lms", "push", "week1/lesson.html",
		"--root", root,
		"--control-url", "http://127.0.0.1:9222",
		"--folder", "course files/week1",
	}, env)
	if code != ExitSuccess {
		t.Fatalf("runMain() = %d, stderr: %s", code, stderr)
	}

	if gotOpts.ControlURL != "http://127.0.0.1:9222" {
		t.Errorf("ControlURL = %q, want flag value", gotOpts.ControlURL)
	}
	if session.match != "/courses/" {
		t.Errorf("page match = %q, want default /courses/", session.match)
	}
	if !session.closed {
		t.Error("browser session not closed")
	}

	lms.mu.Lock()
	names, folder, csrf := lms.names, lms.folder, lms.csrf
	lms.mu.Unlock()

	if len(names) != 1 || names[0] != "cat-1700000000000.png" {
		t.Errorf("uploaded names = %v, want [cat-1700000000000.png]", names)
	}
	if folder != "course files/week1" {
		t.Errorf("folder = %q", folder)
	}
	if csrf != "tok==" {
		t.Errorf("X-CSRF-Token = %q, want decoded cookie value", csrf)
	}

	editor.mu.Lock()
	inserted := editor.inserted
	editor.mu.Unlock()
	if !strings.Contains(inserted, `src="https://lms.test/files/7/download"`) {
		t.Errorf("inserted = %s, want rewritten image src", inserted)
	}
	if !strings.Contains(inserted, `src="img/missing.png"`) {
		t.Errorf("inserted = %s, failed image should keep its src", inserted)
	}

	if !strings.Contains(stdout.String(), "1/2 images uploaded") {
		t.Errorf("stdout = %q, want summary", stdout)
	}
	if !strings.Contains(stderr.String(), "image not uploaded: img/missing.png") {
		t.Errorf("stderr = %q, want failure line", stderr)
	}
}

func TestRunPush_ReplaceMode(t *testing.T) {
	t.Parallel()

	lms := newFakeLMS(t)
	root := writeDocs(t, map[string]string{"doc.html": "<p>hi</p>"})
	editor := &fakeEditor{}
	session := &fakeSession{page: &fakeHostPage{url: lms.srv.URL + "/courses/42/assignments/1/edit", editor: editor}}

	env, _, stderr := testEnv(map[string]string{"HTML2LMS_MODE": "replace"})
	env.OpenBrowser = func(context.Context, html2lms.BrowserOptions, *slog.Logger) (browserSession, error) {
		return session, nil
	}

	code := runMain([]string{"html2lms", "push", "doc.html", "--root", root, "-q"}, env)
	if code != ExitSuccess {
		t.Fatalf("runMain() = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(editor.replaced, "hi") || editor.inserted != "" {
		t.Errorf("replaced = %q, inserted = %q, want replace", editor.replaced, editor.inserted)
	}
}

func TestRunPush_Errors(t *testing.T) {
	t.Parallel()

	root := writeDocs(t, map[string]string{"doc.html": "<p>hi</p>"})

	t.Run("invalid mode", func(t *testing.T) {
		t.Parallel()
		env, _, _ := testEnv(nil)
		code := runMain([]string{"html2lms", "push", "doc.html", "-r", root, "--mode", "append"}, env)
		if code != ExitUsage {
			t.Errorf("runMain() = %d, want %d", code, ExitUsage)
		}
	})

	t.Run("browser unavailable", func(t *testing.T) {
		t.Parallel()
		env, _, stderr := testEnv(nil)
		code := runMain([]string{"html2lms", "push", "doc.html", "-r", root}, env)
		if code != ExitBrowser {
			t.Errorf("runMain() = %d, want %d", code, ExitBrowser)
		}
		if !strings.Contains(stderr.String(), "failed to connect to browser") {
			t.Errorf("stderr = %q, want browser error", stderr)
		}
	})

	t.Run("page without course id", func(t *testing.T) {
		t.Parallel()
		session := &fakeSession{page: &fakeHostPage{url: "https://lms.test/dashboard", editor: &fakeEditor{}}}
		env, _, stderr := testEnv(nil)
		env.OpenBrowser = func(context.Context, html2lms.BrowserOptions, *slog.Logger) (browserSession, error) {
			return session, nil
		}
		code := runMain([]string{"html2lms", "push", "doc.html", "-r", root}, env)
		if code != ExitRemote {
			t.Errorf("runMain() = %d, want %d", code, ExitRemote)
		}
		if !strings.Contains(stderr.String(), "--course") {
			t.Errorf("stderr = %q, want destination hint", stderr)
		}
	})
}

func TestLMSBaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		configured string
		pageURL    string
		want       string
		wantErr    bool
	}{
		{"configured wins", "https://lms.example.edu", "https://other.test/courses/1", "https://lms.example.edu", false},
		{"page origin", "", "https://lms.example.edu:8443/courses/1/pages/x/edit", "https://lms.example.edu:8443", false},
		{"data url", "", "data:text/html,<p>x</p>", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := lmsBaseURL(context.Background(), tt.configured, &fakeHostPage{url: tt.pageURL})
			if (err != nil) != tt.wantErr {
				t.Fatalf("lmsBaseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("lmsBaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

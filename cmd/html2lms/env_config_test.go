package main

// Notes:
// - loadEnvConfig takes a getenv function, so tests use maps instead of
//   t.Setenv and can run in parallel.
// - applyEnvConfig: env values override the file, flags override env.

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-html2lms/internal/config"
)

func mapEnv(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

// ---------------------------------------------------------------------------
// TestLoadEnvConfig - Environment variable loading
// ---------------------------------------------------------------------------

func TestLoadEnvConfig(t *testing.T) {
	t.Parallel()

	cfg := loadEnvConfig(mapEnv(map[string]string{
		"HTML2LMS_CONFIG":              "/etc/html2lms.yaml",
		"HTML2LMS_ROOT":                "/srv/course",
		"HTML2LMS_ADDR":                "127.0.0.1:9000",
		"HTML2LMS_STYLE":               "compact",
		"HTML2LMS_BASE_URL":            "https://lms.example.edu",
		"HTML2LMS_COURSE_ID":           "42",
		"HTML2LMS_FOLDER":              "course files/w1",
		"HTML2LMS_MODE":                "replace",
		"HTML2LMS_TIMEOUT":             "2m",
		"HTML2LMS_BROWSER_CONTROL_URL": "http://127.0.0.1:9222",
		"HTML2LMS_PAGE_MATCH":          "/edit",
	}))

	checks := []struct {
		name, got, want string
	}{
		{"ConfigPath", cfg.ConfigPath, "/etc/html2lms.yaml"},
		{"Root", cfg.Root, "/srv/course"},
		{"Addr", cfg.Addr, "127.0.0.1:9000"},
		{"Style", cfg.Style, "compact"},
		{"BaseURL", cfg.BaseURL, "https://lms.example.edu"},
		{"CourseID", cfg.CourseID, "42"},
		{"Folder", cfg.Folder, "course files/w1"},
		{"Mode", cfg.Mode, "replace"},
		{"ControlURL", cfg.ControlURL, "http://127.0.0.1:9222"},
		{"PageMatch", cfg.PageMatch, "/edit"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %v, want 2m", cfg.Timeout)
	}
}

func TestLoadEnvConfig_InvalidTimeout(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"soon", "-5s", "0s"} {
		cfg := loadEnvConfig(mapEnv(map[string]string{"HTML2LMS_TIMEOUT": v}))
		if cfg.Timeout != 0 {
			t.Errorf("HTML2LMS_TIMEOUT=%q: Timeout = %v, want 0", v, cfg.Timeout)
		}
	}
}

// ---------------------------------------------------------------------------
// TestWarnUnknownEnvVars - Typo detection
// ---------------------------------------------------------------------------

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	warnUnknownEnvVars(&buf, []string{
		"HTML2LMS_COURSE=42",
		"HTML2LMS_COURSE_ID=42",
		"HTML2LMS_CSRF_TOKEN=x",
		"PATH=/usr/bin",
	})

	out := buf.String()
	if !strings.Contains(out, "HTML2LMS_COURSE (typo?)") {
		t.Errorf("output = %q, want warning for HTML2LMS_COURSE", out)
	}
	if strings.Contains(out, "COURSE_ID") || strings.Contains(out, "CSRF") || strings.Contains(out, "PATH") {
		t.Errorf("output = %q, known variables should not warn", out)
	}
}

// ---------------------------------------------------------------------------
// TestApplyEnvConfig - Precedence
// ---------------------------------------------------------------------------

func TestApplyEnvConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.LMS.Folder = "from file"
	cfg.LMS.CourseID = "7"

	applyEnvConfig(&envConfig{CourseID: "42", Timeout: time.Minute}, cfg)

	if cfg.LMS.CourseID != "42" {
		t.Errorf("CourseID = %q, env should override file", cfg.LMS.CourseID)
	}
	if cfg.LMS.Folder != "from file" {
		t.Errorf("Folder = %q, unset env should keep file value", cfg.LMS.Folder)
	}
	if cfg.LMS.Timeout != time.Minute {
		t.Errorf("Timeout = %v, want 1m", cfg.LMS.Timeout)
	}
}

func TestResolveConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "course.yaml")
	yaml := "lms:\n  courseID: \"7\"\n  folder: uploads\ntransform:\n  minify: true\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Run("file then env then flags", func(t *testing.T) {
		t.Parallel()

		env, _, _ := testEnv(map[string]string{
			"HTML2LMS_CONFIG":    path,
			"HTML2LMS_COURSE_ID": "42",
		})
		cfg, err := resolveConfig(env, "")
		if err != nil {
			t.Fatalf("resolveConfig() error = %v", err)
		}
		if cfg.LMS.CourseID != "42" || cfg.LMS.Folder != "uploads" || !cfg.Transform.Minify {
			t.Errorf("LMS = %+v, Transform = %+v", cfg.LMS, cfg.Transform)
		}
		if cfg.Server.Addr != config.DefaultAddr {
			t.Errorf("Addr = %q, want default", cfg.Server.Addr)
		}

		f := &pushFlags{lms: lmsFlags{course: "99", mode: "replace"}}
		applyPushFlags(f, cfg)
		if cfg.LMS.CourseID != "99" || cfg.LMS.Mode != "replace" {
			t.Errorf("LMS = %+v, flags should win", cfg.LMS)
		}
		if env.Config != cfg {
			t.Error("resolveConfig() should record the config on the environment")
		}
	})

	t.Run("defaults without a file", func(t *testing.T) {
		t.Parallel()

		env, _, _ := testEnv(nil)
		cfg, err := resolveConfig(env, "")
		if err != nil {
			t.Fatalf("resolveConfig() error = %v", err)
		}
		if cfg.LMS.Mode != config.ModeInsert || cfg.Browser.PageMatch != config.DefaultPageMatch {
			t.Errorf("cfg = %+v, want defaults", cfg)
		}
	})

	t.Run("invalid env value", func(t *testing.T) {
		t.Parallel()

		env, _, _ := testEnv(map[string]string{"HTML2LMS_COURSE_ID": "abc"})
		if _, err := resolveConfig(env, ""); err == nil {
			t.Error("resolveConfig() error = nil, want invalid course id")
		}
	})
}

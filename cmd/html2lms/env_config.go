package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alnah/go-html2lms/internal/config"
	"github.com/alnah/go-html2lms/internal/credentials"
)

// envConfig holds configuration from environment variables.
// Provides CI-friendly overrides without requiring YAML files.
type envConfig struct {
	// Listener
	ConfigPath string // HTML2LMS_CONFIG: config file path
	Root       string // HTML2LMS_ROOT: document root
	Addr       string // HTML2LMS_ADDR: listen address
	Style      string // HTML2LMS_STYLE: base CSS style name or path

	// Upload destination
	BaseURL  string        // HTML2LMS_BASE_URL: LMS origin
	CourseID string        // HTML2LMS_COURSE_ID: fallback course id
	Folder   string        // HTML2LMS_FOLDER: upload folder
	Mode     string        // HTML2LMS_MODE: insert or replace
	Timeout  time.Duration // HTML2LMS_TIMEOUT: per-request upload timeout

	// Browser
	ControlURL string // HTML2LMS_BROWSER_CONTROL_URL: DevTools URL
	PageMatch  string // HTML2LMS_PAGE_MATCH: editor page URL substring
}

// knownEnvVars lists valid HTML2LMS_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"HTML2LMS_CONFIG":              true,
	"HTML2LMS_ROOT":                true,
	"HTML2LMS_ADDR":                true,
	"HTML2LMS_STYLE":               true,
	"HTML2LMS_BASE_URL":            true,
	"HTML2LMS_COURSE_ID":           true,
	"HTML2LMS_FOLDER":              true,
	"HTML2LMS_MODE":                true,
	"HTML2LMS_TIMEOUT":             true,
	"HTML2LMS_BROWSER_CONTROL_URL": true,
	"HTML2LMS_PAGE_MATCH":          true,
	"HTML2LMS_CONTAINER":           true,
	credentials.EnvCSRFToken:       true,
	credentials.EnvSessionCookie:   true,
}

// loadEnvConfig reads configuration from environment variables.
// An unparsable or non-positive timeout is ignored.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath: getenv("HTML2LMS_CONFIG"),
		Root:       getenv("HTML2LMS_ROOT"),
		Addr:       getenv("HTML2LMS_ADDR"),
		Style:      getenv("HTML2LMS_STYLE"),
		BaseURL:    getenv("HTML2LMS_BASE_URL"),
		CourseID:   getenv("HTML2LMS_COURSE_ID"),
		Folder:     getenv("HTML2LMS_FOLDER"),
		Mode:       getenv("HTML2LMS_MODE"),
		ControlURL: getenv("HTML2LMS_BROWSER_CONTROL_URL"),
		PageMatch:  getenv("HTML2LMS_PAGE_MATCH"),
	}

	if timeout := getenv("HTML2LMS_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	return cfg
}

// warnUnknownEnvVars writes warnings for unrecognized HTML2LMS_* variables.
// Helps catch typos like HTML2LMS_COURSE instead of HTML2LMS_COURSE_ID.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	for _, env := range environ {
		if strings.HasPrefix(env, "HTML2LMS_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig overlays set environment values on the config.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied later by each command).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	setIf(&cfg.Server.Root, env.Root)
	setIf(&cfg.Server.Addr, env.Addr)
	setIf(&cfg.Transform.Style, env.Style)
	setIf(&cfg.LMS.BaseURL, env.BaseURL)
	setIf(&cfg.LMS.CourseID, env.CourseID)
	setIf(&cfg.LMS.Folder, env.Folder)
	setIf(&cfg.LMS.Mode, env.Mode)
	setIf(&cfg.Browser.ControlURL, env.ControlURL)
	setIf(&cfg.Browser.PageMatch, env.PageMatch)
	if env.Timeout > 0 {
		cfg.LMS.Timeout = env.Timeout
	}
}

// setIf assigns value to dst when value is non-empty.
func setIf(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// resolveConfig loads the config named by flag or HTML2LMS_CONFIG, overlays
// the environment, and validates the result. No name means defaults.
func resolveConfig(env *Environment, name string) (*config.Config, error) {
	envCfg := loadEnvConfig(env.Getenv)
	if env.Environ != nil {
		warnUnknownEnvVars(env.Stderr, env.Environ())
	}

	if name == "" {
		name = envCfg.ConfigPath
	}

	var cfg *config.Config
	if name == "" {
		cfg = config.DefaultConfig()
	} else {
		var err error
		cfg, err = config.LoadConfig(name)
		if err != nil {
			return nil, err
		}
	}

	applyEnvConfig(envCfg, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	env.Config = cfg
	return cfg, nil
}

// applyTransformFlags overlays transformation flags on the config.
func applyTransformFlags(f *transformOptionFlags, cfg *config.Config) {
	setIf(&cfg.Server.Root, f.root)
	setIf(&cfg.Transform.Style, f.style)
	setIf(&cfg.Transform.AssetPath, f.assetPath)
	setIf(&cfg.Transform.CardClass, f.cardClass)
	if f.minify {
		cfg.Transform.Minify = true
	}
}

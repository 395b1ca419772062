// Package config loads the YAML configuration shared by the listener and the
// publishing commands.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxURLLength    = 2048 // Browser limit
	MaxPathLength   = 4096 // PATH_MAX on Linux
	MaxFolderLength = 255  // LMS folder path
	MaxClassLength  = 100  // CSS class name
	MaxNameLength   = 100  // Style name
	MaxIDLength     = 20   // Numeric course id
	MaxAddrLength   = 255  // host:port
	MaxPatternLen   = 500  // Page URL pattern
)

// Publishing modes.
const (
	ModeInsert  = "insert"
	ModeReplace = "replace"
)

// Defaults.
const (
	DefaultAddr      = "127.0.0.1:8765"
	DefaultRoot      = "."
	DefaultCardClass = "card"
	DefaultTimeout   = 60 * time.Second
	DefaultPageMatch = "/courses/"
)

// Config holds all configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transform TransformConfig `yaml:"transform"`
	LMS       LMSConfig       `yaml:"lms"`
	Browser   BrowserConfig   `yaml:"browser"`
}

// ServerConfig defines the local listener.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`         // host:port (default: 127.0.0.1:8765)
	Root         string   `yaml:"root"`         // Document root (default: ".")
	AllowOrigins []string `yaml:"allowOrigins"` // CORS origins; empty = any origin
}

// TransformConfig defines document transformation options.
type TransformConfig struct {
	CardClass string `yaml:"cardClass"` // Card container class (default: "card")
	Style     string `yaml:"style"`     // Base style name; empty = none
	AssetPath string `yaml:"assetPath"` // Custom styles/templates directory
	Minify    bool   `yaml:"minify"`    // Minify the fragment
}

// LMSConfig defines the upload destination.
type LMSConfig struct {
	BaseURL  string        `yaml:"baseURL"`  // LMS origin; empty = host page origin
	Folder   string        `yaml:"folder"`   // Upload folder path
	CourseID string        `yaml:"courseID"` // Fallback destination id
	Mode     string        `yaml:"mode"`     // "insert" or "replace" (default: insert)
	Timeout  time.Duration `yaml:"timeout"`  // Per-request timeout (default: 60s)
}

// BrowserConfig defines how the host page is reached.
type BrowserConfig struct {
	ControlURL  string `yaml:"controlURL"`  // DevTools URL of a running browser
	PageMatch   string `yaml:"pageMatch"`   // Substring of the editor page URL
	UserDataDir string `yaml:"userDataDir"` // Profile dir for a launched browser
}

// Validate checks field lengths and enumerated values.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"server.addr", c.Server.Addr, MaxAddrLength},
		{"server.root", c.Server.Root, MaxPathLength},
		{"transform.cardClass", c.Transform.CardClass, MaxClassLength},
		{"transform.style", c.Transform.Style, MaxNameLength},
		{"transform.assetPath", c.Transform.AssetPath, MaxPathLength},
		{"lms.baseURL", c.LMS.BaseURL, MaxURLLength},
		{"lms.folder", c.LMS.Folder, MaxFolderLength},
		{"lms.courseID", c.LMS.CourseID, MaxIDLength},
		{"browser.controlURL", c.Browser.ControlURL, MaxURLLength},
		{"browser.pageMatch", c.Browser.PageMatch, MaxPatternLen},
		{"browser.userDataDir", c.Browser.UserDataDir, MaxPathLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}
	for i, origin := range c.Server.AllowOrigins {
		if err := validateFieldLength(fmt.Sprintf("server.allowOrigins[%d]", i), origin, MaxURLLength); err != nil {
			return err
		}
	}

	if c.Server.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
			return fmt.Errorf("%w: server.addr %q: %v", ErrInvalidValue, c.Server.Addr, err)
		}
	}

	if strings.ContainsAny(c.Transform.CardClass, " \t\n") {
		return fmt.Errorf("%w: transform.cardClass must be a single class, got %q", ErrInvalidValue, c.Transform.CardClass)
	}

	if c.LMS.BaseURL != "" {
		u, err := url.Parse(c.LMS.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: lms.baseURL must be an absolute http(s) URL, got %q", ErrInvalidValue, c.LMS.BaseURL)
		}
	}
	if c.LMS.CourseID != "" && strings.Trim(c.LMS.CourseID, "0123456789") != "" {
		return fmt.Errorf("%w: lms.courseID must be numeric, got %q", ErrInvalidValue, c.LMS.CourseID)
	}
	switch strings.ToLower(c.LMS.Mode) {
	case "", ModeInsert, ModeReplace:
	default:
		return fmt.Errorf("%w: lms.mode %q (must be insert or replace)", ErrInvalidValue, c.LMS.Mode)
	}
	if c.LMS.Timeout < 0 {
		return fmt.Errorf("%w: lms.timeout must not be negative, got %s", ErrInvalidValue, c.LMS.Timeout)
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server:    ServerConfig{Addr: DefaultAddr, Root: DefaultRoot},
		Transform: TransformConfig{CardClass: DefaultCardClass},
		LMS:       LMSConfig{Mode: ModeInsert, Timeout: DefaultTimeout},
		Browser:   BrowserConfig{PageMatch: DefaultPageMatch},
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.Root == "" {
		c.Server.Root = d.Server.Root
	}
	if c.Transform.CardClass == "" {
		c.Transform.CardClass = d.Transform.CardClass
	}
	if c.LMS.Mode == "" {
		c.LMS.Mode = d.LMS.Mode
	}
	c.LMS.Mode = strings.ToLower(c.LMS.Mode)
	if c.LMS.Timeout == 0 {
		c.LMS.Timeout = d.LMS.Timeout
	}
	if c.Browser.PageMatch == "" {
		c.Browser.PageMatch = d.Browser.PageMatch
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	if err := unmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-html2lms/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-html2lms", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

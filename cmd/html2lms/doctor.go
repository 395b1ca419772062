package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	html2lms "github.com/alnah/go-html2lms"
	"github.com/alnah/go-html2lms/internal/credentials"
)

// listenerProbeTimeout bounds the doctor's listener health check.
const listenerProbeTimeout = 2 * time.Second

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status      string          `json:"status"` // "ready", "warnings", "errors"
	Chrome      chromeInfo      `json:"chrome"`
	Env         envInfo         `json:"environment"`
	Listener    listenerInfo    `json:"listener"`
	Credentials credentialsInfo `json:"credentials"`
	Warnings    []string        `json:"warnings,omitempty"`
	Errors      []string        `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found      bool   `json:"found"`
	Path       string `json:"path,omitempty"`
	Version    string `json:"version,omitempty"`
	Sandbox    bool   `json:"sandbox"`
	ControlURL string `json:"control_url,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// listenerInfo holds the local listener check result.
type listenerInfo struct {
	Addr      string `json:"addr"`
	Reachable bool   `json:"reachable"`
}

// credentialsInfo reports which fallback credentials are set.
type credentialsInfo struct {
	EnvToken  bool `json:"env_token"`
	EnvCookie bool `json:"env_cookie"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found, 2 = usage.
func runDoctorCmd(args []string, env *Environment) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	var (
		jsonOutput bool
		configName string
	)
	fs.BoolVar(&jsonOutput, "json", false, "print results as JSON")
	fs.StringVarP(&configName, "config", "c", "", "config file name or path")
	fs.Usage = func() { printDoctorUsage(env.Stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitUsage
	}

	result := runDoctor(env, configName)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(env *Environment, configName string) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  env.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: env.Getenv("ROD_BROWSER_BIN"),
		},
	}

	cfg, err := resolveConfig(env, configName)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Config: %v", err))
	} else {
		result.Chrome.ControlURL = cfg.Browser.ControlURL
		result.Listener.Addr = cfg.Server.Addr
	}

	checkChrome(result)
	checkEnvironment(env, result)
	checkListener(result)
	checkCredentials(env, result)

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkChrome detects a Chrome/Chromium installation. A configured control
// URL means the user's own browser is used, so a missing binary only warns.
func checkChrome(result *doctorResult) {
	chromePath := result.Env.BrowserBin

	if chromePath == "" {
		// Use rod's launcher to locate Chrome
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			msg := "Chrome/Chromium not found. Install Chrome or set ROD_BROWSER_BIN"
			if result.Chrome.ControlURL != "" {
				result.Warnings = append(result.Warnings, msg)
			} else {
				result.Errors = append(result.Errors, msg)
			}
			return
		}
	}

	// Verify it exists
	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	// Get version by running chrome --version
	cmd := exec.Command(chromePath, "--version") // #nosec G204 -- path from launcher or ROD_BROWSER_BIN
	out, err := cmd.Output()
	if err == nil {
		result.Chrome.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	// Sandbox status: disabled if ROD_NO_SANDBOX=1
	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(env *Environment, result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer(env.Getenv)

	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if env.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(getenv func(string) string) (bool, string) {
	// Explicit override (highest priority)
	if getenv("HTML2LMS_CONTAINER") == "1" {
		return true, "HTML2LMS_CONTAINER=1"
	}
	// Docker
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn / general container indicator
	if v := getenv("container"); v != "" {
		return true, "container=" + v
	}
	// Kubernetes
	if getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkListener checks the configured listener. A stopped listener is
// normal outside a session, so it only warns.
func checkListener(result *doctorResult) {
	if result.Listener.Addr == "" {
		return
	}
	client, err := html2lms.NewServerClient(result.Listener.Addr)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Listener address: %v", err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), listenerProbeTimeout)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Listener not running on %s. Start it with: html2lms serve", result.Listener.Addr))
		return
	}
	result.Listener.Reachable = true
}

// checkCredentials reports fallback credentials from the environment.
func checkCredentials(env *Environment, result *doctorResult) {
	result.Credentials.EnvToken = env.Getenv(credentials.EnvCSRFToken) != ""
	result.Credentials.EnvCookie = env.Getenv(credentials.EnvSessionCookie) != ""
	if result.Credentials.EnvToken && !result.Credentials.EnvCookie {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s is set without %s; uploads outside the browser will be rejected",
				credentials.EnvCSRFToken, credentials.EnvSessionCookie))
	}
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "html2lms doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.ControlURL != "" {
		fmt.Fprintf(w, "  [OK] Control URL: %s\n", r.Chrome.ControlURL)
	}
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	} else {
		fmt.Fprintln(w, "  [ERROR] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Listener")
	if r.Listener.Reachable {
		fmt.Fprintf(w, "  [OK] Running on %s\n", r.Listener.Addr)
	} else if r.Listener.Addr != "" {
		fmt.Fprintf(w, "  [WARN] Not running on %s\n", r.Listener.Addr)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Credentials")
	if r.Credentials.EnvToken {
		fmt.Fprintf(w, "  [OK] %s: set\n", credentials.EnvCSRFToken)
	} else {
		fmt.Fprintln(w, "  [OK] Read from the editor page at push time")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to publish")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}

package main

import (
	"os"
	"time"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// transformOptionFlags holds flags that shape the transformed fragment.
type transformOptionFlags struct {
	root      string
	style     string
	assetPath string
	cardClass string
	minify    bool
}

// browserFlags holds flags that locate the editor page.
type browserFlags struct {
	controlURL  string
	pageMatch   string
	userDataDir string
	headless    bool
}

// lmsFlags holds upload destination flags.
type lmsFlags struct {
	baseURL string
	course  string
	folder  string
	mode    string
	timeout time.Duration
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common    commonFlags
	transform transformOptionFlags
	addr      string
	origins   []string
}

// listFlags holds all flags for the list command.
type listFlags struct {
	common   commonFlags
	root     string
	listener string
}

// transformFlags holds all flags for the transform command.
type transformFlags struct {
	common    commonFlags
	transform transformOptionFlags
	listener  string
	output    string
	json      bool
}

// pushFlags holds all flags for the push command.
type pushFlags struct {
	common    commonFlags
	transform transformOptionFlags
	browser   browserFlags
	lms       lmsFlags
	listener  string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
}

// addTransformOptionFlags adds document transformation flags to a FlagSet.
func addTransformOptionFlags(fs *flag.FlagSet, f *transformOptionFlags) {
	fs.StringVarP(&f.root, "root", "r", "", "document root directory")
	fs.StringVar(&f.style, "style", "", "base CSS style name or file path")
	fs.StringVar(&f.assetPath, "asset-path", "", "custom asset directory")
	fs.StringVar(&f.cardClass, "card-class", "", "card container class")
	fs.BoolVar(&f.minify, "minify", false, "minify the fragment")
}

// addBrowserFlags adds browser connection flags to a FlagSet.
func addBrowserFlags(fs *flag.FlagSet, f *browserFlags) {
	fs.StringVar(&f.controlURL, "control-url", "", "DevTools URL of a running browser")
	fs.StringVar(&f.pageMatch, "page-match", "", "substring of the editor page URL")
	fs.StringVar(&f.userDataDir, "user-data-dir", "", "profile directory for a launched browser")
	fs.BoolVar(&f.headless, "headless", false, "launch the browser without a window")
}

// addLMSFlags adds upload destination flags to a FlagSet.
func addLMSFlags(fs *flag.FlagSet, f *lmsFlags) {
	fs.StringVar(&f.baseURL, "base-url", "", "LMS origin (default: editor page origin)")
	fs.StringVar(&f.course, "course", "", "fallback course id")
	fs.StringVar(&f.folder, "folder", "", "upload folder path")
	fs.StringVar(&f.mode, "mode", "", "insert or replace")
	fs.DurationVarP(&f.timeout, "timeout", "t", 0, "per-request upload timeout (e.g., 30s, 2m)")
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string) (*serveFlags, []string, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	f := &serveFlags{}

	fs.StringVarP(&f.addr, "addr", "a", "", "listen address host:port")
	fs.StringSliceVar(&f.origins, "allow-origin", nil, "allowed CORS origin (repeatable)")
	addCommonFlags(fs, &f.common)
	addTransformOptionFlags(fs, &f.transform)

	fs.Usage = func() { printServeUsage(os.Stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseListFlags parses list command flags.
func parseListFlags(args []string) (*listFlags, []string, error) {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	f := &listFlags{}

	fs.StringVarP(&f.root, "root", "r", "", "document root directory")
	fs.StringVarP(&f.listener, "listener", "l", "", "query a running listener at host:port")
	addCommonFlags(fs, &f.common)

	fs.Usage = func() { printListUsage(os.Stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseTransformFlags parses transform command flags.
func parseTransformFlags(args []string) (*transformFlags, []string, error) {
	fs := flag.NewFlagSet("transform", flag.ContinueOnError)
	f := &transformFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "write the fragment to a file")
	fs.StringVarP(&f.listener, "listener", "l", "", "transform through a running listener at host:port")
	fs.BoolVar(&f.json, "json", false, "print the full result as JSON")
	addCommonFlags(fs, &f.common)
	addTransformOptionFlags(fs, &f.transform)

	fs.Usage = func() { printTransformUsage(os.Stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parsePushFlags parses push command flags.
func parsePushFlags(args []string) (*pushFlags, []string, error) {
	fs := flag.NewFlagSet("push", flag.ContinueOnError)
	f := &pushFlags{}

	fs.StringVarP(&f.listener, "listener", "l", "", "read documents from a running listener at host:port")
	addCommonFlags(fs, &f.common)
	addTransformOptionFlags(fs, &f.transform)
	addBrowserFlags(fs, &f.browser)
	addLMSFlags(fs, &f.lms)

	fs.Usage = func() { printPushUsage(os.Stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

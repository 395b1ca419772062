package main

import (
	"context"
	"errors"
	"strings"

	html2lms "github.com/alnah/go-html2lms"
	"github.com/alnah/go-html2lms/internal/assets"
	"github.com/alnah/go-html2lms/internal/config"
	"github.com/alnah/go-html2lms/internal/hints"
)

// hintFor returns an actionable hint for err, or "".
// cfg may be nil when the error happened before config resolution.
func hintFor(err error, cfg *config.Config) string {
	switch {
	case errors.Is(err, html2lms.ErrBrowserConnect), errors.Is(err, html2lms.ErrPageNotFound):
		return hints.ForBrowserConnect()
	case errors.Is(err, html2lms.ErrEditorUnavailable):
		return hints.ForEditorUnavailable()
	case errors.Is(err, html2lms.ErrNoCredentials):
		return hints.ForNoCredentials()
	case errors.Is(err, html2lms.ErrNoDestination):
		return hints.ForNoDestination()
	case errors.Is(err, html2lms.ErrListenerDown):
		return hints.ForListenerUnreachable(listenerAddr(err))
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, html2lms.ErrStyleNotFound):
		return hints.ForStyleNotFound(availableStyles(cfg))
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(triedPaths(err))
	}
	return ""
}

// availableStyles lists the styles loadable with the configured asset path.
func availableStyles(cfg *config.Config) []string {
	var assetPath string
	if cfg != nil {
		assetPath = cfg.Transform.AssetPath
	}
	resolver, err := assets.NewAssetResolver(assetPath)
	if err != nil {
		resolver, _ = assets.NewAssetResolver("")
	}
	return resolver.StyleNames()
}

// triedPaths extracts the searched locations from a config-not-found error.
func triedPaths(err error) []string {
	_, list, ok := strings.Cut(err.Error(), "tried ")
	if !ok {
		return nil
	}
	return strings.Split(list, ", ")
}

// listenerAddr extracts the host:port from an ErrListenerDown message,
// which reads "listener unreachable: <host:port>: <cause>".
func listenerAddr(err error) string {
	_, rest, ok := strings.Cut(err.Error(), html2lms.ErrListenerDown.Error()+": ")
	if !ok {
		return ""
	}
	addr, _, _ := strings.Cut(rest, ": ")
	return addr
}

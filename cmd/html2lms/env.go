package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/alnah/go-html2lms/internal/config"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, process environment and the browser connector.
type Environment struct {
	Now         func() time.Time
	Stdout      io.Writer
	Stderr      io.Writer
	Getenv      func(string) string
	Environ     func() []string
	OpenBrowser browserOpener
	Config      *config.Config // Resolved once per command
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:         time.Now,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Getenv:      os.Getenv,
		Environ:     os.Environ,
		OpenBrowser: openRodBrowser,
	}
}

// signalContext returns a context cancelled on interrupt.
func (e *Environment) signalContext() (context.Context, context.CancelFunc) {
	return notifyContext(context.Background())
}

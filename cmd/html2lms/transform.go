package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	html2lms "github.com/alnah/go-html2lms"
	"github.com/alnah/go-html2lms/internal/config"
)

// runTransform prints the paste-ready fragment of one document.
// Warnings go to stderr so the fragment can be piped.
func runTransform(args []string, env *Environment) error {
	f, positional, err := parseTransformFlags(args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("%w: transform takes exactly one document path", ErrUsage)
	}
	file := positional[0]

	cfg, err := resolveConfig(env, f.common.config)
	if err != nil {
		return err
	}
	applyTransformFlags(&f.transform, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := env.signalContext()
	defer cancel()

	logger := newLogger(env, f.common)
	source, _, err := newSource(cfg, f.listener, logger)
	if err != nil {
		return err
	}

	result, err := source.Transform(ctx, file)
	if err != nil {
		return err
	}

	if !f.common.quiet {
		for _, w := range result.Warnings {
			fmt.Fprintf(env.Stderr, "warning: %s\n", w)
		}
	}

	if f.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if f.output != "" {
		if err := os.WriteFile(f.output, []byte(result.BodyHTML), 0o600); err != nil {
			return fmt.Errorf("%w: %v", ErrWriteOutput, err)
		}
		if !f.common.quiet {
			fmt.Fprintf(env.Stdout, "Wrote %s\n", f.output)
		}
		return nil
	}

	fmt.Fprintln(env.Stdout, result.BodyHTML)
	return nil
}

// documentSource transforms documents and serves their assets.
type documentSource interface {
	html2lms.FragmentSource
	html2lms.AssetFetcher
}

var (
	_ documentSource = (*html2lms.Transformer)(nil)
	_ documentSource = (*html2lms.ServerClient)(nil)
)

// newSource returns a listener client when listener is set, otherwise a
// local Transformer over the configured root. The returned label names
// where documents come from.
func newSource(cfg *config.Config, listener string, logger *slog.Logger) (documentSource, string, error) {
	if listener != "" {
		client, err := html2lms.NewServerClient(listener, html2lms.WithLogger(logger))
		if err != nil {
			return nil, "", err
		}
		return client, listener, nil
	}
	t, err := newTransformer(cfg, logger)
	if err != nil {
		return nil, "", err
	}
	return t, t.Root(), nil
}

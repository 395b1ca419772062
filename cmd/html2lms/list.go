package main

import (
	"context"
	"fmt"

	html2lms "github.com/alnah/go-html2lms"
)

// runList prints the documents under the root, one per line.
func runList(args []string, env *Environment) error {
	f, positional, err := parseListFlags(args)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, positional[0])
	}

	cfg, err := resolveConfig(env, f.common.config)
	if err != nil {
		return err
	}
	setIf(&cfg.Server.Root, f.root)

	ctx, cancel := env.signalContext()
	defer cancel()

	logger := newLogger(env, f.common)

	var files []string
	if f.listener != "" {
		client, err := html2lms.NewServerClient(f.listener, html2lms.WithLogger(logger))
		if err != nil {
			return err
		}
		files, err = client.List(ctx)
		if err != nil {
			return err
		}
	} else {
		files, err = listLocal(ctx, cfg.Server.Root)
		if err != nil {
			return err
		}
	}

	for _, file := range files {
		fmt.Fprintln(env.Stdout, file)
	}
	return nil
}

func listLocal(ctx context.Context, root string) ([]string, error) {
	t, err := html2lms.NewTransformer(root)
	if err != nil {
		return nil, err
	}
	return t.List(ctx)
}

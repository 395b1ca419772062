package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	html2lms "github.com/alnah/go-html2lms"
	"github.com/alnah/go-html2lms/internal/config"
)

// ---------------------------------------------------------------------------
// TestHintFor - Actionable hints
// ---------------------------------------------------------------------------

func TestHintFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string // substring; "" means no hint
	}{
		{"editor", html2lms.ErrEditorUnavailable, "edit mode"},
		{"credentials", html2lms.ErrNoCredentials, "HTML2LMS_CSRF_TOKEN"},
		{"destination", html2lms.ErrNoDestination, "--course"},
		{"timeout", fmt.Errorf("upload: %w", context.DeadlineExceeded), "--timeout"},
		{"style", fmt.Errorf("loading style: %w", html2lms.ErrStyleNotFound), "compact, default"},
		{"listener", fmt.Errorf("%w: 127.0.0.1:8765: connection refused", html2lms.ErrListenerDown), "--addr 127.0.0.1:8765"},
		{"config", fmt.Errorf("%w: tried a.yaml, /home/u/.config/go-html2lms/a.yaml", config.ErrConfigNotFound), "create /home/u/.config/go-html2lms/a.yaml"},
		{"other", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := hintFor(tt.err, nil)
			if tt.want == "" {
				if got != "" {
					t.Errorf("hintFor() = %q, want none", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("hintFor() = %q, want to contain %q", got, tt.want)
			}
		})
	}
}

func TestListenerAddr(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("listing: %w: localhost:9000: dial tcp: refused", html2lms.ErrListenerDown)
	if got := listenerAddr(err); got != "localhost:9000" {
		t.Errorf("listenerAddr() = %q, want localhost:9000", got)
	}
	if got := listenerAddr(errors.New("other")); got != "" {
		t.Errorf("listenerAddr() = %q, want empty", got)
	}
}

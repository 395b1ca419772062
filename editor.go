package html2lms

import (
	"context"
	"fmt"
)

// Editor is the rich content editor of the host page.
type Editor interface {
	// IsAvailable reports whether an editor instance is active.
	IsAvailable(ctx context.Context) bool
	// Focus moves the caret into the editor.
	Focus(ctx context.Context) error
	// SetContent replaces the whole editor content.
	SetContent(ctx context.Context, html string) error
	// InsertContent inserts html at the caret.
	InsertContent(ctx context.Context, html string) error
}

// scriptRunner evaluates a JavaScript function expression in a page and
// returns its decoded result.
type scriptRunner interface {
	eval(ctx context.Context, js string, args ...any) (any, error)
}

var _ Editor = (*tinyMCEEditor)(nil)

// Editor scripts. Each returns false when no editor is active so callers
// can tell an absent editor from a script failure.
const (
	jsEditorAvailable = `() => !!(window.tinymce && window.tinymce.activeEditor)`

	jsEditorFocus = `() => {
	const ed = window.tinymce && window.tinymce.activeEditor;
	if (!ed) return false;
	ed.focus();
	return true;
}`

	jsEditorSet = `(html) => {
	const ed = window.tinymce && window.tinymce.activeEditor;
	if (!ed) return false;
	ed.setContent(html);
	ed.setDirty(true);
	ed.fire("change");
	return true;
}`

	jsEditorInsert = `(html) => {
	const ed = window.tinymce && window.tinymce.activeEditor;
	if (!ed) return false;
	ed.insertContent(html);
	ed.setDirty(true);
	ed.fire("change");
	return true;
}`
)

// tinyMCEEditor drives the TinyMCE instance used by the LMS editor.
type tinyMCEEditor struct {
	run scriptRunner
}

func (e *tinyMCEEditor) IsAvailable(ctx context.Context) bool {
	v, err := e.run.eval(ctx, jsEditorAvailable)
	if err != nil {
		return false
	}
	ok, _ := v.(bool)
	return ok
}

func (e *tinyMCEEditor) Focus(ctx context.Context) error {
	return e.call(ctx, "focus", jsEditorFocus)
}

func (e *tinyMCEEditor) SetContent(ctx context.Context, html string) error {
	return e.call(ctx, "set content", jsEditorSet, html)
}

func (e *tinyMCEEditor) InsertContent(ctx context.Context, html string) error {
	return e.call(ctx, "insert content", jsEditorInsert, html)
}

func (e *tinyMCEEditor) call(ctx context.Context, name, js string, args ...any) error {
	v, err := e.run.eval(ctx, js, args...)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEditorCommand, name, err)
	}
	if ok, _ := v.(bool); !ok {
		return ErrEditorUnavailable
	}
	return nil
}

// Package pipeline implements the stages of the document transformation.
//
// The stages run in this order for every request:
//   - Markdown sources are rendered to an HTML document via Goldmark
//   - stylesheets are collected in document order and detached (CollectCSS)
//   - the combined CSS is inlined into style attributes (Inliner)
//   - trailing generator artifacts are removed from cards (CleanupCards)
//   - the body's inner markup is extracted, optionally minified
//
// Image references are scanned and classified (ScanImages, ClassifyRef) but
// never rewritten here. Uploading and rewriting images is the job of the
// root package's Uploader.
package pipeline

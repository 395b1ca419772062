// Package html2lms turns locally authored HTML and Markdown course pages into
// editor-ready fragments and publishes them into an LMS rich content editor.
//
// # Quick Start
//
// Transform a document under a root directory:
//
//	tr, err := html2lms.NewTransformer("./course")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := tr.Transform(ctx, "week1/intro.html")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.BodyHTML)
//
// # Transformation Pipeline
//
// Each request re-reads and re-parses the document:
//
//  1. Sandboxed path resolution (nothing outside the root is read)
//  2. Markdown rendering via Goldmark for .md sources
//  3. CSS collection from <style> and stylesheet <link> in document order
//  4. CSS inlining into style attributes (go-premailer by default)
//  5. Removal of the trailing empty paragraph of each card container
//  6. Body extraction, with optional minification
//
// Images are never rewritten by the transformation; missing local images
// and skipped remote assets are reported as warnings.
//
// # Publishing
//
// An Uploader sends every local image of a fragment through the LMS upload
// protocol and rewrites its src. A Publisher chains a FragmentSource, the
// Uploader and an Editor:
//
//	pub := html2lms.NewPublisher(editor, client, uploader,
//	    html2lms.WithPage(page),
//	)
//	res, err := pub.Publish(ctx, html2lms.PublishInput{File: "week1/intro.html"})
//	fmt.Println(res.Summary) // "3/4 images uploaded"
package html2lms

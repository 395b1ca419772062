package html2lms

// Notes:
// - fakeFetcher and fakeUploader stand in for the listener and the LMS; the
//   real protocol is covered in internal/upload.
// - The clock is fixed so generated names are deterministic.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-html2lms/internal/upload"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeFetcher struct {
	files map[string]string // key: doc + "|" + asset
	calls []string
}

func (f *fakeFetcher) FetchAsset(_ context.Context, doc, asset string) (*Asset, error) {
	key := doc + "|" + asset
	f.calls = append(f.calls, key)
	data, ok := f.files[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
	}
	return &Asset{Path: asset, ContentType: "image/png", Data: []byte(data)}, nil
}

type fakeUploader struct {
	failOn map[int]error // 1-based call index
	files  []upload.File
	target upload.Target
	cancel context.CancelFunc
}

func (f *fakeUploader) Upload(_ context.Context, file upload.File, target upload.Target) (string, error) {
	f.files = append(f.files, file)
	f.target = target
	if f.cancel != nil {
		f.cancel()
	}
	if err := f.failOn[len(f.files)]; err != nil {
		return "", err
	}
	return "https://lms.example.com/files/" + file.Name, nil
}

func fixedClock() func() time.Time {
	ts := time.UnixMilli(1700000000000)
	return func() time.Time { return ts }
}

// ---------------------------------------------------------------------------
// TestUploadImages - Batch semantics
// ---------------------------------------------------------------------------

func TestUploadImages_PartialFailure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{files: map[string]string{
		"w1/page.html|img/a.png": "a",
		"w1/page.html|img/b.png": "b",
		"w1/page.html|img/c.png": "c",
	}}
	up := &fakeUploader{failOn: map[int]error{
		2: &upload.PhaseError{Phase: upload.PhaseBinary, Status: 500},
	}}
	u := NewUploader(fetcher, up, WithClock(fixedClock()))

	fragment := `<p>x</p><img src="img/a.png"><img src="img/b.png" alt="b"><img src="img/c.png">`
	sum, err := u.UploadImages(context.Background(), fragment, "w1/page.html", UploadTarget{DestinationID: "42", Folder: "imports"})
	if err != nil {
		t.Fatalf("UploadImages() error = %v", err)
	}

	if sum.Converted != 2 || sum.Total != 3 {
		t.Errorf("Converted/Total = %d/%d, want 2/3", sum.Converted, sum.Total)
	}
	if got := sum.Ratio(); got != "2/3 images uploaded" {
		t.Errorf("Ratio() = %q", got)
	}
	if len(sum.Failures) != 1 || sum.Failures[0].Src != "img/b.png" {
		t.Fatalf("Failures = %+v, want one for img/b.png", sum.Failures)
	}
	if !errors.Is(sum.Failures[0].Err, ErrUploadPhase) {
		t.Errorf("failure error = %v, want ErrUploadPhase", sum.Failures[0].Err)
	}

	if !strings.Contains(sum.HTML, `src="https://lms.example.com/files/a-1700000000000.png"`) {
		t.Errorf("first image not rewritten: %s", sum.HTML)
	}
	if !strings.Contains(sum.HTML, `src="img/b.png"`) {
		t.Errorf("failed image src should be unchanged: %s", sum.HTML)
	}
	if !strings.Contains(sum.HTML, `src="https://lms.example.com/files/c-1700000000000-2.png"`) {
		t.Errorf("third image not rewritten with a unique name: %s", sum.HTML)
	}
	if !strings.HasPrefix(sum.HTML, "<p>x</p>") {
		t.Errorf("fragment not preserved: %s", sum.HTML)
	}

	if up.target.DestinationID != "42" || up.target.Folder != "imports" {
		t.Errorf("target = %+v", up.target)
	}
}

func TestUploadImages_SkipsNonLocal(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{files: map[string]string{"doc.html|a%20b.png": "x", "doc.html|a b.png": "x"}}
	up := &fakeUploader{}
	u := NewUploader(fetcher, up, WithClock(fixedClock()))

	fragment := `<img src="https://cdn.example.com/r.png"><img src="data:image/png;base64,AA=="><img><img src="/abs.png"><img src="a%20b.png">`
	sum, err := u.UploadImages(context.Background(), fragment, "doc.html", UploadTarget{DestinationID: "1"})
	if err != nil {
		t.Fatalf("UploadImages() error = %v", err)
	}
	if sum.Total != 1 || sum.Converted != 1 {
		t.Errorf("Converted/Total = %d/%d, want 1/1", sum.Converted, sum.Total)
	}
	if len(fetcher.calls) != 1 || fetcher.calls[0] != "doc.html|a b.png" {
		t.Errorf("fetch calls = %v, want decoded local path only", fetcher.calls)
	}
	if up.files[0].Name != "a b-1700000000000.png" {
		t.Errorf("upload name = %q", up.files[0].Name)
	}
	if up.files[0].ContentType != "image/png" {
		t.Errorf("ContentType = %q", up.files[0].ContentType)
	}
	if !strings.Contains(sum.HTML, `src="https://cdn.example.com/r.png"`) {
		t.Errorf("remote src changed: %s", sum.HTML)
	}
}

func TestUploadImages_FetchFailure(t *testing.T) {
	t.Parallel()

	u := NewUploader(&fakeFetcher{}, &fakeUploader{}, WithClock(fixedClock()))

	sum, err := u.UploadImages(context.Background(), `<img src="gone.png">`, "doc.html", UploadTarget{DestinationID: "1"})
	if err != nil {
		t.Fatalf("UploadImages() error = %v", err)
	}
	if sum.Converted != 0 || sum.Total != 1 {
		t.Errorf("Converted/Total = %d/%d, want 0/1", sum.Converted, sum.Total)
	}
	if len(sum.Failures) != 1 || !errors.Is(sum.Failures[0].Err, ErrAssetNotFound) {
		t.Errorf("Failures = %+v", sum.Failures)
	}
}

func TestUploadImages_EscapedNamesFromTransformer(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"doc.html":  `<html><body><img src="fig%231.png"><img src="p%2525.png"></body></html>`,
		"fig#1.png": "\x89PNG\r\n\x1a\n",
		"p%25.png":  "\x89PNG\r\n\x1a\n",
	})
	tr := newTestTransformer(t, root)
	ctx := context.Background()

	res, err := tr.Transform(ctx, "doc.html")
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", res.Warnings)
	}

	up := &fakeUploader{}
	sum, err := NewUploader(tr, up, WithClock(fixedClock())).UploadImages(ctx, res.BodyHTML, "doc.html", UploadTarget{DestinationID: "1"})
	if err != nil {
		t.Fatalf("UploadImages() error = %v", err)
	}
	if sum.Converted != 2 || len(sum.Failures) != 0 {
		t.Fatalf("Converted = %d, Failures = %+v, want 2 and none", sum.Converted, sum.Failures)
	}
	if up.files[0].Name != "fig#1-1700000000000.png" {
		t.Errorf("upload name = %q", up.files[0].Name)
	}
}

func TestUploadImages_NoImages(t *testing.T) {
	t.Parallel()

	u := NewUploader(&fakeFetcher{}, &fakeUploader{})
	sum, err := u.UploadImages(context.Background(), "<p>plain</p>", "doc.html", UploadTarget{})
	if err != nil {
		t.Fatalf("UploadImages() error = %v", err)
	}
	if sum.HTML != "<p>plain</p>" || sum.Total != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if got := sum.Ratio(); got != "0/0 images uploaded" {
		t.Errorf("Ratio() = %q", got)
	}
}

func TestUploadImages_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &fakeFetcher{files: map[string]string{"d.html|a.png": "a", "d.html|b.png": "b"}}
	up := &fakeUploader{cancel: cancel}
	u := NewUploader(fetcher, up)

	_, err := u.UploadImages(ctx, `<img src="a.png"><img src="b.png">`, "d.html", UploadTarget{DestinationID: "1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("UploadImages() error = %v, want context.Canceled", err)
	}
	if len(up.files) != 1 {
		t.Errorf("uploads = %d, want 1 before cancellation", len(up.files))
	}
}

// ---------------------------------------------------------------------------
// TestFileNamer - Unique names from a clock
// ---------------------------------------------------------------------------

func TestFileNamer(t *testing.T) {
	t.Parallel()

	times := []int64{1000, 1000, 1001, 1001, 1001}
	i := 0
	n := &fileNamer{now: func() time.Time {
		ts := time.UnixMilli(times[i])
		i++
		return ts
	}}

	got := []string{
		n.next("img/photo.JPG"),
		n.next("img/photo.JPG"),
		n.next("x.png"),
		n.next("dir/"),
		n.next("noext"),
	}
	want := []string{
		"photo-1000.JPG",
		"photo-1000-1.JPG",
		"x-1001.png",
		"dir-1001-1",
		"noext-1001-2",
	}
	for j := range want {
		if got[j] != want[j] {
			t.Errorf("name[%d] = %q, want %q", j, got[j], want[j])
		}
	}
}

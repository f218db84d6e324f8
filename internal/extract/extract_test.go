package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

type fakeDocument struct {
	pages   []string
	pageErr map[int]error
	closed  bool
}

func (f *fakeDocument) NumPage() int { return len(f.pages) }

func (f *fakeDocument) Text(n int) (string, error) {
	if err := f.pageErr[n]; err != nil {
		return "", err
	}
	return f.pages[n], nil
}

func (f *fakeDocument) Close() error {
	f.closed = true
	return nil
}

func withDocument(t *testing.T, doc *fakeDocument, openErr error) {
	t.Helper()
	original := openDocument
	openDocument = func(string) (document, error) {
		if openErr != nil {
			return nil, openErr
		}
		return doc, nil
	}
	t.Cleanup(func() { openDocument = original })
}

func TestExtractJoinsPagesWithNewline(t *testing.T) {
	doc := &fakeDocument{pages: []string{"Jane Doe\njane@x.com", "Skills: Go", ""}}
	withDocument(t, doc, nil)

	text, err := New(zap.NewNop()).Extract(context.Background(), "resume.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text != "Jane Doe\njane@x.com\nSkills: Go\n" {
		t.Fatalf("unexpected text: %q", text)
	}

	if !doc.closed {
		t.Fatal("expected document to be closed")
	}
}

func TestExtractBlankDocument(t *testing.T) {
	withDocument(t, &fakeDocument{}, nil)

	text, err := New(nil).Extract(context.Background(), "blank.pdf")
	if err != nil {
		t.Fatalf("blank document must not fail: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestExtractOpenFailure(t *testing.T) {
	withDocument(t, nil, errors.New("cannot open document"))

	_, err := New(nil).Extract(context.Background(), "broken.pdf")

	var extractErr *Error
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected extraction error, got %v", err)
	}

	if extractErr.Path != "broken.pdf" {
		t.Fatalf("unexpected path: %q", extractErr.Path)
	}
}

func TestExtractPageFailure(t *testing.T) {
	doc := &fakeDocument{pages: []string{"one", "two"}, pageErr: map[int]error{1: errors.New("bad xref")}}
	withDocument(t, doc, nil)

	_, err := New(nil).Extract(context.Background(), "resume.pdf")

	var extractErr *Error
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected extraction error, got %v", err)
	}

	if !doc.closed {
		t.Fatal("expected document to be closed on failure")
	}
}

func TestExtractPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.txt")
	if err := os.WriteFile(path, []byte("Name: Jane Doe\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	text, err := New(nil).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Name: Jane Doe\n" {
		t.Fatalf("unexpected text: %q", text)
	}

	_, err = New(nil).Extract(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	var extractErr *Error
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected extraction error for missing file, got %v", err)
	}
}

func TestExtractRequiresPath(t *testing.T) {
	var extractErr *Error
	if _, err := New(nil).Extract(context.Background(), " "); !errors.As(err, &extractErr) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

// Package extract turns resume documents into flat text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// Extractor converts a document into a flat text stream.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Error reports a document that cannot be opened or parsed.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extracting text from %q: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type document interface {
	NumPage() int
	Text(pageNumber int) (string, error)
	Close() error
}

var openDocument = func(path string) (document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

var plainTextExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// DocumentExtractor reads PDF (and the other MuPDF formats) page by page.
// Plain text files are returned verbatim.
type DocumentExtractor struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *DocumentExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentExtractor{logger: logger}
}

// Extract returns all page texts in document order joined by newlines.
func (e *DocumentExtractor) Extract(ctx context.Context, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", &Error{Err: errors.New("document path is required")}
	}

	if plainTextExtensions[strings.ToLower(filepath.Ext(path))] {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", &Error{Path: path, Err: err}
		}
		return string(data), nil
	}

	started := time.Now()

	doc, err := openDocument(path)
	if err != nil {
		return "", &Error{Path: path, Err: err}
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return "", &Error{Path: path, Err: err}
		}

		text, err := doc.Text(n)
		if err != nil {
			return "", &Error{Path: path, Err: fmt.Errorf("page %d: %w", n+1, err)}
		}
		pages = append(pages, text)
	}

	text := strings.Join(pages, "\n")

	e.logger.Debug("extracted document text",
		zap.String("document", path),
		zap.Int("pages", len(pages)),
		zap.Int("characters", len([]rune(text))),
		zap.Duration("took", time.Since(started)),
	)

	return text, nil
}

// Package document reads source files into page-structured documents.
// Extraction quality is out of our hands: upstream tools emit garbled
// spans, stray control characters and uneven whitespace, so the reader
// cleans what it can and passes the rest through.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"curriculum-rag/internal/domain"
)

var (
	controlRe   = regexp.MustCompile(`[\x00-\x08\x0b\x0e-\x1f\x7f]`)
	spaceRunsRe = regexp.MustCompile(`[ \t]{2,}`)
	blankRunsRe = regexp.MustCompile(`\n{4,}`)
)

// Reader loads .txt extracts. Multi-page extracts use the form-feed
// convention of pdftotext and friends: each \f starts a new page.
type Reader struct{}

// NewReader creates a Reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read loads every matching path into a Document. Glob patterns are
// expanded; non-.txt files are skipped. IDs are deterministic UUIDs
// derived from the path so re-ingesting a file overwrites its vectors.
func (r *Reader) Read(paths []string) ([]domain.Document, error) {
	var docs []domain.Document
	for _, p := range paths {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			if !strings.HasSuffix(strings.ToLower(m), ".txt") {
				continue
			}
			doc, err := r.ReadFile(m)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// ReadFile loads a single file into a page-structured Document.
func (r *Reader) ReadFile(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return domain.Document{
		ID:    uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String(),
		Path:  path,
		Pages: SplitPages(string(data)),
	}, nil
}

// SplitPages breaks raw extracted text on form feeds into cleaned pages.
// Without form feeds the whole text becomes a single page with no page
// number (Number 0), since the source carried no page information.
func SplitPages(raw string) []domain.Page {
	if !strings.Contains(raw, "\f") {
		return []domain.Page{{Number: 0, Text: Clean(raw)}}
	}
	parts := strings.Split(raw, "\f")
	pages := make([]domain.Page, 0, len(parts))
	for i, p := range parts {
		pages = append(pages, domain.Page{Number: i + 1, Text: Clean(p)})
	}
	return pages
}

// Clean normalizes extraction artifacts without trying to repair garbled
// script: control characters go, runs of spaces and blank lines collapse,
// line endings become \n.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = controlRe.ReplaceAllString(text, "")
	text = spaceRunsRe.ReplaceAllString(text, " ")
	text = blankRunsRe.ReplaceAllString(text, "\n\n\n")
	return text
}

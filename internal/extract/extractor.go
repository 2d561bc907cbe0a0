// Package extract provides text extraction from document streams.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/errdefs"
)

// Document is one member of a corpus. Reader is consumed exactly once.
type Document struct {
	Name   string
	Reader io.Reader
}

// Report is the outcome of extracting a whole corpus.
type Report struct {
	Text      string
	Documents int
	// Skipped lists documents dropped because they could not be parsed (skip-invalid mode only).
	Skipped []string
}

// Extractor extracts plain text from documents.
type Extractor struct {
	skipInvalid bool
	separator   string
	logger      *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSkipInvalid makes Extract skip unparseable documents instead of failing.
func WithSkipInvalid(skip bool) Option {
	return func(e *Extractor) { e.skipInvalid = skip }
}

// WithSeparator inserts sep between consecutive documents' text.
func WithSeparator(sep string) Option {
	return func(e *Extractor) { e.separator = sep }
}

// WithLogger sets a logger for skipped documents and per-document debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Extract returns the raw text of docs: each document's pages concatenated in
// page order, documents concatenated in input order.
// The first unparseable document aborts extraction with a *errdefs.DocumentParseError
// unless the extractor skips invalid documents.
func (e *Extractor) Extract(ctx context.Context, docs []Document) (*Report, error) {
	if len(docs) == 0 {
		return nil, errdefs.ErrNoDocuments
	}
	var b strings.Builder
	report := &Report{}
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := e.ExtractDocument(doc)
		if err != nil {
			perr := &errdefs.DocumentParseError{Index: i, Name: doc.Name, Err: err}
			if !e.skipInvalid {
				return nil, perr
			}
			e.logger.Warn("skipping unreadable document", zap.Int("index", i), zap.String("name", doc.Name), zap.Error(err))
			report.Skipped = append(report.Skipped, displayName(i, doc.Name))
			continue
		}
		if report.Documents > 0 && e.separator != "" {
			b.WriteString(e.separator)
		}
		b.WriteString(text)
		report.Documents++
		e.logger.Debug("document extracted", zap.Int("index", i), zap.String("name", doc.Name), zap.Int("bytes", len(text)))
	}
	report.Text = b.String()
	return report, nil
}

// ExtractDocument reads doc fully and returns its text with pages joined in order.
func (e *Extractor) ExtractDocument(doc Document) (string, error) {
	if doc.Reader == nil {
		return "", fmt.Errorf("no content")
	}
	content, err := io.ReadAll(doc.Reader)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	pages, err := e.ExtractBytes(content, formatOf(doc.Name, content))
	if err != nil {
		return "", err
	}
	return strings.Join(pages, ""), nil
}

// ExtractBytes extracts per-page text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). A page without text yields "".
func (e *Extractor) ExtractBytes(content []byte, ext string) ([]string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt":
		return extractODT(content)
	case ".xlsx":
		return extractExcel(content)
	case ".pptx":
		return extractPPTX(content)
	case ".odp":
		return extractODP(content)
	case ".ods":
		return extractODS(content)
	case ".txt", ".md", ".rst", ".csv":
		return extractPlain(content)
	default:
		return nil, fmt.Errorf("unsupported format %q", ext)
	}
}

// OpenFiles opens paths as a corpus. The returned close func releases every file.
func OpenFiles(paths []string) ([]Document, func() error, error) {
	docs := make([]Document, 0, len(paths))
	files := make([]*os.File, 0, len(paths))
	closeAll := func() error {
		var first error
		for _, f := range files {
			if err := f.Close(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("open %s: %w", p, err)
		}
		files = append(files, f)
		docs = append(docs, Document{Name: filepath.Base(p), Reader: f})
	}
	return docs, closeAll, nil
}

func displayName(i int, name string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("#%d", i+1)
}

package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/errdefs"
	"github.com/hyperjump/tanya/internal/extract"
	"github.com/hyperjump/tanya/internal/fileid"
	"github.com/hyperjump/tanya/internal/index"
	"github.com/hyperjump/tanya/internal/models"
)

// Indexer runs the ingestion pipeline: extract, split, then build the embedding index.
type Indexer struct {
	extractor *extract.Extractor
	splitter  *Splitter
	builder   *index.Builder
	progress  func() index.Progress
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for ingestion events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(ix *Indexer) { ix.logger = l }
}

// WithProgress sets a factory for per-ingestion embedding progress. A factory returning nil disables it.
func WithProgress(newProgress func() index.Progress) IndexerOption {
	return func(ix *Indexer) { ix.progress = newProgress }
}

// NewIndexer creates an indexer with the given pipeline stages.
func NewIndexer(extractor *extract.Extractor, splitter *Splitter, builder *index.Builder, opts ...IndexerOption) *Indexer {
	ix := &Indexer{
		extractor: extractor,
		splitter:  splitter,
		builder:   builder,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.logger == nil {
		ix.logger = zap.NewNop()
	}
	return ix
}

// Ingest turns docs into a ready index for sessionID. A corpus with no extractable text
// fails with errdefs.ErrNoText before anything is embedded.
func (ix *Indexer) Ingest(ctx context.Context, sessionID string, docs []extract.Document) (*index.Index, *models.ProcessResult, error) {
	start := time.Now()
	report, err := ix.extractor.Extract(ctx, docs)
	if err != nil {
		return nil, nil, err
	}
	if !HasText(report.Text) {
		return nil, nil, errdefs.ErrNoText
	}
	batch := &models.Batch{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		Documents:   report.Documents,
		Fingerprint: fileid.Fingerprint(report.Text),
		CreatedAt:   start,
	}
	chunks := ix.splitter.Chunks(batch.ID, report.Text)
	ix.logger.Debug("corpus split",
		zap.String("session_id", sessionID),
		zap.String("batch_id", batch.ID),
		zap.Int("documents", report.Documents),
		zap.Int("chunks", len(chunks)))

	var progress index.Progress
	if ix.progress != nil {
		progress = ix.progress()
	}
	idx, err := ix.builder.Build(ctx, batch, chunks, progress)
	if err != nil {
		return nil, nil, err
	}
	result := &models.ProcessResult{
		BatchID:   batch.ID,
		Documents: report.Documents,
		Skipped:   report.Skipped,
		Chunks:    len(chunks),
		TextRunes: utf8.RuneCountInString(report.Text),
		Elapsed:   time.Since(start),
	}
	ix.logger.Info("documents processed",
		zap.String("session_id", sessionID),
		zap.String("batch_id", batch.ID),
		zap.Int("documents", result.Documents),
		zap.Int("chunks", result.Chunks),
		zap.Duration("elapsed", result.Elapsed))
	return idx, result, nil
}

// CollectFiles expands paths into regular files. A path containing glob metacharacters
// is expanded with doublestar ("**" crosses directories) and each match is treated as if
// it had been named. Directories are walked recursively and keep only files whose
// extension is in allowedExts (all files when allowedExts is empty); explicitly named
// files are always kept. The result is sorted within each directory or glob and
// otherwise keeps argument order; duplicates are dropped.
func CollectFiles(paths []string, allowedExts []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range paths {
		targets := []string{p}
		if isGlob(p) {
			matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("expand %s: %w", p, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no files match %s", p)
			}
			sort.Strings(matches)
			targets = matches
		}
		for _, target := range targets {
			files, err := collectPath(target, allowedExts)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f)
			}
		}
	}
	return out, nil
}

func isGlob(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

func collectPath(p string, allowedExts []string) ([]string, error) {
	absPath, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("not a regular file: %s", absPath)
		}
		return []string{absPath}, nil
	}
	var found []string
	err = filepath.WalkDir(absPath, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if len(allowedExts) > 0 && !ExtensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		// Resolve symlinks so only regular files are collected
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		found = append(found, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(found)
	return found, nil
}

// ExtensionAllowed reports whether ext (with or without the dot) is in allowed, ignoring case.
func ExtensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

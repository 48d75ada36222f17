package crawler

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"depgraph/internal/extractor"
	"depgraph/internal/syntax"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SourceFile is one discovered file. Rel is slash-separated and relative to
// the project root; it becomes the File entity name.
type SourceFile struct {
	Path    string
	Rel     string
	Content []byte
}

// Diagnostic records a file that was skipped.
type Diagnostic struct {
	File string `json:"file"`
	Err  string `json:"error"`
}

// Crawler scans a directory for source files.
type Crawler struct {
	extractor *extractor.Extractor
	ignored   map[string]bool
	logger    *logrus.Logger
}

// NewCrawler creates a new crawler instance. extra names directories to skip
// in addition to the usual tool and environment folders.
func NewCrawler(ext *extractor.Extractor, logger *logrus.Logger, extra ...string) *Crawler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ignored := map[string]bool{
		".git": true, ".hg": true, "__pycache__": true, "node_modules": true,
		".venv": true, "venv": true, ".tox": true, ".mypy_cache": true, "site-packages": true,
	}
	for _, d := range extra {
		ignored[d] = true
	}
	return &Crawler{extractor: ext, ignored: ignored, logger: logger}
}

// ScanProject walks root and streams every accepted file to onFile in
// lexical path order.
func (c *Crawler) ScanProject(root string, onFile func(SourceFile) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path != root && c.ignored[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !c.extractor.Accepts(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			// Log and continue instead of failing the whole scan
			c.logger.WithField("file", rel).WithError(err).Warn("unreadable file skipped")
			return nil
		}
		return onFile(SourceFile{Path: path, Rel: filepath.ToSlash(rel), Content: content})
	})
}

// Result is a parsed project snapshot.
type Result struct {
	Modules     []*syntax.Module
	Contents    map[string]string
	Diagnostics []Diagnostic
}

// ParseProject scans root and parses files with up to workers goroutines
// (one per CPU when workers <= 0). Files that fail to parse are skipped with
// a diagnostic; only context cancellation aborts.
func (c *Crawler) ParseProject(ctx context.Context, root string, workers int) (*Result, error) {
	var files []SourceFile
	if err := c.ScanProject(root, func(f SourceFile) error {
		files = append(files, f)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return c.ParseFiles(ctx, files, workers)
}

func (c *Crawler) ParseFiles(ctx context.Context, files []SourceFile, workers int) (*Result, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	mods := make([]*syntax.Module, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			mods[i], errs[i] = c.extractor.ExtractSource(gctx, files[i].Rel, files[i].Content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Contents: make(map[string]string, len(files))}
	for i, f := range files {
		if errs[i] != nil {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{File: f.Rel, Err: errs[i].Error()})
			c.logger.WithField("file", f.Rel).WithError(errs[i]).Warn("parse failed, file skipped")
			continue
		}
		res.Modules = append(res.Modules, mods[i])
		res.Contents[f.Rel] = string(f.Content)
	}
	sort.Slice(res.Diagnostics, func(i, j int) bool { return res.Diagnostics[i].File < res.Diagnostics[j].File })
	c.logger.WithFields(logrus.Fields{
		"language": c.extractor.Language(),
		"parsed":   len(res.Modules),
		"skipped":  len(res.Diagnostics),
	}).Info("project parsed")
	return res, nil
}

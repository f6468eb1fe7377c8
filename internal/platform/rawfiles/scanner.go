// Package rawfiles scans the raw document drop directory and reads document
// text for extraction. Only flat directories are supported; the drop folder is
// a dump location, not a tree.
package rawfiles

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/procurement-reconciler/internal/domain/document"
)

var textMimeByExt = map[string]string{
	".txt": "text/plain",
	".md":  "text/markdown",
	".pdf": "application/pdf",
}

var ignoredFileNames = map[string]struct{}{
	".DS_Store": {},
	"Thumbs.db": {},
}

func isIgnoredFile(fileName string) bool {
	if _, ok := ignoredFileNames[fileName]; ok {
		return true
	}
	// Hidden OS/editor artifacts and dotfiles in raw dump folders
	return strings.HasPrefix(fileName, ".")
}

// Scanner lists candidate files in the raw directory and fingerprints their
// content on a bounded worker pool
type Scanner struct {
	rawDir string
	pool   *ants.Pool
	logger *slog.Logger
}

func NewScanner(logger *slog.Logger, rawDir string, poolSize int) (*Scanner, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create hasher pool: %w", err)
	}

	return &Scanner{
		rawDir: rawDir,
		pool:   pool,
		logger: logger,
	}, nil
}

// Scan returns the recognizable files in the raw directory, hashed and sorted
// by file name. Dotfiles, OS artifacts, and unsupported extensions are skipped.
func (s *Scanner) Scan() ([]document.ScannedFile, error) {
	entries, err := os.ReadDir(s.rawDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw directory %s: %w", s.rawDir, err)
	}

	var candidates []os.DirEntry
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if isIgnoredFile(entry.Name()) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := textMimeByExt[ext]; !ok {
			continue
		}
		candidates = append(candidates, entry)
	}

	results := make([]document.ScannedFile, len(candidates))
	errs := make([]error, len(candidates))
	var wg sync.WaitGroup

	for i, entry := range candidates {
		wg.Add(1)
		i, entry := i, entry
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = s.scanFile(entry.Name())
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = fmt.Errorf("failed to submit hash task for %s: %w", entry.Name(), submitErr)
		}
	}
	wg.Wait()

	var files []document.ScannedFile
	for i, err := range errs {
		if err != nil {
			return nil, err
		}
		files = append(files, results[i])
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].FileName < files[j].FileName
	})

	return files, nil
}

func (s *Scanner) scanFile(fileName string) (document.ScannedFile, error) {
	sourcePath := filepath.Join(s.rawDir, fileName)

	content, err := os.ReadFile(sourcePath)
	if err != nil {
		return document.ScannedFile{}, fmt.Errorf("failed to read file %s: %w", sourcePath, err)
	}

	sum := sha256.Sum256(content)
	ext := strings.ToLower(filepath.Ext(fileName))

	return document.ScannedFile{
		SourcePath: sourcePath,
		FileName:   fileName,
		SizeBytes:  int64(len(content)),
		MimeType:   textMimeByExt[ext],
		SHA256:     hex.EncodeToString(sum[:]),
	}, nil
}

// Release shuts down the hashing pool
func (s *Scanner) Release() {
	s.pool.Release()
}

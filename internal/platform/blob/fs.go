package blob

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FSStore implements Store on a local directory tree. Keys map directly to
// relative file paths under the root.
type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root %s: %w", root, err)
	}
	return &FSStore{root: root}, nil
}

// Upload writes data under the key, overwriting any previous object
func (s *FSStore) Upload(_ context.Context, key string, data []byte, _ string) error {
	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create blob directory for %s: %w", key, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	return nil
}

// Download reads the object stored under the key
func (s *FSStore) Download(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// ListByPrefix returns the keys of all objects under the prefix, sorted
func (s *FSStore) ListByPrefix(_ context.Context, prefix string) ([]string, error) {
	base := filepath.Join(s.root, filepath.FromSlash(prefix))
	info, err := os.Stat(base)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to stat prefix %s: %w", prefix, err)
	}
	if !info.IsDir() {
		return []string{prefix}, nil
	}

	keys := []string{}
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk prefix %s: %w", prefix, err)
	}

	sort.Strings(keys)
	return keys, nil
}

func (s *FSStore) Close() error {
	return nil
}

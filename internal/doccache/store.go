// Package doccache manages the on-disk JSON cache of collected document
// representations. Each watched document keeps its latest representation at
// its docpath under the cache root, and vector rebuilds read page content
// back from here.
package doccache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jonesrussell/docwatch/internal/domain"
)

// ErrNotFound is returned when no cached representation exists at a docpath.
var ErrNotFound = errors.New("cached document not found")

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// Store reads and writes document representations under a single root
// directory. Docpaths are always interpreted relative to the root and may
// not escape it.
type Store struct {
	root string
	mu   sync.RWMutex
}

// NewStore creates a document cache store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// resolve maps a docpath to an absolute file path, rejecting paths that
// would escape the cache root.
func (s *Store) resolve(docpath string) (string, error) {
	if docpath == "" {
		return "", fmt.Errorf("empty docpath")
	}
	if filepath.IsAbs(docpath) {
		return "", fmt.Errorf("absolute docpath not allowed: %s", docpath)
	}

	cleaned := filepath.Clean(filepath.FromSlash(docpath))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("docpath escapes cache root: %s", docpath)
	}

	return filepath.Join(s.root, cleaned), nil
}

// Read loads the cached representation stored at docpath.
func (s *Store) Read(docpath string) (*domain.DocumentRepresentation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.resolve(docpath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, docpath)
		}
		return nil, fmt.Errorf("read cached document: %w", err)
	}

	var rep domain.DocumentRepresentation
	if unmarshalErr := json.Unmarshal(data, &rep); unmarshalErr != nil {
		return nil, fmt.Errorf("parse cached document: %w", unmarshalErr)
	}

	return &rep, nil
}

// Write stores a representation at docpath, replacing any previous file.
// The write goes through a temp file and rename so readers never observe a
// partial document.
func (s *Store) Write(docpath string, rep *domain.DocumentRepresentation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.resolve(docpath)
	if err != nil {
		return err
	}

	data, err := rep.MarshalIndent()
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	dir := filepath.Dir(path)
	if mkdirErr := os.MkdirAll(dir, dirPerm); mkdirErr != nil {
		return fmt.Errorf("create cache directory: %w", mkdirErr)
	}

	tmp, err := os.CreateTemp(dir, ".docwatch-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, writeErr := tmp.Write(data); writeErr != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cached document: %w", writeErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", closeErr)
	}
	if chmodErr := os.Chmod(tmpName, filePerm); chmodErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("set file mode: %w", chmodErr)
	}

	if renameErr := os.Rename(tmpName, path); renameErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cached document: %w", renameErr)
	}

	return nil
}

// Delete removes the cached representation at docpath.
func (s *Store) Delete(docpath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.resolve(docpath)
	if err != nil {
		return err
	}

	if removeErr := os.Remove(path); removeErr != nil {
		if os.IsNotExist(removeErr) {
			return fmt.Errorf("%w: %s", ErrNotFound, docpath)
		}
		return fmt.Errorf("delete cached document: %w", removeErr)
	}

	return nil
}

// Walk calls fn with the docpath of every cached JSON document. A missing
// cache root is treated as an empty cache.
func (s *Store) Walk(fn func(docpath string) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}

		return fn(filepath.ToSlash(rel))
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("walk cache root: %w", err)
	}

	return nil
}

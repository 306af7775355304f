// Package filestore implements the record and blob stores on the local filesystem.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"carma_server/core/port/out"
)

// ErrInvalidName is returned for names that are absolute or leave the root.
var ErrInvalidName = errors.New("filestore: invalid name")

// Store keeps every document under root. Writes are serialized.
type Store struct {
	root string
	mu   sync.Mutex
}

var (
	_ out.RecordStore = (*Store)(nil)
	_ out.BlobStore   = (*Store)(nil)
)

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string { return s.root }

func (s *Store) path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if name == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.root, clean), nil
}

// Load decodes the named JSON document. Empty or undecodable files report out.ErrCorrupt.
func (s *Store) Load(_ context.Context, name string, dest any) (bool, error) {
	p, err := s.path(name)
	if err != nil {
		return false, err
	}

	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return true, fmt.Errorf("%w: %s: empty file", out.ErrCorrupt, name)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return true, fmt.Errorf("%w: %s: %v", out.ErrCorrupt, name, err)
	}
	return true, nil
}

// Save writes the document through a temp file and rename.
func (s *Store) Save(_ context.Context, name string, v any) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	b, err := encode(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// Append writes v as a single JSON line.
func (s *Store) Append(_ context.Context, name string, v any) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// PutBlob writes raw bytes and returns the file path.
func (s *Store) PutBlob(_ context.Context, name string, data []byte) (string, error) {
	p, err := s.path(name)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", err
	}
	return p, nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

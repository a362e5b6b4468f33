// Package store persists pipeline artifacts as one JSON document per id:
// parsed events, acknowledgment drafts and quotes each get their own
// directory under the data root.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store reads and writes JSON documents keyed by id inside one directory.
type Store struct {
	dir string
}

// New creates the backing directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Exists reports whether a document was already written for the id.
func (s *Store) Exists(id string) (bool, error) {
	_, err := os.Stat(s.path(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("store: stat %s: %w", id, err)
}

// Save marshals the value with indentation and writes it atomically, so a
// crashed run never leaves a truncated artifact behind.
func (s *Store) Save(id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", id, err)
	}
	final := s.path(id)
	tmp, err := os.CreateTemp(s.dir, "."+id+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: temp file for %s: %w", id, err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("store: write %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: close %s: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: rename %s: %w", id, err)
	}
	return nil
}

// Load unmarshals the document for the id into v.
func (s *Store) Load(id string, v any) error {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("store: %s: %w", id, os.ErrNotExist)
		}
		return fmt.Errorf("store: read %s: %w", id, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store: decode %s: %w", id, err)
	}
	return nil
}

// List returns the ids of all stored documents in sorted order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", s.dir, err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) path(id string) string {
	// Ids are content hashes or file stems; path separators are stripped
	// rather than trusted.
	safe := strings.ReplaceAll(strings.ReplaceAll(id, "/", "_"), string(filepath.Separator), "_")
	return filepath.Join(s.dir, safe+".json")
}

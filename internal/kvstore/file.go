package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const fileStoreVersion = 1

// FileStore persists both scopes into a single versioned JSON document with
// atomic writes. It backs the global scope in the daemon and the CLI, where
// preferences must survive restarts.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store persisting to path. The file is created on
// first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: strings.TrimSpace(path)}
}

type fileStoreDoc struct {
	Version int                                  `json:"version"`
	Scopes  map[Scope]map[string]json.RawMessage `json:"scopes,omitempty"`
}

func (s *FileStore) Get(ctx context.Context, scope Scope, key string) (json.RawMessage, bool, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, false, err
	}
	if err := checkScopeKey(scope, key); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadLocked()
	if err != nil {
		return nil, false, err
	}
	value, ok := doc.Scopes[scope][key]
	if !ok {
		return nil, false, nil
	}
	return cloneRaw(value), true, nil
}

func (s *FileStore) Set(ctx context.Context, scope Scope, key string, value json.RawMessage) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := checkScopeKey(scope, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadLocked()
	if err != nil {
		return err
	}
	if doc.Scopes == nil {
		doc.Scopes = map[Scope]map[string]json.RawMessage{}
	}
	if doc.Scopes[scope] == nil {
		doc.Scopes[scope] = map[string]json.RawMessage{}
	}
	doc.Scopes[scope][key] = cloneRaw(value)
	return s.saveLocked(doc)
}

func (s *FileStore) Delete(ctx context.Context, scope Scope, key string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := checkScopeKey(scope, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadLocked()
	if err != nil {
		return err
	}
	if len(doc.Scopes[scope]) == 0 {
		return nil
	}
	delete(doc.Scopes[scope], key)
	if len(doc.Scopes[scope]) == 0 {
		delete(doc.Scopes, scope)
	}
	return s.saveLocked(doc)
}

func (s *FileStore) Keys(ctx context.Context, scope Scope, prefix string) ([]string, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if !scope.Valid() {
		return nil, checkScopeKey(scope, "-")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	var keys []string
	for key := range doc.Scopes[scope] {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

var _ Store = (*FileStore)(nil)

func (s *FileStore) loadLocked() (fileStoreDoc, error) {
	if s.path == "" {
		return fileStoreDoc{}, fmt.Errorf("store path not configured")
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileStoreDoc{Version: fileStoreVersion}, nil
		}
		return fileStoreDoc{}, fmt.Errorf("read store: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fileStoreDoc{Version: fileStoreVersion}, nil
	}
	var doc fileStoreDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fileStoreDoc{}, fmt.Errorf("parse store: %w", err)
	}
	if doc.Version == 0 {
		doc.Version = fileStoreVersion
	}
	if doc.Version != fileStoreVersion {
		return fileStoreDoc{}, fmt.Errorf("unsupported store version %d", doc.Version)
	}
	return doc, nil
}

func (s *FileStore) saveLocked(doc fileStoreDoc) error {
	doc.Version = fileStoreVersion
	if len(doc.Scopes) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove store: %w", err)
		}
		return nil
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure store directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write store temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit store: %w", err)
	}
	return nil
}

package kvstore

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. It backs the tab scope in the daemon
// (tab preferences do not outlive the process) and every scope in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	scopes map[Scope]map[string]json.RawMessage
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scopes: map[Scope]map[string]json.RawMessage{}}
}

func (s *MemoryStore) Get(ctx context.Context, scope Scope, key string) (json.RawMessage, bool, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, false, err
	}
	if err := checkScopeKey(scope, key); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.scopes[scope][key]
	if !ok {
		return nil, false, nil
	}
	return cloneRaw(value), true, nil
}

func (s *MemoryStore) Set(ctx context.Context, scope Scope, key string, value json.RawMessage) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := checkScopeKey(scope, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scopes[scope] == nil {
		s.scopes[scope] = map[string]json.RawMessage{}
	}
	s.scopes[scope][key] = cloneRaw(value)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, scope Scope, key string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := checkScopeKey(scope, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scopes[scope], key)
	return nil
}

func (s *MemoryStore) Keys(ctx context.Context, scope Scope, prefix string) ([]string, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if !scope.Valid() {
		return nil, checkScopeKey(scope, "-")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key := range s.scopes[scope] {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

var _ Store = (*MemoryStore)(nil)

func cloneRaw(value json.RawMessage) json.RawMessage {
	if value == nil {
		return nil
	}
	out := make(json.RawMessage, len(value))
	copy(out, value)
	return out
}

func ctxErr(ctx context.Context) error {
	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

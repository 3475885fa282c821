package kvstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "prefs.json")),
	}
}

func TestStoreSetGetDelete(t *testing.T) {
	t.Parallel()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.Set(ctx, ScopeGlobal, "globalPlatformPreference:popup", json.RawMessage(`"openai"`)); err != nil {
				t.Fatalf("Set returned error: %v", err)
			}
			value, ok, err := store.Get(ctx, ScopeGlobal, "globalPlatformPreference:popup")
			if err != nil {
				t.Fatalf("Get returned error: %v", err)
			}
			if !ok || string(value) != `"openai"` {
				t.Fatalf("unexpected value: ok=%v value=%s", ok, value)
			}

			if err := store.Delete(ctx, ScopeGlobal, "globalPlatformPreference:popup"); err != nil {
				t.Fatalf("Delete returned error: %v", err)
			}
			if _, ok, _ := store.Get(ctx, ScopeGlobal, "globalPlatformPreference:popup"); ok {
				t.Fatalf("expected value gone after delete")
			}
		})
	}
}

func TestStoreScopesAreIsolated(t *testing.T) {
	t.Parallel()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.Set(ctx, ScopeTab, "tabPlatformPreference:41", json.RawMessage(`"anthropic"`)); err != nil {
				t.Fatalf("Set returned error: %v", err)
			}
			if _, ok, _ := store.Get(ctx, ScopeGlobal, "tabPlatformPreference:41"); ok {
				t.Fatalf("tab value leaked into global scope")
			}
			if _, ok, _ := store.Get(ctx, ScopeTab, "tabPlatformPreference:41"); !ok {
				t.Fatalf("tab value missing from tab scope")
			}
		})
	}
}

func TestStoreKeysPrefix(t *testing.T) {
	t.Parallel()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed := map[string]string{
				"parameterOverrides:openai:gpt-5:base":     `{}`,
				"parameterOverrides:openai:gpt-5:thinking": `{}`,
				"globalPlatformPreference:popup":           `"openai"`,
			}
			for key, value := range seed {
				if err := store.Set(ctx, ScopeGlobal, key, json.RawMessage(value)); err != nil {
					t.Fatalf("Set(%s) returned error: %v", key, err)
				}
			}

			keys, err := store.Keys(ctx, ScopeGlobal, "parameterOverrides:")
			if err != nil {
				t.Fatalf("Keys returned error: %v", err)
			}
			sort.Strings(keys)
			want := []string{
				"parameterOverrides:openai:gpt-5:base",
				"parameterOverrides:openai:gpt-5:thinking",
			}
			if len(keys) != len(want) {
				t.Fatalf("Keys = %v, want %v", keys, want)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Fatalf("Keys = %v, want %v", keys, want)
				}
			}
		})
	}
}

func TestStoreRejectsInvalidScopeAndKey(t *testing.T) {
	t.Parallel()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Set(ctx, Scope("session"), "k", json.RawMessage(`1`)); err == nil {
				t.Fatalf("expected unknown scope to be rejected")
			}
			if err := store.Set(ctx, ScopeGlobal, "  ", json.RawMessage(`1`)); err == nil {
				t.Fatalf("expected empty key to be rejected")
			}
		})
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.json")

	first := NewFileStore(path)
	if err := first.Set(ctx, ScopeGlobal, "globalModelPreference:popup:openai", json.RawMessage(`"gpt-5"`)); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	second := NewFileStore(path)
	value, ok, err := second.Get(ctx, ScopeGlobal, "globalModelPreference:popup:openai")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !ok || string(value) != `"gpt-5"` {
		t.Fatalf("unexpected value after reopen: ok=%v value=%s", ok, value)
	}
}

func TestFileStoreRemovesFileWhenEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.json")

	store := NewFileStore(path)
	if err := store.Set(ctx, ScopeGlobal, "k", json.RawMessage(`1`)); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := store.Delete(ctx, ScopeGlobal, "k"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := os.Stat(path); err == nil {
		t.Fatalf("expected store file removed when empty")
	}
}

func TestFileStoreRejectsUnsupportedVersion(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	store := NewFileStore(path)
	if _, _, err := store.Get(context.Background(), ScopeGlobal, "k"); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	original := json.RawMessage(`"openai"`)
	if err := store.Set(ctx, ScopeGlobal, "k", original); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	original[1] = 'X'

	value, _, err := store.Get(ctx, ScopeGlobal, "k")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(value) != `"openai"` {
		t.Fatalf("stored value was aliased: %s", value)
	}
}

// Package kvstore abstracts the scoped key-value storage the preference
// layer persists into. The browser host exposes two storage areas: a
// tab-scoped ephemeral area and a global durable area. Implementations here
// mirror that split so the engine runs identically under a real host, a
// daemon, or a test.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Scope names a storage area.
type Scope string

const (
	// ScopeTab holds per-tab, ephemeral values keyed by tab id.
	ScopeTab Scope = "tab"
	// ScopeGlobal holds durable values shared across tabs.
	ScopeGlobal Scope = "global"
)

// Valid reports whether the scope is one of the two storage areas.
func (s Scope) Valid() bool {
	return s == ScopeTab || s == ScopeGlobal
}

// Store is the injected storage contract. Values are raw JSON so callers own
// their own encoding; implementations never interpret them.
type Store interface {
	Get(ctx context.Context, scope Scope, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, scope Scope, key string, value json.RawMessage) error
	Delete(ctx context.Context, scope Scope, key string) error
	// Keys returns the keys in scope with the given prefix, in unspecified order.
	Keys(ctx context.Context, scope Scope, prefix string) ([]string, error)
}

func checkScopeKey(scope Scope, key string) error {
	if !scope.Valid() {
		return fmt.Errorf("unknown scope %q", scope)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key required")
	}
	return nil
}

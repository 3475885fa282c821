// Package credentials decides, per platform, whether usable credentials
// exist. The gate never fails a resolution pass: any storage or transport
// error degrades to "no credentials" for that platform and is logged.
package credentials

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"switchboard/internal/catalog"
	"switchboard/internal/faults"
	"switchboard/internal/kvstore"
	"switchboard/internal/logging"
)

// Gate reports whether a platform has usable credentials.
type Gate interface {
	Check(ctx context.Context, platformID string) bool
}

// EnvLookup abstracts os.LookupEnv for tests.
type EnvLookup func(string) (string, bool)

const keyPrefix = "credentials:"

// StoreGate checks stored API keys with an environment fallback. Platforms
// with authMode "none" always pass.
type StoreGate struct {
	catalog   *catalog.Cache
	store     kvstore.Store
	envLookup EnvLookup
	logger    logging.Logger
}

// NewStoreGate builds a gate over the catalog and key-value store. envLookup
// defaults to os.LookupEnv, logger to a no-op.
func NewStoreGate(cat *catalog.Cache, store kvstore.Store, envLookup EnvLookup, logger logging.Logger) *StoreGate {
	if envLookup == nil {
		envLookup = os.LookupEnv
	}
	return &StoreGate{
		catalog:   cat,
		store:     store,
		envLookup: envLookup,
		logger:    logging.OrNop(logger),
	}
}

// Check reports whether platformID has usable credentials. Unknown platform
// ids and every error path return false.
func (g *StoreGate) Check(ctx context.Context, platformID string) bool {
	platform, ok, err := g.catalog.Platform(ctx, platformID)
	if err != nil {
		g.logger.Warn("%v", faults.NewCredentialCheckError(platformID, err))
		return false
	}
	if !ok {
		return false
	}
	if !platform.RequiresCredentials() {
		return true
	}
	_, found := g.keyFor(ctx, platform)
	return found
}

// Key returns the platform's API key, preferring the stored key over the
// environment fallback. ok=false when neither exists or the lookup failed.
func (g *StoreGate) Key(ctx context.Context, platformID string) (string, bool) {
	platform, ok, err := g.catalog.Platform(ctx, platformID)
	if err != nil {
		g.logger.Warn("%v", faults.NewCredentialCheckError(platformID, err))
		return "", false
	}
	if !ok {
		return "", false
	}
	return g.keyFor(ctx, platform)
}

func (g *StoreGate) keyFor(ctx context.Context, platform catalog.Platform) (string, bool) {
	if g.store != nil {
		raw, found, err := g.store.Get(ctx, kvstore.ScopeGlobal, keyPrefix+platform.ID)
		if err != nil {
			// Degrade to "no credentials", never abort the pass.
			g.logger.Warn("%v", faults.NewCredentialCheckError(platform.ID, err))
			return "", false
		}
		if found {
			var key string
			if err := json.Unmarshal(raw, &key); err != nil {
				g.logger.Warn("%v", faults.NewCredentialCheckError(platform.ID, err))
				return "", false
			}
			if trimmed := strings.TrimSpace(key); trimmed != "" {
				return trimmed, true
			}
		}
	}
	if platform.CredentialEnv != "" {
		if value, ok := g.envLookup(platform.CredentialEnv); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

var _ Gate = (*StoreGate)(nil)

// SetKey stores an API key for a platform in the global scope.
func (g *StoreGate) SetKey(ctx context.Context, platformID, key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return g.ClearKey(ctx, platformID)
	}
	value, err := json.Marshal(trimmed)
	if err != nil {
		return err
	}
	return g.store.Set(ctx, kvstore.ScopeGlobal, keyPrefix+platformID, value)
}

// ClearKey removes a stored API key.
func (g *StoreGate) ClearKey(ctx context.Context, platformID string) error {
	return g.store.Delete(ctx, kvstore.ScopeGlobal, keyPrefix+platformID)
}

// StaticGate is a fixed-answer gate for tests.
type StaticGate map[string]bool

func (g StaticGate) Check(_ context.Context, platformID string) bool { return g[platformID] }

var _ Gate = StaticGate(nil)

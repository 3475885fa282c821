package prefs

import (
	"context"
	"encoding/json"
	"strings"

	"switchboard/internal/faults"
	"switchboard/internal/kvstore"
	"switchboard/internal/logging"
)

// Store reads and writes the preference records. All errors are returned as
// *faults.StoreError so callers can abort the active resolution pass.
type Store struct {
	kv     kvstore.Store
	logger logging.Logger
}

// NewStore wraps a key-value store. logger may be nil.
func NewStore(kv kvstore.Store, logger logging.Logger) *Store {
	return &Store{kv: kv, logger: logging.OrNop(logger)}
}

// ---- platform preferences ----

// TabPlatform returns the tab-scoped platform pick for tabID.
func (s *Store) TabPlatform(ctx context.Context, tabID int) (string, bool, error) {
	return s.getString(ctx, kvstore.ScopeTab, tabPlatformKey(tabID))
}

// SetTabPlatform stores the tab-scoped platform pick. An empty id clears it.
func (s *Store) SetTabPlatform(ctx context.Context, tabID int, platformID string) error {
	return s.setString(ctx, kvstore.ScopeTab, tabPlatformKey(tabID), platformID)
}

// ClearTabPlatform removes the tab-scoped pick, typically on tab close.
func (s *Store) ClearTabPlatform(ctx context.Context, tabID int) error {
	return s.delete(ctx, kvstore.ScopeTab, tabPlatformKey(tabID))
}

// GlobalPlatform returns the interface-global platform pick.
func (s *Store) GlobalPlatform(ctx context.Context, iface InterfaceType) (string, bool, error) {
	return s.getString(ctx, kvstore.ScopeGlobal, globalPlatformKey(iface))
}

// SetGlobalPlatform stores the interface-global platform pick.
func (s *Store) SetGlobalPlatform(ctx context.Context, iface InterfaceType, platformID string) error {
	return s.setString(ctx, kvstore.ScopeGlobal, globalPlatformKey(iface), platformID)
}

// ---- model preferences ----

// ModelPreference returns the interface-global model pick for a platform.
func (s *Store) ModelPreference(ctx context.Context, iface InterfaceType, platformID string) (string, bool, error) {
	return s.getString(ctx, kvstore.ScopeGlobal, globalModelKey(iface, platformID))
}

// SetModelPreference stores the model pick. An empty id clears it.
func (s *Store) SetModelPreference(ctx context.Context, iface InterfaceType, platformID, modelID string) error {
	return s.setString(ctx, kvstore.ScopeGlobal, globalModelKey(iface, platformID), modelID)
}

// ---- parameter overrides ----

// Override returns the stored override set for (platform, model, mode).
func (s *Store) Override(ctx context.Context, platformID, modelID string, mode Mode) (Override, bool, error) {
	key := overrideKey(platformID, modelID, mode)
	raw, ok, err := s.kv.Get(ctx, kvstore.ScopeGlobal, key)
	if err != nil {
		return Override{}, false, faults.NewStoreError("get", string(kvstore.ScopeGlobal), key, err)
	}
	if !ok {
		return Override{}, false, nil
	}
	var override Override
	if err := json.Unmarshal(raw, &override); err != nil {
		return Override{}, false, faults.NewStoreError("get", string(kvstore.ScopeGlobal), key, err)
	}
	return override, true, nil
}

// SetOverride stores an override set. A zero set clears the record instead.
func (s *Store) SetOverride(ctx context.Context, platformID, modelID string, mode Mode, override Override) error {
	key := overrideKey(platformID, modelID, mode)
	if override.IsZero() {
		return s.delete(ctx, kvstore.ScopeGlobal, key)
	}
	raw, err := json.Marshal(override)
	if err != nil {
		return faults.NewStoreError("set", string(kvstore.ScopeGlobal), key, err)
	}
	if err := s.kv.Set(ctx, kvstore.ScopeGlobal, key, raw); err != nil {
		return faults.NewStoreError("set", string(kvstore.ScopeGlobal), key, err)
	}
	return nil
}

// ClearOverride removes the override set for (platform, model, mode).
func (s *Store) ClearOverride(ctx context.Context, platformID, modelID string, mode Mode) error {
	return s.delete(ctx, kvstore.ScopeGlobal, overrideKey(platformID, modelID, mode))
}

// ---- raw helpers ----

func (s *Store) getString(ctx context.Context, scope kvstore.Scope, key string) (string, bool, error) {
	raw, ok, err := s.kv.Get(ctx, scope, key)
	if err != nil {
		return "", false, faults.NewStoreError("get", string(scope), key, err)
	}
	if !ok {
		return "", false, nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false, faults.NewStoreError("get", string(scope), key, err)
	}
	if strings.TrimSpace(value) == "" {
		return "", false, nil
	}
	return value, true, nil
}

func (s *Store) setString(ctx context.Context, scope kvstore.Scope, key, value string) error {
	if strings.TrimSpace(value) == "" {
		return s.delete(ctx, scope, key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return faults.NewStoreError("set", string(scope), key, err)
	}
	if err := s.kv.Set(ctx, scope, key, raw); err != nil {
		return faults.NewStoreError("set", string(scope), key, err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, scope kvstore.Scope, key string) error {
	if err := s.kv.Delete(ctx, scope, key); err != nil {
		return faults.NewStoreError("delete", string(scope), key, err)
	}
	return nil
}

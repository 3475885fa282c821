// Package selection implements the pure resolution tiers for platforms and
// models. Both resolvers are plain functions over pre-fetched inputs: the
// coordinator reads preferences, credentials, and live model lists before
// calling in, so nothing here touches storage or the network.
package selection

import (
	"switchboard/internal/catalog"
	"switchboard/internal/credentials"
)

// Source identifies which tier produced a resolution. The first-available
// tier is deliberately distinguishable so callers and tests can detect
// silent fallback use.
type Source string

const (
	SourceTabPreference    Source = "tab_preference"
	SourceGlobalPreference Source = "global_preference"
	SourceModelPreference  Source = "model_preference"
	SourcePlatformDefault  Source = "platform_default"
	SourceFirstAvailable   Source = "first_available"
)

// PlatformInputs carries everything platform resolution may consult.
type PlatformInputs struct {
	// TabPreference is the tab-scoped platform pick, empty when absent.
	TabPreference string
	// GlobalPreference is the interface-global platform pick.
	GlobalPreference string
	// Platforms is the live catalog listing; picks outside it are invalid.
	Platforms []catalog.Platform
	// Credentials is this pass's credential snapshot.
	Credentials credentials.Status
	// RequireCredentials applies the credential gate to every candidate.
	// Surfaces that hand off to the platform's own web UI leave it false.
	RequireCredentials bool
}

// PlatformResolution is a successful pick plus its provenance.
type PlatformResolution struct {
	PlatformID string
	Source     Source
}

// ResolvePlatform picks the active platform: tab preference first, then the
// interface-global preference. A preference is valid only when the platform
// exists in the live listing and, for credential-gated surfaces, passed the
// gate. ok=false means no valid preference — an explicit result, never a
// guessed "first available platform"; callers must distinguish it from
// "still loading".
func ResolvePlatform(in PlatformInputs) (PlatformResolution, bool) {
	candidates := []struct {
		id     string
		source Source
	}{
		{in.TabPreference, SourceTabPreference},
		{in.GlobalPreference, SourceGlobalPreference},
	}
	for _, candidate := range candidates {
		if candidate.id == "" {
			continue
		}
		if !platformListed(in.Platforms, candidate.id) {
			continue
		}
		if in.RequireCredentials && !in.Credentials.Allowed(candidate.id) {
			continue
		}
		return PlatformResolution{PlatformID: candidate.id, Source: candidate.source}, true
	}
	return PlatformResolution{}, false
}

func platformListed(platforms []catalog.Platform, id string) bool {
	for _, platform := range platforms {
		if platform.ID == id {
			return true
		}
	}
	return false
}

package selection

import (
	"testing"

	"switchboard/internal/catalog"
	"switchboard/internal/credentials"
)

func testPlatforms(ids ...string) []catalog.Platform {
	platforms := make([]catalog.Platform, 0, len(ids))
	for _, id := range ids {
		platforms = append(platforms, catalog.Platform{ID: id, Name: id})
	}
	return platforms
}

func TestResolvePlatformTiers(t *testing.T) {
	t.Parallel()

	platforms := testPlatforms("openai", "anthropic", "ollama")
	allAllowed := credentials.Status{"openai": true, "anthropic": true, "ollama": true}

	tests := []struct {
		name       string
		in         PlatformInputs
		wantID     string
		wantSource Source
		wantOK     bool
	}{
		{
			name: "tab preference wins over global",
			in: PlatformInputs{
				TabPreference:      "anthropic",
				GlobalPreference:   "openai",
				Platforms:          platforms,
				Credentials:        allAllowed,
				RequireCredentials: true,
			},
			wantID:     "anthropic",
			wantSource: SourceTabPreference,
			wantOK:     true,
		},
		{
			name: "global preference when tab absent",
			in: PlatformInputs{
				GlobalPreference:   "openai",
				Platforms:          platforms,
				Credentials:        allAllowed,
				RequireCredentials: true,
			},
			wantID:     "openai",
			wantSource: SourceGlobalPreference,
			wantOK:     true,
		},
		{
			name: "unknown tab preference falls through to global",
			in: PlatformInputs{
				TabPreference:      "retired-platform",
				GlobalPreference:   "openai",
				Platforms:          platforms,
				Credentials:        allAllowed,
				RequireCredentials: true,
			},
			wantID:     "openai",
			wantSource: SourceGlobalPreference,
			wantOK:     true,
		},
		{
			name: "uncredentialed tab preference falls through on gated surface",
			in: PlatformInputs{
				TabPreference:      "anthropic",
				GlobalPreference:   "ollama",
				Platforms:          platforms,
				Credentials:        credentials.Status{"anthropic": false, "ollama": true},
				RequireCredentials: true,
			},
			wantID:     "ollama",
			wantSource: SourceGlobalPreference,
			wantOK:     true,
		},
		{
			name: "ungated surface ignores credential state",
			in: PlatformInputs{
				TabPreference:      "anthropic",
				Platforms:          platforms,
				Credentials:        credentials.Status{"anthropic": false},
				RequireCredentials: false,
			},
			wantID:     "anthropic",
			wantSource: SourceTabPreference,
			wantOK:     true,
		},
		{
			name: "no preferences resolves to nothing, never a guess",
			in: PlatformInputs{
				Platforms:          platforms,
				Credentials:        allAllowed,
				RequireCredentials: true,
			},
			wantOK: false,
		},
		{
			name: "both preferences invalid resolves to nothing",
			in: PlatformInputs{
				TabPreference:      "gone",
				GlobalPreference:   "also-gone",
				Platforms:          platforms,
				Credentials:        allAllowed,
				RequireCredentials: true,
			},
			wantOK: false,
		},
		{
			name: "empty catalog resolves to nothing",
			in: PlatformInputs{
				TabPreference:    "openai",
				GlobalPreference: "openai",
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ResolvePlatform(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ResolvePlatform ok = %v, want %v (got %+v)", ok, tt.wantOK, got)
			}
			if !ok {
				if got.PlatformID != "" {
					t.Fatalf("unresolved result should be zero, got %+v", got)
				}
				return
			}
			if got.PlatformID != tt.wantID {
				t.Fatalf("PlatformID = %q, want %q", got.PlatformID, tt.wantID)
			}
			if got.Source != tt.wantSource {
				t.Fatalf("Source = %q, want %q", got.Source, tt.wantSource)
			}
		})
	}
}

func TestResolveModelTiers(t *testing.T) {
	t.Parallel()

	live := []string{"gpt-5.2", "gpt-5.1-mini", "gpt-4.1"}

	tests := []struct {
		name       string
		in         ModelInputs
		wantID     string
		wantSource Source
		wantOK     bool
	}{
		{
			name: "preference still live wins",
			in: ModelInputs{
				Preference:         "gpt-5.1-mini",
				DefaultModel:       "gpt-5.2",
				LiveModels:         live,
				AllowFirstFallback: true,
			},
			wantID:     "gpt-5.1-mini",
			wantSource: SourceModelPreference,
			wantOK:     true,
		},
		{
			name: "retired preference falls back to platform default",
			in: ModelInputs{
				Preference:         "gpt-3.5-turbo",
				DefaultModel:       "gpt-5.2",
				LiveModels:         live,
				AllowFirstFallback: true,
			},
			wantID:     "gpt-5.2",
			wantSource: SourcePlatformDefault,
			wantOK:     true,
		},
		{
			name: "no preference uses platform default",
			in: ModelInputs{
				DefaultModel:       "gpt-4.1",
				LiveModels:         live,
				AllowFirstFallback: true,
			},
			wantID:     "gpt-4.1",
			wantSource: SourcePlatformDefault,
			wantOK:     true,
		},
		{
			name: "default missing from live list flags first available",
			in: ModelInputs{
				Preference:         "gone",
				DefaultModel:       "also-gone",
				LiveModels:         live,
				AllowFirstFallback: true,
			},
			wantID:     "gpt-5.2",
			wantSource: SourceFirstAvailable,
			wantOK:     true,
		},
		{
			name: "first-available tier disabled resolves to nothing",
			in: ModelInputs{
				Preference:   "gone",
				DefaultModel: "also-gone",
				LiveModels:   live,
			},
			wantOK: false,
		},
		{
			name: "empty live list resolves to nothing even with fallback",
			in: ModelInputs{
				Preference:         "gpt-5.2",
				DefaultModel:       "gpt-5.2",
				AllowFirstFallback: true,
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ResolveModel(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ResolveModel ok = %v, want %v (got %+v)", ok, tt.wantOK, got)
			}
			if !ok {
				if got.ModelID != "" {
					t.Fatalf("unresolved result should be zero, got %+v", got)
				}
				return
			}
			if got.ModelID != tt.wantID {
				t.Fatalf("ModelID = %q, want %q", got.ModelID, tt.wantID)
			}
			if got.Source != tt.wantSource {
				t.Fatalf("Source = %q, want %q", got.Source, tt.wantSource)
			}
		})
	}
}

package selection

// ModelInputs carries everything model resolution may consult. LiveModels is
// the list actually reachable right now (fetched or loopback), which may lag
// or lead the static catalog.
type ModelInputs struct {
	// Preference is the saved model pick for this interface and platform.
	Preference string
	// DefaultModel is the platform's catalog default.
	DefaultModel string
	// LiveModels is the authoritative availability list for this pass.
	LiveModels []string
	// AllowFirstFallback enables the last-resort first-model tier.
	AllowFirstFallback bool
}

// ModelResolution is a successful model pick plus its provenance.
type ModelResolution struct {
	ModelID string
	Source  Source
}

// ResolveModel picks the active model against the live list: the saved
// preference when still listed, else the platform default when listed, else
// — only when the policy allows — the first live model, flagged
// SourceFirstAvailable so the fallback is never silent. ok=false when the
// list is empty or every tier misses.
func ResolveModel(in ModelInputs) (ModelResolution, bool) {
	if in.Preference != "" && modelListed(in.LiveModels, in.Preference) {
		return ModelResolution{ModelID: in.Preference, Source: SourceModelPreference}, true
	}
	if in.DefaultModel != "" && modelListed(in.LiveModels, in.DefaultModel) {
		return ModelResolution{ModelID: in.DefaultModel, Source: SourcePlatformDefault}, true
	}
	if in.AllowFirstFallback && len(in.LiveModels) > 0 {
		return ModelResolution{ModelID: in.LiveModels[0], Source: SourceFirstAvailable}, true
	}
	return ModelResolution{}, false
}

func modelListed(models []string, id string) bool {
	for _, model := range models {
		if model == id {
			return true
		}
	}
	return false
}

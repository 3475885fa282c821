package engine

import (
	"time"

	"switchboard/internal/catalog"
	"switchboard/internal/params"
	"switchboard/internal/prefs"
	"switchboard/internal/selection"
)

// Session identifies whose preferences a pass resolves: which tab, which
// surface, and whether the surface currently has thinking mode on.
type Session struct {
	// TabID scopes the tab-level platform preference; zero means no tab
	// context and skips that tier.
	TabID int
	// Interface selects the preference namespace and the credential policy.
	Interface prefs.InterfaceType
	// UseThinkingMode is the surface's current thinking toggle, applied when
	// resolving parameters.
	UseThinkingMode bool
}

// Policy holds the deliberately configurable resolution choices.
type Policy struct {
	// AllowFirstModelFallback enables the last-resort "first live model"
	// tier. Resolutions from it are flagged, never silent.
	AllowFirstModelFallback bool
}

// DefaultPolicy enables the first-model fallback.
func DefaultPolicy() Policy {
	return Policy{AllowFirstModelFallback: true}
}

// View is the committed stable state plus the two real-time signals.
// Everything except Loading and Err changes only at a commit: a failed or
// superseded pass leaves those fields exactly as the previous commit wrote
// them.
type View struct {
	Platforms        []catalog.Platform
	SelectedPlatform string
	PlatformSource   selection.Source
	Models           []string
	SelectedModel    string
	ModelSource      selection.Source
	Parameters       *params.Resolved

	// Generation is the pass that produced the committed fields.
	Generation uint64
	UpdatedAt  time.Time

	// Loading is true while any pass is in flight, even when the committed
	// fields above are fully populated.
	Loading bool
	// Err is the failure of the most recent finished pass, nil after a
	// successful commit. Stale passes never surface errors.
	Err error
}

// clone deep-copies the slices and the parameter pointer so consumers can
// never reach into committed state.
func (v View) clone() View {
	out := v
	if v.Platforms != nil {
		out.Platforms = append([]catalog.Platform(nil), v.Platforms...)
	}
	if v.Models != nil {
		out.Models = append([]string(nil), v.Models...)
	}
	if v.Parameters != nil {
		p := *v.Parameters
		out.Parameters = &p
	}
	return out
}

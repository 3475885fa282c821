// Package prefs gives the engine typed access to the scoped preference
// records in the key-value store: per-tab platform picks, per-interface
// global picks, per-platform model picks, and parameter override sets.
// Every failure is wrapped as a store fault so the coordinator can abort
// the pass without guessing.
package prefs

import "fmt"

// Mode selects which stored parameter override set applies to a request.
type Mode uint8

const (
	// ModeBase is the default request shape.
	ModeBase Mode = iota
	// ModeThinking applies when the model's reasoning feature is active.
	ModeThinking
)

func (m Mode) String() string {
	if m == ModeThinking {
		return "thinking"
	}
	return "base"
}

// ParseMode maps a storage/wire string back to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "base":
		return ModeBase, nil
	case "thinking":
		return ModeThinking, nil
	default:
		return ModeBase, fmt.Errorf("unknown mode %q", s)
	}
}

// ModeFor returns the mode matching a request's thinking gate.
func ModeFor(thinkingEnabled bool) Mode {
	if thinkingEnabled {
		return ModeThinking
	}
	return ModeBase
}

// InterfaceType names the extension surface a preference scope belongs to.
type InterfaceType string

const (
	// InterfacePopup is the quick launcher; it hands off to the platform's
	// own web UI, so it is not credential-gated and has no per-call model
	// choice.
	InterfacePopup InterfaceType = "popup"
	// InterfaceSidepanel is the embedded chat; it calls platform APIs
	// directly, so it is credential-gated and exposes model choice.
	InterfaceSidepanel InterfaceType = "sidepanel"
)

// Valid reports whether the value names a known surface.
func (i InterfaceType) Valid() bool {
	return i == InterfacePopup || i == InterfaceSidepanel
}

// RequiresCredentials reports whether the surface makes live API calls.
func (i InterfaceType) RequiresCredentials() bool {
	return i == InterfaceSidepanel
}

// ExposesModelChoice reports whether the surface offers per-call model
// selection.
func (i InterfaceType) ExposesModelChoice() bool {
	return i == InterfaceSidepanel
}

// ParseInterfaceType validates a wire string.
func ParseInterfaceType(s string) (InterfaceType, error) {
	iface := InterfaceType(s)
	if !iface.Valid() {
		return "", fmt.Errorf("unknown interface type %q", s)
	}
	return iface, nil
}

// Package params merges catalog capability defaults, stored user overrides,
// and thinking-mode rules into the final parameter set for one API call.
// Resolve does no I/O of its own beyond the injected catalog and override
// source, so identical inputs always produce identical output.
package params

import (
	"context"

	"switchboard/internal/catalog"
	"switchboard/internal/faults"
	"switchboard/internal/logging"
	"switchboard/internal/prefs"
)

// OverrideSource supplies the stored override set for one (platform, model,
// mode) triple. ok=false with a nil error means no override is stored and
// the resolver proceeds with defaults; a non-nil error aborts the resolve.
type OverrideSource interface {
	Override(ctx context.Context, platformID, modelID string, mode prefs.Mode) (prefs.Override, bool, error)
}

var _ OverrideSource = (*prefs.Store)(nil)

// StaticSource serves overrides from a fixed map, for callers that assemble
// an override set without a preference store.
type StaticSource map[OverrideKey]prefs.Override

// OverrideKey addresses one stored override set.
type OverrideKey struct {
	Platform string
	Model    string
	Mode     prefs.Mode
}

func (s StaticSource) Override(_ context.Context, platformID, modelID string, mode prefs.Mode) (prefs.Override, bool, error) {
	override, ok := s[OverrideKey{Platform: platformID, Model: modelID, Mode: mode}]
	return override, ok, nil
}

// Message is one turn of conversation history, passed through unchanged.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options carries the per-request inputs alongside the platform and model.
type Options struct {
	TabID               int
	Interface           prefs.InterfaceType
	ConversationHistory []Message
	UseThinkingMode     bool
}

// Resolved is the final parameter set for one request. Pointer fields are
// omitted entirely when the capability rules exclude them; absence is
// meaningful, so consumers must not treat a missing temperature as zero.
type Resolved struct {
	Model                string    `json:"model"`
	TokenParameter       string    `json:"tokenParameter"`
	MaxTokens            int       `json:"maxTokens"`
	ContextWindow        int       `json:"contextWindow"`
	Temperature          *float64  `json:"temperature,omitempty"`
	TopP                 *float64  `json:"topP,omitempty"`
	SystemPrompt         string    `json:"systemPrompt,omitempty"`
	ThinkingBudget       *int      `json:"thinkingBudget,omitempty"`
	ReasoningEffort      string    `json:"reasoningEffort,omitempty"`
	ThinkingEnabled      bool      `json:"isThinkingEnabledForRequest"`
	SupportsSystemPrompt bool      `json:"modelSupportsSystemPrompt"`
	TabID                int       `json:"tabId,omitempty"`
	ConversationHistory  []Message `json:"conversationHistory,omitempty"`
}

// Resolver resolves request parameters against a catalog and an override
// source.
type Resolver struct {
	catalog   *catalog.Cache
	overrides OverrideSource
	logger    logging.Logger
}

// NewResolver wires a resolver. overrides may not be nil; logger may be.
func NewResolver(cat *catalog.Cache, overrides OverrideSource, logger logging.Logger) *Resolver {
	return &Resolver{
		catalog:   cat,
		overrides: overrides,
		logger:    logging.OrNop(logger),
	}
}

// Resolve builds the parameter set for one request.
//
// Only a missing platform or model is fatal here (ConfigNotFound), plus an
// override-store failure which propagates as a store fault. Everything else
// — absent overrides, out-of-range reasoning effort — recovers locally to
// configured defaults. Retries are the caller's policy, never the
// resolver's.
func (r *Resolver) Resolve(ctx context.Context, platformID, modelID string, opts Options) (Resolved, error) {
	platform, ok, err := r.catalog.Platform(ctx, platformID)
	if err != nil {
		return Resolved{}, err
	}
	if !ok {
		return Resolved{}, faults.NewConfigNotFound(platformID, "")
	}
	model, ok, err := r.catalog.Model(ctx, platformID, modelID)
	if err != nil {
		return Resolved{}, err
	}
	if !ok {
		return Resolved{}, faults.NewConfigNotFound(platformID, modelID)
	}

	// Thinking applies only when the model exposes it as a toggle and the
	// caller asked for it. Always-on reasoning models keep mode=base; their
	// catalog entries carry the folded-in defaults.
	thinking := model.Thinking
	thinkingEnabled := thinking != nil && thinking.Available && thinking.Toggleable && opts.UseThinkingMode
	mode := prefs.ModeFor(thinkingEnabled)

	override, _, err := r.overrides.Override(ctx, platformID, modelID, mode)
	if err != nil {
		return Resolved{}, err
	}

	resolved := Resolved{
		Model:                model.ID,
		TokenParameter:       model.Tokens.ParameterName,
		ContextWindow:        model.Tokens.ContextWindow,
		ThinkingEnabled:      thinkingEnabled,
		SupportsSystemPrompt: platform.API.SystemPromptSupported() && model.Capabilities.SystemPromptSupported(),
		TabID:                opts.TabID,
		ConversationHistory:  opts.ConversationHistory,
	}

	switch {
	case override.MaxTokens != nil:
		resolved.MaxTokens = *override.MaxTokens
	case thinkingEnabled && thinking.MaxOutput > 0:
		resolved.MaxTokens = thinking.MaxOutput
	default:
		resolved.MaxTokens = model.Tokens.MaxOutput
	}

	includeTemperature := model.Capabilities.TemperatureSupported() &&
		orBool(override.IncludeTemperature, true) &&
		!(thinkingEnabled && thinking.TemperatureDisallowed())
	if includeTemperature {
		temperature := platform.TemperatureDefault
		if override.Temperature != nil {
			temperature = *override.Temperature
		}
		resolved.Temperature = &temperature
	}

	includeTopP := model.Capabilities.TopPSupported() &&
		orBool(override.IncludeTopP, false) &&
		!(thinkingEnabled && thinking.TopPDisallowed())
	if includeTopP {
		topP := platform.TopPDefault
		if override.TopP != nil {
			topP = *override.TopP
		}
		resolved.TopP = &topP
	}

	if thinkingEnabled && thinking.Budget != nil {
		budget := thinking.Budget.Default
		if override.ThinkingBudget != nil {
			budget = *override.ThinkingBudget
		}
		resolved.ThinkingBudget = &budget
	}

	if thinkingEnabled && thinking.ReasoningEffort != nil {
		effort := thinking.ReasoningEffort.Default
		if override.ReasoningEffort != nil {
			effort = *override.ReasoningEffort
		}
		if !thinking.ReasoningEffort.Allows(effort) {
			r.logger.Warn("resolve %s/%s: %v, falling back to %q",
				platformID, modelID,
				faults.NewInvalidOverride("reasoningEffort", effort, thinking.ReasoningEffort.AllowedValues),
				thinking.ReasoningEffort.Default)
			effort = thinking.ReasoningEffort.Default
		}
		resolved.ReasoningEffort = effort
	}

	if resolved.SupportsSystemPrompt && override.SystemPrompt != nil && *override.SystemPrompt != "" {
		resolved.SystemPrompt = *override.SystemPrompt
	}

	return resolved, nil
}

func orBool(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

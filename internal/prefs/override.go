package prefs

// Override is one stored parameter override set, keyed by
// (platform, model, mode). Nil fields mean "not set"; the resolver falls
// back to catalog and platform defaults for those. Mutated by settings
// surfaces, read-only to the resolver.
type Override struct {
	MaxTokens          *int     `json:"maxTokens,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
	TopP               *float64 `json:"topP,omitempty"`
	IncludeTemperature *bool    `json:"includeTemperature,omitempty"`
	IncludeTopP        *bool    `json:"includeTopP,omitempty"`
	SystemPrompt       *string  `json:"systemPrompt,omitempty"`
	ThinkingBudget     *int     `json:"thinkingBudget,omitempty"`
	ReasoningEffort    *string  `json:"reasoningEffort,omitempty"`
}

// IsZero reports whether no field is set.
func (o Override) IsZero() bool {
	return o.MaxTokens == nil &&
		o.Temperature == nil &&
		o.TopP == nil &&
		o.IncludeTemperature == nil &&
		o.IncludeTopP == nil &&
		o.SystemPrompt == nil &&
		o.ThinkingBudget == nil &&
		o.ReasoningEffort == nil
}

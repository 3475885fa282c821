// Package catalog holds the read-only platform/model capability descriptors
// and the explicit cache the rest of the engine resolves against.
//
// Capability booleans are pointers because absence and false mean different
// things to the resolution rules: temperature defaults to supported, topP
// defaults to unsupported, system prompt defaults to supported. Helpers on
// the descriptor types encode those defaults so callers never re-derive them.
package catalog

// Platform describes one AI platform's API surface and session defaults.
type Platform struct {
	ID                 string  `yaml:"id" json:"id"`
	Name               string  `yaml:"name" json:"name"`
	URL                string  `yaml:"url,omitempty" json:"url,omitempty"`
	IconURL            string  `yaml:"iconUrl,omitempty" json:"iconUrl,omitempty"`
	BaseURL            string  `yaml:"baseUrl,omitempty" json:"baseUrl,omitempty"`
	AuthMode           string  `yaml:"authMode,omitempty" json:"authMode,omitempty"`
	CredentialEnv      string  `yaml:"credentialEnv,omitempty" json:"credentialEnv,omitempty"`
	TemperatureDefault float64 `yaml:"temperatureDefault" json:"temperatureDefault"`
	TopPDefault        float64 `yaml:"topPDefault" json:"topPDefault"`
	DefaultModel       string  `yaml:"defaultModel,omitempty" json:"defaultModel,omitempty"`
	API                API     `yaml:"api" json:"api"`
	Models             []Model `yaml:"models,omitempty" json:"models,omitempty"`
}

// AuthMode values. An empty mode means an API key is required.
const (
	AuthModeAPIKey = "api_key"
	AuthModeNone   = "none"
)

// RequiresCredentials reports whether the platform is credential-gated.
func (p Platform) RequiresCredentials() bool {
	return p.AuthMode != AuthModeNone
}

// API captures platform-level request-shape facts.
type API struct {
	SupportsSystemPrompt *bool `yaml:"supportsSystemPrompt,omitempty" json:"supportsSystemPrompt,omitempty"`
}

// SystemPromptSupported defaults to true when unset.
func (a API) SystemPromptSupported() bool {
	return a.SupportsSystemPrompt == nil || *a.SupportsSystemPrompt
}

// Model describes one model's token limits, capabilities, and optional
// thinking feature.
type Model struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name,omitempty" json:"name,omitempty"`
	Tokens       Tokens       `yaml:"tokens" json:"tokens"`
	Capabilities Capabilities `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	Thinking     *Thinking    `yaml:"thinking,omitempty" json:"thinking,omitempty"`
}

// Tokens holds the model's window sizes and the wire name of its output
// limit parameter (platforms disagree: max_tokens, max_completion_tokens,
// maxOutputTokens, num_predict).
type Tokens struct {
	ContextWindow int    `yaml:"contextWindow" json:"contextWindow"`
	MaxOutput     int    `yaml:"maxOutput" json:"maxOutput"`
	ParameterName string `yaml:"parameterName" json:"parameterName"`
}

// Capabilities gates which sampling parameters a request may carry.
type Capabilities struct {
	SupportsTemperature  *bool `yaml:"supportsTemperature,omitempty" json:"supportsTemperature,omitempty"`
	SupportsTopP         *bool `yaml:"supportsTopP,omitempty" json:"supportsTopP,omitempty"`
	SupportsSystemPrompt *bool `yaml:"supportsSystemPrompt,omitempty" json:"supportsSystemPrompt,omitempty"`
}

// TemperatureSupported defaults to true when unset.
func (c Capabilities) TemperatureSupported() bool {
	return c.SupportsTemperature == nil || *c.SupportsTemperature
}

// TopPSupported defaults to false when unset.
func (c Capabilities) TopPSupported() bool {
	return c.SupportsTopP != nil && *c.SupportsTopP
}

// SystemPromptSupported defaults to true when unset.
func (c Capabilities) SystemPromptSupported() bool {
	return c.SupportsSystemPrompt == nil || *c.SupportsSystemPrompt
}

// Thinking describes a model's optional reasoning feature. Models with
// always-on reasoning set Available without Toggleable; their reasoning
// parameters are folded into base defaults by catalog data, not by the
// resolver.
type Thinking struct {
	Available           bool             `yaml:"available" json:"available"`
	Toggleable          bool             `yaml:"toggleable" json:"toggleable"`
	MaxOutput           int              `yaml:"maxOutput,omitempty" json:"maxOutput,omitempty"`
	SupportsTemperature *bool            `yaml:"supportsTemperature,omitempty" json:"supportsTemperature,omitempty"`
	SupportsTopP        *bool            `yaml:"supportsTopP,omitempty" json:"supportsTopP,omitempty"`
	Budget              *Budget          `yaml:"budget,omitempty" json:"budget,omitempty"`
	ReasoningEffort     *ReasoningEffort `yaml:"reasoningEffort,omitempty" json:"reasoningEffort,omitempty"`
}

// TemperatureDisallowed reports an explicit "no temperature while thinking".
func (t *Thinking) TemperatureDisallowed() bool {
	return t != nil && t.SupportsTemperature != nil && !*t.SupportsTemperature
}

// TopPDisallowed reports an explicit "no topP while thinking".
func (t *Thinking) TopPDisallowed() bool {
	return t != nil && t.SupportsTopP != nil && !*t.SupportsTopP
}

// Budget is the thinking token budget configuration.
type Budget struct {
	Default int `yaml:"default" json:"default"`
}

// ReasoningEffort is the discrete effort configuration. An empty
// AllowedValues list accepts any stored value.
type ReasoningEffort struct {
	Default       string   `yaml:"default" json:"default"`
	AllowedValues []string `yaml:"allowedValues,omitempty" json:"allowedValues,omitempty"`
}

// Allows reports whether value passes the allowed-values check.
func (r *ReasoningEffort) Allows(value string) bool {
	if r == nil {
		return false
	}
	if len(r.AllowedValues) == 0 {
		return true
	}
	for _, allowed := range r.AllowedValues {
		if allowed == value {
			return true
		}
	}
	return false
}

// ModelIDs returns the ids of the platform's configured models, in order.
func (p Platform) ModelIDs() []string {
	if len(p.Models) == 0 {
		return nil
	}
	ids := make([]string, 0, len(p.Models))
	for _, model := range p.Models {
		ids = append(ids, model.ID)
	}
	return ids
}

package server

import (
	"time"

	"switchboard/internal/catalog"
	"switchboard/internal/engine"
	"switchboard/internal/faults"
	"switchboard/internal/params"
	"switchboard/internal/prefs"
)

// APIResponse is the uniform envelope for every JSON endpoint.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse answers /api/health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// PlatformEntry is one catalog platform plus its live credential status.
type PlatformEntry struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	URL                 string `json:"url,omitempty"`
	IconURL             string `json:"iconUrl,omitempty"`
	DefaultModel        string `json:"defaultModel,omitempty"`
	RequiresCredentials bool   `json:"requiresCredentials"`
	HasCredentials      bool   `json:"hasCredentials"`
}

// SessionRequest names the session a trigger applies to. Interface defaults
// to sidepanel, the credential-gated surface.
type SessionRequest struct {
	TabID           int    `json:"tabId"`
	Interface       string `json:"interface"`
	UseThinkingMode bool   `json:"useThinkingMode"`
}

// Session validates the request into an engine session.
func (r SessionRequest) Session() (engine.Session, error) {
	iface := prefs.InterfaceSidepanel
	if r.Interface != "" {
		parsed, err := prefs.ParseInterfaceType(r.Interface)
		if err != nil {
			return engine.Session{}, err
		}
		iface = parsed
	}
	return engine.Session{
		TabID:           r.TabID,
		Interface:       iface,
		UseThinkingMode: r.UseThinkingMode,
	}, nil
}

// SelectPlatformRequest asks to persist a platform pick and re-resolve.
type SelectPlatformRequest struct {
	SessionRequest
	PlatformID string `json:"platformId" binding:"required"`
}

// SelectModelRequest asks to persist a model pick and re-resolve.
type SelectModelRequest struct {
	SessionRequest
	PlatformID string `json:"platformId" binding:"required"`
	ModelID    string `json:"modelId" binding:"required"`
}

// ResolveRequest asks for one parameter resolution outside the coordinator.
type ResolveRequest struct {
	SessionRequest
	PlatformID          string           `json:"platformId" binding:"required"`
	ModelID             string           `json:"modelId" binding:"required"`
	ConversationHistory []params.Message `json:"conversationHistory,omitempty"`
}

// CredentialRequest carries an API key for a platform.
type CredentialRequest struct {
	Key string `json:"key" binding:"required"`
}

// GenerationResponse reports the generation id a trigger started.
type GenerationResponse struct {
	Generation uint64 `json:"generation"`
}

// ViewPayload is the wire form of engine.View. Err is flattened to the
// user-facing string so the stream stays JSON-serializable.
type ViewPayload struct {
	Platforms        []catalog.Platform `json:"platforms"`
	SelectedPlatform string             `json:"selectedPlatformId,omitempty"`
	PlatformSource   string             `json:"platformSource,omitempty"`
	Models           []string           `json:"models"`
	SelectedModel    string             `json:"selectedModelId,omitempty"`
	ModelSource      string             `json:"modelSource,omitempty"`
	Parameters       *params.Resolved   `json:"parameters,omitempty"`
	Generation       uint64             `json:"generation"`
	UpdatedAt        time.Time          `json:"updatedAt"`
	Loading          bool               `json:"isLoading"`
	Error            string             `json:"error,omitempty"`
}

func payloadFromView(view engine.View) ViewPayload {
	payload := ViewPayload{
		Platforms:        view.Platforms,
		SelectedPlatform: view.SelectedPlatform,
		PlatformSource:   string(view.PlatformSource),
		Models:           view.Models,
		SelectedModel:    view.SelectedModel,
		ModelSource:      string(view.ModelSource),
		Parameters:       view.Parameters,
		Generation:       view.Generation,
		UpdatedAt:        view.UpdatedAt,
		Loading:          view.Loading,
	}
	if view.Err != nil {
		payload.Error = faults.FormatForUser(view.Err)
	}
	if payload.Platforms == nil {
		payload.Platforms = []catalog.Platform{}
	}
	if payload.Models == nil {
		payload.Models = []string{}
	}
	return payload
}

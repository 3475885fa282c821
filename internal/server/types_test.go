package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchboard/internal/catalog"
	"switchboard/internal/engine"
	"switchboard/internal/faults"
	"switchboard/internal/params"
	"switchboard/internal/selection"
)

func TestPayloadFromView(t *testing.T) {
	temp := 0.7
	view := engine.View{
		Platforms:        []catalog.Platform{{ID: "alpha", Name: "Alpha"}},
		SelectedPlatform: "alpha",
		PlatformSource:   selection.SourceTabPreference,
		Models:           []string{"a1", "a2"},
		SelectedModel:    "a1",
		ModelSource:      selection.SourceModelPreference,
		Parameters:       &params.Resolved{Model: "a1", MaxTokens: 4096, Temperature: &temp},
		Generation:       9,
		UpdatedAt:        time.Unix(1700000000, 0),
		Loading:          true,
	}

	payload := payloadFromView(view)
	assert.Equal(t, "alpha", payload.SelectedPlatform)
	assert.Equal(t, "tab_preference", payload.PlatformSource)
	assert.Equal(t, []string{"a1", "a2"}, payload.Models)
	assert.Equal(t, uint64(9), payload.Generation)
	assert.True(t, payload.Loading)
	assert.Empty(t, payload.Error)
	require.NotNil(t, payload.Parameters)
	assert.Equal(t, 4096, payload.Parameters.MaxTokens)
}

func TestPayloadFromViewFlattensError(t *testing.T) {
	view := engine.View{Err: faults.NewConfigNotFound("alpha", "retired")}
	payload := payloadFromView(view)
	assert.Equal(t, "Configuration error, please refresh.", payload.Error)
	// Empty collections must serialize as [] for the extension, never null.
	require.NotNil(t, payload.Platforms)
	require.NotNil(t, payload.Models)
	assert.Len(t, payload.Platforms, 0)
	assert.Len(t, payload.Models, 0)
}

func TestSessionRequestDefaultsToSidepanel(t *testing.T) {
	session, err := SessionRequest{TabID: 3}.Session()
	require.NoError(t, err)
	assert.Equal(t, "sidepanel", string(session.Interface))
	assert.Equal(t, 3, session.TabID)

	_, err = SessionRequest{Interface: "toolbar"}.Session()
	assert.Error(t, err)
}

package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"switchboard/internal/faults"
	"switchboard/internal/params"
	"switchboard/internal/prefs"
)

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, APIResponse{Success: false, Error: faults.FormatForUser(err)})
}

// statusFor maps engine faults to HTTP statuses: catalog misses are the
// client naming something that does not exist, store failures are upstream
// trouble worth retrying.
func statusFor(err error) int {
	switch {
	case faults.IsConfigNotFound(err):
		return http.StatusNotFound
	case faults.IsStore(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	respondOK(c, HealthResponse{
		Status:    "ok",
		Version:   s.deps.Version,
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).String(),
	})
}

func (s *Server) handlePlatforms(c *gin.Context) {
	ctx := c.Request.Context()
	platforms, err := s.deps.Catalog.Platforms(ctx)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	entries := make([]PlatformEntry, 0, len(platforms))
	for _, platform := range platforms {
		entry := PlatformEntry{
			ID:                  platform.ID,
			Name:                platform.Name,
			URL:                 platform.URL,
			IconURL:             platform.IconURL,
			DefaultModel:        platform.DefaultModel,
			RequiresCredentials: platform.RequiresCredentials(),
		}
		if s.deps.Gate != nil {
			entry.HasCredentials = s.deps.Gate.Check(ctx, platform.ID)
		}
		entries = append(entries, entry)
	}
	respondOK(c, entries)
}

func (s *Server) handlePlatformModels(c *gin.Context) {
	ctx := c.Request.Context()
	platformID := c.Param("id")

	if s.deps.Models != nil {
		resp := s.deps.Models.Request(ctx, platformID)
		models := resp.Models
		if models == nil {
			models = []string{}
		}
		respondOK(c, gin.H{"models": models, "live": resp.Success})
		return
	}

	platform, ok, err := s.deps.Catalog.Platform(ctx, platformID)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	if !ok {
		err := faults.NewConfigNotFound(platformID, "")
		respondError(c, statusFor(err), err)
		return
	}
	models := platform.ModelIDs()
	if models == nil {
		models = []string{}
	}
	respondOK(c, gin.H{"models": models, "live": false})
}

func (s *Server) handleCatalogRefresh(c *gin.Context) {
	if err := s.deps.Catalog.Refresh(c.Request.Context()); err != nil {
		respondError(c, http.StatusServiceUnavailable, err)
		return
	}
	respondOK(c, gin.H{"version": s.deps.Catalog.Version()})
}

func (s *Server) handleState(c *gin.Context) {
	respondOK(c, payloadFromView(s.deps.Coordinator.Snapshot()))
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	session, err := req.Session()
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	respondOK(c, GenerationResponse{Generation: s.deps.Coordinator.Refresh(session)})
}

func (s *Server) handleSelectPlatform(c *gin.Context) {
	var req SelectPlatformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	session, err := req.Session()
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	gen, err := s.deps.Coordinator.SelectPlatform(c.Request.Context(), session, req.PlatformID)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, GenerationResponse{Generation: gen})
}

func (s *Server) handleSelectModel(c *gin.Context) {
	var req SelectModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	session, err := req.Session()
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	gen, err := s.deps.Coordinator.SelectModel(c.Request.Context(), session, req.PlatformID, req.ModelID)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, GenerationResponse{Generation: gen})
}

func (s *Server) handleResolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	session, err := req.Session()
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	resolved, err := s.deps.Resolver.Resolve(c.Request.Context(), req.PlatformID, req.ModelID, params.Options{
		TabID:               session.TabID,
		Interface:           session.Interface,
		ConversationHistory: req.ConversationHistory,
		UseThinkingMode:     session.UseThinkingMode,
	})
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, resolved)
}

// overrideKey parses the three path segments every override route shares.
func overrideKey(c *gin.Context) (platform, model string, mode prefs.Mode, ok bool) {
	platform = c.Param("platform")
	model = c.Param("model")
	mode, err := prefs.ParseMode(c.Param("mode"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return "", "", prefs.ModeBase, false
	}
	return platform, model, mode, true
}

func (s *Server) handleGetOverride(c *gin.Context) {
	platform, model, mode, ok := overrideKey(c)
	if !ok {
		return
	}
	override, found, err := s.deps.Prefs.Override(c.Request.Context(), platform, model, mode)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, gin.H{"override": override, "stored": found})
}

func (s *Server) handlePutOverride(c *gin.Context) {
	platform, model, mode, ok := overrideKey(c)
	if !ok {
		return
	}
	var override prefs.Override
	if err := c.ShouldBindJSON(&override); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := s.deps.Prefs.SetOverride(c.Request.Context(), platform, model, mode, override); err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, gin.H{"stored": !override.IsZero()})
}

func (s *Server) handleDeleteOverride(c *gin.Context) {
	platform, model, mode, ok := overrideKey(c)
	if !ok {
		return
	}
	if err := s.deps.Prefs.ClearOverride(c.Request.Context(), platform, model, mode); err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, gin.H{"stored": false})
}

func (s *Server) handlePutCredential(c *gin.Context) {
	if s.deps.Gate == nil {
		c.JSON(http.StatusServiceUnavailable, APIResponse{Success: false, Error: "credential storage not configured"})
		return
	}
	var req CredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	platformID := c.Param("platform")
	if err := s.deps.Gate.SetKey(c.Request.Context(), platformID, req.Key); err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, gin.H{"platform": platformID})
}

func (s *Server) handleDeleteCredential(c *gin.Context) {
	if s.deps.Gate == nil {
		c.JSON(http.StatusServiceUnavailable, APIResponse{Success: false, Error: "credential storage not configured"})
		return
	}
	platformID := c.Param("platform")
	if err := s.deps.Gate.ClearKey(c.Request.Context(), platformID); err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, gin.H{"platform": platformID})
}

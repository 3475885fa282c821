// Package server exposes the resolution engine to extension surfaces over
// HTTP and WebSocket: snapshot and trigger endpoints for the coordinator,
// catalog and model listings, override and credential management, and a
// committed-state stream mirroring the coordinator's subscription.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"switchboard/internal/catalog"
	"switchboard/internal/config"
	"switchboard/internal/credentials"
	"switchboard/internal/engine"
	"switchboard/internal/logging"
	"switchboard/internal/modellist"
	"switchboard/internal/params"
	"switchboard/internal/prefs"
)

// Deps are the engine pieces the server serves. Coordinator, Catalog,
// Prefs, and Resolver are required; Gate and Models may be nil for
// reduced deployments.
type Deps struct {
	Coordinator *engine.Coordinator
	Catalog     *catalog.Cache
	Prefs       *prefs.Store
	Resolver    *params.Resolver
	Gate        *credentials.StoreGate
	Models      modellist.Requester
	Logger      logging.Logger
	Version     string
}

// Server is the HTTP/WebSocket daemon.
type Server struct {
	deps       Deps
	logger     logging.Logger
	engine     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader
	startTime  time.Time
}

// New wires the router. The caller owns the coordinator's lifecycle.
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Coordinator == nil || deps.Catalog == nil || deps.Prefs == nil || deps.Resolver == nil {
		return nil, fmt.Errorf("server requires coordinator, catalog, prefs, and resolver")
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.EnableCORS {
		// Extension origins are per-browser-profile identifiers, so the API
		// stays origin-open and relies on bind address for exposure control.
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
		corsConfig.AllowWebSockets = true
		router.Use(cors.New(corsConfig))
	}

	s := &Server{
		deps:   deps,
		logger: logging.OrNop(deps.Logger),
		engine: router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		startTime: time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")

	api.GET("/health", s.handleHealth)

	api.GET("/platforms", s.handlePlatforms)
	api.GET("/platforms/:id/models", s.handlePlatformModels)
	api.POST("/catalog/refresh", s.handleCatalogRefresh)

	state := api.Group("/state")
	{
		state.GET("", s.handleState)
		state.POST("/refresh", s.handleRefresh)
		state.GET("/stream", s.handleStream)
	}

	selection := api.Group("/select")
	{
		selection.POST("/platform", s.handleSelectPlatform)
		selection.POST("/model", s.handleSelectModel)
	}

	api.POST("/resolve", s.handleResolve)

	overrides := api.Group("/overrides/:platform/:model/:mode")
	{
		overrides.GET("", s.handleGetOverride)
		overrides.PUT("", s.handlePutOverride)
		overrides.DELETE("", s.handleDeleteOverride)
	}

	creds := api.Group("/credentials/:platform")
	{
		creds.PUT("", s.handlePutCredential)
		creds.DELETE("", s.handleDeleteCredential)
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains connections and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

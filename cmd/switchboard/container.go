package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"switchboard/internal/catalog"
	"switchboard/internal/config"
	"switchboard/internal/credentials"
	"switchboard/internal/engine"
	"switchboard/internal/httpclient"
	"switchboard/internal/kvstore"
	"switchboard/internal/logging"
	"switchboard/internal/modellist"
	"switchboard/internal/observability"
	"switchboard/internal/params"
	"switchboard/internal/prefs"
)

// Container wires the engine from the runtime configuration. Both the CLI
// subcommands and the daemon build the same stack; only the entry point
// differs.
type Container struct {
	Config      config.Config
	Logger      logging.Logger
	Store       kvstore.Store
	Catalog     *catalog.Cache
	Gate        *credentials.StoreGate
	Prefs       *prefs.Store
	Models      modellist.Requester
	Resolver    *params.Resolver
	Metrics     *observability.Collector
	Tracer      *observability.TracerProvider
	Coordinator *engine.Coordinator

	modelService *modellist.Service
}

// BuildContainer assembles the stack. Close releases it.
func BuildContainer(cfg config.Config) (*Container, error) {
	logger := buildLogger(cfg.Logging)

	if dir := filepath.Dir(cfg.Store.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	store := kvstore.NewFileStore(cfg.Store.Path)

	var loader catalog.Loader = catalog.Defaults()
	if cfg.Catalog.Path != "" {
		loader = catalog.FileLoader{Path: cfg.Catalog.Path}
	}
	cat := catalog.NewCache(loader, logger)

	gate := credentials.NewStoreGate(cat, store, nil, logger)
	preferences := prefs.NewStore(store, logger)

	metrics, err := observability.NewCollector(cfg.Observability.Metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	tracer, err := observability.NewTracerProvider(cfg.Observability.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	var channel modellist.Channel
	switch cfg.ModelList.Source {
	case config.ModelSourceHTTP:
		channel = modellist.NewHTTPChannel(cat, gate, httpclient.New(cfg.ModelList.Timeout), logger)
	default:
		channel = modellist.NewLoopback(cat, logger)
	}
	modelService := modellist.NewService(channel, cfg.ModelList.Timeout, logger)
	var models modellist.Requester = modellist.NewCached(modelService, modellist.CacheConfig{
		MaxSize: cfg.ModelList.CacheSize,
		TTL:     cfg.ModelList.CacheTTL,
	}, logger)
	models = metrics.InstrumentRequester(models)

	resolver := params.NewResolver(cat, preferences, logger)

	coordinator := engine.NewCoordinator(engine.Config{
		Catalog:  cat,
		Gate:     metrics.InstrumentGate(gate),
		Prefs:    preferences,
		Models:   models,
		Resolver: resolver,
		Policy:   engine.Policy{AllowFirstModelFallback: cfg.Policy.AllowFirstModelFallback},
		Logger:   logger,
		Observer: engine.Observers(metrics, observability.NewPassTracer(tracer)),
	})

	return &Container{
		Config:       cfg,
		Logger:       logger,
		Store:        store,
		Catalog:      cat,
		Gate:         gate,
		Prefs:        preferences,
		Models:       models,
		Resolver:     resolver,
		Metrics:      metrics,
		Tracer:       tracer,
		Coordinator:  coordinator,
		modelService: modelService,
	}, nil
}

// Close stops the coordinator and the background services.
func (c *Container) Close() {
	c.Coordinator.Close()
	c.modelService.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.Metrics.Shutdown(ctx)
	_ = c.Tracer.Shutdown(ctx)
}

// Session builds the engine session the shared flags describe.
func (c *CLI) session() (engine.Session, error) {
	iface, err := prefs.ParseInterfaceType(c.iface)
	if err != nil {
		return engine.Session{}, err
	}
	return engine.Session{
		TabID:           c.tabID,
		Interface:       iface,
		UseThinkingMode: c.thinking,
	}, nil
}

// container loads config and builds the stack for a subcommand run.
func (c *CLI) container() (*Container, error) {
	if err := c.loadConfig(); err != nil {
		return nil, err
	}
	return BuildContainer(c.cfg)
}

func buildLogger(cfg config.LoggingConfig) logging.Logger {
	level := logging.ParseLevel(cfg.Level)
	if cfg.File != "" {
		if logger, err := logging.NewFileLogger(cfg.File, level); err == nil {
			return logger
		}
		// Unwritable log path falls back to stderr rather than failing the run.
	}
	return logging.NewWriterLogger(os.Stderr, level)
}

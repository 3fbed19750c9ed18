// Package extension provides the Forge extension adapter for Seeker.
//
// It implements the forge.Extension interface to integrate Seeker into
// a Forge application with route registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.seeker" or "seeker"
// keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/xraph/forge"

	"github.com/xraph/seeker"
	"github.com/xraph/seeker/api"
	"github.com/xraph/seeker/engine"
	"github.com/xraph/seeker/ext"
	mw "github.com/xraph/seeker/middleware"
	"github.com/xraph/seeker/store/memory"
	redisstore "github.com/xraph/seeker/store/redis"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "seeker"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Job orchestration and live event streaming for search/analysis operations"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Seeker as a Forge extension. It implements the
// forge.Extension interface so Seeker can be mounted into any Forge app.
type Extension struct {
	*forge.BaseExtension

	config     Config
	o          *seeker.Orchestrator
	eng        *engine.Engine
	apiHandler *api.API
	logger     *slog.Logger
	store      seeker.Storer
	seekerOpts []seeker.Option
	engOpts    []engine.Option
	exts       []ext.Extension
	mws        []mw.Middleware
}

// New creates a Seeker Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying seeker engine.
// This is nil until Register is called.
func (e *Extension) Engine() *engine.Engine { return e.eng }

// Orchestrator returns the underlying orchestrator.
func (e *Extension) Orchestrator() *seeker.Orchestrator { return e.o }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It initializes the
// orchestrator, builds the engine, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	return e.init(fapp)
}

// init builds the orchestrator and engine.
func (e *Extension) init(fapp forge.App) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	store := e.store
	if store == nil {
		if e.config.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{
				Addr: e.config.RedisAddr,
				DB:   e.config.RedisDB,
			})
			store = redisstore.New(client, redisstore.WithLogger(logger))
		} else {
			store = memory.New()
		}
	}

	opts := make([]seeker.Option, 0, len(e.seekerOpts)+2)
	opts = append(opts, seeker.WithLogger(logger), seeker.WithStore(store))
	opts = append(opts, e.seekerOpts...)

	o, err := seeker.New(opts...)
	if err != nil {
		return fmt.Errorf("seeker: create orchestrator: %w", err)
	}
	e.o = o

	engOpts := make([]engine.Option, 0, len(e.engOpts)+len(e.exts)+len(e.mws))
	engOpts = append(engOpts, e.engOpts...)
	for _, x := range e.exts {
		engOpts = append(engOpts, engine.WithExtension(x))
	}
	for _, m := range e.mws {
		engOpts = append(engOpts, engine.WithMiddleware(m))
	}

	e.eng, err = engine.Build(o, engOpts...)
	if err != nil {
		return fmt.Errorf("seeker: build engine: %w", err)
	}

	// Create the API handler.
	e.apiHandler = api.New(e.eng, fapp.Router())

	// Register HTTP routes unless disabled.
	if !e.config.DisableRoutes {
		e.apiHandler.RegisterRoutes(fapp.Router())
	}

	return nil
}

// Start begins job processing and runs auto-migration if enabled.
func (e *Extension) Start(ctx context.Context) error {
	if e.o == nil {
		return errors.New("seeker: extension not initialized")
	}

	// Run migrations unless disabled.
	if !e.config.DisableMigrate {
		if store := e.o.Store(); store != nil {
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("seeker: migration failed: %w", err)
			}
		}
	}

	if err := e.o.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop gracefully shuts down the seeker engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.o == nil {
		e.MarkStopped()
		return nil
	}
	err := e.o.Stop(ctx)
	e.MarkStopped()
	return err
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.o == nil {
		return errors.New("seeker: extension not initialized")
	}

	store := e.o.Store()
	if store == nil {
		return seeker.ErrNoStore
	}
	return store.Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
// Convenience for standalone use outside Forge.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all seeker API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) {
	if e.apiHandler != nil {
		e.apiHandler.RegisterRoutes(router)
	}
}

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("seeker: configuration is required but not found in config files; " +
				"ensure 'extensions.seeker' or 'seeker' key exists in your config")
		}
		e.config = programmaticConfig
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("seeker: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("redis_addr", e.config.RedisAddr),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.seeker" first (namespaced pattern).
	if cm.IsSet("extensions.seeker") {
		if err := cm.Bind("extensions.seeker", &cfg); err == nil {
			e.Logger().Debug("seeker: loaded config from file",
				forge.F("key", "extensions.seeker"),
			)
			return cfg, true
		}
		e.Logger().Warn("seeker: failed to bind extensions.seeker config",
			forge.F("error", "bind failed"),
		)
	}

	// Try the bare "seeker" key.
	if cm.IsSet("seeker") {
		if err := cm.Bind("seeker", &cfg); err == nil {
			e.Logger().Debug("seeker: loaded config from file",
				forge.F("key", "seeker"),
			)
			return cfg, true
		}
		e.Logger().Warn("seeker: failed to bind seeker config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic bool flags fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if yamlConfig.RedisAddr == "" && programmaticConfig.RedisAddr != "" {
		yamlConfig.RedisAddr = programmaticConfig.RedisAddr
		yamlConfig.RedisDB = programmaticConfig.RedisDB
	}
	return yamlConfig
}

package extension

import (
	"log/slog"

	"github.com/xraph/seeker"
	"github.com/xraph/seeker/engine"
	"github.com/xraph/seeker/ext"
	mw "github.com/xraph/seeker/middleware"
)

// ExtOption configures the Seeker Forge extension.
type ExtOption func(*Extension)

// WithSeekerOption forwards an option to the underlying Orchestrator.
func WithSeekerOption(opt seeker.Option) ExtOption {
	return func(e *Extension) {
		e.seekerOpts = append(e.seekerOpts, opt)
	}
}

// WithEngineOption forwards an option to engine.Build.
func WithEngineOption(opt engine.Option) ExtOption {
	return func(e *Extension) {
		e.engOpts = append(e.engOpts, opt)
	}
}

// WithStore sets the persistence backend, overriding any store derived
// from configuration.
func WithStore(s seeker.Storer) ExtOption {
	return func(e *Extension) {
		e.store = s
	}
}

// WithExtension registers a seeker extension (lifecycle hooks).
func WithExtension(x ext.Extension) ExtOption {
	return func(e *Extension) {
		e.exts = append(e.exts, x)
	}
}

// WithMiddleware adds job middleware to the seeker engine.
func WithMiddleware(m mw.Middleware) ExtOption {
	return func(e *Extension) {
		e.mws = append(e.mws, m)
	}
}

// WithConfig sets the extension configuration directly.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) ExtOption {
	return func(e *Extension) {
		e.config.RequireConfig = require
	}
}

// WithLogger sets the structured logger for the seeker engine.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

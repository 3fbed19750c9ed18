package extension

// Config holds configuration for the Seeker Forge extension.
type Config struct {
	// DisableRoutes disables the registration of HTTP routes.
	// Useful when embedding Seeker for background processing only.
	DisableRoutes bool `default:"false" json:"disable_routes"`

	// DisableMigrate disables auto-migration on start.
	DisableMigrate bool `default:"false" json:"disable_migrate"`

	// RequireConfig requires the extension config to be present in the
	// application's config files.
	RequireConfig bool `default:"false" json:"require_config"`

	// RedisAddr enables the Redis-backed job store when set. Empty uses
	// the in-memory store.
	RedisAddr string `json:"redis_addr"`

	// RedisDB selects the Redis logical database.
	RedisDB int `json:"redis_db"`
}

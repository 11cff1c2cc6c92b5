// Package key defines the canonical set of configuration identifiers.
package key

// Synchronization - these keys tune the reconciliation loop.
const (
	SyncOffsetMs         = "sync.offset_ms"
	SyncTickIntervalMs   = "sync.tick_interval_ms"
	SyncDriftThresholdMs = "sync.drift_threshold_ms"
)

// Secondary player - these keys select and configure the music playback surface.
const (
	PlayerTransport = "player.transport"
	PlayerVolume    = "player.volume"
	PlayerOnLost    = "player.on_lost"
	PlayerMpvPath   = "player.mpv_path"
)

// Log directory and track search service.
const (
	DirectoryURL       = "directory.url"
	DirectoryTimeoutMs = "directory.timeout_ms"
	ResolverTimeoutMs  = "resolver.timeout_ms"
	ResolverRate       = "resolver.rate"
)

// Ingest server.
const (
	ServerAddr          = "server.addr"
	ServerRatePerMinute = "server.rate_per_minute"
	ServerCorsOrigins   = "server.cors_origins"
)

// Persisted caches.
const (
	CacheLogTTLHours = "cache.log_ttl_hours"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI output.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
	IconsVariant    = "icons.variant"
)

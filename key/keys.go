// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Application Identity - these keys scope the single-instance coordination and user-facing language.
const (
	AppID       = "app.id"
	AppLanguage = "app.language"
)

// Local Peer - these keys bound the client/server message exchange between instances.
const (
	PeerTimeout    = "peer.timeout_ms"
	PeerRetryDelay = "peer.retry_delay_ms"
)

// Backend Player - these keys select and tune the external MPlayer/MPV process.
const (
	PlayerBackend       = "player.backend"
	PlayerPath          = "player.path"
	PlayerArgs          = "player.args"
	PlayerFinishTimeout = "player.finish_timeout_ms"
	PlayerFlushOnExit   = "player.flush_on_exit"
	PlayerEventBuffer   = "player.event_buffer"
)

// Capability Listing - these keys govern caching of the backend's driver and codec report.
const (
	InfoCacheHours = "info.cache_hours"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Presentation.
const (
	CliColored   = "cli.colored"
	IconsVariant = "icons.variant"
)

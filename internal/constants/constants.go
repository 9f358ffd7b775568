// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort            = "8080"
	DefaultDBPath          = "karaqueue.db"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultRedisChannel    = "karaqueue"
	DefaultCacheTTL        = 12 * time.Hour
	DefaultShutdownTimeout = 10 * time.Second
	DefaultRequestTimeout  = 60 * time.Second
)

// Playlist export file
const (
	ExportDescription = "Karaoke Mugen Playlist File"
	ExportVersion     = 4
)

// Playlist positions
const (
	// PosAfterPlaying inserts right after the playing entry.
	PosAfterPlaying = -1
)

// Blacklist
const (
	// BlacklistMemoLimit caps the per-generation verdict cache.
	BlacklistMemoLimit = 100000
)

// Download queue
const (
	DownloadListLimit = 500
)

// Events
const (
	EventBufferSize = 64
)

// Pagination and request bodies
const (
	MaxBatchSize    = 1000
	MaxRequestBytes = 10 << 20 // 10MB
)

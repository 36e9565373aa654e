// Package constants provides shared configuration values used across the eventlook application.
package constants

import "time"

// Configuration file defaults
const (
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "eventlook.yaml"

	// DefaultLogRoot is the default directory holding channel files
	DefaultLogRoot = "/var/lib/eventlook/channels"

	// DefaultAPIHost is the default host for the API server
	DefaultAPIHost = "127.0.0.1"

	// DefaultAPIPort is the default port for the API server
	DefaultAPIPort = 5556
)

// Environment overrides
const (
	EnvLogRoot  = "EVENTLOOK_LOG_ROOT"
	EnvAPIHost  = "EVENTLOOK_API_HOST"
	EnvAPIPort  = "EVENTLOOK_API_PORT"
	EnvAPIToken = "EVENTLOOK_API_TOKEN"
)

// Read defaults
const (
	// ReadBatchSize is the number of records accumulated before a progress
	// batch is reported to the sink
	ReadBatchSize = 100

	// DefaultReadRange is how far back a read goes when no range is given
	DefaultReadRange = 24 * time.Hour

	// DefaultMaxEvents bounds the number of events a session keeps in memory
	DefaultMaxEvents = 200000

	// MaxPatternLength is the maximum allowed length for filter criteria
	MaxPatternLength = 256

	// DefaultEventLimit is the default number of events returned by the API
	DefaultEventLimit = 1000

	// MaxEventLimit is the maximum number of events returned by the API
	MaxEventLimit = 10000
)

// Timeout and duration defaults
const (
	// DefaultRequestTimeout is the default timeout for non-streaming API requests
	DefaultRequestTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful shutdown
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultClientTimeout is the HTTP client timeout for non-streaming API calls
	DefaultClientTimeout = 30 * time.Second

	// WatchReconnectTimeout is how long a watcher waits for a removed channel
	// file to be created again before it gives up
	WatchReconnectTimeout = 5 * time.Second
)

// Buffer sizes
const (
	// DefaultLiveBufferSize is the number of recent live events a hub keeps
	DefaultLiveBufferSize = 1000

	// DefaultSubscriptionBuffer is the default size for subscription channels
	DefaultSubscriptionBuffer = 100

	// DefaultWatchBuffer is the channel buffer between a file watcher and its consumer
	DefaultWatchBuffer = 256

	// ScannerBufferSize is the initial buffer size for record line scanning
	ScannerBufferSize = 64 * 1024 // 64KB

	// ScannerMaxBufferSize is the maximum size of a single record line
	ScannerMaxBufferSize = 4 * 1024 * 1024 // 4MB
)

// ANSI color codes for terminal output
var (
	// LevelColors maps level severity (index = level value) to a terminal color
	LevelColors = []string{
		"\033[36m", // log always: cyan
		"\033[95m", // critical: bright magenta
		"\033[31m", // error: red
		"\033[33m", // warning: yellow
		"\033[36m", // information: cyan
		"\033[90m", // verbose: gray
	}

	// ColorReset resets the terminal color
	ColorReset = "\033[0m"

	// ColorDim is used for timestamps and secondary columns
	ColorDim = "\033[2m"
)

package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
	RenderTimeout      = 20 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	BadgerGCInterval    = 5 * time.Minute
	BadgerGCDiscardRate = 0.5
)

const (
	ShutdownTimeout   = 5 * time.Second
	ReadHeaderTimeout = 10 * time.Second
	GatePruneInterval = time.Minute
)

const (
	Day = 24 * time.Hour

	// MaxDays bounds the "days ago" offset of a comparison.
	MaxDays = 3650

	// Stored timestamps are truncated to this precision so every backend
	// round-trips them exactly.
	TimestampPrecision = time.Microsecond
)

const (
	HistoryListLimit = 500
)

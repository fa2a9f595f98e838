// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Per-connection WebSocket request limiting
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	// Global IP-based rate limiting for lookup endpoints
	IPRateLimitMessages        = 30               // Max requests per IP per window
	IPRateLimitWindow          = time.Second      // Sliding window duration
	IPRateLimitCleanupInterval = 5 * time.Minute  // How often to purge stale IP entries
	IPRateLimitEntryTTL        = 10 * time.Minute // TTL for inactive IP entries

	// Default and maximum records returned by /api/history
	HistoryDefaultLimit = 50
	HistoryMaxLimit     = 1000

	// Upper bound on JSON request bodies
	MaxRequestBytes = 1 << 16
)

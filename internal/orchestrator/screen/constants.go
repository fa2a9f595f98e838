// Package screen runs the capture, extract and locate stages on dedicated
// worker goroutines.
package screen

// Worker defaults
const (
	DefaultWorkers   = 1
	DefaultQueueSize = 16

	// Hamming distance at or below which two captures count as the same frame
	DefaultMaxHashDistance = 2
)

// Package metrics provides interfaces and implementations for collecting
// mail receiver metrics. This package defines the Collector interface for
// recording metrics and the Server interface for exposing them.
package metrics

import "context"

// Collector defines the interface for recording receiver metrics.
type Collector interface {
	// Session metrics
	SessionOpened()
	SessionClosed()

	// Message metrics
	MessageReceived(sizeBytes int64)
	MessageRejected(reason string)

	// Command metrics
	CommandProcessed(command string)

	// Abuse-mitigation metrics
	DNSListHit(listType, listName string)
	EarlyTalker()
	TarpitDelay(seconds float64)
}

// Server defines the interface for a metrics HTTP server.
type Server interface {
	// Start begins serving metrics. It blocks until the context is canceled
	// or an error occurs.
	Start(ctx context.Context) error

	// Shutdown gracefully stops the metrics server.
	Shutdown(ctx context.Context) error
}

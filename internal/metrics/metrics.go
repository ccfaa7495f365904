// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Redirect metrics
	IncRedirectOutcome(outcome string)
	ObserveRedirectDuration(duration time.Duration)
	IncUnlockAttempt(status string) // status: "success" or "failed"

	// Drop management metrics
	IncDropCreated(variant string)
	IncDropUpdated(variant string)
	IncDropDeleted(variant string)

	// Click pipeline metrics
	IncClickEventPublished(status string) // status: "success" or "dropped"
	IncClickEventProcessed(status string) // status: "success", "failed", "dead_lettered"
	ObserveClickBatchSize(size int)
	ObserveClickBatchDuration(duration time.Duration)
	SetClickQueueDepth(depth int64)
}

package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncRedirectOutcome is a no-op.
func (n *NoopRecorder) IncRedirectOutcome(outcome string) {}

// ObserveRedirectDuration is a no-op.
func (n *NoopRecorder) ObserveRedirectDuration(duration time.Duration) {}

// IncUnlockAttempt is a no-op.
func (n *NoopRecorder) IncUnlockAttempt(status string) {}

// IncDropCreated is a no-op.
func (n *NoopRecorder) IncDropCreated(variant string) {}

// IncDropUpdated is a no-op.
func (n *NoopRecorder) IncDropUpdated(variant string) {}

// IncDropDeleted is a no-op.
func (n *NoopRecorder) IncDropDeleted(variant string) {}

// IncClickEventPublished is a no-op.
func (n *NoopRecorder) IncClickEventPublished(status string) {}

// IncClickEventProcessed is a no-op.
func (n *NoopRecorder) IncClickEventProcessed(status string) {}

// ObserveClickBatchSize is a no-op.
func (n *NoopRecorder) ObserveClickBatchSize(size int) {}

// ObserveClickBatchDuration is a no-op.
func (n *NoopRecorder) ObserveClickBatchDuration(duration time.Duration) {}

// SetClickQueueDepth is a no-op.
func (n *NoopRecorder) SetClickQueueDepth(depth int64) {}

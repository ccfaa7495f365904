package metrics

import (
	"sync"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	RedirectOutcomes        map[string]uint64
	RedirectDurationCount   uint64
	RedirectDurationTotalNs int64
	UnlockAttempts          map[string]uint64
	DropsCreated            map[string]uint64
	DropsUpdated            map[string]uint64
	DropsDeleted            map[string]uint64
	ClickEventsPublished    map[string]uint64
	ClickEventsProcessed    map[string]uint64
	ClickBatchCount         uint64
	ClickQueueDepth         int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu sync.Mutex

	redirectOutcomes        map[string]uint64
	redirectDurationCount   uint64
	redirectDurationTotalNs int64
	unlockAttempts          map[string]uint64
	dropsCreated            map[string]uint64
	dropsUpdated            map[string]uint64
	dropsDeleted            map[string]uint64
	clickEventsPublished    map[string]uint64
	clickEventsProcessed    map[string]uint64
	clickBatchCount         uint64
	clickQueueDepth         int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		redirectOutcomes:     make(map[string]uint64),
		unlockAttempts:       make(map[string]uint64),
		dropsCreated:         make(map[string]uint64),
		dropsUpdated:         make(map[string]uint64),
		dropsDeleted:         make(map[string]uint64),
		clickEventsPublished: make(map[string]uint64),
		clickEventsProcessed: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		RedirectOutcomes:        copyCounts(m.redirectOutcomes),
		RedirectDurationCount:   m.redirectDurationCount,
		RedirectDurationTotalNs: m.redirectDurationTotalNs,
		UnlockAttempts:          copyCounts(m.unlockAttempts),
		DropsCreated:            copyCounts(m.dropsCreated),
		DropsUpdated:            copyCounts(m.dropsUpdated),
		DropsDeleted:            copyCounts(m.dropsDeleted),
		ClickEventsPublished:    copyCounts(m.clickEventsPublished),
		ClickEventsProcessed:    copyCounts(m.clickEventsProcessed),
		ClickBatchCount:         m.clickBatchCount,
		ClickQueueDepth:         m.clickQueueDepth,
	}
}

// IncRedirectOutcome counts one evaluated redirect outcome.
func (m *InMemoryRecorder) IncRedirectOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redirectOutcomes[outcome]++
}

// ObserveRedirectDuration records redirect duration.
func (m *InMemoryRecorder) ObserveRedirectDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redirectDurationCount++
	m.redirectDurationTotalNs += duration.Nanoseconds()
}

// IncUnlockAttempt counts one unlock attempt by status.
func (m *InMemoryRecorder) IncUnlockAttempt(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlockAttempts[status]++
}

// IncDropCreated counts one created drop by variant.
func (m *InMemoryRecorder) IncDropCreated(variant string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropsCreated[variant]++
}

// IncDropUpdated counts one updated drop by variant.
func (m *InMemoryRecorder) IncDropUpdated(variant string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropsUpdated[variant]++
}

// IncDropDeleted counts one deleted drop by variant.
func (m *InMemoryRecorder) IncDropDeleted(variant string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropsDeleted[variant]++
}

// IncClickEventPublished counts one published click event by status.
func (m *InMemoryRecorder) IncClickEventPublished(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clickEventsPublished[status]++
}

// IncClickEventProcessed counts one processed click event by status.
func (m *InMemoryRecorder) IncClickEventProcessed(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clickEventsProcessed[status]++
}

// ObserveClickBatchSize counts one processed batch.
func (m *InMemoryRecorder) ObserveClickBatchSize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clickBatchCount++
}

// ObserveClickBatchDuration is recorded only through batch count.
func (m *InMemoryRecorder) ObserveClickBatchDuration(duration time.Duration) {}

// SetClickQueueDepth stores the latest queue depth.
func (m *InMemoryRecorder) SetClickQueueDepth(depth int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clickQueueDepth = depth
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

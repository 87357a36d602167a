package world

import (
	"maps"
	"sync"

	"github.com/dw-engine/driftworld/engine/world/chunk"
)

// Metrics tracks streaming counters for observability. All methods are safe
// for concurrent use and a nil *Metrics is a no-op, so instrumented code
// never needs to check whether collection is enabled.
type Metrics struct {
	mu                sync.Mutex
	scans             uint64
	synthesized       uint64
	evicted           uint64
	discarded         uint64
	duplicates        uint64
	overflowEvictions uint64
	overflowWarnings  uint64
	queueSaturation   uint64
	byMaterial        map[chunk.Material]uint64
}

// NewMetrics creates a ready-to-use Metrics value.
func NewMetrics() *Metrics {
	return &Metrics{byMaterial: make(map[chunk.Material]uint64)}
}

// AddScan records one pass over the load neighbourhood.
func (m *Metrics) AddScan() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans++
}

// AddSynthesized records a chunk entering the cache, keyed by its dominant
// material.
func (m *Metrics) AddSynthesized(dominant chunk.Material) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synthesized++
	m.byMaterial[dominant]++
}

// AddEvicted records a chunk leaving the cache.
func (m *Metrics) AddEvicted() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evicted++
}

// AddDiscarded records a finished synthesis result dropped because its
// coordinate was no longer relevant when it arrived.
func (m *Metrics) AddDiscarded() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discarded++
}

// AddDuplicate records an explicit synthesis request for a coordinate that
// was already resident or synthesizing.
func (m *Metrics) AddDuplicate() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duplicates++
}

// AddOverflowEviction records an eviction forced by the cache bound rather
// than by distance.
func (m *Metrics) AddOverflowEviction() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overflowEvictions++
}

// AddOverflowWarning records a tick on which the cache exceeded its bound
// with nothing evictable.
func (m *Metrics) AddOverflowWarning() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overflowWarnings++
}

// AddQueueSaturation records a synthesis task that found the worker queue
// full.
func (m *Metrics) AddQueueSaturation() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueSaturation++
}

// Snapshot is a point-in-time copy of the streaming counters.
type Snapshot struct {
	Scans             uint64
	Synthesized       uint64
	Evicted           uint64
	Discarded         uint64
	Duplicates        uint64
	OverflowEvictions uint64
	OverflowWarnings  uint64
	QueueSaturation   uint64
	ByMaterial        map[chunk.Material]uint64
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Scans:             m.scans,
		Synthesized:       m.synthesized,
		Evicted:           m.evicted,
		Discarded:         m.discarded,
		Duplicates:        m.duplicates,
		OverflowEvictions: m.overflowEvictions,
		OverflowWarnings:  m.overflowWarnings,
		QueueSaturation:   m.queueSaturation,
		ByMaterial:        maps.Clone(m.byMaterial),
	}
}

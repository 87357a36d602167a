package debris

import (
	"maps"
	"sync"
)

// Metrics tracks debris streaming counters. All methods are safe for
// concurrent use and a nil *Metrics is a no-op.
type Metrics struct {
	mu                sync.Mutex
	scans             uint64
	synthesized       uint64
	objects           uint64
	evicted           uint64
	overflowEvictions uint64
	overflowWarnings  uint64
	byKind            map[Kind]uint64
}

// NewMetrics creates a ready-to-use Metrics value.
func NewMetrics() *Metrics {
	return &Metrics{byKind: make(map[Kind]uint64)}
}

// AddScan records one pass over the candidate neighbourhood.
func (m *Metrics) AddScan() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans++
}

// AddSynthesized records a cluster entering the field together with its
// object kinds.
func (m *Metrics) AddSynthesized(cl *Cluster) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synthesized++
	m.objects += uint64(len(cl.Objects))
	for _, o := range cl.Objects {
		m.byKind[o.Kind]++
	}
}

// AddEvicted records a cluster leaving the field.
func (m *Metrics) AddEvicted() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evicted++
}

// AddOverflowEviction records an eviction forced by the cache bound.
func (m *Metrics) AddOverflowEviction() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overflowEvictions++
}

// AddOverflowWarning records a Step on which the cache exceeded its bound
// with nothing evictable.
func (m *Metrics) AddOverflowWarning() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overflowWarnings++
}

// Snapshot is a point-in-time copy of the debris counters.
type Snapshot struct {
	Scans             uint64
	Synthesized       uint64
	Objects           uint64
	Evicted           uint64
	OverflowEvictions uint64
	OverflowWarnings  uint64
	ByKind            map[Kind]uint64
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
		Objects:           m.objects,
		Evicted:           m.evicted,
		OverflowEvictions: m.overflowEvictions,
		OverflowWarnings:  m.overflowWarnings,
		ByKind:            maps.Clone(m.byKind),
	}
}

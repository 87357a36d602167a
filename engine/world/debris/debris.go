// Package debris streams sparse volumetric content clusters around a moving
// observer. It mirrors the terrain stream manager in three dimensions, with
// one deliberate difference: candidate cells load probabilistically, so the
// field stays visibly sparse instead of filling every cell in range.
package debris

import (
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/segmentio/fasthash/fnv1a"

	"github.com/dw-engine/driftworld/engine/internal/fmath"
	"github.com/dw-engine/driftworld/engine/world/noise"
)

// CubePos identifies a cubic debris cell. A cell is centred on its coordinate
// scaled by the cell size.
type CubePos [3]int32

// X returns the X coordinate of the cell position.
func (p CubePos) X() int32 { return p[0] }

// Y returns the Y coordinate of the cell position.
func (p CubePos) Y() int32 { return p[1] }

// Z returns the Z coordinate of the cell position.
func (p CubePos) Z() int32 { return p[2] }

func (p CubePos) centre(size int) mgl64.Vec3 {
	s := float64(size)
	return mgl64.Vec3{float64(p[0]) * s, float64(p[1]) * s, float64(p[2]) * s}
}

func cubePosFromVec3(pos mgl64.Vec3, size int) CubePos {
	return CubePos{
		fmath.FloorCoord(pos[0], size),
		fmath.FloorCoord(pos[1], size),
		fmath.FloorCoord(pos[2], size),
	}
}

// Viewer is notified when clusters enter or leave the field, so a scene
// graph collaborator can attach and detach the matching objects.
type Viewer interface {
	// ViewCluster is called when the cluster at pos becomes resident. The
	// cluster must be treated as read-only.
	ViewCluster(pos CubePos, cl *Cluster)
	// HideCluster is called when the cluster at pos is evicted.
	HideCluster(pos CubePos)
}

// NopViewer implements Viewer with no-op methods, for embedding.
type NopViewer struct{}

// ViewCluster ...
func (NopViewer) ViewCluster(CubePos, *Cluster) {}

// HideCluster ...
func (NopViewer) HideCluster(CubePos) {}

// Field owns the cluster cache and its streaming state. Synthesis is cheap
// enough to run inline, so unlike the terrain world the Field keeps no
// workers: Step does everything on the caller's goroutine, and the Field must
// be driven from a single goroutine throughout.
type Field struct {
	conf    Config
	density *noise.SecondaryField

	clusters map[CubePos]*Cluster
	offsets  [][3]int32
	marked   []CubePos

	viewerMu sync.Mutex
	viewers  []Viewer

	metrics         *Metrics
	lastOverflowLog atomic.Uint64
}

// New creates a Field with the Config passed.
func (conf Config) New() *Field {
	conf = conf.withDefaults()
	f := &Field{
		conf:     conf,
		density:  noise.NewSecondaryField(conf.Seed),
		clusters: make(map[CubePos]*Cluster),
		metrics:  NewMetrics(),
	}
	r := int32(conf.LoadRadius)
	for x := -r; x <= r; x++ {
		for y := -r; y <= r; y++ {
			for z := -r; z <= r; z++ {
				f.offsets = append(f.offsets, [3]int32{x, y, z})
			}
		}
	}
	slices.SortFunc(f.offsets, func(a, b [3]int32) int {
		da := int(a[0])*int(a[0]) + int(a[1])*int(a[1]) + int(a[2])*int(a[2])
		db := int(b[0])*int(b[0]) + int(b[1])*int(b[1]) + int(b[2])*int(b[2])
		if da != db {
			return da - db
		}
		for i := range a {
			if a[i] != b[i] {
				return int(a[i] - b[i])
			}
		}
		return 0
	})
	return f
}

// Cluster returns the resident cluster at pos.
func (f *Field) Cluster(pos CubePos) (cl *Cluster, ok bool) {
	cl, ok = f.clusters[pos]
	return cl, ok
}

// ClusterCount returns the number of resident clusters.
func (f *Field) ClusterCount() int {
	return len(f.clusters)
}

// AddViewer subscribes a Viewer to cluster residency changes.
func (f *Field) AddViewer(v Viewer) {
	f.viewerMu.Lock()
	defer f.viewerMu.Unlock()
	f.viewers = append(f.viewers, v)
}

// RemoveViewer unsubscribes a Viewer previously added with AddViewer.
func (f *Field) RemoveViewer(v Viewer) {
	f.viewerMu.Lock()
	defer f.viewerMu.Unlock()
	for i, existing := range f.viewers {
		if existing == v {
			f.viewers = append(f.viewers[:i], f.viewers[i+1:]...)
			return
		}
	}
}

func (f *Field) viewerList() []Viewer {
	f.viewerMu.Lock()
	defer f.viewerMu.Unlock()
	viewers := make([]Viewer, len(f.viewers))
	copy(viewers, f.viewers)
	return viewers
}

// Metrics returns the Field's streaming counters.
func (f *Field) Metrics() *Metrics {
	return f.metrics
}

// Step advances the field for the observer position passed. The candidate
// neighbourhood is re-scanned on every Step: the load probability depends on
// the observer's continuous distance to each cell, so even movement inside a
// cell shifts which borderline cells qualify.
func (f *Field) Step(observerPos mgl64.Vec3) {
	f.metrics.AddScan()
	// A non-finite observer position would otherwise scatter clusters around
	// a garbage coordinate.
	for i := range observerPos {
		observerPos[i] = fmath.Finite(observerPos[i], 0)
	}
	coord := cubePosFromVec3(observerPos, f.conf.CellSize)
	for _, off := range f.offsets {
		pos := CubePos{coord[0] + off[0], coord[1] + off[1], coord[2] + off[2]}
		if _, ok := f.clusters[pos]; ok {
			continue
		}
		if f.mandatory(pos, coord) {
			f.insert(pos, f.synthesize(pos))
			continue
		}
		// The cache bound and the eviction radius both gate admission here
		// instead of evicting after the fact: with a re-scan every Step, a
		// cell loaded and evicted in the same Step would simply load again
		// on the next one. Offsets are sorted nearest first, so the bound
		// favours cells close to the observer.
		if len(f.clusters) >= f.conf.MaxCachedClusters {
			continue
		}
		if f.cellDistance(pos, observerPos) > f.conf.EvictionRadius {
			continue
		}
		if f.loadRoll(pos) >= f.loadProbability(pos, observerPos) {
			continue
		}
		f.insert(pos, f.synthesize(pos))
	}
	f.evictClusters(coord, observerPos)
	f.enforceCacheBound(coord, observerPos)
}

// loadProbability returns the probability with which the candidate cell at
// pos loads: 1 inside FullLoadRadius, decaying linearly to
// MinLoadProbability at the load radius.
func (f *Field) loadProbability(pos CubePos, observerPos mgl64.Vec3) float64 {
	d := f.cellDistance(pos, observerPos) / float64(f.conf.CellSize)
	if d <= f.conf.FullLoadRadius {
		return 1
	}
	t := (d - f.conf.FullLoadRadius) / (float64(f.conf.LoadRadius) - f.conf.FullLoadRadius)
	return fmath.Lerp(1, f.conf.MinLoadProbability, fmath.Clamp(t, 0, 1))
}

// loadRoll maps a cell coordinate and the field seed to a stable value in
// [0, 1).
func (f *Field) loadRoll(pos CubePos) float64 {
	h := fnv1a.Init64
	h = fnv1a.AddUint64(h, uint64(f.conf.Seed))
	h = fnv1a.AddUint64(h, uint64(fmath.Pack3(pos[0], pos[1], pos[2])))
	return float64(h>>11) / (1 << 53)
}

// insert makes a cluster resident and notifies viewers.
func (f *Field) insert(pos CubePos, cl *Cluster) {
	f.clusters[pos] = cl
	f.metrics.AddSynthesized(cl)
	for _, v := range f.viewerList() {
		v.ViewCluster(pos, cl)
	}
}

// evictClusters releases every resident cluster beyond the eviction radius,
// except the mandatory neighbourhood.
func (f *Field) evictClusters(coord CubePos, observerPos mgl64.Vec3) {
	f.marked = f.marked[:0]
	for pos := range f.clusters {
		if f.mandatory(pos, coord) {
			continue
		}
		if f.cellDistance(pos, observerPos) > f.conf.EvictionRadius {
			f.marked = append(f.marked, pos)
		}
	}
	for _, pos := range f.marked {
		f.evict(pos)
	}
}

// enforceCacheBound evicts the farthest non-mandatory cluster when the cache
// exceeds its bound, one per Step, warning instead when only mandatory
// clusters remain.
func (f *Field) enforceCacheBound(coord CubePos, observerPos mgl64.Vec3) {
	if len(f.clusters) <= f.conf.MaxCachedClusters {
		return
	}
	farthest, dist := CubePos{}, -1.0
	for pos := range f.clusters {
		if f.mandatory(pos, coord) {
			continue
		}
		if d := f.cellDistance(pos, observerPos); d > dist {
			farthest, dist = pos, d
		}
	}
	if dist < 0 {
		f.metrics.AddOverflowWarning()
		f.warnCacheOverflow()
		return
	}
	f.evict(farthest)
	f.metrics.AddOverflowEviction()
}

func (f *Field) evict(pos CubePos) {
	delete(f.clusters, pos)
	f.metrics.AddEvicted()
	for _, v := range f.viewerList() {
		v.HideCluster(pos)
	}
}

func (f *Field) mandatory(pos, coord CubePos) bool {
	r := int32(f.conf.MandatoryRadius)
	for i := range pos {
		if d := pos[i] - coord[i]; d < -r || d > r {
			return false
		}
	}
	return true
}

func (f *Field) cellDistance(pos CubePos, observerPos mgl64.Vec3) float64 {
	c := pos.centre(f.conf.CellSize)
	dx, dy, dz := c[0]-observerPos[0], c[1]-observerPos[1], c[2]-observerPos[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (f *Field) warnCacheOverflow() {
	now := uint64(time.Now().UnixNano())
	last := f.lastOverflowLog.Load()
	if last != 0 && time.Duration(now-last) < time.Minute {
		return
	}
	if !f.lastOverflowLog.CompareAndSwap(last, now) {
		return
	}
	f.conf.Log.Warn("debris cache above bound with nothing evictable.",
		"cached", len(f.clusters),
		"max", f.conf.MaxCachedClusters)
}

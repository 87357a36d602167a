package world

import (
	"math"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dw-engine/driftworld/engine/internal/fmath"
	"github.com/dw-engine/driftworld/engine/world/chunk"
)

// Step advances the stream manager for the observer position passed: it
// applies finished synthesis results, schedules synthesis for missing
// coordinates around the observer and evicts chunks that fell out of range.
// Step must be called from the single goroutine that owns the World.
//
// The load neighbourhood is only re-scanned when the observer crosses a
// chunk boundary or an earlier scan was cut short by the synthesis budget;
// result application and eviction run every Step.
func (w *World) Step(observerPos mgl64.Vec3) {
	select {
	case <-w.closing:
		return
	default:
	}
	// A non-finite observer position would otherwise stream chunks around a
	// garbage coordinate.
	for i := range observerPos {
		observerPos[i] = fmath.Finite(observerPos[i], 0)
	}
	coord := chunkPosFromVec3(observerPos, w.conf.ChunkSize)

	w.applyCompleted(coord, observerPos)
	if !w.scanned || w.rescan || coord != w.lastObserver {
		w.scanChunks(coord)
		w.lastObserver = coord
		w.scanned = true
	}
	w.evictChunks(coord, observerPos)
	w.enforceCacheBound(coord, observerPos)
}

// applyCompleted drains the completed channel without blocking. Chunks whose
// coordinate is still wanted become resident; a chunk that drifted beyond the
// eviction radius while it was synthesizing is dropped here and its
// coordinate returns to the unloaded state. Dropping on arrival is what
// cancels synthesis that a teleport made irrelevant: the worker's effort is
// wasted, but no stale chunk ever enters the cache.
func (w *World) applyCompleted(coord ChunkPos, observerPos mgl64.Vec3) {
	for {
		select {
		case res := <-w.completed:
			if w.states[res.pos] != stateSynthesizing {
				w.metrics.AddDiscarded()
				continue
			}
			if !w.mandatory(res.pos, coord) && w.chunkDistance(res.pos, observerPos) > w.conf.EvictionRadius {
				delete(w.states, res.pos)
				w.metrics.AddDiscarded()
				continue
			}
			w.insertChunk(res.pos, res.c)
		default:
			return
		}
	}
}

// insertChunk makes a synthesized chunk resident and notifies viewers.
func (w *World) insertChunk(pos ChunkPos, c *chunk.Chunk) {
	w.chunks[pos] = c
	w.states[pos] = stateResident
	w.metrics.AddSynthesized(c.Dominant())
	for _, v := range w.viewerList() {
		v.ViewChunk(pos, c)
	}
}

// scanChunks schedules synthesis for every missing coordinate in the load
// neighbourhood, closest first. Coordinates that are resident or already
// synthesizing are skipped. When the per-tick budget runs out mid-scan the
// rescan flag makes the next Step pick the scan back up even if the observer
// has not moved.
func (w *World) scanChunks(coord ChunkPos) {
	w.metrics.AddScan()
	w.rescan = false
	for _, off := range w.scanOffsets() {
		pos := ChunkPos{coord[0] + off[0], coord[1] + off[1]}
		if _, ok := w.states[pos]; ok {
			continue
		}
		if w.budget != nil && !w.budget.Allow() {
			w.rescan = true
			return
		}
		w.states[pos] = stateSynthesizing
		w.scheduleSynthesis(pos)
	}
}

// scanOffsets returns the load neighbourhood offsets ordered nearest first,
// with ties broken by coordinate so the schedule order is deterministic.
func (w *World) scanOffsets() [][2]int32 {
	if w.offsets != nil {
		return w.offsets
	}
	r := int32(w.conf.LoadRadius)
	for x := -r; x <= r; x++ {
		for z := -r; z <= r; z++ {
			w.offsets = append(w.offsets, [2]int32{x, z})
		}
	}
	slices.SortFunc(w.offsets, func(a, b [2]int32) int {
		da := int(a[0])*int(a[0]) + int(a[1])*int(a[1])
		db := int(b[0])*int(b[0]) + int(b[1])*int(b[1])
		if da != db {
			return da - db
		}
		if a[0] != b[0] {
			return int(a[0] - b[0])
		}
		return int(a[1] - b[1])
	})
	return w.offsets
}

// evictChunks releases every resident chunk whose centre lies beyond the
// eviction radius, except the mandatory neighbourhood around the observer
// coordinate.
func (w *World) evictChunks(coord ChunkPos, observerPos mgl64.Vec3) {
	w.marked = w.marked[:0]
	for pos := range w.chunks {
		if w.mandatory(pos, coord) {
			continue
		}
		if w.chunkDistance(pos, observerPos) > w.conf.EvictionRadius {
			w.marked = append(w.marked, pos)
		}
	}
	for _, pos := range w.marked {
		w.evict(pos)
	}
}

// enforceCacheBound evicts the farthest non-mandatory chunk when the cache
// exceeds its bound, one per Step. When only mandatory chunks remain the
// cache is left to run over the bound and a throttled warning is emitted
// instead: dropping the observer's own neighbourhood would be worse than the
// memory overshoot.
func (w *World) enforceCacheBound(coord ChunkPos, observerPos mgl64.Vec3) {
	if len(w.chunks) <= w.conf.MaxCachedChunks {
		return
	}
	farthest, dist := ChunkPos{}, -1.0
	for pos := range w.chunks {
		if w.mandatory(pos, coord) {
			continue
		}
		if d := w.chunkDistance(pos, observerPos); d > dist {
			farthest, dist = pos, d
		}
	}
	if dist < 0 {
		w.metrics.AddOverflowWarning()
		w.warnCacheOverflow()
		return
	}
	w.evict(farthest)
	w.metrics.AddOverflowEviction()
}

// evict removes the chunk at pos from the cache, notifies viewers and hands
// any registered content handles to the release callback.
func (w *World) evict(pos ChunkPos) {
	delete(w.chunks, pos)
	delete(w.states, pos)
	w.metrics.AddEvicted()
	for _, v := range w.viewerList() {
		v.HideChunk(pos)
	}
	if handles := w.registry.Detach(pos); len(handles) > 0 && w.conf.ReleaseContent != nil {
		w.conf.ReleaseContent(pos, handles)
	}
}

// mandatory reports whether pos lies in the never-evicted neighbourhood
// around the observer coordinate passed.
func (w *World) mandatory(pos, coord ChunkPos) bool {
	r := int32(w.conf.MandatoryRadius)
	dx, dz := pos[0]-coord[0], pos[1]-coord[1]
	return dx >= -r && dx <= r && dz >= -r && dz <= r
}

// chunkDistance returns the horizontal distance between the centre of the
// chunk at pos and the observer.
func (w *World) chunkDistance(pos ChunkPos, observerPos mgl64.Vec3) float64 {
	c := pos.centre(w.conf.ChunkSize)
	dx, dz := c[0]-observerPos[0], c[1]-observerPos[2]
	return math.Sqrt(dx*dx + dz*dz)
}

// warnCacheOverflow emits the overflow warning at most once a minute.
func (w *World) warnCacheOverflow() {
	now := uint64(time.Now().UnixNano())
	last := w.lastOverflowLog.Load()
	if last != 0 && time.Duration(now-last) < time.Minute {
		return
	}
	if !w.lastOverflowLog.CompareAndSwap(last, now) {
		return
	}
	w.conf.Log.Warn("chunk cache above bound with nothing evictable.",
		"cached", len(w.chunks),
		"max", w.conf.MaxCachedChunks)
}

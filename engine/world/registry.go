package world

import (
	"sync"

	"github.com/brentp/intintmap"
	"github.com/google/uuid"

	"github.com/dw-engine/driftworld/engine/internal/fmath"
)

// ContentRegistry indexes opaque content handles by chunk coordinate.
// Collaborators that spawn content for a chunk register the handles here;
// eviction then detaches everything belonging to the chunk in one lookup
// instead of scanning a scene for tagged objects.
//
// The registry is safe for concurrent use, so collaborators may attach
// handles from outside the Step goroutine.
type ContentRegistry struct {
	mu      sync.Mutex
	index   *intintmap.Map
	entries []registryEntry
	free    []int
}

type registryEntry struct {
	handles []uuid.UUID
}

// NewContentRegistry creates an empty ContentRegistry.
func NewContentRegistry() *ContentRegistry {
	return &ContentRegistry{index: intintmap.New(512, 0.6)}
}

// Attach registers a content handle under the chunk position passed.
func (r *ContentRegistry) Attach(pos ChunkPos, handle uuid.UUID) {
	key := fmath.Pack2(pos[0], pos[1])
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index.Get(key); ok {
		e := &r.entries[i]
		e.handles = append(e.handles, handle)
		return
	}
	i := len(r.entries)
	if n := len(r.free); n > 0 {
		i = r.free[n-1]
		r.free = r.free[:n-1]
		r.entries[i] = registryEntry{handles: []uuid.UUID{handle}}
	} else {
		r.entries = append(r.entries, registryEntry{handles: []uuid.UUID{handle}})
	}
	r.index.Put(key, int64(i))
}

// Detach removes and returns every handle registered under the chunk
// position passed. It returns nil when nothing is registered there.
func (r *ContentRegistry) Detach(pos ChunkPos) []uuid.UUID {
	key := fmath.Pack2(pos[0], pos[1])
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index.Get(key)
	if !ok {
		return nil
	}
	handles := r.entries[i].handles
	r.entries[i] = registryEntry{}
	r.free = append(r.free, int(i))
	r.index.Del(key)
	return handles
}

// Handles returns a copy of the handles currently registered under the chunk
// position passed.
func (r *ContentRegistry) Handles(pos ChunkPos) []uuid.UUID {
	key := fmath.Pack2(pos[0], pos[1])
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index.Get(key)
	if !ok {
		return nil
	}
	handles := make([]uuid.UUID, len(r.entries[i].handles))
	copy(handles, r.entries[i].handles)
	return handles
}

// Len returns the number of chunk positions with at least one registered
// handle.
func (r *ContentRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index.Size()
}

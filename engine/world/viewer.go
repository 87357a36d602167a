package world

import "github.com/dw-engine/driftworld/engine/world/chunk"

// Viewer is notified when chunks enter or leave the cache, so a scene graph
// collaborator can attach and detach the matching geometry. Viewers are
// called from the goroutine driving World.Step and must not call back into
// the World.
type Viewer interface {
	// ViewChunk is called when the chunk at pos has finished synthesis and
	// become resident. The chunk must be treated as read-only.
	ViewChunk(pos ChunkPos, c *chunk.Chunk)
	// HideChunk is called when the chunk at pos is evicted.
	HideChunk(pos ChunkPos)
}

// NopViewer implements Viewer with no-op methods. It may be embedded by
// implementations interested in only part of the interface.
type NopViewer struct{}

// ViewChunk ...
func (NopViewer) ViewChunk(ChunkPos, *chunk.Chunk) {}

// HideChunk ...
func (NopViewer) HideChunk(ChunkPos) {}

package world

import "github.com/dw-engine/driftworld/engine/world/chunk"

// Generator synthesizes the content of chunks as the stream manager requests
// them. Implementations must be pure functions of the chunk position and
// their own construction parameters: the same position must always fill
// identical data, or chunks will visibly change as they are evicted and
// resynthesized. GenerateChunk is called concurrently from multiple workers.
type Generator interface {
	// GenerateChunk fills the chunk passed with the content of the chunk at
	// pos.
	GenerateChunk(pos ChunkPos, c *chunk.Chunk)
}

// NopGenerator is a Generator that leaves chunks empty. Worlds created
// without a Generator use it, which is mainly useful in tests.
type NopGenerator struct{}

// GenerateChunk ...
func (NopGenerator) GenerateChunk(ChunkPos, *chunk.Chunk) {}

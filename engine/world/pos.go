package world

import (
	"github.com/dw-engine/driftworld/engine/internal/fmath"
	"github.com/go-gl/mathgl/mgl64"
)

// ChunkPos identifies a streamed chunk. A chunk's vertex grid is centred on
// its coordinate scaled by the chunk size, so the chunk at the zero value
// surrounds the world origin.
type ChunkPos [2]int32

// X returns the X coordinate of the chunk position.
func (p ChunkPos) X() int32 {
	return p[0]
}

// Z returns the Z coordinate of the chunk position.
func (p ChunkPos) Z() int32 {
	return p[1]
}

// centre returns the world position the chunk's vertex grid is centred on.
func (p ChunkPos) centre(size int) mgl64.Vec2 {
	return mgl64.Vec2{float64(p[0]) * float64(size), float64(p[1]) * float64(size)}
}

// chunkPosFromVec3 returns the coordinate of the chunk that the world
// position passed falls in. The Y component is ignored: streaming is driven
// by horizontal distance only.
func chunkPosFromVec3(pos mgl64.Vec3, size int) ChunkPos {
	return ChunkPos{fmath.FloorCoord(pos[0], size), fmath.FloorCoord(pos[2], size)}
}

// VertexPos returns the world position of vertex (x, z) of the chunk at pos,
// for a grid of n vertices spanning a chunk of the size passed. Edge vertices
// coincide with those of the neighbouring chunk, which keeps adjacent
// heightfields crack-free.
func VertexPos(pos ChunkPos, x, z, n, size int) mgl64.Vec2 {
	s := float64(size)
	step := s / float64(n-1)
	c := pos.centre(size)
	return mgl64.Vec2{c[0] - s/2 + float64(x)*step, c[1] - s/2 + float64(z)*step}
}

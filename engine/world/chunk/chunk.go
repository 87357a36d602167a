// Package chunk holds the synthesized per-vertex data of one streamed chunk:
// a square heightfield with a biome and a surface material per vertex.
package chunk

import "github.com/dw-engine/driftworld/engine/world/biome"

// Chunk is the synthesized content of a single chunk coordinate. A Chunk is
// written once by a synthesis worker and read-only from then on; it carries
// no locks of its own.
//
// Vertices are addressed as (x, z) in [0, Grid()). Reads outside that range
// report ok == false instead of a made-up value, so a caller sampling across
// a chunk edge can tell "no data" apart from a legitimate height of 0.
type Chunk struct {
	n         int
	heights   []float32
	biomes    []biome.ID
	materials []Material
	hist      [materialCount]int
}

// New creates an empty chunk with a grid of n by n vertices. Grids smaller
// than 2 by 2 cannot span a chunk and are raised to 2.
func New(n int) *Chunk {
	if n < 2 {
		n = 2
	}
	return &Chunk{
		n:         n,
		heights:   make([]float32, n*n),
		biomes:    make([]biome.ID, n*n),
		materials: make([]Material, n*n),
	}
}

// Grid returns the vertex count along one side of the chunk.
func (c *Chunk) Grid() int {
	return c.n
}

// Set writes the height, biome and material of the vertex at (x, z). Writes
// outside the grid are ignored.
func (c *Chunk) Set(x, z int, height float32, b biome.ID, m Material) {
	if !c.contains(x, z) {
		return
	}
	i := c.index(x, z)
	if prev := c.materials[i]; prev != MaterialUnknown {
		c.hist[prev]--
	}
	c.heights[i] = height
	c.biomes[i] = b
	c.materials[i] = m
	c.hist[m]++
}

// HeightAt returns the height of the vertex at (x, z). ok is false for
// vertices outside the grid.
func (c *Chunk) HeightAt(x, z int) (height float32, ok bool) {
	if !c.contains(x, z) {
		return 0, false
	}
	return c.heights[c.index(x, z)], true
}

// BiomeAt returns the biome of the vertex at (x, z). ok is false for vertices
// outside the grid.
func (c *Chunk) BiomeAt(x, z int) (b biome.ID, ok bool) {
	if !c.contains(x, z) {
		return biome.Underwater, false
	}
	return c.biomes[c.index(x, z)], true
}

// MaterialAt returns the material of the vertex at (x, z). ok is false for
// vertices outside the grid.
func (c *Chunk) MaterialAt(x, z int) (m Material, ok bool) {
	if !c.contains(x, z) {
		return MaterialUnknown, false
	}
	return c.materials[c.index(x, z)], true
}

// Dominant returns the material covering the most vertices. Ties resolve to
// the lower material value so the result is deterministic. A chunk with no
// written vertices reports MaterialUnknown.
func (c *Chunk) Dominant() Material {
	best, bestCount := MaterialUnknown, 0
	for m := MaterialUnknown + 1; m < materialCount; m++ {
		if n := c.hist[m]; n > bestCount {
			best, bestCount = m, n
		}
	}
	return best
}

// Heights exposes the backing height slice in row-major (z, x) order for
// renderers that upload the field wholesale. The slice must be treated as
// read-only.
func (c *Chunk) Heights() []float32 {
	return c.heights
}

// Biomes exposes the backing biome slice in row-major (z, x) order. The slice
// must be treated as read-only.
func (c *Chunk) Biomes() []biome.ID {
	return c.biomes
}

// Materials exposes the backing material slice in row-major (z, x) order. The
// slice must be treated as read-only.
func (c *Chunk) Materials() []Material {
	return c.materials
}

func (c *Chunk) contains(x, z int) bool {
	return x >= 0 && x < c.n && z >= 0 && z < c.n
}

func (c *Chunk) index(x, z int) int {
	return z*c.n + x
}

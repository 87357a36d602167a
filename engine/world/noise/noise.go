// Package noise provides the seeded coherent noise sources that drive
// terrain synthesis. Every sampler is deterministic per seed, bounded to
// [-1, 1] and safe for concurrent use once constructed, so synthesis workers
// may share a single instance freely.
package noise

import (
	"math"

	"github.com/aquilax/go-perlin"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/dw-engine/driftworld/engine/internal/fmath"
)

const (
	perlinAlpha   = 2
	perlinBeta    = 2
	perlinOctaves = 3
)

// Field is a seeded two-dimensional Perlin sampler used for landmass height.
// The sampler folds no octave stack of its own: frequency and amplitude
// layering is the caller's responsibility.
type Field struct {
	p *perlin.Perlin
}

// NewField creates a Field for the seed passed. Two Fields with the same seed
// return identical values for every coordinate.
func NewField(seed int64) *Field {
	return &Field{p: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed)}
}

// Sample returns the noise value at (x, z) in [-1, 1]. Non-finite input
// coordinates yield 0 so a malformed position can never poison the height
// arithmetic downstream.
func (f *Field) Sample(x, z float64) float64 {
	if !finite(x) || !finite(z) {
		return 0
	}
	return fmath.Finite(fmath.Clamp(f.p.Noise2D(x, z), -1, 1), 0)
}

// SecondaryField is a seeded OpenSimplex sampler. Terrain uses its 2D form to
// bucket biomes independently of the height noise; the debris field uses its
// 3D form for volumetric density.
type SecondaryField struct {
	n opensimplex.Noise
}

// NewSecondaryField creates a SecondaryField for the seed passed.
func NewSecondaryField(seed int64) *SecondaryField {
	return &SecondaryField{n: opensimplex.New(seed)}
}

// Sample2 returns the noise value at (x, z) in [-1, 1], with the same
// non-finite input guard as Field.Sample.
func (f *SecondaryField) Sample2(x, z float64) float64 {
	if !finite(x) || !finite(z) {
		return 0
	}
	return fmath.Finite(fmath.Clamp(f.n.Eval2(x, z), -1, 1), 0)
}

// Sample3 returns the noise value at (x, y, z) in [-1, 1].
func (f *SecondaryField) Sample3(x, y, z float64) float64 {
	if !finite(x) || !finite(y) || !finite(z) {
		return 0
	}
	return fmath.Finite(fmath.Clamp(f.n.Eval3(x, y, z), -1, 1), 0)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

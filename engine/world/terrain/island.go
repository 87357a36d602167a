package terrain

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dw-engine/driftworld/engine/internal/fmath"
)

// Island is a localised landmass feature. Its influence is 1 at the centre
// and falls off quadratically to exactly 0 at Radius+Falloff from it.
type Island struct {
	// Center is the island centre in world space.
	Center mgl64.Vec2
	// Radius is the core extent of the island.
	Radius float64
	// Falloff is the width of the band over which influence fades beyond the
	// radius.
	Falloff float64
	// TargetHeight is the height the terrain pulls towards at the centre.
	TargetHeight float64
}

// Sample is the result of an influence query: the dominant island at a point
// and its influence there.
type Sample struct {
	Island    *Island
	Influence float64
}

// SatelliteConfig describes the randomly placed islands generated around the
// configured set when a Field is built. Satellites are drawn once from a
// seeded stream, so a seed always yields the same archipelago.
type SatelliteConfig struct {
	// Count is the number of satellites to generate. Zero disables them.
	Count int
	// MinDistance and MaxDistance bound how far from the world origin
	// satellite centres are placed.
	MinDistance, MaxDistance float64
	// MinRadius and MaxRadius bound the satellite core radius.
	MinRadius, MaxRadius float64
	// Falloff is the falloff band width shared by all satellites.
	Falloff float64
	// MinHeight and MaxHeight bound the satellite target height.
	MinHeight, MaxHeight float64
}

// Field answers influence queries over a fixed island set. It is read-only
// after construction and safe for concurrent use by synthesis workers.
type Field struct {
	islands []Island
}

// NewField creates a Field from the islands passed plus sat.Count satellites
// drawn from a stream seeded with seed.
func NewField(islands []Island, sat SatelliteConfig, seed int64) *Field {
	f := &Field{islands: slices.Clone(islands)}
	if sat.Count <= 0 {
		return f
	}
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	for range sat.Count {
		angle := r.Float64() * 2 * math.Pi
		dist := sat.MinDistance + r.Float64()*(sat.MaxDistance-sat.MinDistance)
		f.islands = append(f.islands, Island{
			Center:       mgl64.Vec2{math.Cos(angle) * dist, math.Sin(angle) * dist},
			Radius:       sat.MinRadius + r.Float64()*(sat.MaxRadius-sat.MinRadius),
			Falloff:      sat.Falloff,
			TargetHeight: sat.MinHeight + r.Float64()*(sat.MaxHeight-sat.MinHeight),
		})
	}
	return f
}

// InfluenceAt returns the island with the strongest influence at p. Influence
// is the maximum over all islands, never a sum: overlapping falloff bands do
// not stack into a ridge. ok is false when no island reaches p, which is what
// marks open water.
func (f *Field) InfluenceAt(p mgl64.Vec2) (s Sample, ok bool) {
	for i := range f.islands {
		isl := &f.islands[i]
		reach := isl.Radius + isl.Falloff
		if reach <= 0 {
			continue
		}
		n := fmath.Clamp(p.Sub(isl.Center).Len()/reach, 0, 1)
		if inf := 1 - n*n; inf > s.Influence {
			s = Sample{Island: isl, Influence: inf}
		}
	}
	return s, s.Island != nil
}

// Islands returns a copy of the full island set, satellites included.
func (f *Field) Islands() []Island {
	return slices.Clone(f.islands)
}

// Package terrain implements the chunk generator of the engine: island
// influence blending, layered height noise, biome classification and the
// height/biome material table.
package terrain

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/dw-engine/driftworld/engine/internal/fmath"
	"github.com/dw-engine/driftworld/engine/world"
	"github.com/dw-engine/driftworld/engine/world/biome"
	"github.com/dw-engine/driftworld/engine/world/chunk"
	"github.com/dw-engine/driftworld/engine/world/noise"
)

const (
	secondarySeedSalt = 0x5f3759df
	depthSeedSalt     = 0x2545f491
)

// Scale is one layer of height noise: Frequency scales world coordinates
// before sampling and Weight scales the sampled value.
type Scale struct {
	Frequency float64
	Weight    float64
}

// Config holds the tunable parameters of a Synthesizer. The zero value is
// usable; withDefaults fills every unset field.
type Config struct {
	// Seed drives every noise source of the synthesizer. Identical seeds,
	// island sets and thresholds produce bit-identical chunks.
	Seed int64
	// ChunkSize is the world-space extent of one chunk and the vertex count
	// along each side of its grid. It must match the streaming world's chunk
	// size.
	ChunkSize int
	// Islands is the configured island set. Satellites are appended to it at
	// construction time.
	Islands []Island
	// Satellites configures randomly placed islands around the configured
	// set.
	Satellites SatelliteConfig

	// Waterline is the height of the open-water surface.
	Waterline float64
	// MinHeight and MaxHeight clamp every synthesized vertex height.
	MinHeight, MaxHeight float64
	// SnowHeight is the height at which mountain vertices turn to snow.
	SnowHeight float64
	// OpenWaterDepth is how far below the waterline the open-water floor
	// sits on average.
	OpenWaterDepth float64
	// OpenWaterVariance scales the dedicated low-frequency noise that keeps
	// the open-water floor from being perfectly flat.
	OpenWaterVariance float64

	// Scales are the height noise layers summed into the landmass relief.
	Scales []Scale
	// SecondaryFrequency scales coordinates fed to the biome bucket noise.
	SecondaryFrequency float64
	// DepthFrequency scales coordinates fed to the open-water floor noise.
	DepthFrequency float64

	// Classifier buckets vertices into biomes.
	Classifier biome.Classifier
	// Thresholds is the per-biome placement table. Its height bonuses feed
	// back into the synthesized heights.
	Thresholds biome.Table
}

func (conf Config) withDefaults() Config {
	if conf.ChunkSize <= 1 {
		conf.ChunkSize = 32
	}
	if conf.MinHeight == 0 {
		conf.MinHeight = -8
	}
	if conf.MaxHeight == 0 {
		conf.MaxHeight = 24
	}
	if conf.SnowHeight == 0 {
		conf.SnowHeight = 18
	}
	if conf.OpenWaterDepth == 0 {
		conf.OpenWaterDepth = 2.5
	}
	if conf.OpenWaterVariance == 0 {
		conf.OpenWaterVariance = 1.5
	}
	if len(conf.Scales) == 0 {
		conf.Scales = []Scale{
			{Frequency: 1.0 / 96, Weight: 3.6},
			{Frequency: 1.0 / 28, Weight: 1.8},
			{Frequency: 1.0 / 9, Weight: 0.7},
		}
	}
	if conf.SecondaryFrequency == 0 {
		conf.SecondaryFrequency = 1.0 / 160
	}
	if conf.DepthFrequency == 0 {
		conf.DepthFrequency = 1.0 / 140
	}
	if conf.Classifier == (biome.Classifier{}) {
		conf.Classifier = biome.DefaultClassifier()
	}
	if conf.Thresholds == nil {
		conf.Thresholds = biome.DefaultTable()
	}
	return conf
}

// Synthesizer fills chunks with terrain. It implements world.Generator and
// is safe for concurrent use: all of its state is read-only after New.
type Synthesizer struct {
	conf      Config
	islands   *Field
	height    *noise.Field
	secondary *noise.SecondaryField
	depth     *noise.Field
}

// New creates a Synthesizer with the Config passed, generating the satellite
// islands as part of construction.
func (conf Config) New() *Synthesizer {
	conf = conf.withDefaults()
	return &Synthesizer{
		conf:      conf,
		islands:   NewField(conf.Islands, conf.Satellites, conf.Seed),
		height:    noise.NewField(conf.Seed),
		secondary: noise.NewSecondaryField(conf.Seed ^ secondarySeedSalt),
		depth:     noise.NewField(conf.Seed ^ depthSeedSalt),
	}
}

// ChunkSize returns the chunk size the Synthesizer was configured with.
func (s *Synthesizer) ChunkSize() int {
	return s.conf.ChunkSize
}

// Islands returns the island field, satellites included.
func (s *Synthesizer) Islands() *Field {
	return s.islands
}

// Thresholds returns the per-biome placement table content collaborators
// should place against.
func (s *Synthesizer) Thresholds() biome.Table {
	return s.conf.Thresholds
}

// GenerateChunk fills the chunk passed with the terrain of the chunk at pos.
func (s *Synthesizer) GenerateChunk(pos world.ChunkPos, c *chunk.Chunk) {
	n := c.Grid()
	for z := 0; z < n; z++ {
		for x := 0; x < n; x++ {
			p := world.VertexPos(pos, x, z, n, s.conf.ChunkSize)
			h, b := s.sampleColumn(p)
			c.Set(x, z, float32(h), b, s.material(h, b))
		}
	}
}

// sampleColumn synthesizes the height and biome of a single vertex.
//
// Open water gets a dedicated low-frequency floor below the waterline.
// Landmass height is the island target pulled down by the square of the
// influence, plus the noise layers scaled linearly by it, so relief fades
// towards the island edge faster than the base height does. The biome height
// bonus is added after classification from the raw height.
func (s *Synthesizer) sampleColumn(p mgl64.Vec2) (float64, biome.ID) {
	sample, land := s.islands.InfluenceAt(p)
	if !land {
		floor := s.conf.Waterline - s.conf.OpenWaterDepth -
			s.conf.OpenWaterVariance*s.depth.Sample(p[0]*s.conf.DepthFrequency, p[1]*s.conf.DepthFrequency)
		floor = fmath.Finite(floor, s.conf.Waterline-s.conf.OpenWaterDepth)
		return fmath.Clamp(floor, s.conf.MinHeight, s.conf.Waterline), biome.Underwater
	}

	inf := sample.Influence
	h := sample.Island.TargetHeight * inf * inf
	var relief float64
	for _, sc := range s.conf.Scales {
		relief += sc.Weight * s.height.Sample(p[0]*sc.Frequency, p[1]*sc.Frequency)
	}
	h += relief * inf
	h = fmath.Finite(h, sample.Island.TargetHeight*inf*inf)

	b := s.conf.Classifier.Classify(h, s.secondary.Sample2(p[0]*s.conf.SecondaryFrequency, p[1]*s.conf.SecondaryFrequency), true)
	h += s.conf.Thresholds.Lookup(b).HeightBonus
	return fmath.Clamp(h, s.conf.MinHeight, s.conf.MaxHeight), b
}

// material implements the height and biome material table.
func (s *Synthesizer) material(h float64, b biome.ID) chunk.Material {
	switch {
	case h <= s.conf.Waterline:
		return chunk.MaterialWater
	case b == biome.Beach:
		return chunk.MaterialSand
	case b == biome.Mountains:
		if h >= s.conf.SnowHeight {
			return chunk.MaterialSnow
		}
		return chunk.MaterialStone
	case b == biome.Forest:
		return chunk.MaterialDirt
	default:
		return chunk.MaterialGrass
	}
}

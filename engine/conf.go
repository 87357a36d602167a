package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pelletier/go-toml"

	"github.com/dw-engine/driftworld/engine/world"
	"github.com/dw-engine/driftworld/engine/world/biome"
	"github.com/dw-engine/driftworld/engine/world/debris"
	"github.com/dw-engine/driftworld/engine/world/terrain"
)

// Config contains options for creating a drift-world Engine.
type Config struct {
	// Log is the Logger to use for logging information. If nil, Log is set to
	// slog.Default().
	Log *slog.Logger
	// Seed drives every deterministic source in the engine: terrain noise,
	// satellite placement and debris content all derive from it. Engines with
	// the same Seed and the same Terrain settings produce bit-identical
	// worlds.
	Seed int64
	// TickRate is the number of Steps per second driven by Start. If 0, it
	// defaults to 20.
	TickRate int
	// Terrain configures the chunk synthesizer: the island set, satellites,
	// noise layering and biome thresholds. Its Seed field is overwritten with
	// the engine Seed.
	Terrain terrain.Config
	// Stream configures the chunk cache and stream manager. Its Generator,
	// Log, ChunkSize and TickRate fields are filled in by the engine and must
	// be left unset.
	Stream world.Config
	// Debris configures the volumetric debris field. Its Log and Seed fields
	// are filled in by the engine.
	Debris debris.Config
	// DisableDebris turns the debris subsystem off entirely.
	DisableDebris bool
}

// New creates an Engine using the fields of conf: the terrain synthesizer,
// the streamed world around it and, unless disabled, the debris field. The
// engine does not tick until Start is called; hosts that drive their own
// frame loop may call Engine.Step instead.
func (conf Config) New() *Engine {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.TickRate <= 0 {
		conf.TickRate = 20
	}
	conf.Terrain.Seed = conf.Seed
	if conf.Terrain.ChunkSize == 0 {
		conf.Terrain.ChunkSize = conf.Stream.ChunkSize
	}
	synth := conf.Terrain.New()
	if conf.Stream.ChunkSize != 0 && conf.Stream.ChunkSize != synth.ChunkSize() {
		conf.Log.Warn("config: stream chunk size differs from terrain chunk size.",
			"stream", conf.Stream.ChunkSize, "terrain", synth.ChunkSize())
	}
	conf.Stream.ChunkSize = synth.ChunkSize()
	conf.Stream.Log = conf.Log
	conf.Stream.Generator = synth
	conf.Stream.TickRate = conf.TickRate

	var field *debris.Field
	if !conf.DisableDebris {
		conf.Debris.Log = conf.Log
		conf.Debris.Seed = conf.Seed ^ debrisSeedSalt
		field = conf.Debris.New()
	}
	return &Engine{
		conf:    conf,
		log:     conf.Log,
		synth:   synth,
		world:   conf.Stream.New(),
		debris:  field,
		closing: make(chan struct{}),
	}
}

// UserConfig is the user configuration for a drift-world engine. It holds the
// serialisable settings and may be converted to a Config by calling
// UserConfig.Config.
type UserConfig struct {
	World struct {
		// Seed drives all procedural generation. The same seed always yields
		// the same world.
		Seed int64
		// TickRate is the number of streaming updates per second.
		TickRate int
		// ChunkSize is the world-space extent of one terrain chunk and the
		// vertex count along each side of its heightfield.
		ChunkSize int
		// LoadRadius is the radius around the observer, in chunks, kept
		// synthesized.
		LoadRadius int
		// EvictionRadius is the distance in world units beyond which resident
		// chunks are released. It must exceed LoadRadius times ChunkSize.
		EvictionRadius float64
		// MandatoryRadius is the radius around the observer, in chunks, that
		// is never evicted.
		MandatoryRadius int
		// MaxCachedChunks bounds how many chunks may be resident at once.
		MaxCachedChunks int
		// SynthesisWorkers is the number of background synthesis goroutines.
		// Set to 0 to derive it from the host's CPU count.
		SynthesisWorkers int
		// SynthesisQueueSize determines how many synthesis jobs can wait for
		// a worker. Set to 0 to use an automatically chosen size.
		SynthesisQueueSize int
		// SynthesisPerTick caps how many chunks may be scheduled for
		// synthesis per tick. Set to 0 to disable the cap.
		SynthesisPerTick int
	}
	Terrain struct {
		// Waterline is the height of the open-water surface.
		Waterline float64
		// MinHeight and MaxHeight clamp every synthesized height.
		MinHeight float64
		MaxHeight float64
		// BeachHeight is the height below which landmass vertices turn to
		// beach.
		BeachHeight float64
		// MountainHeight is the height above which landmass vertices turn to
		// mountains regardless of their noise bucket.
		MountainHeight float64
		// SnowHeight is the height at which mountain vertices turn to snow.
		SnowHeight float64
		// OpenWaterDepth is how far below the waterline the open-water floor
		// sits on average.
		OpenWaterDepth float64
		// OpenWaterVariance scales the noise applied to the open-water floor.
		OpenWaterVariance float64
	}
	// Islands is the configured island set. An empty list with no satellites
	// yields a world of open water.
	Islands []UserIsland
	Satellites struct {
		// Count is the number of randomly placed islands generated around the
		// configured set. Set to 0 to disable satellites.
		Count int
		// MinDistance and MaxDistance bound how far from the origin satellite
		// centres are placed.
		MinDistance float64
		MaxDistance float64
		// MinRadius and MaxRadius bound the satellite core radius.
		MinRadius float64
		MaxRadius float64
		// Falloff is the influence falloff band width of every satellite.
		Falloff float64
		// MinHeight and MaxHeight bound the satellite target height.
		MinHeight float64
		MaxHeight float64
	}
	Debris struct {
		// Enabled controls whether the volumetric debris field runs at all.
		Enabled bool
		// CellSize is the edge length of one cubic debris cell.
		CellSize int
		// LoadRadius is the radius around the observer, in cells, considered
		// for loading.
		LoadRadius int
		// EvictionRadius is the distance in world units beyond which resident
		// clusters are released.
		EvictionRadius float64
		// MaxCachedClusters bounds how many clusters may be resident at once.
		MaxCachedClusters int
		// FullLoadRadius is the distance in cells inside which candidate
		// cells always load.
		FullLoadRadius float64
		// MinLoadProbability is the load probability at the edge of the load
		// radius. It must lie in (0, 1].
		MinLoadProbability float64
		// BaseCount is the minimum number of objects per cluster.
		BaseCount int
		// CountVariance is the additional per-cluster object count granted by
		// the density noise at its peak.
		CountVariance int
	}
}

// UserIsland describes one configured island.
type UserIsland struct {
	// CenterX and CenterZ position the island centre in world space.
	CenterX float64
	CenterZ float64
	// Radius is the island core radius.
	Radius float64
	// Falloff is the width of the influence falloff band beyond the radius.
	Falloff float64
	// TargetHeight is the height the island pulls terrain towards at its
	// centre.
	TargetHeight float64
}

// Config converts a UserConfig to a Config, so that it may be used to create
// an Engine. An error is returned for settings that would misbehave at
// runtime rather than merely being unset.
func (uc UserConfig) Config(log *slog.Logger) (Config, error) {
	conf := Config{
		Log:           log,
		Seed:          uc.World.Seed,
		TickRate:      uc.World.TickRate,
		DisableDebris: !uc.Debris.Enabled,
	}

	if uc.World.ChunkSize < 0 {
		return conf, fmt.Errorf("config: chunk size %v must be positive", uc.World.ChunkSize)
	}
	if uc.World.LoadRadius < 0 {
		return conf, fmt.Errorf("config: load radius %v must be positive", uc.World.LoadRadius)
	}
	chunkSize := uc.World.ChunkSize
	if chunkSize == 0 {
		chunkSize = 32
	}
	loadRadius := uc.World.LoadRadius
	if loadRadius == 0 {
		loadRadius = 4
	}
	if r := uc.World.EvictionRadius; r != 0 && r <= float64(loadRadius*chunkSize) {
		return conf, fmt.Errorf("config: eviction radius %v must exceed the load extent of %v", r, loadRadius*chunkSize)
	}
	if p := uc.Debris.MinLoadProbability; p < 0 || p > 1 {
		return conf, fmt.Errorf("config: debris load probability %v outside [0, 1]", p)
	}
	if uc.Satellites.Count > 0 && uc.Satellites.MaxDistance < uc.Satellites.MinDistance {
		return conf, fmt.Errorf("config: satellite distance bounds inverted: %v > %v", uc.Satellites.MinDistance, uc.Satellites.MaxDistance)
	}
	if len(uc.Islands) == 0 && uc.Satellites.Count == 0 && log != nil {
		log.Warn("config: no islands configured, the world will be open water")
	}

	conf.Stream = world.Config{
		ChunkSize:          uc.World.ChunkSize,
		LoadRadius:         uc.World.LoadRadius,
		EvictionRadius:     uc.World.EvictionRadius,
		MandatoryRadius:    uc.World.MandatoryRadius,
		MaxCachedChunks:    uc.World.MaxCachedChunks,
		SynthesisWorkers:   uc.World.SynthesisWorkers,
		SynthesisQueueSize: uc.World.SynthesisQueueSize,
		SynthesisPerTick:   uc.World.SynthesisPerTick,
	}

	classifier := biome.DefaultClassifier()
	if uc.Terrain.BeachHeight != 0 {
		classifier.BeachHeight = uc.Terrain.BeachHeight
	}
	if uc.Terrain.MountainHeight != 0 {
		classifier.MountainHeight = uc.Terrain.MountainHeight
	}
	islands := make([]terrain.Island, 0, len(uc.Islands))
	for _, isl := range uc.Islands {
		islands = append(islands, terrain.Island{
			Center:       mgl64.Vec2{isl.CenterX, isl.CenterZ},
			Radius:       isl.Radius,
			Falloff:      isl.Falloff,
			TargetHeight: isl.TargetHeight,
		})
	}
	conf.Terrain = terrain.Config{
		ChunkSize: uc.World.ChunkSize,
		Islands:   islands,
		Satellites: terrain.SatelliteConfig{
			Count:       uc.Satellites.Count,
			MinDistance: uc.Satellites.MinDistance,
			MaxDistance: uc.Satellites.MaxDistance,
			MinRadius:   uc.Satellites.MinRadius,
			MaxRadius:   uc.Satellites.MaxRadius,
			Falloff:     uc.Satellites.Falloff,
			MinHeight:   uc.Satellites.MinHeight,
			MaxHeight:   uc.Satellites.MaxHeight,
		},
		Waterline:         uc.Terrain.Waterline,
		MinHeight:         uc.Terrain.MinHeight,
		MaxHeight:         uc.Terrain.MaxHeight,
		SnowHeight:        uc.Terrain.SnowHeight,
		OpenWaterDepth:    uc.Terrain.OpenWaterDepth,
		OpenWaterVariance: uc.Terrain.OpenWaterVariance,
		Classifier:        classifier,
	}

	conf.Debris = debris.Config{
		CellSize:           uc.Debris.CellSize,
		LoadRadius:         uc.Debris.LoadRadius,
		EvictionRadius:     uc.Debris.EvictionRadius,
		MaxCachedClusters:  uc.Debris.MaxCachedClusters,
		FullLoadRadius:     uc.Debris.FullLoadRadius,
		MinLoadProbability: uc.Debris.MinLoadProbability,
		BaseCount:          uc.Debris.BaseCount,
		CountVariance:      uc.Debris.CountVariance,
	}
	return conf, nil
}

// DefaultConfig returns a configuration with the default values filled out.
func DefaultConfig() UserConfig {
	c := UserConfig{}
	c.World.Seed = 0
	c.World.TickRate = 20
	c.World.ChunkSize = 32
	c.World.LoadRadius = 4
	c.World.EvictionRadius = 272
	c.World.MandatoryRadius = 1
	c.World.MaxCachedChunks = 256
	c.World.SynthesisPerTick = 64
	c.Terrain.MinHeight = -8
	c.Terrain.MaxHeight = 24
	c.Terrain.BeachHeight = 1.5
	c.Terrain.MountainHeight = 14
	c.Terrain.SnowHeight = 18
	c.Terrain.OpenWaterDepth = 2.5
	c.Terrain.OpenWaterVariance = 1.5
	c.Islands = []UserIsland{{Radius: 220, Falloff: 90, TargetHeight: 12}}
	c.Satellites.Count = 6
	c.Satellites.MinDistance = 420
	c.Satellites.MaxDistance = 1400
	c.Satellites.MinRadius = 45
	c.Satellites.MaxRadius = 130
	c.Satellites.Falloff = 60
	c.Satellites.MinHeight = 6
	c.Satellites.MaxHeight = 14
	c.Debris.Enabled = true
	c.Debris.CellSize = 32
	c.Debris.LoadRadius = 3
	c.Debris.FullLoadRadius = 1.5
	c.Debris.MinLoadProbability = 0.3
	c.Debris.BaseCount = 2
	c.Debris.CountVariance = 6
	return c
}

// ReadConfig reads a UserConfig from the TOML file at path. If the file does
// not exist yet, it is created holding DefaultConfig's values.
func ReadConfig(path string, log *slog.Logger) (UserConfig, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return c, fmt.Errorf("read config: %w", err)
		}
		encoded, err := toml.Marshal(c)
		if err != nil {
			return c, fmt.Errorf("encode default config: %w", err)
		}
		if err := os.WriteFile(path, encoded, 0644); err != nil {
			return c, fmt.Errorf("create default config: %w", err)
		}
		if log != nil {
			log.Info("Created default config.", "path", path)
		}
		return c, nil
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

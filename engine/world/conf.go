package world

import (
	"log/slog"
	"math"
	"runtime"

	"github.com/google/uuid"
)

// Config holds the tunable parameters of a World. The zero value is usable:
// withDefaults fills every unset field with a sensible default.
type Config struct {
	// Log is the Logger that streaming warnings and errors are written to.
	// Defaults to slog.Default().
	Log *slog.Logger
	// Generator fills requested chunks with content. Defaults to
	// NopGenerator, which leaves chunks empty.
	Generator Generator
	// ChunkSize is the world-space extent of one chunk along each horizontal
	// axis and the vertex count along each side of its heightfield grid.
	ChunkSize int
	// LoadRadius is the radius, in chunks, of the square neighbourhood around
	// the observer that is kept synthesized.
	LoadRadius int
	// EvictionRadius is the world-space distance between a chunk centre and
	// the observer beyond which the chunk is released. It must exceed the
	// world-space extent of LoadRadius, or chunks would be evicted and
	// resynthesized endlessly at the load edge; withDefaults raises values
	// that violate this.
	EvictionRadius float64
	// MandatoryRadius is the radius, in chunks, of the neighbourhood around
	// the observer that is never evicted regardless of distance or cache
	// pressure. The default of 1 shields the observer's 3x3 neighbourhood.
	MandatoryRadius int
	// MaxCachedChunks bounds how many chunks may be resident at once. The
	// bound is enforced after distance eviction by evicting the farthest
	// non-mandatory chunk.
	MaxCachedChunks int
	// SynthesisWorkers is the number of goroutines synthesizing chunks in the
	// background. Defaults to half the CPU count with a minimum of 2.
	SynthesisWorkers int
	// SynthesisQueueSize is the capacity of the synthesis task queue.
	SynthesisQueueSize int
	// SynthesisPerTick caps how many synthesis tasks may be scheduled per
	// second, expressed as a per-tick budget at TickRate. A scan cut short by
	// the budget resumes on the next Step. Zero disables the cap.
	SynthesisPerTick int
	// TickRate is the Step frequency, in steps per second, that the
	// SynthesisPerTick budget assumes.
	TickRate int
	// ReleaseContent, if non-nil, receives the content handles registered for
	// a chunk when it is evicted. It is called from the Step goroutine.
	ReleaseContent func(pos ChunkPos, handles []uuid.UUID)
}

func (conf Config) withDefaults() Config {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Generator == nil {
		conf.Generator = NopGenerator{}
	}
	if conf.ChunkSize <= 1 {
		conf.ChunkSize = 32
	}
	if conf.LoadRadius <= 0 {
		conf.LoadRadius = 4
	}
	if conf.MandatoryRadius <= 0 {
		conf.MandatoryRadius = 1
	}
	if conf.EvictionRadius <= float64(conf.LoadRadius*conf.ChunkSize) {
		// The default must clear the diagonal of the square load
		// neighbourhood, or its corner chunks would be discarded on arrival.
		conf.EvictionRadius = float64((conf.LoadRadius+2)*conf.ChunkSize) * math.Sqrt2
	}
	if conf.MaxCachedChunks <= 0 {
		side := 2*conf.LoadRadius + 1
		conf.MaxCachedChunks = side * side * 2
	}
	if conf.SynthesisWorkers <= 0 {
		conf.SynthesisWorkers = max(2, runtime.GOMAXPROCS(0)/2)
	}
	if conf.SynthesisQueueSize <= 0 {
		conf.SynthesisQueueSize = conf.SynthesisWorkers * 32
	}
	if conf.TickRate <= 0 {
		conf.TickRate = 20
	}
	return conf
}

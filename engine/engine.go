// Package engine ties the terrain synthesizer, the streamed chunk world and
// the debris field together behind a single ticked facade.
package engine

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dw-engine/driftworld/engine/world"
	"github.com/dw-engine/driftworld/engine/world/debris"
	"github.com/dw-engine/driftworld/engine/world/terrain"
)

const (
	// debrisSeedSalt decorrelates the debris seed from the terrain seed so
	// that both subsystems draw from independent deterministic streams.
	debrisSeedSalt = 0x7f4a7c159e3779b9

	tpsSampleSize   = 20
	tpsWarningRatio = 0.95
)

// Observer is a source of positions for the engine to stream around. Hosts
// typically back it with their camera or player transform.
type Observer interface {
	// Position returns the current observer position in world space. It is
	// called once per tick from the engine's tick goroutine and must be safe
	// for concurrent use with the host's own updates.
	Position() mgl64.Vec3
}

// Engine is a complete drift-world instance: a deterministic terrain
// synthesizer, the chunk cache streaming around an observer and an optional
// debris field. Create one through Config.New.
type Engine struct {
	conf   Config
	log    *slog.Logger
	synth  *terrain.Synthesizer
	world  *world.World
	debris *debris.Field

	tps     atomic.Uint64
	started atomic.Bool
	closing chan struct{}
	running sync.WaitGroup
	o       sync.Once
}

// World returns the streamed chunk world of the engine.
func (e *Engine) World() *world.World {
	return e.world
}

// Debris returns the debris field of the engine, or nil if debris was
// disabled in the Config.
func (e *Engine) Debris() *debris.Field {
	return e.debris
}

// Synthesizer returns the terrain synthesizer of the engine. It may be used
// to sample heights and islands without going through the chunk cache.
func (e *Engine) Synthesizer() *terrain.Synthesizer {
	return e.synth
}

// Step advances streaming around the observer position passed: completed
// chunks are published, missing ones scheduled and out-of-range content
// evicted. Hosts that drive their own frame loop call Step directly instead
// of using Start. Step must not be called concurrently with itself or with a
// running tick loop. Once the engine is closed, Step is a no-op.
func (e *Engine) Step(observerPos mgl64.Vec3) {
	select {
	case <-e.closing:
		return
	default:
	}
	e.world.Step(observerPos)
	if e.debris != nil {
		e.debris.Step(observerPos)
	}
}

// Start launches the engine's tick loop, stepping the world around obs at the
// configured tick rate until Close is called. Only the first call has an
// effect.
func (e *Engine) Start(obs Observer) {
	if obs == nil || !e.started.CompareAndSwap(false, true) {
		return
	}
	e.running.Add(1)
	go e.tickLoop(obs)
}

// tickLoop steps the engine TickRate times every second and keeps a moving
// average of the achieved tick rate.
func (e *Engine) tickLoop(obs Observer) {
	interval := time.Second / time.Duration(e.conf.TickRate)
	warnBelow := float64(e.conf.TickRate) * tpsWarningRatio

	tc := time.NewTicker(interval)
	defer tc.Stop()
	lastTick := time.Now()
	var (
		durationSum time.Duration
		ticksCount  int
		warned      bool
	)
	for {
		select {
		case <-tc.C:
			tickStart := time.Now()
			duration := tickStart.Sub(lastTick)
			lastTick = tickStart
			if duration > 0 {
				durationSum += duration
				ticksCount++
				if ticksCount >= tpsSampleSize {
					avg := durationSum / time.Duration(ticksCount)
					if avg > 0 {
						tps := 1.0 / avg.Seconds()
						e.tps.Store(math.Float64bits(tps))
						if tps < warnBelow {
							if !warned {
								e.log.Warn("TPS dropped below threshold.", "tps", tps)
								warned = true
							}
						} else if warned {
							warned = false
						}
					} else {
						e.tps.Store(math.Float64bits(0))
					}
					durationSum = 0
					ticksCount = 0
				}
			}
			e.Step(obs.Position())
		case <-e.closing:
			// Engine is being closed: stop ticking and get rid of a task.
			e.running.Done()
			return
		}
	}
}

// TPS returns the current ticks per second of the engine as measured over the
// last twenty ticks, or 0 if the tick loop has not run long enough yet.
func (e *Engine) TPS() float64 {
	return math.Float64frombits(e.tps.Load())
}

// Close stops the tick loop and shuts the streamed world down. It may be
// called multiple times; only the first call has an effect.
func (e *Engine) Close() error {
	e.o.Do(func() {
		close(e.closing)
		e.running.Wait()
		if err := e.world.Close(); err != nil {
			e.log.Error("close engine: " + err.Error())
		}
	})
	return nil
}

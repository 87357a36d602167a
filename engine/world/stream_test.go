package world

import (
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/dw-engine/driftworld/engine/world/chunk"
)

// countingGenerator counts how often every coordinate is synthesized,
// optionally sleeping per chunk to simulate expensive synthesis.
type countingGenerator struct {
	mu    sync.Mutex
	delay time.Duration
	calls map[ChunkPos]int
}

func newCountingGenerator(delay time.Duration) *countingGenerator {
	return &countingGenerator{delay: delay, calls: make(map[ChunkPos]int)}
}

func (g *countingGenerator) GenerateChunk(pos ChunkPos, c *chunk.Chunk) {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[pos]++
}

func (g *countingGenerator) count(pos ChunkPos) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[pos]
}

func (g *countingGenerator) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

func testWorld(t *testing.T, conf Config) *World {
	t.Helper()
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	w := conf.New()
	t.Cleanup(func() {
		if err := w.Close(); err != nil {
			t.Errorf("close world: %v", err)
		}
	})
	return w
}

// stepUntil drives the world at pos until cond holds or the deadline passes.
func stepUntil(t *testing.T, w *World, pos mgl64.Vec3, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out: %v", msg)
		}
		w.Step(pos)
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamLoadsNeighbourhood(t *testing.T) {
	gen := newCountingGenerator(0)
	w := testWorld(t, Config{Generator: gen, LoadRadius: 2, SynthesisWorkers: 2})

	origin := mgl64.Vec3{}
	stepUntil(t, w, origin, func() bool { return w.ChunkCount() == 25 }, "full neighbourhood resident")

	for x := int32(-2); x <= 2; x++ {
		for z := int32(-2); z <= 2; z++ {
			if _, ok := w.Chunk(ChunkPos{x, z}); !ok {
				t.Errorf("chunk %v not resident", ChunkPos{x, z})
			}
		}
	}
	if _, ok := w.Chunk(ChunkPos{3, 0}); ok {
		t.Error("chunk outside the load radius became resident")
	}
}

func TestStationaryObserverSkipsScan(t *testing.T) {
	gen := newCountingGenerator(0)
	w := testWorld(t, Config{Generator: gen, LoadRadius: 2, SynthesisWorkers: 2})

	origin := mgl64.Vec3{}
	stepUntil(t, w, origin, func() bool { return w.ChunkCount() == 25 }, "full neighbourhood resident")

	total := gen.total()
	before, _ := w.Chunk(ChunkPos{0, 0})
	// Movement inside the same chunk must not trigger a re-scan, let alone a
	// resynthesis.
	for i := 0; i < 20; i++ {
		w.Step(mgl64.Vec3{3, 50, 3})
	}
	if got := gen.total(); got != total {
		t.Errorf("resynthesized while stationary: %v calls, expected %v", got, total)
	}
	after, _ := w.Chunk(ChunkPos{0, 0})
	if before != after {
		t.Error("resident chunk was replaced while stationary")
	}
	if scans := w.Metrics().Snapshot().Scans; scans != 1 {
		t.Errorf("expected a single scan, got %v", scans)
	}
}

func TestBoundaryCrossTriggersScan(t *testing.T) {
	gen := newCountingGenerator(0)
	w := testWorld(t, Config{Generator: gen, ChunkSize: 32, LoadRadius: 2, SynthesisWorkers: 2})

	stepUntil(t, w, mgl64.Vec3{}, func() bool { return w.ChunkCount() == 25 }, "full neighbourhood resident")

	crossed := mgl64.Vec3{32, 0, 0}
	stepUntil(t, w, crossed, func() bool {
		_, ok := w.Chunk(ChunkPos{3, 0})
		return ok
	}, "new edge column resident after boundary cross")

	if scans := w.Metrics().Snapshot().Scans; scans != 2 {
		t.Errorf("expected 2 scans, got %v", scans)
	}
	if n := gen.count(ChunkPos{0, 0}); n != 1 {
		t.Errorf("chunk {0 0} synthesized %v times, expected once", n)
	}
}

func TestDuplicateRequestIsSilent(t *testing.T) {
	gen := newCountingGenerator(10 * time.Millisecond)
	w := testWorld(t, Config{Generator: gen, LoadRadius: 1, SynthesisWorkers: 1})

	pos := ChunkPos{40, 40}
	w.RequestChunk(pos)
	w.RequestChunk(pos)
	w.RequestChunk(pos)

	stepUntil(t, w, mgl64.Vec3{40 * 32, 0, 40 * 32}, func() bool {
		_, ok := w.Chunk(pos)
		return ok
	}, "requested chunk resident")

	if n := gen.count(pos); n != 1 {
		t.Errorf("duplicate requests caused %v syntheses, expected 1", n)
	}
	if d := w.Metrics().Snapshot().Duplicates; d != 2 {
		t.Errorf("expected 2 duplicate requests recorded, got %v", d)
	}
}

func TestEvictionBeyondRadius(t *testing.T) {
	gen := newCountingGenerator(0)
	w := testWorld(t, Config{Generator: gen, ChunkSize: 32, LoadRadius: 2, SynthesisWorkers: 2})

	stepUntil(t, w, mgl64.Vec3{}, func() bool { return w.ChunkCount() == 25 }, "full neighbourhood resident")

	// A teleport far beyond the eviction radius drops the old neighbourhood
	// in a single Step: nothing there is mandatory any more.
	far := mgl64.Vec3{2000, 0, 0}
	w.Step(far)
	if _, ok := w.Chunk(ChunkPos{0, 0}); ok {
		t.Error("chunk {0 0} still resident after teleport")
	}
	if n := w.ChunkCount(); n != 0 {
		t.Errorf("expected empty cache right after teleport, got %v chunks", n)
	}

	stepUntil(t, w, far, func() bool { return w.ChunkCount() == 25 }, "new neighbourhood resident")
	if _, ok := w.Chunk(ChunkPos{62, 0}); !ok {
		t.Error("chunk {62 0} not resident around the new observer position")
	}
	if evicted := w.Metrics().Snapshot().Evicted; evicted != 25 {
		t.Errorf("expected 25 evictions, got %v", evicted)
	}
}

func TestTeleportDiscardsInFlightChunks(t *testing.T) {
	gen := newCountingGenerator(20 * time.Millisecond)
	w := testWorld(t, Config{Generator: gen, ChunkSize: 32, LoadRadius: 1, SynthesisWorkers: 1})

	w.Step(mgl64.Vec3{})
	far := mgl64.Vec3{2000, 0, 0}
	stepUntil(t, w, far, func() bool {
		return w.Metrics().Snapshot().Discarded >= 5
	}, "in-flight chunks discarded after teleport")

	stepUntil(t, w, far, func() bool { return w.ChunkCount() == 9 }, "new neighbourhood resident")
	for x := int32(-1); x <= 1; x++ {
		for z := int32(-1); z <= 1; z++ {
			if _, ok := w.Chunk(ChunkPos{x, z}); ok {
				t.Errorf("origin chunk %v resident despite teleport", ChunkPos{x, z})
			}
		}
	}
}

func TestCacheBoundEvictsFarthest(t *testing.T) {
	gen := newCountingGenerator(0)
	w := testWorld(t, Config{Generator: gen, LoadRadius: 2, SynthesisWorkers: 2, MaxCachedChunks: 10})

	origin := mgl64.Vec3{}
	stepUntil(t, w, origin, func() bool {
		return w.Metrics().Snapshot().Synthesized == 25 && w.ChunkCount() == 10
	}, "all chunks synthesized and cache back at its bound")

	for i := 0; i < 5; i++ {
		w.Step(origin)
	}
	if n := w.ChunkCount(); n != 10 {
		t.Errorf("cache drifted off the bound: %v chunks", n)
	}
	for x := int32(-1); x <= 1; x++ {
		for z := int32(-1); z <= 1; z++ {
			if _, ok := w.Chunk(ChunkPos{x, z}); !ok {
				t.Errorf("mandatory chunk %v was evicted by the cache bound", ChunkPos{x, z})
			}
		}
	}
	if snap := w.Metrics().Snapshot(); snap.OverflowEvictions == 0 {
		t.Error("expected overflow evictions to be recorded")
	}
}

func TestOverflowWithOnlyMandatoryChunksWarns(t *testing.T) {
	gen := newCountingGenerator(0)
	w := testWorld(t, Config{Generator: gen, LoadRadius: 1, SynthesisWorkers: 2, MaxCachedChunks: 4})

	origin := mgl64.Vec3{}
	stepUntil(t, w, origin, func() bool { return w.ChunkCount() == 9 }, "mandatory neighbourhood resident")

	for i := 0; i < 3; i++ {
		w.Step(origin)
	}
	if n := w.ChunkCount(); n != 9 {
		t.Errorf("mandatory chunks were dropped: %v resident", n)
	}
	if snap := w.Metrics().Snapshot(); snap.OverflowWarnings == 0 {
		t.Error("expected overflow warnings to be recorded")
	}
}

func TestSynthesisBudgetResumesScan(t *testing.T) {
	gen := newCountingGenerator(0)
	w := testWorld(t, Config{
		Generator:        gen,
		LoadRadius:       2,
		SynthesisWorkers: 2,
		SynthesisPerTick: 3,
		TickRate:         20,
	})

	origin := mgl64.Vec3{}
	w.Step(origin)
	if n := len(w.states); n > 3 {
		t.Errorf("budget allowed %v tasks on the first step, expected at most 3", n)
	}
	stepUntil(t, w, origin, func() bool { return w.ChunkCount() == 25 }, "budgeted scan completed")
	if scans := w.Metrics().Snapshot().Scans; scans < 2 {
		t.Errorf("expected the cut-short scan to resume, got %v scans", scans)
	}
}

func TestReleaseContentOnEviction(t *testing.T) {
	var (
		mu       sync.Mutex
		released = make(map[ChunkPos][]uuid.UUID)
	)
	gen := newCountingGenerator(0)
	w := testWorld(t, Config{
		Generator:        gen,
		ChunkSize:        32,
		LoadRadius:       1,
		SynthesisWorkers: 2,
		ReleaseContent: func(pos ChunkPos, handles []uuid.UUID) {
			mu.Lock()
			defer mu.Unlock()
			released[pos] = handles
		},
	})

	stepUntil(t, w, mgl64.Vec3{}, func() bool { return w.ChunkCount() == 9 }, "neighbourhood resident")

	handle := uuid.New()
	w.Registry().Attach(ChunkPos{1, 1}, handle)

	w.Step(mgl64.Vec3{2000, 0, 0})
	mu.Lock()
	handles := released[ChunkPos{1, 1}]
	mu.Unlock()
	if len(handles) != 1 || handles[0] != handle {
		t.Errorf("expected the attached handle to be released, got %v", handles)
	}
	if w.Registry().Len() != 0 {
		t.Errorf("registry still tracks %v chunks after eviction", w.Registry().Len())
	}
}

func TestViewerNotifications(t *testing.T) {
	gen := newCountingGenerator(0)
	w := testWorld(t, Config{Generator: gen, ChunkSize: 32, LoadRadius: 1, SynthesisWorkers: 2})

	var (
		mu     sync.Mutex
		viewed = make(map[ChunkPos]bool)
		hidden = make(map[ChunkPos]bool)
	)
	v := &recordingViewer{onView: func(pos ChunkPos) {
		mu.Lock()
		defer mu.Unlock()
		viewed[pos] = true
	}, onHide: func(pos ChunkPos) {
		mu.Lock()
		defer mu.Unlock()
		hidden[pos] = true
	}}
	w.AddViewer(v)

	stepUntil(t, w, mgl64.Vec3{}, func() bool { return w.ChunkCount() == 9 }, "neighbourhood resident")
	mu.Lock()
	n := len(viewed)
	mu.Unlock()
	if n != 9 {
		t.Errorf("expected 9 viewed chunks, got %v", n)
	}

	w.Step(mgl64.Vec3{2000, 0, 0})
	mu.Lock()
	h := len(hidden)
	mu.Unlock()
	if h != 9 {
		t.Errorf("expected 9 hidden chunks, got %v", h)
	}

	w.RemoveViewer(v)
	stepUntil(t, w, mgl64.Vec3{2000, 0, 0}, func() bool { return w.ChunkCount() == 9 }, "new neighbourhood resident")
	mu.Lock()
	n = len(viewed)
	mu.Unlock()
	if n != 9 {
		t.Errorf("removed viewer still receives notifications: %v viewed", n)
	}
}

type recordingViewer struct {
	onView func(ChunkPos)
	onHide func(ChunkPos)
}

func (v *recordingViewer) ViewChunk(pos ChunkPos, _ *chunk.Chunk) { v.onView(pos) }
func (v *recordingViewer) HideChunk(pos ChunkPos)                 { v.onHide(pos) }

func TestCloseStopsStepping(t *testing.T) {
	gen := newCountingGenerator(0)
	conf := Config{Generator: gen, LoadRadius: 1, SynthesisWorkers: 2, Log: slog.Default()}
	w := conf.New()

	stepUntil(t, w, mgl64.Vec3{}, func() bool { return w.ChunkCount() == 9 }, "neighbourhood resident")

	if err := w.Close(); err != nil {
		t.Fatalf("close world: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	total := gen.total()
	w.Step(mgl64.Vec3{2000, 0, 0})
	if gen.total() != total {
		t.Error("step after close scheduled synthesis")
	}
	if w.ChunkCount() != 9 {
		t.Error("step after close mutated the cache")
	}
}

func TestHeightAtMissingChunk(t *testing.T) {
	w := testWorld(t, Config{SynthesisWorkers: 1})
	if _, ok := w.HeightAt(ChunkPos{5, 5}, 0, 0); ok {
		t.Error("expected no height for a chunk that was never synthesized")
	}
}

func TestNonFiniteObserverPosition(t *testing.T) {
	gen := newCountingGenerator(0)
	w := testWorld(t, Config{Generator: gen, LoadRadius: 1, SynthesisWorkers: 2})

	// A NaN position must not panic; it streams around the origin instead.
	w.Step(mgl64.Vec3{math.NaN(), 0, math.Inf(1)})
	stepUntil(t, w, mgl64.Vec3{}, func() bool { return w.ChunkCount() == 9 }, "neighbourhood resident")
	if _, ok := w.Chunk(ChunkPos{0, 0}); !ok {
		t.Error("origin chunk not resident after a non-finite observer position")
	}
}

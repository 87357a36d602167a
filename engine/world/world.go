// Package world implements the chunk cache and the demand-driven stream
// manager that keeps a neighbourhood of synthesized terrain resident around a
// moving observer.
package world

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/dw-engine/driftworld/engine/world/chunk"
)

// chunkState tracks the lifecycle of a coordinate in the stream manager.
// Coordinates absent from the state map are unloaded; eviction removes a
// coordinate from the map entirely so it can be synthesized again later.
type chunkState uint8

const (
	stateSynthesizing chunkState = iota + 1
	stateResident
)

type synthesisTask struct {
	pos ChunkPos
}

type synthesisResult struct {
	pos ChunkPos
	c   *chunk.Chunk
}

// World owns the chunk cache and the streaming state around a single
// observer. Synthesis runs on background workers; everything else, including
// all cache mutation, happens on the Step path.
//
// A World is not safe for concurrent use: Step, the cache accessors and
// Close must be called from one goroutine. AddViewer, RemoveViewer, the
// ContentRegistry and Metrics carry their own locks and may be used from
// anywhere.
type World struct {
	conf Config

	queue     chan synthesisTask
	completed chan synthesisResult

	closing chan struct{}
	running sync.WaitGroup
	o       sync.Once

	// chunks holds the resident chunk per coordinate. states additionally
	// tracks coordinates whose synthesis is still in flight, which is what
	// makes duplicate scheduling a cheap map hit.
	chunks map[ChunkPos]*chunk.Chunk
	states map[ChunkPos]chunkState

	lastObserver ChunkPos
	scanned      bool
	rescan       bool
	offsets      [][2]int32
	marked       []ChunkPos

	budget *rate.Limiter

	viewerMu sync.Mutex
	viewers  []Viewer

	registry *ContentRegistry
	metrics  *Metrics

	queueSaturationCount atomic.Uint64
	lastSaturationLog    atomic.Uint64
	lastOverflowLog      atomic.Uint64
}

// New creates a World with the Config passed and starts its synthesis
// workers.
func (conf Config) New() *World {
	conf = conf.withDefaults()
	w := &World{
		conf:      conf,
		queue:     make(chan synthesisTask, conf.SynthesisQueueSize),
		completed: make(chan synthesisResult, conf.SynthesisQueueSize+conf.SynthesisWorkers),
		closing:   make(chan struct{}),
		chunks:    make(map[ChunkPos]*chunk.Chunk),
		states:    make(map[ChunkPos]chunkState),
		registry:  NewContentRegistry(),
		metrics:   NewMetrics(),
	}
	if conf.SynthesisPerTick > 0 {
		interval := time.Second / time.Duration(conf.TickRate*conf.SynthesisPerTick)
		w.budget = rate.NewLimiter(rate.Every(interval), conf.SynthesisPerTick)
	}
	w.running.Add(conf.SynthesisWorkers)
	for range conf.SynthesisWorkers {
		go w.synthesisWorker()
	}
	return w
}

// Chunk returns the resident chunk at pos. It never blocks: a chunk that is
// unloaded or still synthesizing reports ok == false.
func (w *World) Chunk(pos ChunkPos) (c *chunk.Chunk, ok bool) {
	c, ok = w.chunks[pos]
	return c, ok
}

// ChunkCount returns the number of resident chunks.
func (w *World) ChunkCount() int {
	return len(w.chunks)
}

// HeightAt samples the height of the resident chunk covering the vertex
// passed. ok is false when the chunk is not resident or the vertex lies
// outside its grid, so callers can distinguish missing data from a height of
// zero.
func (w *World) HeightAt(pos ChunkPos, x, z int) (height float32, ok bool) {
	c, ok := w.chunks[pos]
	if !ok {
		return 0, false
	}
	return c.HeightAt(x, z)
}

// RequestChunk schedules synthesis of the chunk at pos outside the regular
// scan, for collaborators that want to prefetch. Requests for coordinates
// that are already resident or synthesizing are silently ignored.
func (w *World) RequestChunk(pos ChunkPos) {
	if _, ok := w.states[pos]; ok {
		w.metrics.AddDuplicate()
		return
	}
	w.states[pos] = stateSynthesizing
	w.scheduleSynthesis(pos)
}

// AddViewer subscribes a Viewer to chunk residency changes.
func (w *World) AddViewer(v Viewer) {
	w.viewerMu.Lock()
	defer w.viewerMu.Unlock()
	w.viewers = append(w.viewers, v)
}

// RemoveViewer unsubscribes a Viewer previously added with AddViewer.
func (w *World) RemoveViewer(v Viewer) {
	w.viewerMu.Lock()
	defer w.viewerMu.Unlock()
	for i, existing := range w.viewers {
		if existing == v {
			w.viewers = append(w.viewers[:i], w.viewers[i+1:]...)
			return
		}
	}
}

func (w *World) viewerList() []Viewer {
	w.viewerMu.Lock()
	defer w.viewerMu.Unlock()
	viewers := make([]Viewer, len(w.viewers))
	copy(viewers, w.viewers)
	return viewers
}

// Registry returns the World's ContentRegistry.
func (w *World) Registry() *ContentRegistry {
	return w.registry
}

// Metrics returns the World's streaming counters.
func (w *World) Metrics() *Metrics {
	return w.metrics
}

// Close stops the synthesis workers. Results still in flight are dropped and
// a closed World ignores further Step calls. Close is idempotent.
func (w *World) Close() error {
	w.o.Do(w.close)
	return nil
}

func (w *World) close() {
	close(w.closing)
	w.running.Wait()
}

// synthesisWorker runs tasks from the queue until the World closes.
func (w *World) synthesisWorker() {
	defer w.running.Done()
	for {
		select {
		case task := <-w.queue:
			w.runSynthesis(task)
		case <-w.closing:
			return
		}
	}
}

// runSynthesis fills a chunk for the task passed and hands it back to the
// Step path. A panicking generator is contained so one bad coordinate cannot
// take down the worker pool; the chunk is delivered regardless so the
// coordinate does not stay stuck in the synthesizing state.
func (w *World) runSynthesis(task synthesisTask) {
	c := chunk.New(w.conf.ChunkSize)
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.conf.Log.Error("synthesize chunk: "+fmt.Sprint(r), "X", task.pos[0], "Z", task.pos[1])
			}
		}()
		w.conf.Generator.GenerateChunk(task.pos, c)
	}()
	select {
	case w.completed <- synthesisResult{pos: task.pos, c: c}:
	case <-w.closing:
	}
}

// scheduleSynthesis queues a task for the workers. If the queue is full the
// task is handed to a goroutine that blocks until space frees up, so the
// Step path never stalls on synthesis backpressure.
func (w *World) scheduleSynthesis(pos ChunkPos) {
	task := synthesisTask{pos: pos}
	select {
	case <-w.closing:
	case w.queue <- task:
	default:
		go w.enqueueSynthesis(task)
		w.handleQueueSaturation()
	}
}

func (w *World) enqueueSynthesis(task synthesisTask) {
	select {
	case <-w.closing:
	case w.queue <- task:
	}
}

// handleQueueSaturation counts synthesis backpressure and warns at most once
// a minute, giving operators a signal to raise SynthesisQueueSize or
// SynthesisWorkers without flooding the log during a teleport burst.
func (w *World) handleQueueSaturation() {
	w.metrics.AddQueueSaturation()
	count := w.queueSaturationCount.Add(1)

	now := uint64(time.Now().UnixNano())
	last := w.lastSaturationLog.Load()
	if last != 0 && time.Duration(now-last) < time.Minute {
		return
	}
	if !w.lastSaturationLog.CompareAndSwap(last, now) {
		return
	}
	w.conf.Log.Warn("synthesis queue saturated: chunk backlog building up.",
		"queued_tasks", count,
		"queue_size", cap(w.queue),
		"workers", w.conf.SynthesisWorkers)
}

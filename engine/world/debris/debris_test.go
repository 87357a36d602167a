package debris

import (
	"math"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func testConfig(seed int64) Config {
	return Config{
		Seed:       seed,
		CellSize:   32,
		LoadRadius: 3,
	}
}

// cellCentreObserver returns an observer position exactly on the centre of
// the cell passed, which makes cell distances exact multiples of the cell
// size.
func cellCentreObserver(pos CubePos, size int) mgl64.Vec3 {
	s := float64(size)
	return mgl64.Vec3{float64(pos[0]) * s, float64(pos[1]) * s, float64(pos[2]) * s}
}

func TestFieldDeterministic(t *testing.T) {
	obs := cellCentreObserver(CubePos{50, 10, -30}, 32)
	a := testConfig(9).New()
	b := testConfig(9).New()
	a.Step(obs)
	b.Step(obs)

	if a.ClusterCount() != b.ClusterCount() {
		t.Fatalf("resident counts diverge: %v != %v", a.ClusterCount(), b.ClusterCount())
	}
	for pos, ca := range a.clusters {
		cb, ok := b.Cluster(pos)
		if !ok {
			t.Fatalf("cluster %v missing from the second field", pos)
		}
		if ca.Seed != cb.Seed || !slices.Equal(ca.Objects, cb.Objects) {
			t.Fatalf("cluster %v content diverges", pos)
		}
	}

	c := testConfig(10).New()
	c.Step(obs)
	if c.ClusterCount() == a.ClusterCount() {
		// Counts may coincide by chance; contents must not.
		same := true
		for pos, ca := range a.clusters {
			cc, ok := c.Cluster(pos)
			if !ok || !slices.Equal(ca.Objects, cc.Objects) {
				same = false
				break
			}
		}
		if same {
			t.Error("different seeds produced identical fields")
		}
	}
}

func TestSparseLoading(t *testing.T) {
	for _, seed := range []int64{1, 42, 1234} {
		conf := testConfig(seed).withDefaults()
		f := testConfig(seed).New()
		obs := cellCentreObserver(CubePos{50, 10, -30}, conf.CellSize)
		f.Step(obs)

		mandatory := 0
		side := 2*conf.MandatoryRadius + 1
		mandatory = side * side * side

		candidates := 0
		expected := 0.0
		r := conf.LoadRadius
		for x := -r; x <= r; x++ {
			for y := -r; y <= r; y++ {
				for z := -r; z <= r; z++ {
					if abs(x) <= conf.MandatoryRadius && abs(y) <= conf.MandatoryRadius && abs(z) <= conf.MandatoryRadius {
						continue
					}
					candidates++
					d := math.Sqrt(float64(x*x + y*y + z*z))
					p := 1.0
					if d > conf.FullLoadRadius {
						t := (d - conf.FullLoadRadius) / (float64(conf.LoadRadius) - conf.FullLoadRadius)
						if t > 1 {
							t = 1
						}
						p = 1 + (conf.MinLoadProbability-1)*t
					}
					expected += p
				}
			}
		}

		loaded := f.ClusterCount() - mandatory
		if loaded >= candidates {
			t.Errorf("seed %v: every candidate cell loaded; the field is not sparse", seed)
		}
		if dev := math.Abs(float64(loaded) - expected); dev > 0.15*float64(candidates) {
			t.Errorf("seed %v: %v of %v candidates loaded, expected about %.0f", seed, loaded, candidates, expected)
		}

		// Repeated Steps at the same position must not load anything new:
		// the per-cell rolls are fixed, so the sparse subset is stable.
		count := f.ClusterCount()
		for i := 0; i < 5; i++ {
			f.Step(obs)
		}
		if f.ClusterCount() != count {
			t.Errorf("seed %v: resident set drifted from %v to %v while stationary", seed, count, f.ClusterCount())
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestMandatoryCellsAlwaysLoad(t *testing.T) {
	f := testConfig(3).New()
	coord := CubePos{-7, 2, 19}
	f.Step(cellCentreObserver(coord, 32))
	for x := int32(-1); x <= 1; x++ {
		for y := int32(-1); y <= 1; y++ {
			for z := int32(-1); z <= 1; z++ {
				pos := CubePos{coord[0] + x, coord[1] + y, coord[2] + z}
				if _, ok := f.Cluster(pos); !ok {
					t.Errorf("mandatory cell %v not resident", pos)
				}
			}
		}
	}
}

func TestRescanEveryStep(t *testing.T) {
	f := testConfig(3).New()
	obs := cellCentreObserver(CubePos{0, 0, 0}, 32)
	for i := 0; i < 4; i++ {
		// Even movement inside the same cell re-scans; the probability is a
		// function of continuous distance.
		f.Step(mgl64.Vec3{obs[0] + float64(i), obs[1], obs[2]})
	}
	if scans := f.Metrics().Snapshot().Scans; scans != 4 {
		t.Errorf("expected 4 scans, got %v", scans)
	}
}

func TestEvictionOnTeleport(t *testing.T) {
	f := testConfig(3).New()
	origin := cellCentreObserver(CubePos{0, 0, 0}, 32)
	f.Step(origin)
	if _, ok := f.Cluster(CubePos{0, 0, 0}); !ok {
		t.Fatal("origin cell not resident")
	}
	before := f.ClusterCount()

	far := cellCentreObserver(CubePos{62, 0, 0}, 32)
	f.Step(far)
	if _, ok := f.Cluster(CubePos{0, 0, 0}); ok {
		t.Error("origin cell survived the teleport")
	}
	if _, ok := f.Cluster(CubePos{62, 0, 0}); !ok {
		t.Error("new mandatory cell not resident after teleport")
	}
	if evicted := f.Metrics().Snapshot().Evicted; evicted != uint64(before) {
		t.Errorf("expected %v evictions, got %v", before, evicted)
	}
}

func TestCacheBoundAdmission(t *testing.T) {
	conf := testConfig(5)
	conf.MaxCachedClusters = 40
	f := conf.New()
	obs := cellCentreObserver(CubePos{0, 0, 0}, 32)
	for i := 0; i < 5; i++ {
		f.Step(obs)
	}
	if n := f.ClusterCount(); n > 40 {
		t.Errorf("cache exceeded its bound: %v clusters", n)
	}
	// The mandatory neighbourhood fits inside the bound and must be intact.
	for x := int32(-1); x <= 1; x++ {
		for y := int32(-1); y <= 1; y++ {
			for z := int32(-1); z <= 1; z++ {
				if _, ok := f.Cluster(CubePos{x, y, z}); !ok {
					t.Errorf("mandatory cell {%v %v %v} missing under cache pressure", x, y, z)
				}
			}
		}
	}
}

func TestOverflowWithOnlyMandatoryCellsWarns(t *testing.T) {
	conf := testConfig(5)
	conf.LoadRadius = 1
	conf.MaxCachedClusters = 4
	f := conf.New()
	obs := cellCentreObserver(CubePos{0, 0, 0}, 32)
	for i := 0; i < 3; i++ {
		f.Step(obs)
	}
	if n := f.ClusterCount(); n != 27 {
		t.Errorf("mandatory cells were dropped: %v resident", n)
	}
	if f.Metrics().Snapshot().OverflowWarnings == 0 {
		t.Error("expected overflow warnings to be recorded")
	}
}

func TestClusterContent(t *testing.T) {
	conf := testConfig(11).withDefaults()
	f := testConfig(11).New()
	coord := CubePos{4, -2, 9}
	f.Step(cellCentreObserver(coord, conf.CellSize))

	cl, ok := f.Cluster(coord)
	if !ok {
		t.Fatal("observer cell not resident")
	}
	if len(cl.Objects) < conf.BaseCount || len(cl.Objects) > conf.BaseCount+conf.CountVariance {
		t.Errorf("object count %v outside [%v, %v]", len(cl.Objects), conf.BaseCount, conf.BaseCount+conf.CountVariance)
	}
	centre := cellCentreObserver(coord, conf.CellSize)
	half := float64(conf.CellSize) / 2
	for _, o := range cl.Objects {
		for i := range 3 {
			if math.Abs(o.Pos[i]-centre[i]) > half {
				t.Errorf("object at %v outside its cell", o.Pos)
			}
		}
		if o.Kind >= kindCount {
			t.Errorf("undefined kind %v", o.Kind)
		}
		if o.Scale < 0.5 || o.Scale > 2 {
			t.Errorf("scale %v outside [0.5, 2]", o.Scale)
		}
	}
}

func TestViewerNotifications(t *testing.T) {
	f := testConfig(3).New()
	viewed, hidden := map[CubePos]bool{}, map[CubePos]bool{}
	f.AddViewer(&recordingViewer{
		onView: func(pos CubePos) { viewed[pos] = true },
		onHide: func(pos CubePos) { hidden[pos] = true },
	})

	origin := cellCentreObserver(CubePos{0, 0, 0}, 32)
	f.Step(origin)
	if len(viewed) != f.ClusterCount() {
		t.Errorf("%v view notifications for %v clusters", len(viewed), f.ClusterCount())
	}

	f.Step(cellCentreObserver(CubePos{62, 0, 0}, 32))
	if len(hidden) == 0 {
		t.Error("no hide notifications after teleport")
	}
	for pos := range hidden {
		if !viewed[pos] {
			t.Errorf("cluster %v hidden but never viewed", pos)
		}
	}
}

type recordingViewer struct {
	onView func(CubePos)
	onHide func(CubePos)
}

func (v *recordingViewer) ViewCluster(pos CubePos, _ *Cluster) { v.onView(pos) }
func (v *recordingViewer) HideCluster(pos CubePos)             { v.onHide(pos) }

func TestNonFiniteObserverPosition(t *testing.T) {
	f := testConfig(3).New()
	// A NaN observer must not panic or load unbounded content.
	f.Step(mgl64.Vec3{math.NaN(), 0, math.NaN()})
	f.Step(cellCentreObserver(CubePos{0, 0, 0}, 32))
	if _, ok := f.Cluster(CubePos{0, 0, 0}); !ok {
		t.Error("field did not recover after a non-finite observer position")
	}
}

package chunk

import (
	"testing"

	"github.com/dw-engine/driftworld/engine/world/biome"
)

func TestSetAndRead(t *testing.T) {
	c := New(4)
	c.Set(1, 2, 7.5, biome.Forest, MaterialDirt)

	h, ok := c.HeightAt(1, 2)
	if !ok || h != 7.5 {
		t.Errorf("expected height 7.5, got %v (ok=%v)", h, ok)
	}
	b, ok := c.BiomeAt(1, 2)
	if !ok || b != biome.Forest {
		t.Errorf("expected forest, got %v (ok=%v)", b, ok)
	}
	m, ok := c.MaterialAt(1, 2)
	if !ok || m != MaterialDirt {
		t.Errorf("expected dirt, got %v (ok=%v)", m, ok)
	}
}

func TestOutOfBoundsReads(t *testing.T) {
	c := New(4)
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {4, 0}, {0, 4}, {17, 17}} {
		if _, ok := c.HeightAt(p[0], p[1]); ok {
			t.Errorf("expected no height at %v", p)
		}
		if _, ok := c.BiomeAt(p[0], p[1]); ok {
			t.Errorf("expected no biome at %v", p)
		}
		if _, ok := c.MaterialAt(p[0], p[1]); ok {
			t.Errorf("expected no material at %v", p)
		}
	}
	// Out-of-bounds writes must not clobber anything.
	c.Set(-1, 0, 99, biome.Hills, MaterialSnow)
	if h, _ := c.HeightAt(0, 0); h != 0 {
		t.Errorf("out-of-bounds write leaked into the grid: %v", h)
	}
}

func TestUnwrittenVertexDistinctFromMissing(t *testing.T) {
	c := New(2)
	if h, ok := c.HeightAt(0, 0); !ok || h != 0 {
		t.Errorf("expected unwritten vertex to read as 0 with ok=true, got %v (ok=%v)", h, ok)
	}
}

func TestDominant(t *testing.T) {
	c := New(3)
	for x := 0; x < 3; x++ {
		for z := 0; z < 3; z++ {
			c.Set(x, z, 0, biome.Underwater, MaterialWater)
		}
	}
	c.Set(0, 0, 2, biome.Beach, MaterialSand)
	c.Set(1, 0, 2, biome.Beach, MaterialSand)
	if d := c.Dominant(); d != MaterialWater {
		t.Errorf("expected water to dominate, got %v", d)
	}

	// Overwrites must move the histogram, not double-count.
	for x := 0; x < 3; x++ {
		for z := 0; z < 3; z++ {
			c.Set(x, z, 3, biome.Plains, MaterialGrass)
		}
	}
	if d := c.Dominant(); d != MaterialGrass {
		t.Errorf("expected grass to dominate after overwrite, got %v", d)
	}
}

func TestDominantTieIsDeterministic(t *testing.T) {
	c := New(2)
	c.Set(0, 0, 0, biome.Underwater, MaterialWater)
	c.Set(1, 0, 0, biome.Underwater, MaterialWater)
	c.Set(0, 1, 0, biome.Beach, MaterialSand)
	c.Set(1, 1, 0, biome.Beach, MaterialSand)
	// A two-way tie resolves to the lower material value.
	if d := c.Dominant(); d != MaterialWater {
		t.Errorf("expected tie to resolve to water, got %v", d)
	}
}

func TestEmptyDominant(t *testing.T) {
	if d := New(4).Dominant(); d != MaterialUnknown {
		t.Errorf("expected unknown for empty chunk, got %v", d)
	}
}

func TestMinimumGrid(t *testing.T) {
	if g := New(0).Grid(); g != 2 {
		t.Errorf("expected grid raised to 2, got %v", g)
	}
}

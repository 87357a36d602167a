// Package biome defines the terrain classifications produced during chunk
// synthesis and the per-biome placement thresholds consumed by content
// collaborators.
package biome

// ID identifies a terrain classification. The zero value is Underwater so an
// uninitialised vertex is never mistaken for land.
type ID uint8

const (
	Underwater ID = iota
	Beach
	Forest
	Plains
	Hills
	Mountains
	idCount
)

// String returns the biome name.
func (id ID) String() string {
	switch id {
	case Underwater:
		return "underwater"
	case Beach:
		return "beach"
	case Forest:
		return "forest"
	case Plains:
		return "plains"
	case Hills:
		return "hills"
	case Mountains:
		return "mountains"
	}
	return "unknown"
}

// All returns every defined biome ID in ascending order.
func All() []ID {
	ids := make([]ID, 0, idCount)
	for id := ID(0); id < idCount; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Thresholds holds the placement parameters of one biome. The placement
// fields are cut-offs compared against placement noise by content
// collaborators: a lower value places that object kind more often.
// HeightBonus is folded back into the vertex height after classification.
type Thresholds struct {
	Tree, Rock, Shrub, Flower float64

	// Scale multiplies the size of objects placed in the biome.
	Scale float64
	// Density scales how many placement attempts a chunk receives.
	Density float64
	// HeightBonus raises every vertex classified into the biome. The bonus is
	// applied after classification, so it never changes the biome decision
	// itself.
	HeightBonus float64
}

// Table maps biomes to their Thresholds. Tables are read-only at runtime and
// may be shared between goroutines.
type Table map[ID]Thresholds

// Lookup returns the Thresholds for the biome passed, falling back to the
// zero record for biomes absent from the table.
func (t Table) Lookup(id ID) Thresholds {
	return t[id]
}

// DefaultTable returns the built-in threshold table.
func DefaultTable() Table {
	return Table{
		Underwater: {Tree: 1, Rock: 0.85, Shrub: 1, Flower: 1, Scale: 1, Density: 0.1},
		Beach:      {Tree: 0.92, Rock: 0.8, Shrub: 0.6, Flower: 0.85, Scale: 0.8, Density: 0.25},
		Forest:     {Tree: 0.55, Rock: 0.78, Shrub: 0.5, Flower: 0.7, Scale: 1, Density: 0.9, HeightBonus: 0.5},
		Plains:     {Tree: 0.85, Rock: 0.8, Shrub: 0.55, Flower: 0.6, Scale: 1, Density: 0.6},
		Hills:      {Tree: 0.7, Rock: 0.55, Shrub: 0.6, Flower: 0.75, Scale: 1.1, Density: 0.5, HeightBonus: 1.5},
		Mountains:  {Tree: 0.95, Rock: 0.45, Shrub: 0.8, Flower: 0.95, Scale: 1.3, Density: 0.35, HeightBonus: 3},
	}
}

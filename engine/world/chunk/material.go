package chunk

// Material identifies the surface material of a vertex, derived from its
// height and biome during synthesis.
type Material uint8

const (
	// MaterialUnknown marks a vertex that has not been written yet.
	MaterialUnknown Material = iota
	MaterialWater
	MaterialSand
	MaterialGrass
	MaterialDirt
	MaterialStone
	MaterialSnow
	materialCount
)

// String returns the material name.
func (m Material) String() string {
	switch m {
	case MaterialWater:
		return "water"
	case MaterialSand:
		return "sand"
	case MaterialGrass:
		return "grass"
	case MaterialDirt:
		return "dirt"
	case MaterialStone:
		return "stone"
	case MaterialSnow:
		return "snow"
	}
	return "unknown"
}

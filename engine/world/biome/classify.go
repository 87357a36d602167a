package biome

// Classifier buckets vertices into biomes. The decision runs in strict
// priority order: open-water vertices are always Underwater, low vertices are
// always Beach and vertices above MountainHeight are always Mountains. Only
// the band in between consults the secondary noise value, whose [-1, 1] range
// the cut points partition into Forest, Plains, Hills and Mountains.
type Classifier struct {
	// BeachHeight is the height below which every landmass vertex is Beach.
	BeachHeight float64
	// MountainHeight is the height above which every landmass vertex is
	// Mountains regardless of its noise bucket.
	MountainHeight float64

	ForestCut float64
	PlainsCut float64
	HillsCut  float64
}

// DefaultClassifier returns the classifier used when a terrain config leaves
// it unset.
func DefaultClassifier() Classifier {
	return Classifier{
		BeachHeight:    1.5,
		MountainHeight: 14,
		ForestCut:      -0.25,
		PlainsCut:      0.25,
		HillsCut:       0.6,
	}
}

// Classify returns the biome for a vertex. The height passed must not include
// any biome height bonus: classification always runs on the raw synthesized
// height.
func (c Classifier) Classify(height, secondary float64, landmass bool) ID {
	if !landmass {
		return Underwater
	}
	if height < c.BeachHeight {
		return Beach
	}
	if height > c.MountainHeight {
		return Mountains
	}
	switch {
	case secondary < c.ForestCut:
		return Forest
	case secondary < c.PlainsCut:
		return Plains
	case secondary < c.HillsCut:
		return Hills
	default:
		return Mountains
	}
}

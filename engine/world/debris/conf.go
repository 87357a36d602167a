package debris

import "log/slog"

// Config holds the tunable parameters of a debris Field. The zero value is
// usable; withDefaults fills every unset field.
type Config struct {
	// Log is the Logger streaming warnings are written to. Defaults to
	// slog.Default().
	Log *slog.Logger
	// Seed drives cluster placement and content. Identical seeds produce
	// identical debris everywhere.
	Seed int64
	// CellSize is the edge length of one cubic cluster cell in world units.
	CellSize int
	// LoadRadius is the radius, in cells, of the cubic neighbourhood around
	// the observer considered for loading.
	LoadRadius int
	// EvictionRadius is the world-space distance between a cluster centre and
	// the observer beyond which the cluster is released. withDefaults raises
	// it above the load extent when it does not exceed it.
	EvictionRadius float64
	// MandatoryRadius is the radius, in cells, of the neighbourhood that
	// always loads and is never evicted. Defaults to 1.
	MandatoryRadius int
	// MaxCachedClusters bounds how many clusters may be resident at once.
	MaxCachedClusters int
	// FullLoadRadius is the distance from the observer, in cells, inside
	// which candidate cells always load. Beyond it the load probability
	// decays linearly towards MinLoadProbability at LoadRadius.
	FullLoadRadius float64
	// MinLoadProbability is the load probability at the edge of the load
	// radius. Defaults to 0.3.
	MinLoadProbability float64
	// BaseCount is the minimum number of objects per cluster.
	BaseCount int
	// CountVariance is the additional object count granted by the density
	// noise at its peak.
	CountVariance int
	// DensityFrequency scales coordinates fed to the density noise.
	DensityFrequency float64
}

func (conf Config) withDefaults() Config {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.CellSize <= 1 {
		conf.CellSize = 32
	}
	if conf.LoadRadius <= 0 {
		conf.LoadRadius = 3
	}
	if conf.MandatoryRadius <= 0 {
		conf.MandatoryRadius = 1
	}
	if conf.EvictionRadius <= float64(conf.LoadRadius*conf.CellSize) {
		conf.EvictionRadius = float64((conf.LoadRadius + 2) * conf.CellSize)
	}
	if conf.MaxCachedClusters <= 0 {
		side := 2*conf.LoadRadius + 1
		conf.MaxCachedClusters = side * side * side
	}
	if conf.FullLoadRadius <= 0 {
		conf.FullLoadRadius = 1.5
	}
	if conf.MinLoadProbability <= 0 || conf.MinLoadProbability > 1 {
		conf.MinLoadProbability = 0.3
	}
	if conf.BaseCount <= 0 {
		conf.BaseCount = 2
	}
	if conf.CountVariance <= 0 {
		conf.CountVariance = 6
	}
	if conf.DensityFrequency == 0 {
		conf.DensityFrequency = 1.0 / 80
	}
	return conf
}

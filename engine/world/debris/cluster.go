package debris

import (
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/dw-engine/driftworld/engine/internal/fmath"
)

// Kind enumerates the debris archetypes scattered through a cluster.
type Kind uint8

const (
	KindShard Kind = iota
	KindBoulder
	KindWreck
	kindCount
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindShard:
		return "shard"
	case KindBoulder:
		return "boulder"
	case KindWreck:
		return "wreck"
	}
	return "unknown"
}

// Object is one placed debris object. The position is world-space.
type Object struct {
	Pos   mgl64.Vec3
	Kind  Kind
	Scale float64
	Yaw   float64
}

// Cluster is the synthesized content of one cubic debris cell. Like chunks,
// clusters are written once and read-only from then on.
type Cluster struct {
	// Seed is the per-cell seed the objects were drawn from, kept for
	// collaborators that derive further content per cluster.
	Seed    uint64
	Objects []Object
}

// clusterSeed derives the deterministic per-cell seed from the field seed and
// the packed cell coordinate.
func clusterSeed(seed int64, pos CubePos) uint64 {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], uint64(seed))
	binary.LittleEndian.PutUint64(b[8:], uint64(fmath.Pack3(pos[0], pos[1], pos[2])))
	return xxhash.Sum64(b[:])
}

// synthesize produces the cluster of the cell at pos. Content is a pure
// function of the cell coordinate and the field seed.
func (f *Field) synthesize(pos CubePos) *Cluster {
	seed := clusterSeed(f.conf.Seed, pos)
	r := rand.New(rand.NewPCG(seed, seed^0x6a09e667f3bcc909))

	centre := pos.centre(f.conf.CellSize)
	density := f.density.Sample3(
		centre[0]*f.conf.DensityFrequency,
		centre[1]*f.conf.DensityFrequency,
		centre[2]*f.conf.DensityFrequency,
	)
	count := f.conf.BaseCount + int(math.Round((density+1)/2*float64(f.conf.CountVariance)))

	cl := &Cluster{Seed: seed, Objects: make([]Object, 0, count)}
	half := float64(f.conf.CellSize) / 2
	for range count {
		cl.Objects = append(cl.Objects, Object{
			Pos: mgl64.Vec3{
				centre[0] + (r.Float64()*2-1)*half,
				centre[1] + (r.Float64()*2-1)*half,
				centre[2] + (r.Float64()*2-1)*half,
			},
			Kind:  Kind(r.IntN(int(kindCount))),
			Scale: 0.5 + r.Float64()*1.5,
			Yaw:   r.Float64() * 2 * math.Pi,
		})
	}
	return cl
}

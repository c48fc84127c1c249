package assets

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/unixpickle/model3d/model3d"

	"stoneoverlay/internal/service/scene"
)

const (
	stoneBumps      = 6
	stoneMaxBump    = 0.04 // per bump; total stays under stoneMargin-1
	stoneMargin     = 1.3
	stoneResolution = 0.12
	stoneSearch     = 4
)

type bump struct {
	dir  model3d.Coord3D
	amp  float64
	freq float64
}

// stoneSolid is a flattened ellipsoid with low-frequency bumps.
type stoneSolid struct {
	radii model3d.Coord3D
	bumps []bump
}

func newStoneSolid(seed int64) *stoneSolid {
	rng := rand.New(rand.NewSource(seed))

	s := &stoneSolid{
		radii: model3d.XYZ(
			1.0,
			0.55+0.2*rng.Float64(),
			0.75+0.2*rng.Float64(),
		),
	}
	for i := 0; i < stoneBumps; i++ {
		dir := model3d.XYZ(rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
		if dir.Norm() == 0 {
			dir = model3d.XYZ(1, 0, 0)
		}
		s.bumps = append(s.bumps, bump{
			dir:  dir.Normalize(),
			amp:  stoneMaxBump * rng.Float64(),
			freq: 2 + 3*rng.Float64(),
		})
	}
	return s
}

func (s *stoneSolid) Min() model3d.Coord3D {
	return s.radii.Scale(-stoneMargin)
}

func (s *stoneSolid) Max() model3d.Coord3D {
	return s.radii.Scale(stoneMargin)
}

func (s *stoneSolid) Contains(c model3d.Coord3D) bool {
	if !model3d.InBounds(s, c) {
		return false
	}
	r := c.Div(s.radii).Norm()
	if r == 0 {
		return true
	}

	dir := c.Normalize()
	surface := 1.0
	for _, b := range s.bumps {
		surface += b.amp * math.Cos(b.freq*dir.Dot(b.dir))
	}
	return r <= surface
}

// Stone generates a unit-radius pebble mesh. The same seed always yields the same mesh.
func Stone(seed int64) *scene.Mesh {
	solid := newStoneSolid(seed)
	mesh := model3d.MarchingCubesSearch(solid, stoneResolution, stoneSearch)
	return normalize(fmt.Sprintf("stone-%d", seed), mesh.TriangleSlice())
}

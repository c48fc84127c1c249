// Package placement turns the primary pose into overlay transforms and
// rebuilds the scene's overlays every frame.
package placement

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"

	"stoneoverlay/internal/config"
	"stoneoverlay/internal/model"
	"stoneoverlay/internal/service/scene"
)

// Params are the per-frame constants of the landmark to world transform.
type Params struct {
	FrameHeight   float64
	DepthConstant float64
	MinScore      float64
}

// Placement is the computed transform of one overlay.
type Placement struct {
	Name     string
	Position mgl64.Vec3
	Scale    float64
}

// ToWorld maps a landmark to scene space: y flipped to point up, z measured
// back from the depth constant.
func ToWorld(lm model.Landmark, frameHeight, depthConstant float64) mgl64.Vec3 {
	return mgl64.Vec3{lm.X, frameHeight - lm.Y, depthConstant - lm.Z}
}

// Centroid averages points. It returns the zero vector for no points.
func Centroid(points []mgl64.Vec3) mgl64.Vec3 {
	var sum mgl64.Vec3
	if len(points) == 0 {
		return sum
	}
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(points)))
}

// Compute places one overlay for a pose. ok is false when any required
// landmark is missing or not confident enough.
func Compute(def config.OverlayDefinition, pose model.Pose, p Params) (Placement, bool) {
	if !pose.Confident(p.MinScore, def.Landmarks...) {
		return Placement{}, false
	}

	world := func(indices []int) []mgl64.Vec3 {
		out := make([]mgl64.Vec3, 0, len(indices))
		for _, idx := range indices {
			out = append(out, ToWorld(pose.Landmarks[idx], p.FrameHeight, p.DepthConstant))
		}
		return out
	}

	anchor := Centroid(world(def.Anchor))
	from := Centroid(world(def.From))
	to := Centroid(world(def.To))

	return Placement{
		Name:     def.Name,
		Position: anchor.Add(mgl64.Vec3(def.Offset)),
		Scale:    from.Sub(to).Len() * def.ScaleFactor,
	}, true
}

// Placer owns the overlay definitions and the meshes available for them.
type Placer struct {
	defs          []config.OverlayDefinition
	meshes        map[string]*scene.Mesh
	materials     map[string]scene.Material
	params        Params
	showLandmarks bool
}

// NewPlacer builds a placer. Overlays have no mesh until SetMesh is called
// and are skipped until then.
func NewPlacer(defs []config.OverlayDefinition, params Params, showLandmarks bool) *Placer {
	p := &Placer{
		defs:          defs,
		meshes:        make(map[string]*scene.Mesh),
		materials:     make(map[string]scene.Material),
		params:        params,
		showLandmarks: showLandmarks,
	}
	for _, def := range defs {
		p.materials[def.Name] = materialFor(def.Material)
	}
	return p
}

func materialFor(m config.Material) scene.Material {
	c := color.RGBA{R: 138, G: 129, B: 120, A: 255}
	if rgb, err := config.ParseHexColor(m.Color); err == nil {
		c = color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
	}
	return scene.Material{Color: c, Shininess: m.Shininess}
}

// Definitions returns the overlay definitions in placement order.
func (p *Placer) Definitions() []config.OverlayDefinition {
	return p.defs
}

// SetMesh makes an overlay available.
func (p *Placer) SetMesh(name string, mesh *scene.Mesh) {
	p.meshes[name] = mesh
}

// Unavailable lists overlays that have no mesh.
func (p *Placer) Unavailable() []string {
	var names []string
	for _, def := range p.defs {
		if p.meshes[def.Name] == nil {
			names = append(names, def.Name)
		}
	}
	return names
}

// Apply removes every overlay from the scene and adds the ones the primary
// pose supports this frame. It returns the placements that were added.
func (p *Placer) Apply(sc *scene.Scene, poses []model.Pose) []Placement {
	sc.RemoveOverlays()
	sc.SetPoints(nil)

	pose, ok := model.Primary(poses)
	if !ok {
		return nil
	}

	var placed []Placement
	for _, def := range p.defs {
		mesh := p.meshes[def.Name]
		if mesh == nil {
			continue
		}
		pl, ok := Compute(def, pose, p.params)
		if !ok {
			continue
		}
		sc.Add(scene.Overlay{
			Name:     pl.Name,
			Position: pl.Position,
			Scale:    pl.Scale,
			Mesh:     mesh,
			Material: p.materials[def.Name],
		})
		placed = append(placed, pl)
	}

	if p.showLandmarks {
		sc.SetPoints(p.points(pose))
	}
	return placed
}

func (p *Placer) points(pose model.Pose) []scene.Point {
	var points []scene.Point
	for _, lm := range pose.Landmarks {
		if !(lm.Score > p.params.MinScore) {
			continue
		}
		points = append(points, scene.Point{
			Position: ToWorld(lm, p.params.FrameHeight, p.params.DepthConstant),
			Score:    lm.Score,
		})
	}
	return points
}

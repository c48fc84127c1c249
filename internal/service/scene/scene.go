// Package scene holds the 3D scene graph drawn over the video: overlay
// objects, landmark points, lighting and the camera.
package scene

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
)

// Triangle is a mesh face with counter-clockwise winding seen from outside.
type Triangle [3]mgl64.Vec3

// Normal returns the unit face normal, or the zero vector for a degenerate face.
func (t Triangle) Normal() mgl64.Vec3 {
	n := t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
	if n.Len() == 0 {
		return mgl64.Vec3{}
	}
	return n.Normalize()
}

// Mesh is a triangle soup centred on the origin with unit bounding radius.
type Mesh struct {
	Name      string
	Triangles []Triangle
}

// Material is the flat colour of an overlay.
type Material struct {
	Color     color.RGBA
	Shininess float64 // 0 matte .. 1 glossy
}

// Overlay is a mesh instance placed in the scene for one frame.
type Overlay struct {
	Name     string
	Position mgl64.Vec3
	Scale    float64
	Mesh     *Mesh
	Material Material
}

// Point is a single landmark shown as a dot.
type Point struct {
	Position mgl64.Vec3
	Score    float64
}

// Light is one ambient term plus one directional light.
type Light struct {
	Ambient   float64
	Direction mgl64.Vec3 // direction the light travels
	Intensity float64
}

// DefaultLight is a soft key light from the upper left front.
func DefaultLight() Light {
	return Light{
		Ambient:   0.35,
		Direction: mgl64.Vec3{0.4, -0.6, -1}.Normalize(),
		Intensity: 0.75,
	}
}

// Scene is mutated and read by the render loop only; it is not safe for concurrent use.
type Scene struct {
	Camera  Camera
	Light   Light
	EnvTint color.RGBA

	overlays []Overlay
	points   []Point
}

// New creates an empty scene with neutral environment tint.
func New(camera Camera) *Scene {
	return &Scene{
		Camera:  camera,
		Light:   DefaultLight(),
		EnvTint: color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Add appends an overlay.
func (s *Scene) Add(o Overlay) {
	s.overlays = append(s.overlays, o)
}

// RemoveOverlays drops every overlay and returns how many were removed.
func (s *Scene) RemoveOverlays() int {
	n := len(s.overlays)
	s.overlays = s.overlays[:0]
	return n
}

// Overlays returns a copy of the current overlays.
func (s *Scene) Overlays() []Overlay {
	out := make([]Overlay, len(s.overlays))
	copy(out, s.overlays)
	return out
}

// SetPoints replaces the landmark point cloud.
func (s *Scene) SetPoints(points []Point) {
	s.points = append(s.points[:0], points...)
}

// Points returns a copy of the landmark point cloud.
func (s *Scene) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

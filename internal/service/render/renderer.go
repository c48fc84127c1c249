// Package render draws the scene over a video frame and encodes the result.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"gocv.io/x/gocv"

	"stoneoverlay/internal/service/scene"
)

const (
	pointRadius   = 4
	specularLevel = 0.25
	// shininess in [0,1] maps linearly onto Blinn-Phong exponents 1..64
	maxSpecularPower = 64
)

var pointColor = color.RGBA{R: 0, G: 230, B: 118, A: 255}

// Face is a projected, shaded triangle ready to be filled.
type Face struct {
	Points [3]image.Point
	Depth  float64
	Color  color.RGBA
}

// Renderer paints overlays and landmark points onto frames.
type Renderer struct {
	jpegQuality int
}

func NewRenderer(jpegQuality int) *Renderer {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 80
	}
	return &Renderer{jpegQuality: jpegQuality}
}

// Draw paints the scene onto frame in place.
func (r *Renderer) Draw(frame *gocv.Mat, sc *scene.Scene) error {
	for _, f := range Faces(sc) {
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{f.Points[:]})
		err := gocv.FillPoly(frame, pv, f.Color)
		pv.Close()
		if err != nil {
			return fmt.Errorf("failed to fill face: %w", err)
		}
	}

	for _, p := range sc.Points() {
		x, y, depth := sc.Camera.Project(p.Position)
		if depth < 0 || depth > 1 {
			continue
		}
		center := image.Pt(int(math.Round(x)), int(math.Round(y)))
		if err := gocv.Circle(frame, center, pointRadius, pointColor, -1); err != nil {
			return fmt.Errorf("failed to draw landmark: %w", err)
		}
	}
	return nil
}

// Encode compresses frame to JPEG.
func (r *Renderer) Encode(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, r.jpegQuality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}

// Faces projects every overlay triangle that faces the camera and returns
// them sorted far to near.
func Faces(sc *scene.Scene) []Face {
	var faces []Face
	for _, o := range sc.Overlays() {
		if o.Mesh == nil {
			continue
		}
		for _, tri := range o.Mesh.Triangles {
			var world scene.Triangle
			for i, v := range tri {
				world[i] = o.Position.Add(v.Mul(o.Scale))
			}

			normal := world.Normal()
			center := world[0].Add(world[1]).Add(world[2]).Mul(1.0 / 3)
			if normal.Len() == 0 || !sc.Camera.Facing(normal, center) {
				continue
			}

			face, ok := project(sc.Camera, world)
			if !ok {
				continue
			}
			face.Color = Shade(o.Material, normal, sc.Light, sc.EnvTint)
			faces = append(faces, face)
		}
	}

	sort.SliceStable(faces, func(i, j int) bool {
		return faces[i].Depth > faces[j].Depth
	})
	return faces
}

func project(cam scene.Camera, tri scene.Triangle) (Face, bool) {
	var face Face
	for i, v := range tri {
		x, y, depth := cam.Project(v)
		if depth < 0 || depth > 1 {
			return Face{}, false
		}
		face.Points[i] = image.Pt(int(math.Round(x)), int(math.Round(y)))
		face.Depth += depth / 3
	}
	return face, true
}

// SpecularPower converts a material shininess in [0,1] to a Blinn-Phong
// exponent. Values outside the range are clamped.
func SpecularPower(shininess float64) float64 {
	shininess = math.Max(0, math.Min(1, shininess))
	return 1 + shininess*(maxSpecularPower-1)
}

// Shade returns the flat colour of a face: the material colour lit by the
// tinted ambient term, the directional light and a Blinn-Phong highlight.
func Shade(m scene.Material, normal mgl64.Vec3, light scene.Light, tint color.RGBA) color.RGBA {
	toLight := light.Direction.Mul(-1)
	if toLight.Len() > 0 {
		toLight = toLight.Normalize()
	}
	diffuse := light.Intensity * math.Max(0, normal.Dot(toLight))

	specular := 0.0
	if m.Shininess > 0 && diffuse > 0 {
		half := toLight.Add(mgl64.Vec3{0, 0, 1})
		if half.Len() > 0 {
			specular = specularLevel * math.Pow(math.Max(0, normal.Dot(half.Normalize())), SpecularPower(m.Shininess))
		}
	}

	lit := func(base, t uint8) uint8 {
		v := float64(base)*(light.Ambient*float64(t)/255+diffuse) + 255*specular
		return uint8(math.Max(0, math.Min(255, math.Round(v))))
	}
	return color.RGBA{
		R: lit(m.Color.R, tint.R),
		G: lit(m.Color.G, tint.G),
		B: lit(m.Color.B, tint.B),
		A: 255,
	}
}

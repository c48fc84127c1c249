package render

import (
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"stoneoverlay/internal/service/scene"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// twoSided is a unit triangle plus its reverse, so exactly one of them faces +z.
func twoSided() *scene.Mesh {
	front := scene.Triangle{{-1, -1, 0}, {1, -1, 0}, {0, 1, 0}}
	back := scene.Triangle{front[0], front[2], front[1]}
	return &scene.Mesh{Name: "plate", Triangles: []scene.Triangle{front, back}}
}

func testScene(overlays ...scene.Overlay) *scene.Scene {
	sc := scene.New(scene.NewOverlayCamera(640, 480))
	for _, o := range overlays {
		sc.Add(o)
	}
	return sc
}

func TestFaces_CullsBackFaces(t *testing.T) {
	sc := testScene(scene.Overlay{
		Name:     "head",
		Position: mgl64.Vec3{320, 240, 5},
		Scale:    40,
		Mesh:     twoSided(),
		Material: scene.Material{Color: white},
	})

	faces := Faces(sc)
	require.Len(t, faces, 1)

	// y is flipped: the apex at world y=280 lands on pixel row 200
	assert.Equal(t, 320, faces[0].Points[2].X)
	assert.Equal(t, 200, faces[0].Points[2].Y)
}

func TestFaces_SortedFarToNear(t *testing.T) {
	red := scene.Material{Color: color.RGBA{R: 255, A: 255}}
	blue := scene.Material{Color: color.RGBA{B: 255, A: 255}}
	sc := testScene(
		scene.Overlay{Name: "near", Position: mgl64.Vec3{100, 100, 200}, Scale: 10, Mesh: twoSided(), Material: red},
		scene.Overlay{Name: "far", Position: mgl64.Vec3{100, 100, -200}, Scale: 10, Mesh: twoSided(), Material: blue},
	)

	faces := Faces(sc)
	require.Len(t, faces, 2)
	assert.Greater(t, faces[0].Depth, faces[1].Depth)
	assert.Zero(t, faces[0].Color.R, "far overlay is drawn first")
	assert.NotZero(t, faces[1].Color.R)
}

func TestFaces_SkipsOverlaysWithoutMesh(t *testing.T) {
	sc := testScene(scene.Overlay{Name: "torso", Position: mgl64.Vec3{1, 1, 1}, Scale: 1})
	assert.Empty(t, Faces(sc))
}

func TestShade(t *testing.T) {
	light := scene.Light{Ambient: 0.2, Direction: mgl64.Vec3{0, 0, -1}, Intensity: 0.8}
	m := scene.Material{Color: color.RGBA{R: 100, G: 100, B: 100, A: 255}}

	tests := []struct {
		name   string
		normal mgl64.Vec3
		tint   color.RGBA
		want   uint8
	}{
		{"facing the light", mgl64.Vec3{0, 0, 1}, white, 100},
		{"facing away", mgl64.Vec3{0, 0, -1}, white, 20},
		{"dark environment", mgl64.Vec3{0, 0, -1}, color.RGBA{A: 255}, 0},
		{"grazing", mgl64.Vec3{1, 0, 0}, white, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Shade(m, tt.normal, light, tt.tint)
			assert.Equal(t, tt.want, got.R)
			assert.Equal(t, tt.want, got.G)
			assert.Equal(t, uint8(255), got.A)
		})
	}
}

func TestShade_ClampsAndHighlights(t *testing.T) {
	light := scene.Light{Ambient: 1, Direction: mgl64.Vec3{0, 0, -1}, Intensity: 1}
	m := scene.Material{Color: white, Shininess: 1}

	got := Shade(m, mgl64.Vec3{0, 0, 1}, light, white)
	assert.Equal(t, white, got)
}

func TestSpecularPower(t *testing.T) {
	assert.Equal(t, 1.0, SpecularPower(0))
	assert.Equal(t, 64.0, SpecularPower(1))
	assert.InDelta(t, 19.9, SpecularPower(0.3), 1e-9)
	assert.Equal(t, 64.0, SpecularPower(5))
	assert.Equal(t, 1.0, SpecularPower(-1))
}

func TestShade_GlossyHighlightIsTight(t *testing.T) {
	light := scene.Light{Direction: mgl64.Vec3{0, 0, -1}, Intensity: 1}
	black := color.RGBA{A: 255}
	tilted := mgl64.Vec3{1, 0, 1}.Normalize() // 45 degrees off the highlight

	glossy := Shade(scene.Material{Color: black, Shininess: 1}, tilted, light, white)
	matte := Shade(scene.Material{Color: black, Shininess: 0.05}, tilted, light, white)

	assert.Zero(t, glossy.R, "glossy highlight does not reach 45 degrees")
	assert.Greater(t, matte.R, uint8(0), "low shininess gives a broad highlight")
}

func TestRenderer_DrawAndEncode(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	sc := testScene(scene.Overlay{
		Name:     "head",
		Position: mgl64.Vec3{320, 240, 5},
		Scale:    40,
		Mesh:     twoSided(),
		Material: scene.Material{Color: white},
	})
	sc.SetPoints([]scene.Point{{Position: mgl64.Vec3{50, 430, 5}, Score: 0.9}})

	r := NewRenderer(90)
	require.NoError(t, r.Draw(&frame, sc))

	assert.NotZero(t, frame.GetVecbAt(240, 320)[0], "overlay filled")
	assert.NotZero(t, frame.GetVecbAt(50, 50)[1], "landmark drawn")
	assert.Zero(t, frame.GetVecbAt(10, 600)[0], "background untouched")

	jpeg, err := r.Encode(frame)
	require.NoError(t, err)
	require.Greater(t, len(jpeg), 2)
	assert.Equal(t, []byte{0xff, 0xd8}, jpeg[:2])
}

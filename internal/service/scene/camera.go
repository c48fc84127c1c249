package scene

import "github.com/go-gl/mathgl/mgl64"

// Camera maps world coordinates to frame pixels.
type Camera struct {
	View       mgl64.Mat4
	Projection mgl64.Mat4
	Width      int
	Height     int
}

// NewOverlayCamera returns an orthographic camera whose x/y match the video
// pixels, with world y pointing up. The viewer sits on +z.
func NewOverlayCamera(width, height int) Camera {
	const depthRange = 1000
	return Camera{
		View:       mgl64.Ident4(),
		Projection: mgl64.Ortho(0, float64(width), 0, float64(height), -depthRange, depthRange),
		Width:      width,
		Height:     height,
	}
}

// NewOrbitCamera returns the perspective camera looking at the origin from (300,300,300).
func NewOrbitCamera(width, height int) Camera {
	aspect := float64(width) / float64(height)
	return Camera{
		View:       mgl64.LookAtV(mgl64.Vec3{300, 300, 300}, mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}),
		Projection: mgl64.Perspective(mgl64.DegToRad(75), aspect, 0.1, 1000),
		Width:      width,
		Height:     height,
	}
}

// Project returns the pixel position (origin top-left) and normalized depth in
// [0,1] of a world point; smaller depth is nearer the viewer.
func (c Camera) Project(p mgl64.Vec3) (x, y, depth float64) {
	win := mgl64.Project(p, c.View, c.Projection, 0, 0, c.Width, c.Height)
	return win.X(), float64(c.Height) - win.Y(), win.Z()
}

// Facing reports whether a surface with world normal n at world point at
// faces the viewer.
func (c Camera) Facing(n, at mgl64.Vec3) bool {
	nv := c.View.Mul4x1(n.Vec4(0)).Vec3()
	if c.orthographic() {
		return nv.Z() > 0
	}
	// perspective: the eye is at the view-space origin
	pv := c.View.Mul4x1(at.Vec4(1)).Vec3()
	return nv.Dot(pv) < 0
}

func (c Camera) orthographic() bool {
	return c.Projection[15] != 0
}

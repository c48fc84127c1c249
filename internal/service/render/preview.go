package render

import "gocv.io/x/gocv"

// Preview shows rendered frames in a local OpenCV window. It must be created
// and used on the goroutine that runs the render loop.
type Preview struct {
	window *gocv.Window
}

func NewPreview(title string) *Preview {
	return &Preview{window: gocv.NewWindow(title)}
}

// Show displays frame and pumps window events. It returns false once the
// user pressed Esc.
func (p *Preview) Show(frame gocv.Mat) bool {
	if err := p.window.IMShow(frame); err != nil {
		return false
	}
	return p.window.WaitKey(1) != 27
}

func (p *Preview) Close() error {
	return p.window.Close()
}

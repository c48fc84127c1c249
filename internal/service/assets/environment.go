package assets

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"gocv.io/x/gocv"
)

// NeutralTint leaves lighting unchanged.
var NeutralTint = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// LoadEnvironmentTint reads the environment map and returns its mean colour.
// Relative paths are resolved against the asset directory.
func (l *Loader) LoadEnvironmentTint(name string) (color.RGBA, error) {
	if name == "" {
		return NeutralTint, fmt.Errorf("no environment map configured")
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.dir, name)
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return NeutralTint, fmt.Errorf("failed to read environment map %s", path)
	}

	// Scalar channels are in BGR order
	mean := img.Mean()
	return color.RGBA{
		R: channel(mean.Val3),
		G: channel(mean.Val2),
		B: channel(mean.Val1),
		A: 255,
	}, nil
}

func channel(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

// Package assets loads the overlay meshes: STL files from the asset
// directory or procedurally generated stones.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/unixpickle/model3d/model3d"

	"stoneoverlay/internal/config"
	"stoneoverlay/internal/service/scene"
)

// StonePrefix marks a procedural mesh reference, e.g. "stone:3".
const StonePrefix = "stone:"

// Result is the outcome of loading one overlay's mesh.
type Result struct {
	Overlay string
	Mesh    *scene.Mesh
	Err     error
}

// Loader resolves mesh references relative to an asset directory.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// LoadAll loads the mesh of every definition concurrently. The returned
// channel receives one Result per definition and is closed afterwards.
func (l *Loader) LoadAll(defs []config.OverlayDefinition) <-chan Result {
	results := make(chan Result, len(defs))

	var wg sync.WaitGroup
	for _, def := range defs {
		wg.Add(1)
		go func(def config.OverlayDefinition) {
			defer wg.Done()
			mesh, err := l.Load(def.Mesh)
			results <- Result{Overlay: def.Name, Mesh: mesh, Err: err}
		}(def)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// Load resolves a single mesh reference.
func (l *Loader) Load(ref string) (*scene.Mesh, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty mesh reference")
	}

	if strings.HasPrefix(ref, StonePrefix) {
		seed, err := strconv.ParseInt(strings.TrimPrefix(ref, StonePrefix), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid stone seed in %q: %w", ref, err)
		}
		return Stone(seed), nil
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.dir, ref)
	}
	return LoadSTL(path)
}

// LoadSTL reads an STL file and normalizes it to unit radius.
func LoadSTL(path string) (*scene.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mesh: %w", err)
	}
	defer f.Close()

	triangles, err := model3d.ReadSTL(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mesh %s: %w", filepath.Base(path), err)
	}
	if len(triangles) == 0 {
		return nil, fmt.Errorf("mesh %s has no triangles", filepath.Base(path))
	}

	return normalize(filepath.Base(path), triangles), nil
}

// normalize converts model3d triangles into a scene mesh centred on the
// vertex centroid and scaled so the farthest vertex sits at distance 1.
func normalize(name string, triangles []*model3d.Triangle) *scene.Mesh {
	var centre mgl64.Vec3
	for _, t := range triangles {
		for _, c := range t {
			centre = centre.Add(mgl64.Vec3(c.Array()))
		}
	}
	centre = centre.Mul(1 / float64(3*len(triangles)))

	radius := 0.0
	for _, t := range triangles {
		for _, c := range t {
			if d := mgl64.Vec3(c.Array()).Sub(centre).Len(); d > radius {
				radius = d
			}
		}
	}
	if radius == 0 {
		radius = 1
	}

	mesh := &scene.Mesh{Name: name, Triangles: make([]scene.Triangle, 0, len(triangles))}
	for _, t := range triangles {
		var tri scene.Triangle
		for i, c := range t {
			tri[i] = mgl64.Vec3(c.Array()).Sub(centre).Mul(1 / radius)
		}
		mesh.Triangles = append(mesh.Triangles, tri)
	}
	return mesh
}

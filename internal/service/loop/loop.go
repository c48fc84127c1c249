// Package loop drives the per-frame pipeline: grab a frame, hand it to the
// pose source, place overlays from the latest poses, render and publish.
package loop

import (
	"context"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"stoneoverlay/internal/config"
	"stoneoverlay/internal/dto"
	"stoneoverlay/internal/logger"
	"stoneoverlay/internal/model"
	"stoneoverlay/internal/service/assets"
	"stoneoverlay/internal/service/placement"
	"stoneoverlay/internal/service/posesource"
	"stoneoverlay/internal/service/render"
	"stoneoverlay/internal/service/scene"
)

const (
	PhaseIdle     = "idle"
	PhaseTracking = "tracking"
)

// PoseSource is what the loop needs from the pose source.
type PoseSource interface {
	ReadFrame(frame *gocv.Mat) bool
	Offer(frame gocv.Mat)
	Latest() ([]model.Pose, uint64)
	State() posesource.State
	Metrics() posesource.Metrics
}

// Output receives rendered frames and status updates.
type Output interface {
	BroadcastFrame(jpeg []byte, seq uint64)
	PublishStatus(status dto.Status)
}

// Display shows frames locally. Show returns false when the user closed it.
type Display interface {
	Show(frame gocv.Mat) bool
	Close() error
}

// State is the application state owned by the render loop.
type State struct {
	source   PoseSource
	scene    *scene.Scene
	placer   *placement.Placer
	renderer *render.Renderer
	output   Output
	meshes   <-chan assets.Result
	logger   *logger.Logger

	targetFPS      int
	maxFrames      int
	statusInterval time.Duration
	newDisplay     func() Display

	mu          sync.RWMutex
	phase       string
	halted      bool
	ticks       uint64
	frames      uint64
	poseSeq     uint64
	placed      []string
	unavailable []string
}

// New builds the loop state. meshes delivers asynchronously loaded overlay
// meshes; overlays are skipped until theirs arrives.
func New(cfg *config.Config, source PoseSource, sc *scene.Scene, placer *placement.Placer,
	renderer *render.Renderer, output Output, meshes <-chan assets.Result, logger *logger.Logger) *State {

	s := &State{
		source:         source,
		scene:          sc,
		placer:         placer,
		renderer:       renderer,
		output:         output,
		meshes:         meshes,
		logger:         logger,
		targetFPS:      cfg.TargetFPS,
		maxFrames:      cfg.MaxFrames,
		statusInterval: time.Duration(cfg.StatusIntervalSecs) * time.Second,
		phase:          PhaseIdle,
		unavailable:    placer.Unavailable(),
	}
	if s.targetFPS <= 0 {
		s.targetFPS = 30
	}
	if s.statusInterval <= 0 {
		s.statusInterval = 2 * time.Second
	}
	if cfg.LocalPreview {
		s.newDisplay = func() Display { return render.NewPreview("Stone Overlay") }
	}
	return s
}

// Run ticks until ctx is cancelled, the frame limit is reached or the local
// preview is closed. It must run on one goroutine for its whole life.
func (s *State) Run(ctx context.Context) {
	frame := gocv.NewMat()
	defer frame.Close()

	var display Display
	if s.newDisplay != nil {
		display = s.newDisplay()
		defer display.Close()
	}

	ticker := time.NewTicker(time.Second / time.Duration(s.targetFPS))
	defer ticker.Stop()

	lastStatus := time.Now()
	s.logger.Info("🎬 Render loop started at %d fps", s.targetFPS)
	defer func() { s.logger.Info("🛑 Render loop stopped after %d frames", s.Frames()) }()

	for {
		select {
		case <-ctx.Done():
			s.output.PublishStatus(s.Status())
			return

		case <-ticker.C:
			rendered := s.Tick(&frame)

			if rendered && display != nil && !display.Show(frame) {
				s.logger.Info("Local preview closed")
				return
			}

			if time.Since(lastStatus) >= s.statusInterval {
				s.output.PublishStatus(s.Status())
				lastStatus = time.Now()
			}

			if s.maxFrames > 0 && s.ticks >= uint64(s.maxFrames) {
				s.output.PublishStatus(s.Status())
				return
			}
		}
	}
}

// Tick runs one frame of the pipeline and reports whether a frame was
// rendered and published.
func (s *State) Tick(frame *gocv.Mat) bool {
	s.ticks++
	s.drainMeshes()
	s.updatePhase()

	if !s.source.ReadFrame(frame) {
		return false
	}
	s.source.Offer(*frame)

	poses, seq := s.source.Latest()
	placed := s.placer.Apply(s.scene, poses)

	if err := s.renderer.Draw(frame, s.scene); err != nil {
		s.logger.Error("Failed to render frame: %v", err)
	}

	jpeg, err := s.renderer.Encode(*frame)
	if err != nil {
		s.logger.Error("%v", err)
		return false
	}

	s.mu.Lock()
	s.frames++
	s.poseSeq = seq
	s.placed = s.placed[:0]
	for _, p := range placed {
		s.placed = append(s.placed, p.Name)
	}
	frames := s.frames
	s.mu.Unlock()

	s.output.BroadcastFrame(jpeg, frames)
	return true
}

// drainMeshes hands every mesh that finished loading to the placer.
func (s *State) drainMeshes() {
	if s.meshes == nil {
		return
	}

	changed := false
	for done := false; !done; {
		select {
		case res, ok := <-s.meshes:
			if !ok {
				s.meshes = nil
				done = true
				break
			}
			if res.Err != nil {
				s.logger.Error("Failed to load mesh for overlay %s: %v", res.Overlay, res.Err)
				continue
			}
			s.placer.SetMesh(res.Overlay, res.Mesh)
			s.logger.Info("Overlay %s ready (%d triangles)", res.Overlay, len(res.Mesh.Triangles))
			changed = true
		default:
			done = true
		}
	}

	if changed || s.meshes == nil {
		unavailable := s.placer.Unavailable()
		s.mu.Lock()
		s.unavailable = unavailable
		s.mu.Unlock()
	}
}

// updatePhase moves Idle to Tracking once the source is ready. Tracking never
// goes back to Idle; a source that fails afterwards only marks the loop halted.
func (s *State) updatePhase() {
	state := s.source.State()
	// frames are only accepted while ready, so offered frames prove it was
	wasReady := state == posesource.StateReady || s.source.Metrics().FramesOffered > 0

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseIdle && wasReady {
		s.phase = PhaseTracking
		s.logger.Info("Tracking started")
	}
	if s.phase == PhaseTracking && state == posesource.StateUnavailable && !s.halted {
		s.halted = true
		s.logger.Warning("Pose updates halted, rendering continues")
	}
}

// Frames returns how many frames were rendered.
func (s *State) Frames() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

// Status is a snapshot of the loop and pose source.
func (s *State) Status() dto.Status {
	m := s.source.Metrics()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return dto.Status{
		Phase:         s.phase,
		Halted:        s.halted,
		Source:        s.source.State().String(),
		Frames:        s.frames,
		PoseSequence:  s.poseSeq,
		Placed:        append([]string{}, s.placed...),
		Unavailable:   append([]string{}, s.unavailable...),
		FramesOffered: m.FramesOffered,
		FramesDropped: m.FramesDropped,
		Inferences:    m.Inferences,
		InferenceMs:   float64(m.LastLatency) / float64(time.Millisecond),
	}
}

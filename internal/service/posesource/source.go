// Package posesource drives the pose network against the webcam: it acquires
// the model, then the camera, then runs one inference at a time on the most
// recent frame and keeps the latest result for the render loop.
package posesource

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"stoneoverlay/internal/logger"
	"stoneoverlay/internal/model"
)

// Detector estimates poses on a frame.
type Detector interface {
	Estimate(frame gocv.Mat) ([]model.Pose, error)
	Dispose()
}

// Camera yields video frames.
type Camera interface {
	Read(frame *gocv.Mat) bool
	Close() error
}

// Alerter shows a message to the user.
type Alerter interface {
	Alert(message string)
}

// State of the source.
type State int32

const (
	StateLoading State = iota
	StateReady
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Metrics are counters of the inference pipeline.
type Metrics struct {
	FramesOffered uint64        `json:"frames_offered"`
	FramesDropped uint64        `json:"frames_dropped"`
	Inferences    uint64        `json:"inferences"`
	LastLatency   time.Duration `json:"last_latency_ns"`
}

// Source is the pose source. Offer and ReadFrame are called from the render
// loop; inference runs on a single worker goroutine.
type Source struct {
	loadModel  func() (Detector, error)
	openCamera func() (Camera, error)
	alerter    Alerter
	logger     *logger.Logger

	state atomic.Int32

	mu       sync.Mutex // guards detector
	detector Detector

	// camMu is held for reading across a camera read so Close never runs under it
	camMu  sync.RWMutex
	camera Camera

	// single-slot mailbox; a newer frame replaces an unconsumed one
	inboxMu   sync.Mutex
	inboxCond *sync.Cond
	inbox     *gocv.Mat
	closed    bool

	posesMu sync.RWMutex
	poses   []model.Pose
	seq     uint64

	offered     atomic.Uint64
	dropped     atomic.Uint64
	inferences  atomic.Uint64
	lastLatency atomic.Int64

	stopped   chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a source. Nothing is acquired until Start.
func New(loadModel func() (Detector, error), openCamera func() (Camera, error), alerter Alerter, logger *logger.Logger) *Source {
	s := &Source{
		loadModel:  loadModel,
		openCamera: openCamera,
		alerter:    alerter,
		logger:     logger,
		stopped:    make(chan struct{}),
	}
	s.inboxCond = sync.NewCond(&s.inboxMu)
	return s
}

// Start acquires the model and then the camera, and launches the inference
// worker. Acquisition failures are logged and alerted, leave the source
// unavailable, and never propagate. Only the first call has any effect.
func (s *Source) Start(ctx context.Context) {
	s.startOnce.Do(func() { s.start(ctx) })
}

func (s *Source) start(ctx context.Context) {
	s.logger.Info("Loading pose model")
	detector, err := s.loadModel()
	if err != nil {
		s.unavailable("Pose model could not be loaded", err)
		return
	}

	s.logger.Info("Requesting camera")
	cam, err := s.openCamera()
	if err != nil {
		detector.Dispose()
		s.unavailable("Webcam is not available", err)
		return
	}

	s.mu.Lock()
	s.detector = detector
	s.mu.Unlock()

	s.camMu.Lock()
	s.camera = cam
	s.camMu.Unlock()

	// Stop may have run while acquiring
	s.inboxMu.Lock()
	if s.closed || ctx.Err() != nil {
		s.inboxMu.Unlock()
		s.release()
		return
	}
	s.wg.Add(1)
	s.inboxMu.Unlock()

	s.state.Store(int32(StateReady))
	s.logger.Info("Pose source ready")

	go s.inferenceLoop(detector)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.stopped:
		}
	}()
}

func (s *Source) unavailable(message string, err error) {
	s.logger.Warning("%s: %v", message, err)
	s.alerter.Alert(fmt.Sprintf("%s: %v", message, err))
	s.state.Store(int32(StateUnavailable))
}

// State returns the current state.
func (s *Source) State() State {
	return State(s.state.Load())
}

// Ready reports whether frames offered now will be inferred.
func (s *Source) Ready() bool {
	return s.State() == StateReady
}

// ReadFrame reads the next camera frame. It returns false while no camera is open.
func (s *Source) ReadFrame(frame *gocv.Mat) bool {
	s.camMu.RLock()
	defer s.camMu.RUnlock()

	if s.camera == nil {
		return false
	}
	return s.camera.Read(frame)
}

// Offer hands a frame to the inference worker. The frame is copied; an
// unconsumed earlier frame is dropped. Offers are ignored unless ready.
func (s *Source) Offer(frame gocv.Mat) {
	if !s.Ready() || frame.Empty() {
		return
	}

	clone := frame.Clone()
	s.offered.Add(1)

	s.inboxMu.Lock()
	defer s.inboxMu.Unlock()

	if s.closed {
		clone.Close()
		return
	}
	if s.inbox != nil {
		s.inbox.Close()
		s.dropped.Add(1)
	}
	s.inbox = &clone
	s.inboxCond.Signal()
}

// take blocks until a frame is available or the source is stopped.
func (s *Source) take() *gocv.Mat {
	s.inboxMu.Lock()
	defer s.inboxMu.Unlock()

	for s.inbox == nil && !s.closed {
		s.inboxCond.Wait()
	}
	if s.closed {
		return nil
	}

	frame := s.inbox
	s.inbox = nil
	return frame
}

func (s *Source) inferenceLoop(detector Detector) {
	defer s.wg.Done()

	for {
		frame := s.take()
		if frame == nil {
			return
		}

		started := time.Now()
		poses, err := detector.Estimate(*frame)
		frame.Close()

		if err != nil {
			s.halt(detector, err)
			return
		}

		s.lastLatency.Store(int64(time.Since(started)))
		s.inferences.Add(1)

		s.posesMu.Lock()
		s.poses = poses
		s.seq++
		s.posesMu.Unlock()
	}
}

// halt is the permanent failure path: release the model, stop inferring, tell the user.
func (s *Source) halt(detector Detector, err error) {
	detector.Dispose()

	s.mu.Lock()
	s.detector = nil
	s.mu.Unlock()

	s.logger.Error("Pose estimation failed, tracking stopped: %v", err)
	s.alerter.Alert(err.Error())
	s.state.Store(int32(StateUnavailable))
}

// Latest returns the last completed pose list and its sequence number
// (0 before the first inference). The slice must not be modified.
func (s *Source) Latest() ([]model.Pose, uint64) {
	s.posesMu.RLock()
	defer s.posesMu.RUnlock()
	return s.poses, s.seq
}

// Metrics returns a snapshot of the pipeline counters.
func (s *Source) Metrics() Metrics {
	return Metrics{
		FramesOffered: s.offered.Load(),
		FramesDropped: s.dropped.Load(),
		Inferences:    s.inferences.Load(),
		LastLatency:   time.Duration(s.lastLatency.Load()),
	}
}

// Stop ends the worker and releases the camera and model. Safe to call more than once.
func (s *Source) Stop() {
	s.stopOnce.Do(func() {
		s.inboxMu.Lock()
		s.closed = true
		if s.inbox != nil {
			s.inbox.Close()
			s.inbox = nil
		}
		s.inboxCond.Broadcast()
		s.inboxMu.Unlock()

		close(s.stopped)
		s.wg.Wait()
		s.release()
	})
}

// release frees whatever detector and camera are still held.
func (s *Source) release() {
	s.mu.Lock()
	if s.detector != nil {
		s.detector.Dispose()
		s.detector = nil
	}
	s.mu.Unlock()

	// waits for an in-flight ReadFrame
	s.camMu.Lock()
	defer s.camMu.Unlock()
	if s.camera != nil {
		if err := s.camera.Close(); err != nil {
			s.logger.Error("Failed to close camera: %v", err)
		}
		s.camera = nil
	}
}

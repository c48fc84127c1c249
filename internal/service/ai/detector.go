package ai

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"stoneoverlay/internal/config"
	"stoneoverlay/internal/logger"
	"stoneoverlay/internal/model"
)

const (
	// valuesPerLandmark is x, y, z, visibility, presence.
	valuesPerLandmark = 5
	// PresenceThreshold is the minimum pose flag for a frame to contain a person.
	PresenceThreshold = 0.5
)

// PoseDetector runs a BlazePose landmark network through the OpenCV DNN module.
type PoseDetector struct {
	net           gocv.Net
	inputSize     int
	landmarkLayer string
	presenceLayer string
	smoother      *Smoother
	logger        *logger.Logger
	mu            sync.Mutex
	disposed      bool
}

// NewPoseDetector loads the pose network. ONNX models are read directly;
// any other format goes through gocv.ReadNet.
func NewPoseDetector(cfg *config.Config, logger *logger.Logger) (*PoseDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	var net gocv.Net
	if strings.EqualFold(filepath.Ext(cfg.ModelPath), ".onnx") {
		net = gocv.ReadNetFromONNX(cfg.ModelPath)
	} else {
		net = gocv.ReadNet(cfg.ModelPath, "")
	}
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", cfg.ModelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	d := &PoseDetector{
		net:           net,
		inputSize:     cfg.ModelInputSize,
		landmarkLayer: cfg.LandmarkLayer,
		presenceLayer: cfg.PresenceLayer,
		logger:        logger,
	}
	if cfg.Smoothing {
		d.smoother = NewSmoother(cfg.SmoothingAlpha)
	}

	logger.Info("Pose network loaded from %s (input %dx%d)", cfg.ModelPath, d.inputSize, d.inputSize)
	return d, nil
}

// Estimate returns the poses found in frame; an empty slice when nobody is visible.
func (d *PoseDetector) Estimate(frame gocv.Mat) ([]model.Pose, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return nil, fmt.Errorf("pose detector disposed")
	}
	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	outputs := d.net.ForwardLayers([]string{d.landmarkLayer, d.presenceLayer})
	defer func() {
		for i := range outputs {
			outputs[i].Close()
		}
	}()

	if len(outputs) != 2 {
		return nil, fmt.Errorf("expected 2 network outputs, got %d", len(outputs))
	}

	presence := float64(outputs[1].GetFloatAt(0, 0))
	if presence < PresenceThreshold {
		if d.smoother != nil {
			d.smoother.Reset()
		}
		return []model.Pose{}, nil
	}

	flat := outputs[0].Reshape(1, 1)
	defer flat.Close()

	values := make([]float32, flat.Total())
	for i := range values {
		values[i] = flat.GetFloatAt(0, i)
	}

	pose, err := decodeLandmarks(values, d.inputSize, frame.Cols(), frame.Rows())
	if err != nil {
		return nil, err
	}
	pose.Score = presence

	poses := []model.Pose{pose}
	if d.smoother != nil {
		poses = d.smoother.Smooth(poses)
	}
	return poses, nil
}

// decodeLandmarks converts raw network output (input-image pixels, visibility
// logits) into frame-pixel landmarks. Only the first LandmarkCount are kept;
// the rest are auxiliary alignment points.
func decodeLandmarks(values []float32, inputSize, frameWidth, frameHeight int) (model.Pose, error) {
	if len(values) < model.LandmarkCount*valuesPerLandmark {
		return model.Pose{}, fmt.Errorf("landmark output too short: %d values", len(values))
	}
	if inputSize <= 0 {
		return model.Pose{}, fmt.Errorf("invalid model input size %d", inputSize)
	}

	sx := float64(frameWidth) / float64(inputSize)
	sy := float64(frameHeight) / float64(inputSize)

	landmarks := make([]model.Landmark, model.LandmarkCount)
	for i := range landmarks {
		v := values[i*valuesPerLandmark : (i+1)*valuesPerLandmark]
		landmarks[i] = model.Landmark{
			X:     float64(v[0]) * sx,
			Y:     float64(v[1]) * sy,
			Z:     float64(v[2]) * sx,
			Score: model.Sigmoid(float64(v[3])),
			Name:  model.LandmarkName(i),
		}
	}
	return model.Pose{Landmarks: landmarks}, nil
}

// Dispose releases the network. Further Estimate calls fail.
func (d *PoseDetector) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return
	}
	d.disposed = true
	d.net.Close()
	d.logger.Info("Pose network released")
}

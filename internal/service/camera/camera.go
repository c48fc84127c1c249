// Package camera acquires the video-only webcam stream.
package camera

import (
	"fmt"
	"strconv"

	"gocv.io/x/gocv"

	"stoneoverlay/internal/config"
	"stoneoverlay/internal/logger"
)

// Device is an open capture device.
type Device struct {
	capture *gocv.VideoCapture
	flip    bool
	logger  *logger.Logger
}

// Open starts capturing from the configured device. A numeric CAMERA_DEVICE
// selects a local camera; anything else is handed to OpenCV as a file or URL.
func Open(cfg *config.Config, logger *logger.Logger) (*Device, error) {
	var source interface{} = cfg.CameraDevice
	if id, err := strconv.Atoi(cfg.CameraDevice); err == nil {
		source = id
	}

	capture, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %s: %w", cfg.CameraDevice, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera %s is not available", cfg.CameraDevice)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.FrameWidth))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.FrameHeight))

	logger.Info("Camera %s opened", cfg.CameraDevice)
	return &Device{capture: capture, flip: cfg.FlipHorizontal, logger: logger}, nil
}

// Read grabs the next frame into frame, mirrored when FLIP_HORIZONTAL is set.
func (d *Device) Read(frame *gocv.Mat) bool {
	if ok := d.capture.Read(frame); !ok || frame.Empty() {
		return false
	}
	if d.flip {
		if err := gocv.Flip(*frame, frame, 1); err != nil {
			d.logger.Error("Failed to mirror frame: %v", err)
		}
	}
	return true
}

// Close stops capturing.
func (d *Device) Close() error {
	return d.capture.Close()
}

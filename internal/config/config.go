package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// CameraModeOverlay aligns the 3D camera with the video frame.
	CameraModeOverlay = "overlay"
	// CameraModeOrbit uses a perspective camera looking at the origin.
	CameraModeOrbit = "orbit"
)

type Config struct {
	Port         int
	LogDirectory string

	CameraDevice string
	FrameWidth   int
	FrameHeight  int

	ModelPath          string
	ModelInputSize     int
	LandmarkLayer      string
	PresenceLayer      string
	ConfidenceMinimum  float64
	DepthConstant      float64
	Smoothing          bool
	SmoothingAlpha     float64
	FlipHorizontal     bool
	AssetDirectory     string
	EnvironmentMap     string
	OverlaysFile       string
	TargetFPS          int
	MaxFrames          int   // 0 = run until cancelled
	CameraMode         string
	ShowLandmarks      bool
	LocalPreview       bool
	JPEGQuality        int
	StatusIntervalSecs int
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getEnvAsInt("PORT", 8080),
		LogDirectory:       getEnv("LOG_DIR", filepath.Join(".", "logs")),
		CameraDevice:       getEnv("CAMERA_DEVICE", "0"),
		FrameWidth:         getEnvAsInt("FRAME_WIDTH", 640),
		FrameHeight:        getEnvAsInt("FRAME_HEIGHT", 480),
		ModelPath:          getEnv("MODEL_PATH", filepath.Join(".", "models", "pose_landmark_full.onnx")),
		ModelInputSize:     getEnvAsInt("MODEL_INPUT_SIZE", 256),
		LandmarkLayer:      getEnv("MODEL_LANDMARK_LAYER", "Identity"),
		PresenceLayer:      getEnv("MODEL_PRESENCE_LAYER", "Identity_1"),
		ConfidenceMinimum:  getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.5),
		DepthConstant:      getEnvAsFloat("DEPTH_CONSTANT", 5),
		Smoothing:          getEnvAsBool("SMOOTHING", true),
		SmoothingAlpha:     getEnvAsFloat("SMOOTHING_ALPHA", 0.5),
		FlipHorizontal:     getEnvAsBool("FLIP_HORIZONTAL", false),
		AssetDirectory:     getEnv("ASSET_DIR", filepath.Join(".", "assets")),
		EnvironmentMap:     getEnv("ENV_MAP", "environment.jpg"),
		OverlaysFile:       getEnv("OVERLAYS_FILE", ""),
		TargetFPS:          getEnvAsInt("TARGET_FPS", 30),
		MaxFrames:          getEnvAsInt("MAX_FRAMES", 0),
		CameraMode:         strings.ToLower(getEnv("CAMERA_MODE", CameraModeOverlay)),
		ShowLandmarks:      getEnvAsBool("SHOW_LANDMARKS", false),
		LocalPreview:       getEnvAsBool("LOCAL_PREVIEW", false),
		JPEGQuality:        getEnvAsInt("JPEG_QUALITY", 80),
		StatusIntervalSecs: getEnvAsInt("STATUS_INTERVAL", 2),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

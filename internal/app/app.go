package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"stoneoverlay/internal/config"
	"stoneoverlay/internal/logger"
	"stoneoverlay/internal/routes"
	"stoneoverlay/internal/service/ai"
	"stoneoverlay/internal/service/assets"
	"stoneoverlay/internal/service/camera"
	"stoneoverlay/internal/service/loop"
	"stoneoverlay/internal/service/placement"
	"stoneoverlay/internal/service/posesource"
	"stoneoverlay/internal/service/render"
	"stoneoverlay/internal/service/scene"
	"stoneoverlay/internal/service/websocket"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	hubService *websocket.HubService
	source     *posesource.Source
	state      *loop.State
}

func NewApp() (*App, error) {
	cfg := config.Load()

	l, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	defs, err := config.LoadOverlays(cfg.OverlaysFile)
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to load overlay definitions: %w", err)
	}

	sc := scene.New(newCamera(cfg))

	loader := assets.NewLoader(cfg.AssetDirectory)
	if tint, err := loader.LoadEnvironmentTint(cfg.EnvironmentMap); err != nil {
		l.Warning("Environment map unavailable, using neutral lighting: %v", err)
	} else {
		sc.EnvTint = tint
	}

	placer := placement.NewPlacer(defs, placement.Params{
		FrameHeight:   float64(cfg.FrameHeight),
		DepthConstant: cfg.DepthConstant,
		MinScore:      cfg.ConfidenceMinimum,
	}, cfg.ShowLandmarks)

	hub := websocket.NewHubService(l)

	source := posesource.New(
		func() (posesource.Detector, error) {
			detector, err := ai.NewPoseDetector(cfg, l)
			if err != nil {
				return nil, err
			}
			return detector, nil
		},
		func() (posesource.Camera, error) {
			device, err := camera.Open(cfg, l)
			if err != nil {
				return nil, err
			}
			return device, nil
		},
		hub,
		l,
	)

	state := loop.New(cfg, source, sc, placer, render.NewRenderer(cfg.JPEGQuality), hub, loader.LoadAll(defs), l)

	return &App{
		config:     cfg,
		logger:     l,
		hubService: hub,
		source:     source,
		state:      state,
	}, nil
}

func newCamera(cfg *config.Config) scene.Camera {
	if cfg.CameraMode == config.CameraModeOrbit {
		return scene.NewOrbitCamera(cfg.FrameWidth, cfg.FrameHeight)
	}
	return scene.NewOverlayCamera(cfg.FrameWidth, cfg.FrameHeight)
}

// Run serves viewers and drives the render loop on the calling goroutine
// until ctx is cancelled, the frame limit is reached or the server fails.
func (a *App) Run(ctx context.Context) error {
	defer a.logger.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start background services
	go a.hubService.Run(ctx)
	go a.source.Start(ctx)
	defer a.source.Stop()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: routes.SetupRoutes(a.hubService, a.state, a.logger),
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server failed: %v", err)
			serverErr <- err
			cancel()
		}
	}()

	fmt.Printf("🪨 Stone Overlay\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📷 Camera: %s (%dx%d)\n", a.config.CameraDevice, a.config.FrameWidth, a.config.FrameHeight)
	fmt.Printf("🤖 Pose model: %s\n", a.config.ModelPath)

	a.state.Run(ctx)

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown: %v", err)
	}

	select {
	case err := <-serverErr:
		return err
	default:
		return nil
	}
}

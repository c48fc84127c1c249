package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"stoneoverlay/internal/handler"
	"stoneoverlay/internal/logger"
	"stoneoverlay/internal/service/loop"
	"stoneoverlay/internal/service/websocket"
)

var logLevels = []string{logger.LevelInfo, logger.LevelWarning, logger.LevelError}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers the viewer page, the frame websocket, the status API
// and the log endpoints.
func SetupRoutes(hub *websocket.HubService, state *loop.State, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// API endpoints
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(hub, logger))
	mux.HandleFunc("/api/status", handler.StatusHandler(state, hub, logger))

	// Log endpoints
	for _, level := range logLevels {
		mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(logger, level))
		mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(logger, level))
	}

	mux.HandleFunc("/", dynamicHTMLHandler)

	return mux
}

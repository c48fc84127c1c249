package handler

import (
	"encoding/json"
	"net/http"

	"stoneoverlay/internal/dto"
	"stoneoverlay/internal/logger"
)

// StatusProvider reports the current render loop status.
type StatusProvider interface {
	Status() dto.Status
}

// ViewerCounter reports how many viewers are connected.
type ViewerCounter interface {
	GetClientCount() int
}

// StatusHandler serves the loop and pose source status as JSON.
func StatusHandler(status StatusProvider, viewers ViewerCounter, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s := status.Status()
		if viewers != nil {
			s.Viewers = viewers.GetClientCount()
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(s); err != nil {
			logger.Error("Failed to encode status: %v", err)
		}
	}
}

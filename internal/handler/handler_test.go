package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"stoneoverlay/internal/config"
	"stoneoverlay/internal/dto"
	"stoneoverlay/internal/logger"
)

// ========================================
// Test Setup Helpers
// ========================================

func setupTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	l, err := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(l.Close)
	return l
}

type staticStatus struct{ status dto.Status }

func (s staticStatus) Status() dto.Status { return s.status }

type fixedViewers int

func (v fixedViewers) GetClientCount() int { return int(v) }

// ========================================
// Status Handler Tests
// ========================================

func TestStatusHandler_ReturnsJSON(t *testing.T) {
	l := setupTestLogger(t)
	provider := staticStatus{dto.Status{Phase: "tracking", Frames: 12, Placed: []string{"head"}}}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	StatusHandler(provider, fixedViewers(3), l)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var got dto.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if got.Phase != "tracking" || got.Frames != 12 || got.Viewers != 3 {
		t.Errorf("Unexpected status: %+v", got)
	}
	if len(got.Placed) != 1 || got.Placed[0] != "head" {
		t.Errorf("Expected placed [head], got %v", got.Placed)
	}
}

func TestStatusHandler_RejectsPost(t *testing.T) {
	l := setupTestLogger(t)

	req := httptest.NewRequest(http.MethodPost, "/api/status", nil)
	rec := httptest.NewRecorder()
	StatusHandler(staticStatus{}, nil, l)(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}

// ========================================
// Log Handler Tests
// ========================================

func TestShowLogsHandler_ServesLevel(t *testing.T) {
	l := setupTestLogger(t)
	l.Warning("stone mesh missing")

	req := httptest.NewRequest(http.MethodGet, "/logs/warning", nil)
	rec := httptest.NewRecorder()
	ShowLogsHandler(l, logger.LevelWarning)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "stone mesh missing") {
		t.Errorf("Expected log line in body, got %q", body)
	}
}

func TestShowLogsHandler_MissingFile(t *testing.T) {
	l := setupTestLogger(t)
	if err := os.Remove(l.FilePath(logger.LevelInfo)); err != nil {
		t.Fatalf("Failed to remove log file: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/logs/info", nil)
	rec := httptest.NewRecorder()
	ShowLogsHandler(l, logger.LevelInfo)(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestClearLogsHandler_Truncates(t *testing.T) {
	l := setupTestLogger(t)
	l.Error("inference failed")

	req := httptest.NewRequest(http.MethodPost, "/logs/error/clear", nil)
	rec := httptest.NewRecorder()
	ClearLogsHandler(l, logger.LevelError)(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rec.Code)
	}

	info, err := os.Stat(l.FilePath(logger.LevelError))
	if err != nil {
		t.Fatalf("Failed to stat log file: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("Expected empty log file, got %d bytes", info.Size())
	}
}

func TestClearLogsHandler_RejectsGet(t *testing.T) {
	l := setupTestLogger(t)
	l.Error("keep me")

	req := httptest.NewRequest(http.MethodGet, "/logs/error/clear", nil)
	rec := httptest.NewRecorder()
	ClearLogsHandler(l, logger.LevelError)(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected status 405, got %d", rec.Code)
	}

	data, err := os.ReadFile(l.FilePath(logger.LevelError))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "keep me") {
		t.Error("Expected log to survive a GET request")
	}
}

func TestClearLogsHandler_AcceptsDelete(t *testing.T) {
	l := setupTestLogger(t)
	l.Info("gone soon")

	req := httptest.NewRequest(http.MethodDelete, "/logs/info/clear", nil)
	rec := httptest.NewRecorder()
	ClearLogsHandler(l, logger.LevelInfo)(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}
}

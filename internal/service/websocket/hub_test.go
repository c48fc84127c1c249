package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stoneoverlay/internal/config"
	"stoneoverlay/internal/dto"
	"stoneoverlay/internal/logger"
)

func newTestHub(t *testing.T) *HubService {
	t.Helper()
	l, err := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(l.Close)

	hub := NewHubService(l)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func dialViewer(t *testing.T, hub *HubService) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_AlertReachesViewer(t *testing.T) {
	hub := newTestHub(t)
	conn := dialViewer(t, hub)

	hub.Alert("Webcam is not available")

	msg := readMessage(t, conn)
	assert.Equal(t, dto.TypeAlert, msg["type"])
	assert.Equal(t, "Webcam is not available", msg["message"])
}

func TestHub_LateViewerGetsLastAlert(t *testing.T) {
	hub := newTestHub(t)
	hub.Alert("Webcam is not available: permission denied")
	hub.PublishStatus(dto.Status{Phase: "idle", Source: "unavailable"})

	conn := dialViewer(t, hub)

	msg := readMessage(t, conn)
	assert.Equal(t, dto.TypeAlert, msg["type"])
	assert.Equal(t, "Webcam is not available: permission denied", msg["message"])

	msg = readMessage(t, conn)
	assert.Equal(t, dto.TypeStatus, msg["type"])
}

func TestHub_FrameReachesViewer(t *testing.T) {
	hub := newTestHub(t)
	conn := dialViewer(t, hub)

	hub.BroadcastFrame([]byte{0xff, 0xd8}, 7)

	msg := readMessage(t, conn)
	assert.Equal(t, dto.TypeFrame, msg["type"])
	assert.Equal(t, float64(7), msg["seq"])
	assert.Equal(t, "/9g=", msg["image"])
}

func TestHub_NewViewerGetsLastStatus(t *testing.T) {
	hub := newTestHub(t)
	hub.PublishStatus(dto.Status{Phase: "tracking", Placed: []string{"head"}})

	conn := dialViewer(t, hub)

	msg := readMessage(t, conn)
	assert.Equal(t, dto.TypeStatus, msg["type"])
	status, ok := msg["status"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "tracking", status["phase"])
}

func TestHub_BroadcastWithoutViewersDoesNotBlock(t *testing.T) {
	hub := NewHubService(nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.BroadcastFrame([]byte{1, 2, 3}, uint64(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastFrame blocked")
	}
	assert.Zero(t, hub.DroppedFrames())
}

func TestHub_RegisterAfterStop(t *testing.T) {
	l, err := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(l.Close)

	hub := NewHubService(l)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	done := make(chan struct{})
	go func() {
		hub.Unregister(nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Unregister blocked after stop")
	}
}

package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"stoneoverlay/internal/dto"
	"stoneoverlay/internal/logger"
)

const writeTimeout = 2 * time.Second

// HubService fans rendered frames, alerts and status out to viewer connections.
// All writes to connections happen on the Run goroutine.
type HubService struct {
	clients    map[*websocket.Conn]string
	frames     chan []byte
	messages   chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger

	lastAlert  []byte
	lastStatus []byte
	dropped    uint64
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]string),
		frames:     make(chan []byte, 1),
		messages:   make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves the hub until ctx is done, then closes every client.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			id := uuid.NewString()
			h.mutex.Lock()
			h.clients[client] = id
			total := len(h.clients)
			alert := h.lastAlert
			status := h.lastStatus
			h.mutex.Unlock()
			h.logger.Info("Viewer %s connected. Total: %d", id, total)
			// startup failures usually happen before anyone is watching
			for _, msg := range [][]byte{alert, status} {
				if msg != nil {
					h.send(client, msg)
				}
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			id, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			if ok {
				h.logger.Info("Viewer %s disconnected. Total: %d", id, total)
			}

		case message := <-h.messages:
			h.writeAll(message)

		case frame := <-h.frames:
			h.writeAll(frame)
		}
	}
}

func (h *HubService) writeAll(message []byte) {
	h.mutex.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	for _, client := range clients {
		h.send(client, message)
	}
}

func (h *HubService) send(client *websocket.Conn, message []byte) {
	client.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
		h.logger.Error("Error sending message: %v", err)
		h.mutex.Lock()
		delete(h.clients, client)
		h.mutex.Unlock()
		client.Close()
	}
}

// Register adds a viewer. After the hub stopped the connection is closed instead.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastFrame queues a JPEG frame. If the previous frame has not been sent
// yet the new one is dropped, so the render loop never waits on viewers.
func (h *HubService) BroadcastFrame(jpeg []byte, seq uint64) {
	if h.GetClientCount() == 0 {
		return
	}

	msg, err := json.Marshal(dto.FrameMessage{
		Type:     dto.TypeFrame,
		Sequence: seq,
		Image:    base64.StdEncoding.EncodeToString(jpeg),
	})
	if err != nil {
		h.logger.Error("Failed to encode frame message: %v", err)
		return
	}

	select {
	case h.frames <- msg:
	default:
		h.mutex.Lock()
		h.dropped++
		h.mutex.Unlock()
	}
}

// Alert sends a user-facing alert to every viewer and logs it. The latest
// alert is also replayed to viewers that connect later.
func (h *HubService) Alert(message string) {
	h.logger.Warning("Alert: %s", message)

	msg, err := json.Marshal(dto.AlertMessage{Type: dto.TypeAlert, Message: message})
	if err != nil {
		h.logger.Error("Failed to encode alert: %v", err)
		return
	}

	h.mutex.Lock()
	h.lastAlert = msg
	h.mutex.Unlock()

	h.queue(msg)
}

// PublishStatus sends the status to viewers and keeps it for new ones.
func (h *HubService) PublishStatus(status dto.Status) {
	status.Viewers = h.GetClientCount()
	msg, err := json.Marshal(dto.StatusMessage{Type: dto.TypeStatus, Status: status})
	if err != nil {
		h.logger.Error("Failed to encode status: %v", err)
		return
	}

	h.mutex.Lock()
	h.lastStatus = msg
	h.mutex.Unlock()

	h.queue(msg)
}

// queue never blocks; when the hub is backed up the message is logged and dropped.
func (h *HubService) queue(msg []byte) {
	select {
	case h.messages <- msg:
	default:
		h.logger.Warning("Viewer message queue full, dropping message")
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// DroppedFrames returns how many frames were skipped because viewers lagged.
func (h *HubService) DroppedFrames() uint64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.dropped
}

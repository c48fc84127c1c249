package dto

// Message types sent to viewers.
const (
	TypeFrame  = "frame"
	TypeAlert  = "alert"
	TypeStatus = "status"
)

// FrameMessage carries one rendered frame as base64 JPEG.
type FrameMessage struct {
	Type     string `json:"type"`
	Sequence uint64 `json:"seq"`
	Image    string `json:"image"`
}

// AlertMessage is shown to the user as a blocking alert.
type AlertMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StatusMessage wraps a Status for the websocket stream.
type StatusMessage struct {
	Type   string `json:"type"`
	Status Status `json:"status"`
}

// Status describes the render loop and pose source.
type Status struct {
	Phase         string   `json:"phase"`
	Halted        bool     `json:"halted"`
	Source        string   `json:"source"`
	Frames        uint64   `json:"frames"`
	PoseSequence  uint64   `json:"pose_sequence"`
	Placed        []string `json:"placed"`
	Unavailable   []string `json:"unavailable"`
	FramesOffered uint64   `json:"frames_offered"`
	FramesDropped uint64   `json:"frames_dropped"`
	Inferences    uint64   `json:"inferences"`
	InferenceMs   float64  `json:"inference_ms"`
	Viewers       int      `json:"viewers"`
}

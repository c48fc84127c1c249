package model

import "math"

// BlazePose body-part indices.
const (
	Nose = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	// LandmarkCount is the number of landmarks in a full pose.
	LandmarkCount
)

var landmarkNames = [LandmarkCount]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear", "mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_pinky", "right_pinky",
	"left_index", "right_index", "left_thumb", "right_thumb",
	"left_hip", "right_hip", "left_knee", "right_knee",
	"left_ankle", "right_ankle", "left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

// LandmarkName returns the body-part name for an index, or "" when unknown.
func LandmarkName(index int) string {
	if index < 0 || index >= LandmarkCount {
		return ""
	}
	return landmarkNames[index]
}

// Landmark is a detected keypoint in frame pixel coordinates.
// Z is relative depth on roughly the same scale as X; smaller is closer to the camera.
type Landmark struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Score float64 `json:"score"`
	Name  string  `json:"name,omitempty"`
}

// Pose is the landmark set of one detected person, indexed by body part.
type Pose struct {
	Landmarks []Landmark `json:"keypoints"`
	Score     float64    `json:"score"`
}

// Landmark returns the landmark at index and whether it exists.
func (p Pose) Landmark(index int) (Landmark, bool) {
	if index < 0 || index >= len(p.Landmarks) {
		return Landmark{}, false
	}
	return p.Landmarks[index], true
}

// Confident reports whether every listed landmark exists and scores strictly above min.
func (p Pose) Confident(min float64, indices ...int) bool {
	for _, idx := range indices {
		lm, ok := p.Landmark(idx)
		if !ok || !(lm.Score > min) {
			return false
		}
	}
	return true
}

// Primary returns the pose consumed by placement: the first one.
func Primary(poses []Pose) (Pose, bool) {
	if len(poses) == 0 {
		return Pose{}, false
	}
	return poses[0], true
}

// Sigmoid maps a raw model logit to [0,1].
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

package ai

import "stoneoverlay/internal/model"

// Smoother applies an exponential moving average to landmark positions
// across consecutive frames. Scores pass through unchanged.
type Smoother struct {
	alpha float64
	prev  []model.Pose
}

// NewSmoother returns a smoother weighting the newest frame by alpha, clamped to (0,1].
func NewSmoother(alpha float64) *Smoother {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &Smoother{alpha: alpha}
}

// Smooth returns the filtered poses. History restarts whenever the number of
// poses or landmarks changes.
func (s *Smoother) Smooth(poses []model.Pose) []model.Pose {
	out := make([]model.Pose, len(poses))
	for i, pose := range poses {
		out[i] = model.Pose{Score: pose.Score, Landmarks: append([]model.Landmark(nil), pose.Landmarks...)}
	}

	if len(s.prev) == len(out) {
		for i := range out {
			prev := s.prev[i].Landmarks
			if len(prev) != len(out[i].Landmarks) {
				continue
			}
			for j := range out[i].Landmarks {
				lm := &out[i].Landmarks[j]
				lm.X = s.alpha*lm.X + (1-s.alpha)*prev[j].X
				lm.Y = s.alpha*lm.Y + (1-s.alpha)*prev[j].Y
				lm.Z = s.alpha*lm.Z + (1-s.alpha)*prev[j].Z
			}
		}
	}

	s.prev = out
	return out
}

// Reset forgets the history.
func (s *Smoother) Reset() {
	s.prev = nil
}

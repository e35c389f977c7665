// Package pose holds the landmark data model produced by the external
// pose detector. Joint names follow the MediaPipe pose convention.
package pose

// Joint names the service reads. The detector may supply more; extras are
// carried through untouched.
const (
	LeftShoulder  = "left_shoulder"
	RightShoulder = "right_shoulder"
	LeftElbow     = "left_elbow"
	RightElbow    = "right_elbow"
	LeftWrist     = "left_wrist"
	RightWrist    = "right_wrist"
	LeftHip       = "left_hip"
	RightHip      = "right_hip"
	LeftIndex     = "left_index"
	RightIndex    = "right_index"
)

// Point is a normalized image-space coordinate. Y grows downward, so a
// smaller Y is higher on screen. Z is detector-relative depth and may be
// zero for 2D-only sources.
type Point struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Visibility float64 `json:"visibility,omitempty"`
}

// LandmarkSet is one candidate body detected in a frame: named joints with
// normalized coordinates. Immutable once decoded.
type LandmarkSet map[string]Point

// Get returns the named joint if the detector reported it.
func (ls LandmarkSet) Get(name string) (Point, bool) {
	p, ok := ls[name]
	return p, ok
}

// Has reports whether all named joints are present.
func (ls LandmarkSet) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := ls[n]; !ok {
			return false
		}
	}
	return true
}

// Centroid is the horizontal center of the body: the mean x of hip and
// shoulder landmarks when available, else the mean x of every joint.
func (ls LandmarkSet) Centroid() float64 {
	var sum float64
	var n int
	for _, name := range []string{LeftHip, RightHip, LeftShoulder, RightShoulder} {
		if p, ok := ls[name]; ok {
			sum += p.X
			n++
		}
	}
	if n == 0 {
		for _, p := range ls {
			sum += p.X
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// FrameSample is one frame's worth of detections.
type FrameSample struct {
	Index      int           `json:"frame"`
	Timestamp  float64       `json:"ts"`
	Detections []LandmarkSet `json:"detections"`
}

// ParticipantHint is the upstream detector's count/position estimate.
type ParticipantHint struct {
	Count     int       `json:"count"`
	Centroids []float64 `json:"centroids,omitempty"`
}

// Clip is a fully materialized landmark dump for one video.
type Clip struct {
	ClipID string           `json:"clip_id"`
	FPS    float64          `json:"fps"`
	Hint   *ParticipantHint `json:"participant_hint,omitempty"`
	Frames []FrameSample    `json:"frames"`
}

// Duration is the span of the clip in seconds.
func (c *Clip) Duration() float64 {
	if len(c.Frames) == 0 {
		return 0
	}
	return c.Frames[len(c.Frames)-1].Timestamp - c.Frames[0].Timestamp
}

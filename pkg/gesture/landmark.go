// Package gesture maps pose landmarks to a discrete pose mode and the spread
// targets that drive the echo composition.
package gesture

// Landmark is a normalized pose point. X and Y are in [0,1] image space with
// Y growing downward.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Landmarks is the per-frame landmark set indexed by pose index.
// A nil slice means no body was detected.
type Landmarks []Landmark

// MediaPipe Pose landmark indices used by the classifier.
const (
	Nose          = 0
	LeftShoulder  = 11
	RightShoulder = 12
	LeftWrist     = 15
	RightWrist    = 16

	// PoseLandmarkCount is the cardinality of a full pose landmark set.
	PoseLandmarkCount = 33
)

// At returns the landmark at index i and whether it is present.
func (l Landmarks) At(i int) (Landmark, bool) {
	if i < 0 || i >= len(l) {
		return Landmark{}, false
	}
	return l[i], true
}

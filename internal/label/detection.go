package label

// BoundingBox is a detection's screen-space extent, normalized to [0,1] in
// both axes with the origin at the top-left of the frame.
type BoundingBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the normalized center point of the box.
func (b BoundingBox) Center() (x, y float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

// Detection is one perception observation of an object in a single video
// frame. Detections are consumed immediately and never persisted.
type Detection struct {
	Class      string      `json:"class"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}
